package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/satriahrh/arunika-actor/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeHello     MessageType = "hello"
	MessageTypeEvent     MessageType = "event"
	MessageTypePing      MessageType = "ping"
	MessageTypePong      MessageType = "pong"
	MessageTypeSubscribe MessageType = "subscribe"
	MessageTypeError     MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
}

// HelloMessage greets a monitor after it connects
type HelloMessage struct {
	BaseMessage
	Actor   string `json:"actor"`
	Subject string `json:"subject"`
}

// EventMessage carries one turn event to monitors
type EventMessage struct {
	BaseMessage
	Event entities.TurnEvent `json:"event"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// SubscribeMessage narrows the event types a monitor receives. An empty
// list restores every event.
type SubscribeMessage struct {
	BaseMessage
	Events []entities.TurnEventType `json:"events"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessageValidator validates inbound monitor messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses an inbound message. Only ping and subscribe are
// accepted from monitors.
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	case MessageTypeSubscribe:
		var msg SubscribeMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid subscribe message: %w", err)
		}
		for _, t := range msg.Events {
			if !knownEventType(t) {
				return nil, fmt.Errorf("unknown event type: %s", t)
			}
		}
		return &msg, nil

	case "":
		return nil, fmt.Errorf("message type is required")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func knownEventType(t entities.TurnEventType) bool {
	switch t {
	case entities.EventTurnStarted, entities.EventStateChanged, entities.EventTurnFinished,
		entities.EventActorReady, entities.EventActorShutdown:
		return true
	}
	return false
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// CreateEventMessage wraps a turn event
func CreateEventMessage(event entities.TurnEvent) *EventMessage {
	return &EventMessage{BaseMessage: newBase(MessageTypeEvent), Event: event}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{BaseMessage: newBase(MessageTypeError), Code: code, Message: message}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{BaseMessage: newBase(MessageTypePong), Data: data}
}

// CreateHelloMessage creates the greeting sent on connect
func CreateHelloMessage(actor, subject string) *HelloMessage {
	return &HelloMessage{BaseMessage: newBase(MessageTypeHello), Actor: actor, Subject: subject}
}
