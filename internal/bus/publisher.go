package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/entities"
	"github.com/satriahrh/arunika-actor/internal/config"
)

// conn is the part of *nats.Conn the publisher uses
type conn interface {
	Publish(subject string, data []byte) error
	Status() nats.Status
	Drain() error
	Close()
}

// Publisher forwards TurnEvents to NATS subjects named
// <prefix>.<event type>, e.g. "actor.turn.finished"
type Publisher struct {
	conn   conn
	prefix string
	actor  string
	logger *zap.Logger
}

// Connect dials the configured NATS servers
func Connect(ctx context.Context, cfg config.BusConfig, actor string, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}

	options := []nats.Option{
		nats.Name(actor),
		nats.Timeout(cfg.Timeout()),
	}
	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}

	url := strings.Join(cfg.Servers, ",")
	nc, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	logger.Info("Connected to NATS", zap.String("servers", url))
	return newPublisher(nc, cfg.SubjectPrefix, actor, logger), nil
}

func newPublisher(c conn, prefix, actor string, logger *zap.Logger) *Publisher {
	if prefix == "" {
		prefix = "actor"
	}
	return &Publisher{conn: c, prefix: prefix, actor: actor, logger: logger}
}

// Subject returns the subject an event type is published on
func (p *Publisher) Subject(eventType entities.TurnEventType) string {
	return p.prefix + "." + string(eventType)
}

type message struct {
	Actor string `json:"actor"`
	entities.TurnEvent
}

// Publish sends one event. Failures are logged and dropped.
func (p *Publisher) Publish(event entities.TurnEvent) {
	data, err := json.Marshal(message{Actor: p.actor, TurnEvent: event})
	if err != nil {
		p.logger.Warn("Failed to encode event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}

	subject := p.Subject(event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}

// Healthy reports whether the connection is up
func (p *Publisher) Healthy() bool {
	return p != nil && p.conn != nil && p.conn.Status() == nats.CONNECTED
}

// Close drains and closes the connection
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.logger.Info("Closing NATS connection")
	p.conn.Drain()
	p.conn.Close()
}
