package entities

import (
	"errors"
	"time"
)

// CapturedAudio holds one utterance recorded from the microphone as
// 16-bit little-endian PCM
type CapturedAudio struct {
	PCM        []byte `json:"-"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Duration returns the play length of the captured PCM
func (c *CapturedAudio) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	frames := len(c.PCM) / (2 * c.Channels)
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Validate validates the captured audio
func (c *CapturedAudio) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}
	if c.Channels <= 0 {
		return errors.New("channels must be positive")
	}
	if len(c.PCM)%2 != 0 {
		return errors.New("pcm data must be 16-bit aligned")
	}
	return nil
}

// SynthesizedAudio is the spoken rendition of a reply. It is shared
// read-only by playback and mouth animation for one turn.
type SynthesizedAudio struct {
	Data      []byte `json:"-"`
	MIMEType  string `json:"mime_type"`
	FromCache bool   `json:"from_cache"`
}

// Empty reports whether there is nothing to play
func (a *SynthesizedAudio) Empty() bool {
	return a == nil || len(a.Data) == 0
}

// TurnEventType names an observable step of the actor
type TurnEventType string

const (
	EventTurnStarted   TurnEventType = "turn.started"
	EventStateChanged  TurnEventType = "turn.state_changed"
	EventTurnFinished  TurnEventType = "turn.finished"
	EventActorReady    TurnEventType = "actor.ready"
	EventActorShutdown TurnEventType = "actor.shutdown"
)

// TurnEvent is published on every state transition of the orchestrator
type TurnEvent struct {
	Type      TurnEventType          `json:"type"`
	TurnID    string                 `json:"turn_id,omitempty"`
	Sequence  int                    `json:"sequence,omitempty"`
	State     TurnState              `json:"state,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
