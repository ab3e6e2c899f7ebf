package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TurnState represents where a conversational turn is in the actor's pipeline
type TurnState string

const (
	TurnStateAwaitingInput TurnState = "awaiting_input"
	TurnStateCapturing     TurnState = "capturing"
	TurnStateGenerating    TurnState = "generating"
	TurnStateSynthesizing  TurnState = "synthesizing"
	TurnStatePlaying       TurnState = "playing"
	TurnStateCleanup       TurnState = "cleanup"
	TurnStateShuttingDown  TurnState = "shutting_down"
)

// TurnOutcome summarizes how a finished turn ended
type TurnOutcome string

const (
	TurnOutcomeSpoken      TurnOutcome = "spoken"
	TurnOutcomeSilent      TurnOutcome = "silent"
	TurnOutcomeFailed      TurnOutcome = "failed"
	TurnOutcomeInterrupted TurnOutcome = "interrupted"
)

// allowedTransitions lists the forward edges of the turn state machine.
// ShuttingDown is reachable from every state and is handled separately.
var allowedTransitions = map[TurnState][]TurnState{
	TurnStateAwaitingInput: {TurnStateCapturing},
	TurnStateCapturing:     {TurnStateGenerating, TurnStateCleanup},
	TurnStateGenerating:    {TurnStateSynthesizing, TurnStateCleanup},
	TurnStateSynthesizing:  {TurnStatePlaying, TurnStateCleanup},
	TurnStatePlaying:       {TurnStateCleanup},
	TurnStateCleanup:       {TurnStateAwaitingInput},
}

// ErrInvalidTransition is returned when a turn is asked to move along an edge
// the state machine does not have.
var ErrInvalidTransition = errors.New("invalid turn state transition")

// SessionTurn is one capture → reply → speech cycle of the actor.
// Nothing in it survives past Cleanup except what the journal records.
type SessionTurn struct {
	ID            string        `json:"id"`
	Sequence      int           `json:"sequence"`
	State         TurnState     `json:"state"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
	Transcript    string        `json:"transcript,omitempty"`
	ReplyText     string        `json:"reply_text"`
	AudioBytes    int           `json:"audio_bytes"`
	AudioDuration time.Duration `json:"audio_duration"`
	CacheHit      bool          `json:"cache_hit"`
	Outcome       TurnOutcome   `json:"outcome,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// NewSessionTurn creates a turn waiting for the start cue
func NewSessionTurn(sequence int, now time.Time) *SessionTurn {
	return &SessionTurn{
		ID:        uuid.NewString(),
		Sequence:  sequence,
		State:     TurnStateAwaitingInput,
		StartedAt: now,
	}
}

// CanTransition reports whether the turn may move from its current state to next
func (t *SessionTurn) CanTransition(next TurnState) bool {
	if next == TurnStateShuttingDown {
		return t.State != TurnStateShuttingDown
	}
	for _, s := range allowedTransitions[t.State] {
		if s == next {
			return true
		}
	}
	return false
}

// Transition moves the turn to next, rejecting edges the state machine lacks
func (t *SessionTurn) Transition(next TurnState) error {
	if !t.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.State, next)
	}
	t.State = next
	return nil
}

// Finish records the outcome of the turn. A non-nil err is kept as text only.
func (t *SessionTurn) Finish(outcome TurnOutcome, err error, now time.Time) {
	t.Outcome = outcome
	if err != nil {
		t.Error = err.Error()
	}
	t.FinishedAt = &now
}

// IsFinished reports whether Finish has been called
func (t *SessionTurn) IsFinished() bool {
	return t.FinishedAt != nil
}

// Elapsed returns the wall time of a finished turn, or zero
func (t *SessionTurn) Elapsed() time.Duration {
	if t.FinishedAt == nil {
		return 0
	}
	return t.FinishedAt.Sub(t.StartedAt)
}

// Validate validates the turn data
func (t *SessionTurn) Validate() error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if t.Sequence < 1 {
		return errors.New("sequence must start at 1")
	}
	if _, ok := allowedTransitions[t.State]; !ok && t.State != TurnStateShuttingDown {
		return fmt.Errorf("invalid turn state %q", t.State)
	}
	if t.FinishedAt != nil && t.Outcome == "" {
		return errors.New("finished turn requires an outcome")
	}
	return nil
}
