package bus

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/arunika-actor/domain/entities"
	"github.com/satriahrh/arunika-actor/internal/config"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	messages []published
	err      error
	closed   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, published{subject, data})
	return nil
}

func (f *fakeConn) Status() nats.Status {
	if f.closed {
		return nats.CLOSED
	}
	return nats.CONNECTED
}

func (f *fakeConn) Drain() error { return nil }

func (f *fakeConn) Close() { f.closed = true }

func TestPublishSubjectAndPayload(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, "stage.left", "captain", zaptest.NewLogger(t))

	p.Publish(entities.TurnEvent{
		Type:      entities.EventTurnFinished,
		TurnID:    "turn-1",
		Sequence:  3,
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Data:      map[string]interface{}{"outcome": "spoken"},
	})

	if len(fc.messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(fc.messages))
	}
	if fc.messages[0].subject != "stage.left.turn.finished" {
		t.Errorf("Unexpected subject %s", fc.messages[0].subject)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(fc.messages[0].data, &got); err != nil {
		t.Fatalf("Invalid payload: %v", err)
	}
	if got["actor"] != "captain" || got["turn_id"] != "turn-1" || got["type"] != "turn.finished" {
		t.Errorf("Unexpected payload %v", got)
	}
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	fc := &fakeConn{err: errors.New("no responders")}
	p := newPublisher(fc, "", "captain", zaptest.NewLogger(t))

	p.Publish(entities.TurnEvent{Type: entities.EventActorReady})

	if p.Subject(entities.EventActorReady) != "actor.actor.ready" {
		t.Errorf("Expected default prefix, got %s", p.Subject(entities.EventActorReady))
	}
}

func TestHealthyAndClose(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, "actor", "captain", zaptest.NewLogger(t))

	if !p.Healthy() {
		t.Error("Expected healthy publisher")
	}
	p.Close()
	if p.Healthy() {
		t.Error("Expected closed publisher to be unhealthy")
	}

	var nilPublisher *Publisher
	if nilPublisher.Healthy() {
		t.Error("Nil publisher should not be healthy")
	}
	nilPublisher.Close()
}

func TestConnectRequiresServers(t *testing.T) {
	if _, err := Connect(context.Background(), config.BusConfig{}, "captain", zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error without servers")
	}
}

// Integration test - needs a reachable NATS server
func TestPublisher_Integration(t *testing.T) {
	url := os.Getenv("ACTOR_TEST_NATS_URL")
	if url == "" {
		t.Skip("Skipping integration test - set ACTOR_TEST_NATS_URL")
	}

	cfg := config.BusConfig{Servers: []string{url}, SubjectPrefix: "actor-test", ConnectTimeout: 2000}
	p, err := Connect(context.Background(), cfg, "captain", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer p.Close()

	sub, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("Subscriber connect failed: %v", err)
	}
	defer sub.Close()

	ch := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe("actor-test.>", ch)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer s.Unsubscribe()
	sub.Flush()

	p.Publish(entities.TurnEvent{Type: entities.EventTurnStarted, TurnID: "t"})

	select {
	case msg := <-ch:
		if msg.Subject != "actor-test.turn.started" {
			t.Errorf("Unexpected subject %s", msg.Subject)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for message")
	}
}
