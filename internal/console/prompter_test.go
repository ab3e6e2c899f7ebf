package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestPrompterWaitsForLines(t *testing.T) {
	in, writer := io.Pipe()
	defer writer.Close()
	p := NewPrompter(in, io.Discard, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- p.WaitStart(context.Background()) }()

	select {
	case err := <-done:
		t.Fatalf("WaitStart returned before Enter: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := writer.Write([]byte("\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitStart did not return after Enter")
	}
}

func TestPrompterStartThenStop(t *testing.T) {
	p := NewPrompter(strings.NewReader("\nignored text\n"), io.Discard, zaptest.NewLogger(t))
	ctx := context.Background()

	if err := p.WaitStart(ctx); err != nil {
		t.Fatalf("WaitStart failed: %v", err)
	}
	if err := p.WaitStop(ctx); err != nil {
		t.Fatalf("WaitStop failed: %v", err)
	}
	if err := p.WaitStart(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF after input ends, got %v", err)
	}
	if err := p.WaitStop(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF to persist, got %v", err)
	}
}

func TestPrompterWaitCancelled(t *testing.T) {
	in, writer := io.Pipe()
	defer writer.Close()
	p := NewPrompter(in, io.Discard, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := p.WaitStop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestPrompterSay(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(""), &out, zaptest.NewLogger(t))

	p.Say("Recording... press Enter again to stop.")
	p.Say("AI: %s", "Hello there!")

	// a buffer is not a terminal, so no escape codes are emitted
	want := "Recording... press Enter again to stop.\nAI: Hello there!\n"
	if out.String() != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
}
