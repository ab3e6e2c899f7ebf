package tts

import (
	"context"
	"testing"

	"github.com/satriahrh/arunika-actor/domain/repositories"
)

func TestMockSpeechLengthFollowsWords(t *testing.T) {
	m := NewMockSpeech()

	total := 0
	err := m.StreamSpeech(context.Background(), "one two three", func(chunk repositories.SpeechChunk) error {
		if chunk.MIMEType != MockMIMEType {
			t.Errorf("Unexpected MIME type %s", chunk.MIMEType)
		}
		total += len(chunk.Data)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamSpeech failed: %v", err)
	}

	if want := 3 * mockWordFrames * 2; total != want {
		t.Errorf("Expected %d bytes, got %d", want, total)
	}
}

func TestMockSpeechBlankText(t *testing.T) {
	m := NewMockSpeech()

	err := m.StreamSpeech(context.Background(), "   ", func(repositories.SpeechChunk) error {
		t.Error("No chunk expected for blank text")
		return nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestMockSpeechCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMockSpeech().StreamSpeech(ctx, "hello", func(repositories.SpeechChunk) error { return nil })
	if err == nil {
		t.Error("Expected context error")
	}
}
