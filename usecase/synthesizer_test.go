package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/arunika-actor/domain/repositories"
)

type countingObserver struct {
	nopObserver
	hits, misses int
}

func (o *countingObserver) CacheLookup(_ context.Context, hit bool) {
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func TestSynthesizeCachesByNormalizedText(t *testing.T) {
	model := &fakeSpeechModel{chunks: []repositories.SpeechChunk{{Data: []byte{1, 2}, MIMEType: "audio/L16;rate=24000"}}}
	observer := &countingObserver{}
	s := NewSpeechSynthesizer(model, newTestCache(t), newTestRetry(t), observer, zaptest.NewLogger(t))

	first, err := s.Synthesize(context.Background(), " Hello there ")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	second, err := s.Synthesize(context.Background(), "hello THERE")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if model.callCount() != 1 {
		t.Errorf("Expected 1 remote call, got %d", model.callCount())
	}
	if !bytes.Equal(first.Data, second.Data) {
		t.Error("Expected identical audio for normalized-equal texts")
	}
	if first.FromCache || !second.FromCache {
		t.Errorf("Expected only the second result from cache, got %v and %v", first.FromCache, second.FromCache)
	}
	if observer.hits != 1 || observer.misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %d and %d", observer.hits, observer.misses)
	}
}

func TestSynthesizeCollectsFragmentsAndFirstMIME(t *testing.T) {
	model := &fakeSpeechModel{chunks: []repositories.SpeechChunk{
		{Data: []byte("ab"), MIMEType: "audio/L16;rate=24000"},
		{Data: []byte("cd"), MIMEType: "audio/other"},
	}}
	s := NewSpeechSynthesizer(model, newTestCache(t), newTestRetry(t), nil, zaptest.NewLogger(t))

	audio, err := s.Synthesize(context.Background(), "line")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(audio.Data) != "abcd" {
		t.Errorf("Expected concatenated fragments, got %q", audio.Data)
	}
	if audio.MIMEType != "audio/L16;rate=24000" {
		t.Errorf("Expected first audio MIME type, got %q", audio.MIMEType)
	}
}

func TestSynthesizeTakesMIMEFromEmptyChunk(t *testing.T) {
	model := &fakeSpeechModel{chunks: []repositories.SpeechChunk{
		{MIMEType: "audio/L16;rate=24000"},
		{Data: []byte("ab"), MIMEType: "audio/other"},
	}}
	s := NewSpeechSynthesizer(model, newTestCache(t), newTestRetry(t), nil, zaptest.NewLogger(t))

	audio, err := s.Synthesize(context.Background(), "line")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(audio.Data) != "ab" {
		t.Errorf("Expected only the non-empty fragment, got %q", audio.Data)
	}
	if audio.MIMEType != "audio/L16;rate=24000" {
		t.Errorf("Expected MIME type of the first chunk, got %q", audio.MIMEType)
	}
}

func TestSynthesizeRetryStartsFromEmptyBuffer(t *testing.T) {
	model := &fakeSpeechModel{
		chunks: []repositories.SpeechChunk{{Data: []byte("xy"), MIMEType: "audio/L16"}},
		errs:   []error{errors.New("stream broken")},
	}
	s := NewSpeechSynthesizer(model, newTestCache(t), newTestRetry(t), nil, zaptest.NewLogger(t))

	audio, err := s.Synthesize(context.Background(), "line")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if model.callCount() != 2 {
		t.Errorf("Expected 2 calls, got %d", model.callCount())
	}
	if string(audio.Data) != "xy" {
		t.Errorf("Expected only the successful attempt's audio, got %q", audio.Data)
	}
}

func TestSynthesizeExhaustedRetries(t *testing.T) {
	cause := errors.New("quota")
	model := &fakeSpeechModel{errs: []error{errors.New("first"), cause}}
	c := newTestCache(t)
	s := NewSpeechSynthesizer(model, c, newTestRetry(t), nil, zaptest.NewLogger(t))

	audio, err := s.Synthesize(context.Background(), "line")

	var serr *SynthesisError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected SynthesisError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected the last failure to be wrapped, got %v", err)
	}
	if audio != nil {
		t.Error("Expected no audio")
	}
	if model.callCount() != 2 {
		t.Errorf("Expected 2 calls, got %d", model.callCount())
	}
	if c.Len() != 0 {
		t.Error("Failures must not be cached")
	}
}

func TestSynthesizeEmptyAudioIsNotCached(t *testing.T) {
	model := &fakeSpeechModel{}
	c := newTestCache(t)
	s := NewSpeechSynthesizer(model, c, newTestRetry(t), nil, zaptest.NewLogger(t))

	for i := 0; i < 2; i++ {
		audio, err := s.Synthesize(context.Background(), "")
		if err != nil {
			t.Fatalf("Synthesize failed: %v", err)
		}
		if !audio.Empty() {
			t.Error("Expected empty audio")
		}
	}

	if model.callCount() != 2 {
		t.Errorf("Expected every empty result to hit the model, got %d calls", model.callCount())
	}
	if model.texts[0] != "" {
		t.Errorf("Expected empty text to be sent, got %q", model.texts[0])
	}
	if c.Len() != 0 {
		t.Errorf("Expected nothing cached, got %d entries", c.Len())
	}
}
