package usecase

import (
	"bytes"
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/entities"
	"github.com/satriahrh/arunika-actor/domain/repositories"
	"github.com/satriahrh/arunika-actor/internal/cache"
	"github.com/satriahrh/arunika-actor/internal/retry"
)

// SpeechSynthesizer turns reply text into audio, serving repeats from the
// response cache
type SpeechSynthesizer struct {
	model    repositories.SpeechModel
	cache    *cache.ResponseCache
	retry    *retry.Executor
	observer Observer
	logger   *zap.Logger
}

// NewSpeechSynthesizer creates a new SpeechSynthesizer
func NewSpeechSynthesizer(
	model repositories.SpeechModel,
	responseCache *cache.ResponseCache,
	retryExecutor *retry.Executor,
	observer Observer,
	logger *zap.Logger,
) *SpeechSynthesizer {
	if observer == nil {
		observer = NopObserver
	}
	return &SpeechSynthesizer{
		model:    model,
		cache:    responseCache,
		retry:    retryExecutor,
		observer: observer,
		logger:   logger,
	}
}

// Synthesize returns the audio for text. A cache hit makes no remote call.
// On a miss the remote stream is retried as a whole; each attempt starts
// from an empty buffer. Non-empty results are cached under text.
func (s *SpeechSynthesizer) Synthesize(ctx context.Context, text string) (*entities.SynthesizedAudio, error) {
	if cached, ok := s.cache.Get(text); ok {
		s.observer.CacheLookup(ctx, true)
		s.logger.Info("Using cached speech",
			zap.Int("textLength", len(text)),
			zap.Int("audioSize", len(cached.Data)))
		return &cached, nil
	}
	s.observer.CacheLookup(ctx, false)

	audio, err := retry.Do(ctx, s.retry, "synthesize", func(ctx context.Context) (*entities.SynthesizedAudio, error) {
		var (
			buf      bytes.Buffer
			mimeType string
		)
		err := s.model.StreamSpeech(ctx, text, func(chunk repositories.SpeechChunk) error {
			if mimeType == "" {
				mimeType = chunk.MIMEType
			}
			if len(chunk.Data) == 0 {
				return nil
			}
			buf.Write(chunk.Data)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &entities.SynthesizedAudio{Data: buf.Bytes(), MIMEType: mimeType}, nil
	})
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}

	if audio.Empty() {
		s.logger.Warn("Speech model returned no audio", zap.Int("textLength", len(text)))
		return audio, nil
	}

	s.cache.Put(text, *audio)
	s.logger.Info("Synthesized speech",
		zap.Int("textLength", len(text)),
		zap.Int("audioSize", len(audio.Data)),
		zap.String("mimeType", audio.MIMEType))
	return audio, nil
}
