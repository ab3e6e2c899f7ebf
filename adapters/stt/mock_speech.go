package stt

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/repositories"
)

// MockSpeechToText returns canned transcripts picked by recording length
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{logger: logger}
}

func (s *MockSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	s.logger.Info("Processing speech-to-text",
		zap.Int("audioSize", len(audioData)),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding))

	return mockTranscript(len(audioData)), nil
}

// mockTranscript picks a canned line from the size of 16 kHz mono PCM
func mockTranscript(size int) string {
	switch {
	case size > 160000:
		return "Tell me a story about the sea, and make it a long one."
	case size > 32000:
		return "Hello there, how are you today?"
	case size > 1000:
		return "Hello!"
	default:
		return "Hm?"
	}
}
