package tts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/arunika-actor/domain/repositories"
)

const (
	defaultGeminiModel       = "gemini-2.5-flash-preview-tts"
	defaultGeminiVoice       = "Aoede"
	defaultGeminiTemperature = 0.8
	defaultGeminiTimeout     = 60 * time.Second
)

// GeminiSpeechConfig holds configuration for the GeminiSpeech adapter
// Optional fields with defaults:
// - Model: The TTS model (default: "gemini-2.5-flash-preview-tts")
// - Voice: Prebuilt voice name (default: "Aoede")
// - Temperature: Sampling temperature (default: 0.8)
// - Timeout: Per-call timeout (default: 60s)
type GeminiSpeechConfig struct {
	Model       string
	Voice       string
	Temperature float32
	Timeout     time.Duration
}

// GeminiSpeech implements SpeechModel using Gemini's native audio output
type GeminiSpeech struct {
	client      *genai.Client
	model       string
	voice       string
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

// Ensure GeminiSpeech implements the SpeechModel interface
var _ repositories.SpeechModel = (*GeminiSpeech)(nil)

// NewGeminiSpeech creates a new Gemini TTS adapter
func NewGeminiSpeech(client *genai.Client, config GeminiSpeechConfig, logger *zap.Logger) (*GeminiSpeech, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini client is required")
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
		logger.Info("Using default TTS model", zap.String("model", model))
	}

	voice := config.Voice
	if voice == "" {
		voice = defaultGeminiVoice
		logger.Info("Using default voice", zap.String("voice", voice))
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = defaultGeminiTemperature
		logger.Info("Using default temperature", zap.Float32("temperature", temperature))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultGeminiTimeout
	}

	return &GeminiSpeech{
		client:      client,
		model:       model,
		voice:       voice,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger,
	}, nil
}

// StreamSpeech streams synthesized audio for text. Only inline audio of the
// first part of the first candidate is forwarded.
func (g *GeminiSpeech) StreamSpeech(ctx context.Context, text string, yield func(repositories.SpeechChunk) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(text)}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature:        genai.Ptr(g.temperature),
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.voice},
			},
		},
	}

	chunks := 0
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
		if err != nil {
			return fmt.Errorf("speech stream failed: %w", err)
		}
		chunk, ok := speechChunk(resp)
		if !ok {
			continue
		}
		chunks++
		if err := yield(chunk); err != nil {
			return err
		}
	}

	g.logger.Debug("Finished speech stream", zap.Int("chunks", chunks), zap.String("voice", g.voice))
	return nil
}

func speechChunk(resp *genai.GenerateContentResponse) (repositories.SpeechChunk, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return repositories.SpeechChunk{}, false
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0] == nil || content.Parts[0].InlineData == nil {
		return repositories.SpeechChunk{}, false
	}
	blob := content.Parts[0].InlineData
	return repositories.SpeechChunk{Data: blob.Data, MIMEType: blob.MIMEType}, true
}
