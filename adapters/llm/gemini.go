package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/arunika-actor/domain/repositories"
)

const (
	defaultModel          = "gemini-2.5-flash"
	defaultTimeoutSeconds = 60
	defaultAudioMIMEType  = "audio/wav"
)

// GeminiConfig holds configuration for the GeminiReplyModel
// Optional fields with defaults:
// - Model: The model ID to use (default: "gemini-2.5-flash")
// - TimeoutSeconds: Per-call timeout (default: 60)
// - AudioMIMEType: MIME type of uploaded recordings (default: "audio/wav")
type GeminiConfig struct {
	Model          string
	Temperature    float32
	TimeoutSeconds int
	AudioMIMEType  string
}

// NewGeminiClient creates a Gemini API client
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// GeminiReplyModel implements the ReplyModel interface using Google's Gemini API
type GeminiReplyModel struct {
	client        *genai.Client
	model         string
	temperature   float32
	timeout       time.Duration
	audioMIMEType string
	logger        *zap.Logger
}

// Ensure GeminiReplyModel implements the ReplyModel interface
var _ repositories.ReplyModel = (*GeminiReplyModel)(nil)

// NewGeminiReplyModel creates a new Gemini reply model
func NewGeminiReplyModel(client *genai.Client, config GeminiConfig, logger *zap.Logger) (*GeminiReplyModel, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
		logger.Info("Using default timeoutSeconds", zap.Int("timeoutSeconds", timeoutSeconds))
	}

	audioMIMEType := config.AudioMIMEType
	if audioMIMEType == "" {
		audioMIMEType = defaultAudioMIMEType
	}

	return &GeminiReplyModel{
		client:        client,
		model:         model,
		temperature:   config.Temperature,
		timeout:       time.Duration(timeoutSeconds) * time.Second,
		audioMIMEType: audioMIMEType,
		logger:        logger,
	}, nil
}

// Upload uploads the recording at path through the Files API
func (g *GeminiReplyModel) Upload(ctx context.Context, path string) (repositories.AudioRef, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	file, err := g.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: g.audioMIMEType})
	if err != nil {
		return repositories.AudioRef{}, fmt.Errorf("failed to upload recording: %w", err)
	}

	mimeType := file.MIMEType
	if mimeType == "" {
		mimeType = g.audioMIMEType
	}

	g.logger.Debug("Uploaded recording",
		zap.String("name", file.Name),
		zap.String("uri", file.URI))
	return repositories.AudioRef{Name: file.Name, URI: file.URI, MIMEType: mimeType}, nil
}

// StreamReply streams a reply for the prompt and the uploaded recording
func (g *GeminiReplyModel) StreamReply(ctx context.Context, prompt string, audio repositories.AudioRef, yield func(repositories.ReplyChunk) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromURI(audio.URI, audio.MIMEType),
		}, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{}
	if g.temperature > 0 {
		config.Temperature = genai.Ptr(g.temperature)
	}

	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
		if err != nil {
			return fmt.Errorf("reply stream failed: %w", err)
		}
		if err := yield(replyChunk(resp)); err != nil {
			return err
		}
	}
	return nil
}

// replyChunk extracts the text parts of the first candidate
func replyChunk(resp *genai.GenerateContentResponse) repositories.ReplyChunk {
	var chunk repositories.ReplyChunk
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return chunk
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			chunk.Texts = append(chunk.Texts, part.Text)
		}
	}
	return chunk
}

// Release deletes the uploaded recording
func (g *GeminiReplyModel) Release(ctx context.Context, audio repositories.AudioRef) error {
	if audio.Name == "" {
		return nil
	}
	_, err := g.client.Files.Delete(ctx, audio.Name, nil)
	return err
}
