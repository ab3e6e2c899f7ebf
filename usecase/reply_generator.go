package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/repositories"
	"github.com/satriahrh/arunika-actor/internal/retry"
)

// DefaultActorPrompt seeds every reply when no prompt is configured
const DefaultActorPrompt = `You are a theatrical animatronic character performing for a live audience.
Listen to the attached recording and answer the speaker in character.
Reply with plain spoken text only, in one to three short sentences, without stage directions or markup.`

const releaseTimeout = 10 * time.Second

// ReplyGenerator produces the actor's reply to a captured utterance
type ReplyGenerator struct {
	model  repositories.ReplyModel
	prompt string
	retry  *retry.Executor
	logger *zap.Logger
}

// NewReplyGenerator creates a new ReplyGenerator
func NewReplyGenerator(model repositories.ReplyModel, prompt string, retryExecutor *retry.Executor, logger *zap.Logger) *ReplyGenerator {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultActorPrompt
		logger.Info("Using default actor prompt")
	}
	return &ReplyGenerator{
		model:  model,
		prompt: prompt,
		retry:  retryExecutor,
		logger: logger,
	}
}

// Generate uploads the recording at audioPath and streams a reply for it.
// Text fragments are joined in arrival order and trimmed. The upload and
// the generation are retried independently.
func (g *ReplyGenerator) Generate(ctx context.Context, audioPath string) (string, error) {
	ref, err := retry.Do(ctx, g.retry, "upload", func(ctx context.Context) (repositories.AudioRef, error) {
		return g.model.Upload(ctx, audioPath)
	})
	if err != nil {
		return "", &GenerationError{Stage: "upload", Err: err}
	}
	defer g.release(ref)

	g.logger.Debug("Uploaded recording", zap.String("name", ref.Name), zap.String("mimeType", ref.MIMEType))

	reply, err := retry.Do(ctx, g.retry, "generate", func(ctx context.Context) (string, error) {
		var sb strings.Builder
		err := g.model.StreamReply(ctx, g.prompt, ref, func(chunk repositories.ReplyChunk) error {
			for _, text := range chunk.Texts {
				sb.WriteString(text)
			}
			return nil
		})
		if err != nil {
			return "", err
		}
		return sb.String(), nil
	})
	if err != nil {
		return "", &GenerationError{Stage: "generate", Err: err}
	}

	return strings.TrimSpace(reply), nil
}

// release frees the uploaded recording on a fresh context so it also runs
// after the turn was interrupted
func (g *ReplyGenerator) release(ref repositories.AudioRef) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if err := g.model.Release(ctx, ref); err != nil {
		g.logger.Debug("Failed to release uploaded recording", zap.String("name", ref.Name), zap.Error(err))
	}
}
