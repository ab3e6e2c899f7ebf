package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/entities"
	"github.com/satriahrh/arunika-actor/domain/repositories"
	"github.com/satriahrh/arunika-actor/internal/animation"
)

// Performer plays synthesized audio while the mouth moves along with it
type Performer struct {
	player     repositories.Player
	animator   *animation.Animator
	sampleRate int
	channels   int
	logger     *zap.Logger
}

// PerformerConfig holds the audio format assumed when estimating how long
// the mouth should move
type PerformerConfig struct {
	SampleRate int
	Channels   int
}

// NewPerformer creates a new Performer
func NewPerformer(player repositories.Player, animator *animation.Animator, config PerformerConfig, logger *zap.Logger) *Performer {
	sampleRate := config.SampleRate
	if sampleRate == 0 {
		sampleRate = animation.DefaultSampleRate
		logger.Info("Using default estimate sample rate", zap.Int("sampleRate", sampleRate))
	}

	channels := config.Channels
	if channels == 0 {
		channels = animation.DefaultChannels
		logger.Info("Using default estimate channels", zap.Int("channels", channels))
	}

	return &Performer{
		player:     player,
		animator:   animator,
		sampleRate: sampleRate,
		channels:   channels,
		logger:     logger,
	}
}

// Duration estimates how long audio plays
func (p *Performer) Duration(audio *entities.SynthesizedAudio) time.Duration {
	return animation.EstimateDuration(len(audio.Data), p.sampleRate, p.channels)
}

// Perform animates the mouth on its own goroutine, plays audio on the
// caller's goroutine and returns once both are done, with the mouth closed.
// A playback failure cuts the animation short.
func (p *Performer) Perform(ctx context.Context, audio *entities.SynthesizedAudio) error {
	if audio.Empty() {
		return nil
	}

	duration := p.Duration(audio)
	animCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.animator.Run(animCtx, duration)
	}()

	p.logger.Info("Playing reply",
		zap.Int("audioSize", len(audio.Data)),
		zap.String("mimeType", audio.MIMEType),
		zap.Duration("estimatedDuration", duration),
		zap.Bool("fromCache", audio.FromCache))

	err := p.player.Play(ctx, audio)
	if err != nil {
		cancel()
	}
	wg.Wait()
	return err
}

// CloseMouth sends the close-mouth command immediately
func (p *Performer) CloseMouth() {
	p.animator.Close()
}

// Close releases the audio output
func (p *Performer) Close() error {
	return p.player.Close()
}
