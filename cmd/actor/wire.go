package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/arunika-actor/adapters/audio"
	"github.com/satriahrh/arunika-actor/adapters/llm"
	"github.com/satriahrh/arunika-actor/adapters/stt"
	"github.com/satriahrh/arunika-actor/adapters/tts"
	"github.com/satriahrh/arunika-actor/domain/repositories"
	"github.com/satriahrh/arunika-actor/internal/actuator"
	"github.com/satriahrh/arunika-actor/internal/animation"
	"github.com/satriahrh/arunika-actor/internal/cache"
	"github.com/satriahrh/arunika-actor/internal/retry"
	"github.com/satriahrh/arunika-actor/internal/telemetry"
	"github.com/satriahrh/arunika-actor/usecase"
)

const telemetryShutdownTimeout = 5 * time.Second

// stack holds what every command that talks to the board needs
type stack struct {
	telemetry *telemetry.Telemetry
	link      *actuator.Link
	retry     *retry.Executor
}

func newStack(ctx context.Context) (*stack, error) {
	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		TraceFile:    cfg.Telemetry.TraceFile,
	}, logger.Named("telemetry"))
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	link, err := connectActuator(ctx, tel)
	if err != nil {
		shutdownTelemetry(tel)
		return nil, err
	}

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.Retry.MaxAttempts
	policy.BaseDelay = cfg.Retry.BaseDelay()
	policy.OnRetry = tel.RecordRetry

	return &stack{
		telemetry: tel,
		link:      link,
		retry:     retry.NewExecutor(policy, logger.Named("retry")),
	}, nil
}

func (s *stack) close() {
	if err := s.link.Close(); err != nil {
		logger.Warn("Failed to close actuator link", zap.Error(err))
	}
	shutdownTelemetry(s.telemetry)
}

func shutdownTelemetry(tel *telemetry.Telemetry) {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer cancel()
	if err := tel.Shutdown(ctx); err != nil {
		logger.Warn("Failed to shut down telemetry", zap.Error(err))
	}
}

func connectActuator(ctx context.Context, tel *telemetry.Telemetry) (*actuator.Link, error) {
	opts := []actuator.Option{actuator.WithWriteFailureHook(tel.RecordActuatorFailure)}
	if cfg.Serial.Port == actuator.DryRunPort {
		opts = append(opts, actuator.WithOpener(actuator.DryRunOpener(logger)))
		logger.Warn("Serial port is dry-run, actuator records are only logged")
	}

	return actuator.Connect(ctx, actuator.Config{
		Port:        cfg.Serial.Port,
		BaudRate:    cfg.Serial.BaudRate,
		SettleDelay: cfg.Serial.SettleDelay(),
	}, logger.Named("actuator"), opts...)
}

// geminiClient is created lazily; mock backends never need a key
type geminiClient struct {
	client *genai.Client
}

func (g *geminiClient) get(ctx context.Context) (*genai.Client, error) {
	if g.client != nil {
		return g.client, nil
	}
	client, err := llm.NewGeminiClient(ctx, cfg.LLM.APIKey)
	if err != nil {
		return nil, err
	}
	g.client = client
	return client, nil
}

func newReplyModel(ctx context.Context, gemini *geminiClient) (repositories.ReplyModel, error) {
	switch cfg.LLM.Mode {
	case "mock":
		logger.Warn("Using mock reply model")
		return llm.NewMockReplyModel(), nil
	default:
		client, err := gemini.get(ctx)
		if err != nil {
			return nil, err
		}
		return llm.NewGeminiReplyModel(client, llm.GeminiConfig{
			Model:          cfg.LLM.Model,
			Temperature:    float32(cfg.LLM.Temperature),
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}, logger.Named("llm"))
	}
}

func newSpeechModel(ctx context.Context, gemini *geminiClient) (repositories.SpeechModel, error) {
	switch cfg.TTS.Mode {
	case "mock":
		logger.Warn("Using mock speech model")
		return tts.NewMockSpeech(), nil
	case "elevenlabs":
		return tts.NewElevenLabsTTS(tts.NewElevenLabsConfigFromEnv(), logger.Named("tts"))
	default:
		client, err := gemini.get(ctx)
		if err != nil {
			return nil, err
		}
		return tts.NewGeminiSpeech(client, tts.GeminiSpeechConfig{
			Model:       cfg.TTS.Model,
			Voice:       cfg.TTS.Voice,
			Temperature: float32(cfg.TTS.Temperature),
			Timeout:     time.Duration(cfg.TTS.TimeoutSeconds) * time.Second,
		}, logger.Named("tts"))
	}
}

func newTranscriber() repositories.SpeechToText {
	if !cfg.Transcript.Enabled {
		return nil
	}
	if cfg.Transcript.Mode == "mock" {
		return stt.NewMockSpeechToText(logger.Named("stt"))
	}
	return stt.NewGoogleSpeechToText(logger.Named("stt"))
}

// newPlayer returns the configured audio output. With portaudio the device
// is shared with the recorder when one is given.
func newPlayer(pa *audio.PortAudio) (repositories.Player, error) {
	if cfg.Playback.Mode == "exec" {
		return audio.NewExecPlayer(cfg.Playback.Command, cfg.Capture.TempDir, logger.Named("playback"))
	}
	if pa != nil {
		return pa, nil
	}
	return newPortAudio()
}

func newPortAudio() (*audio.PortAudio, error) {
	return audio.NewPortAudio(audio.PortAudioConfig{
		SampleRate:      cfg.Capture.SampleRate,
		FramesPerBuffer: cfg.Capture.FramesPerBuffer,
	}, logger.Named("audio"))
}

func newSynthesizer(model repositories.SpeechModel, s *stack) (*usecase.SpeechSynthesizer, *cache.ResponseCache, error) {
	responseCache, err := cache.New(cache.Config{Capacity: cfg.Cache.Capacity}, logger.Named("cache"))
	if err != nil {
		return nil, nil, err
	}
	return usecase.NewSpeechSynthesizer(model, responseCache, s.retry, s.telemetry, logger.Named("synthesizer")), responseCache, nil
}

func newPerformer(player repositories.Player, s *stack) *usecase.Performer {
	animator := animation.NewAnimator(s.link, animation.Config{MouthServo: cfg.Servos.Mouth}, logger.Named("animation"))
	return usecase.NewPerformer(player, animator, usecase.PerformerConfig{
		SampleRate: cfg.Playback.SampleRate,
		Channels:   cfg.Playback.Channels,
	}, logger.Named("performer"))
}
