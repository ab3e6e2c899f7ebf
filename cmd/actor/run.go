package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/adapters/audio"
	"github.com/satriahrh/arunika-actor/domain/repositories"
	"github.com/satriahrh/arunika-actor/internal/api"
	"github.com/satriahrh/arunika-actor/internal/auth"
	"github.com/satriahrh/arunika-actor/internal/bus"
	"github.com/satriahrh/arunika-actor/internal/console"
	"github.com/satriahrh/arunika-actor/internal/events"
	"github.com/satriahrh/arunika-actor/internal/journal"
	"github.com/satriahrh/arunika-actor/internal/websocket"
	"github.com/satriahrh/arunika-actor/usecase"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interactive turn loop",
	Long: `Run the interactive turn loop.

Press Enter to start recording and Enter again to stop. The actor uploads the
recording, generates a reply, speaks it and moves its mouth along. Ctrl+C
closes the mouth, the serial link and the audio output before exiting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runActor(ctx, cmd)
	},
}

func runActor(ctx context.Context, cmd *cobra.Command) error {
	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	gemini := &geminiClient{}
	replyModel, err := newReplyModel(ctx, gemini)
	if err != nil {
		return err
	}
	speechModel, err := newSpeechModel(ctx, gemini)
	if err != nil {
		return err
	}

	pa, err := newPortAudio()
	if err != nil {
		return err
	}
	defer pa.Close()

	player, err := newPlayer(pa)
	if err != nil {
		return err
	}

	synthesizer, responseCache, err := newSynthesizer(speechModel, s)
	if err != nil {
		return err
	}

	dispatcher := events.NewDispatcher(0, logger.Named("events"))

	var turnJournal repositories.TurnJournal
	if cfg.Journal.Enabled {
		store, err := journal.Open(ctx, cfg.Journal, cfg.ActorName, logger.Named("journal"))
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer store.Close()

		pruner := journal.NewPruner(store, 0, nil, logger.Named("journal"))
		pruner.Start()
		defer pruner.Stop()
		turnJournal = store
	}

	var publisher *bus.Publisher
	if cfg.Bus.Enabled {
		publisher, err = bus.Connect(ctx, cfg.Bus, cfg.ActorName, logger.Named("bus"))
		if err != nil {
			return fmt.Errorf("failed to connect to event bus: %w", err)
		}
		defer publisher.Close()
		dispatcher.Subscribe("bus", publisher.Publish)
	}

	orchestrator, err := usecase.NewOrchestrator(usecase.Dependencies{
		Actuator:    s.link,
		Recorder:    pa,
		Prompter:    console.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout(), logger.Named("console")),
		Files:       audio.NewWAVWriter(cfg.Capture.TempDir, logger.Named("audio")),
		Generator:   usecase.NewReplyGenerator(replyModel, cfg.LLM.Prompt, s.retry, logger.Named("generator")),
		Synthesizer: synthesizer,
		Performer:   newPerformer(player, s),
		Transcriber: newTranscriber(),
		Events:      dispatcher,
		Journal:     turnJournal,
		Observer:    s.telemetry,
	}, usecase.OrchestratorConfig{
		Servos:             cfg.Servos,
		TranscriptLanguage: cfg.Transcript.Language,
	}, logger.Named("orchestrator"))
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	serveCtx, stopServing := context.WithCancel(context.Background())
	defer func() {
		stopServing()
		wg.Wait()
	}()

	if cfg.HTTP.Enabled {
		issuer, err := auth.NewTokenIssuer(cfg.HTTP.JWTSecret, cfg.ActorName, cfg.HTTP.TokenTTL())
		if err != nil {
			return err
		}

		hub := websocket.NewHub(cfg.ActorName, logger.Named("websocket"))
		dispatcher.Subscribe("websocket", hub.Broadcast)

		deps := api.Dependencies{
			Actor:   cfg.ActorName,
			Status:  orchestrator,
			Cache:   responseCache,
			Hub:     hub,
			Issuer:  issuer,
			Metrics: s.telemetry.Handler(),
		}
		if turnJournal != nil {
			deps.Journal = turnJournal
		}
		if publisher != nil {
			deps.Bus = publisher
		}
		server := api.NewServer(cfg.HTTP.Address(), deps, logger.Named("api"))

		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Run(serveCtx)
		}()
		go func() {
			defer wg.Done()
			if err := server.Run(serveCtx); err != nil {
				logger.Error("Status server failed", zap.Error(err))
			}
		}()
	}

	dispatcher.Start()
	defer dispatcher.Close()

	logger.Info("Starting actor",
		zap.String("llm", cfg.LLM.Mode),
		zap.String("tts", cfg.TTS.Mode),
		zap.String("playback", cfg.Playback.Mode),
		zap.String("serial", cfg.Serial.Port))

	return orchestrator.Run(ctx)
}
