package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sayRepeat int

var sayCmd = &cobra.Command{
	Use:   "say <text>",
	Short: "Speak one line with mouth animation",
	Long: `Synthesize text, play it and move the mouth along, without recording.

Repeating the line with --repeat is served from the response cache after the
first synthesis.`,
	Example: `  actor say "Good evening, and welcome."
  actor say --repeat 3 "Bravo!"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		text := strings.Join(args, " ")
		if sayRepeat < 1 {
			return fmt.Errorf("--repeat must be at least 1, got %d", sayRepeat)
		}

		s, err := newStack(ctx)
		if err != nil {
			return err
		}
		defer s.close()

		speechModel, err := newSpeechModel(ctx, &geminiClient{})
		if err != nil {
			return err
		}
		synthesizer, _, err := newSynthesizer(speechModel, s)
		if err != nil {
			return err
		}

		player, err := newPlayer(nil)
		if err != nil {
			return err
		}
		performer := newPerformer(player, s)
		defer performer.Close()

		for i := 0; i < sayRepeat && ctx.Err() == nil; i++ {
			audio, err := synthesizer.Synthesize(ctx, text)
			if err != nil {
				return fmt.Errorf("failed to synthesize speech: %w", err)
			}
			if audio.Empty() {
				logger.Warn("Nothing to say, synthesis returned no audio")
				return nil
			}

			logger.Info("Speaking",
				zap.Int("audioSize", len(audio.Data)),
				zap.Bool("fromCache", audio.FromCache),
				zap.Duration("duration", performer.Duration(audio)))
			if err := performer.Perform(ctx, audio); err != nil {
				return fmt.Errorf("failed to play speech: %w", err)
			}
		}
		return nil
	},
}

func init() {
	sayCmd.Flags().IntVarP(&sayRepeat, "repeat", "n", 1, "how many times to say the line")
}
