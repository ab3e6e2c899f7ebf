package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/entities"
)

var servoDurationMS int

var servoCmd = &cobra.Command{
	Use:   "servo <eye_right|eye_left|mouth|channel> <angle>",
	Short: "Move one servo",
	Long: `Move one servo to an angle, for checking the wiring.

The servo is named from the servos section of the config or given as a raw
channel number. Angles are clamped to 0..180.`,
	Example: `  actor servo mouth 70
  actor servo 7 120 --duration 500`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		channel, err := resolveServo(cfg.Servos, args[0])
		if err != nil {
			return err
		}
		angle, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("angle must be an integer, got %q", args[1])
		}
		if clamped := entities.ClampAngle(angle); clamped != angle {
			logger.Warn("Angle clamped", zap.Int("requested", angle), zap.Int("angle", clamped))
			angle = clamped
		}

		s, err := newStack(ctx)
		if err != nil {
			return err
		}
		defer s.close()

		duration := time.Duration(servoDurationMS) * time.Millisecond
		if err := s.link.SetAngle(channel, angle, duration); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "servo %d -> %d\n", channel, angle)

		// let the move finish before the port closes
		select {
		case <-time.After(duration):
		case <-ctx.Done():
		}
		return nil
	},
}

func init() {
	servoCmd.Flags().IntVarP(&servoDurationMS, "duration", "d", 0, "move duration in milliseconds")
}

func resolveServo(servos entities.ServoMap, name string) (int, error) {
	if channel, ok := servos.Lookup(name); ok {
		return channel, nil
	}
	channel, err := strconv.Atoi(name)
	if err != nil || channel < 0 {
		return 0, fmt.Errorf("unknown servo %q, use eye_right, eye_left, mouth or a channel number", name)
	}
	return channel, nil
}
