package animation

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/entities"
	"github.com/satriahrh/arunika-actor/domain/repositories"
)

// Dispatcher releases scheduled commands to an actuator at their due time
type Dispatcher struct {
	clock    clock.Clock
	actuator repositories.Actuator
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher. A nil clock uses the wall clock.
func NewDispatcher(actuator repositories.Actuator, clk clock.Clock, logger *zap.Logger) *Dispatcher {
	if clk == nil {
		clk = clock.New()
	}
	return &Dispatcher{
		clock:    clk,
		actuator: actuator,
		logger:   logger,
	}
}

// Dispatch sends each command of plan once its offset has elapsed. When ctx
// is done the remaining non-final commands are dropped and final commands
// are sent at once. It returns the number of commands handed to the
// actuator. Write failures are logged and do not stop the plan.
func (d *Dispatcher) Dispatch(ctx context.Context, plan []ScheduledCommand) int {
	start := d.clock.Now()
	sent := 0
	cancelled := false

	for _, sc := range plan {
		if !cancelled {
			if wait := sc.At - d.clock.Since(start); wait > 0 {
				timer := d.clock.Timer(wait)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					cancelled = true
				}
			} else if ctx.Err() != nil {
				cancelled = true
			}
		}

		if cancelled && !sc.Final {
			continue
		}

		d.send(sc.Command)
		sent++
	}
	return sent
}

func (d *Dispatcher) send(cmd entities.ActuatorCommand) {
	if err := d.actuator.SetAngle(cmd.Servo, cmd.Angle, cmd.Duration); err != nil {
		d.logger.Warn("Actuator write failed",
			zap.Int("servo", cmd.Servo),
			zap.Int("angle", cmd.Angle),
			zap.Error(err))
	}
}

// Config holds configuration for the Animator
type Config struct {
	MouthServo int
	Clock      clock.Clock
}

// Animator moves the mouth while audio plays
type Animator struct {
	mouth      int
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewAnimator creates a new Animator
func NewAnimator(actuator repositories.Actuator, config Config, logger *zap.Logger) *Animator {
	mouth := config.MouthServo
	if mouth == 0 {
		mouth = entities.DefaultMouthServo
		logger.Info("Using default mouth servo", zap.Int("mouthServo", mouth))
	}

	return &Animator{
		mouth:      mouth,
		dispatcher: NewDispatcher(actuator, config.Clock, logger),
		logger:     logger,
	}
}

// Run animates the mouth for duration and always finishes with the mouth
// closed, also when ctx is cancelled part way. A non-positive duration does
// nothing.
func (a *Animator) Run(ctx context.Context, duration time.Duration) {
	plan := Plan(a.mouth, duration)
	if len(plan) == 0 {
		return
	}

	a.logger.Debug("Animating mouth",
		zap.Duration("duration", duration),
		zap.Duration("step", Step(duration)),
		zap.Int("commands", len(plan)))

	sent := a.dispatcher.Dispatch(ctx, plan)
	if sent < len(plan) {
		a.logger.Debug("Mouth animation cut short", zap.Int("sent", sent), zap.Int("planned", len(plan)))
	}
}

// Close sends the close-mouth command immediately
func (a *Animator) Close() {
	a.dispatcher.send(CloseCommand(a.mouth, 0).Command)
}
