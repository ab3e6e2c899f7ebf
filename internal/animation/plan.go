// Package animation drives the mouth servo in rough step with spoken audio.
// A turn's whole motion is planned up front as a queue of timestamped
// commands, then released on a clock.
package animation

import (
	"time"

	"github.com/satriahrh/arunika-actor/domain/entities"
)

const (
	// MinStep bounds how fast the jaw is asked to move
	MinStep = 100 * time.Millisecond
	// CloseDuration is the travel time of the final close command
	CloseDuration = 300 * time.Millisecond

	DefaultSampleRate = 24000
	DefaultChannels   = 2
	// MinEstimate is the shortest duration EstimateDuration reports
	MinEstimate = 500 * time.Millisecond
	// FallbackEstimate is used when the audio format is unusable
	FallbackEstimate = 2 * time.Second
)

// MouthSequence is the fixed series of jaw angles cycled while speaking
var MouthSequence = []int{70, 85, 75, 90, 80, 75, 85, 70, 80, 90}

// ScheduledCommand is an actuator command due at an offset from the start
// of the animation. Final commands are sent even when the animation is
// cancelled.
type ScheduledCommand struct {
	At      time.Duration
	Command entities.ActuatorCommand
	Final   bool
}

// Step returns the interval between mouth commands for a given duration
func Step(duration time.Duration) time.Duration {
	step := duration / time.Duration(len(MouthSequence))
	if step < MinStep {
		return MinStep
	}
	return step
}

// Plan lays out the mouth motion for audio of the given duration.
// Command i of MouthSequence is due at i*step and is dropped, with every
// later one, once i*step reaches the duration. A close command follows the
// last step. A non-positive duration plans nothing.
func Plan(mouthServo int, duration time.Duration) []ScheduledCommand {
	if duration <= 0 {
		return nil
	}

	step := Step(duration)
	plan := make([]ScheduledCommand, 0, len(MouthSequence)+1)

	var at time.Duration
	for _, angle := range MouthSequence {
		if at >= duration {
			break
		}
		plan = append(plan, ScheduledCommand{
			At:      at,
			Command: entities.ActuatorCommand{Servo: mouthServo, Angle: angle, Duration: step},
		})
		at += step
	}

	return append(plan, CloseCommand(mouthServo, at))
}

// CloseCommand returns the final close-mouth command due at offset at
func CloseCommand(mouthServo int, at time.Duration) ScheduledCommand {
	return ScheduledCommand{
		At:      at,
		Command: entities.ActuatorCommand{Servo: mouthServo, Angle: entities.MouthClosedAngle, Duration: CloseDuration},
		Final:   true,
	}
}

// EstimateDuration estimates how long PCM audio plays:
// whole samples (bytes / (2 * channels)) over sampleRate, never below
// MinEstimate. A trailing partial sample is ignored. An unusable rate or
// channel count yields FallbackEstimate.
func EstimateDuration(byteLen, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 || channels <= 0 {
		return FallbackEstimate
	}
	samples := byteLen / (2 * channels)
	d := time.Duration(samples) * time.Second / time.Duration(sampleRate)
	if d < MinEstimate {
		return MinEstimate
	}
	return d
}
