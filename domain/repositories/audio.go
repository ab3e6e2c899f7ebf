package repositories

import (
	"context"
	"time"

	"github.com/satriahrh/arunika-actor/domain/entities"
)

// Recorder captures microphone audio until stop is closed or ctx is done
type Recorder interface {
	Record(ctx context.Context, stop <-chan struct{}) (*entities.CapturedAudio, error)
}

// Player plays synthesized audio. Play blocks until playback completes.
type Player interface {
	Play(ctx context.Context, audio *entities.SynthesizedAudio) error
	Busy() bool
	Close() error
}

// Actuator drives the servos and the listening indicator on the microcontroller
type Actuator interface {
	SetAngle(servo, angle int, duration time.Duration) error
	SetIndicator(active bool) error
	Close() error
}

// Prompter delivers the operator cues of the interactive loop
type Prompter interface {
	WaitStart(ctx context.Context) error
	WaitStop(ctx context.Context) error
	Say(format string, args ...interface{})
}

// AudioFileWriter persists captured audio so it can be uploaded
type AudioFileWriter interface {
	// WriteTemp writes audio to a new temporary file and returns its path.
	// The caller removes the file.
	WriteTemp(audio *entities.CapturedAudio) (string, error)
}
