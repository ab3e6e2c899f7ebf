package usecase

import "fmt"

// GenerationError is returned when the reply could not be produced.
// Stage is "upload" or "generate".
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("reply generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// SynthesisError is returned when speech could not be synthesized after
// all retries. The turn treats it as "nothing to play".
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
