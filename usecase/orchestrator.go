package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/entities"
	"github.com/satriahrh/arunika-actor/domain/repositories"
)

const (
	transcriptTimeout = 15 * time.Second
	// transcriptGrace bounds how long a finished reply waits for the transcript
	transcriptGrace = 500 * time.Millisecond
)

// Dependencies are the collaborators of the Orchestrator. Transcriber,
// Events, Journal and Observer are optional.
type Dependencies struct {
	Actuator    repositories.Actuator
	Recorder    repositories.Recorder
	Prompter    repositories.Prompter
	Files       repositories.AudioFileWriter
	Generator   *ReplyGenerator
	Synthesizer *SpeechSynthesizer
	Performer   *Performer
	Transcriber repositories.SpeechToText
	Events      repositories.EventSink
	Journal     repositories.TurnJournal
	Observer    Observer
}

// OrchestratorConfig holds configuration for the Orchestrator
type OrchestratorConfig struct {
	Servos             entities.ServoMap
	TranscriptLanguage string
	// Now is the clock used for turn timestamps
	Now func() time.Time
}

// Status is a snapshot of the orchestrator for monitoring
type Status struct {
	State     entities.TurnState    `json:"state"`
	Ready     bool                  `json:"ready"`
	Turns     int                   `json:"turns"`
	StartedAt time.Time             `json:"started_at"`
	LastTurn  *entities.SessionTurn `json:"last_turn,omitempty"`
}

// Orchestrator runs the actor's turn loop: wait for the start cue, capture,
// generate a reply, synthesize it, perform it and clean up. Shutdown runs
// at most once.
type Orchestrator struct {
	deps   Dependencies
	servos entities.ServoMap
	lang   string
	now    func() time.Time
	logger *zap.Logger

	transcriptGrace time.Duration

	mu        sync.RWMutex
	state     entities.TurnState
	ready     bool
	turns     int
	startedAt time.Time
	lastTurn  *entities.SessionTurn

	shutdownOnce sync.Once
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(deps Dependencies, config OrchestratorConfig, logger *zap.Logger) (*Orchestrator, error) {
	switch {
	case deps.Actuator == nil:
		return nil, errors.New("actuator is required")
	case deps.Recorder == nil:
		return nil, errors.New("recorder is required")
	case deps.Prompter == nil:
		return nil, errors.New("prompter is required")
	case deps.Files == nil:
		return nil, errors.New("audio file writer is required")
	case deps.Generator == nil:
		return nil, errors.New("reply generator is required")
	case deps.Synthesizer == nil:
		return nil, errors.New("speech synthesizer is required")
	case deps.Performer == nil:
		return nil, errors.New("performer is required")
	}

	if deps.Observer == nil {
		deps.Observer = NopObserver
	}

	servos := config.Servos
	if servos == (entities.ServoMap{}) {
		servos = entities.DefaultServoMap()
		logger.Info("Using default servo map",
			zap.Int("eyeRight", servos.EyeRight),
			zap.Int("eyeLeft", servos.EyeLeft),
			zap.Int("mouth", servos.Mouth))
	}

	lang := config.TranscriptLanguage
	if lang == "" {
		lang = "en-US"
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		deps:   deps,
		servos: servos,
		lang:   lang,
		now:    now,
		logger: logger,
		state:  entities.TurnStateAwaitingInput,

		transcriptGrace: transcriptGrace,
	}, nil
}

// Start puts every servo in its neutral pose. It must run before the first turn.
func (o *Orchestrator) Start(ctx context.Context) error {
	for _, servo := range []int{o.servos.EyeLeft, o.servos.EyeRight, o.servos.Mouth} {
		o.setAngle(servo, entities.NeutralAngle, 0)
	}

	o.mu.Lock()
	o.ready = true
	o.startedAt = o.now()
	o.mu.Unlock()

	o.emit(entities.TurnEvent{Type: entities.EventActorReady, State: entities.TurnStateAwaitingInput})
	o.deps.Prompter.Say("Actor ready!")
	o.logger.Info("Actor ready")
	return ctx.Err()
}

// Run starts the actor and runs turns until ctx is done, then shuts down.
// A failed turn never ends the loop.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.Shutdown()

	if err := o.Start(ctx); err != nil {
		return nil
	}

	for ctx.Err() == nil {
		turn, err := o.RunTurn(ctx)
		if err != nil {
			break
		}
		if turn.Outcome == entities.TurnOutcomeFailed {
			o.logger.Warn("Turn failed, waiting for the next one",
				zap.String("turnID", turn.ID),
				zap.String("error", turn.Error))
		}
		o.deps.Prompter.Say("Ready for next. Press Ctrl+C to exit or hit Enter to record again.")
	}
	return nil
}

// RunTurn runs one full turn. Failures inside the turn are recorded on the
// returned turn; the error is non-nil only when ctx ended the turn.
func (o *Orchestrator) RunTurn(ctx context.Context) (*entities.SessionTurn, error) {
	o.mu.Lock()
	o.turns++
	seq := o.turns
	o.mu.Unlock()

	turn := entities.NewSessionTurn(seq, o.now())
	o.emit(entities.TurnEvent{Type: entities.EventTurnStarted, TurnID: turn.ID, Sequence: turn.Sequence, State: turn.State})

	o.deps.Prompter.Say("Press Enter to start recording...")
	if err := o.deps.Prompter.WaitStart(ctx); err != nil {
		o.finish(ctx, turn, entities.TurnOutcomeInterrupted, err)
		return turn, err
	}

	path, captured, err := o.capture(ctx, turn)
	if err != nil {
		return o.abort(ctx, turn, err, "")
	}

	transcript, stopTranscript := o.transcribe(ctx, captured)

	o.transition(turn, entities.TurnStateGenerating)
	o.deps.Prompter.Say("Processing...")
	stageCtx, end := o.deps.Observer.StartStage(ctx, entities.TurnStateGenerating)
	reply, err := o.deps.Generator.Generate(stageCtx, path)
	end(err)

	wait := o.transcriptGrace
	if err != nil {
		wait = 0
	}
	if text := awaitTranscript(transcript, wait); text != "" {
		turn.Transcript = text
		o.logger.Info("Heard", zap.String("turnID", turn.ID), zap.String("transcript", text))
	}
	stopTranscript()

	if err != nil {
		o.logger.Error("Reply generation failed", zap.String("turnID", turn.ID), zap.Error(err))
		return o.abort(ctx, turn, err, path)
	}
	turn.ReplyText = reply
	o.deps.Prompter.Say("AI: %s", reply)

	o.transition(turn, entities.TurnStateSynthesizing)
	audio := o.synthesize(ctx, turn, reply)

	outcome := entities.TurnOutcomeSilent
	var playErr error
	if !audio.Empty() {
		o.transition(turn, entities.TurnStatePlaying)
		turn.AudioBytes = len(audio.Data)
		turn.AudioDuration = o.deps.Performer.Duration(audio)
		turn.CacheHit = audio.FromCache

		stageCtx, end := o.deps.Observer.StartStage(ctx, entities.TurnStatePlaying)
		playErr = o.deps.Performer.Perform(stageCtx, audio)
		end(playErr)
		if playErr != nil {
			o.logger.Error("Playback error", zap.String("turnID", turn.ID), zap.Error(playErr))
		}
		outcome = entities.TurnOutcomeSpoken
	}

	if ctx.Err() != nil {
		return o.abort(ctx, turn, ctx.Err(), path)
	}

	o.cleanup(turn, path)
	o.finish(ctx, turn, outcome, playErr)
	o.transition(turn, entities.TurnStateAwaitingInput)
	return turn, nil
}

// capture records one utterance between the start and stop cues and writes
// it to a temporary WAV file
func (o *Orchestrator) capture(ctx context.Context, turn *entities.SessionTurn) (string, *entities.CapturedAudio, error) {
	o.transition(turn, entities.TurnStateCapturing)
	o.deps.Prompter.Say("Recording... press Enter again to stop.")

	stageCtx, end := o.deps.Observer.StartStage(ctx, entities.TurnStateCapturing)

	o.setIndicator(true)
	cueCtx, cancelCue := context.WithCancel(stageCtx)
	stop := make(chan struct{})
	go func() {
		defer close(stop)
		o.deps.Prompter.WaitStop(cueCtx)
	}()
	captured, err := o.deps.Recorder.Record(stageCtx, stop)
	cancelCue()
	o.setIndicator(false)

	if err != nil {
		end(err)
		return "", nil, fmt.Errorf("failed to capture audio: %w", err)
	}

	path, err := o.deps.Files.WriteTemp(captured)
	end(err)
	if err != nil {
		return "", nil, fmt.Errorf("failed to save recording: %w", err)
	}

	o.logger.Info("Saved recording",
		zap.String("turnID", turn.ID),
		zap.String("path", path),
		zap.Duration("duration", captured.Duration()))
	return path, captured, nil
}

// transcribe runs the optional transcription alongside reply generation.
// The returned channel yields at most one transcript and is always closed.
// The returned func abandons a transcription still in flight.
func (o *Orchestrator) transcribe(ctx context.Context, captured *entities.CapturedAudio) (<-chan string, context.CancelFunc) {
	out := make(chan string, 1)
	if o.deps.Transcriber == nil {
		close(out)
		return out, func() {}
	}

	ctx, cancel := context.WithTimeout(ctx, transcriptTimeout)
	go func() {
		defer close(out)
		defer cancel()

		text, err := o.deps.Transcriber.TranscribeAudio(ctx, captured.PCM, repositories.AudioConfig{
			SampleRate: captured.SampleRate,
			Encoding:   "LINEAR16",
			Language:   o.lang,
		})
		if err != nil {
			o.logger.Debug("Transcription unavailable", zap.Error(err))
			return
		}
		out <- text
	}()
	return out, cancel
}

// awaitTranscript returns the transcript if it arrives within wait. A zero
// wait only takes a transcript that is already there.
func awaitTranscript(transcript <-chan string, wait time.Duration) string {
	if wait <= 0 {
		select {
		case text := <-transcript:
			return text
		default:
			return ""
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case text := <-transcript:
		return text
	case <-timer.C:
		return ""
	}
}

// synthesize runs speech synthesis on its own goroutine and hands the result
// back through a single-slot channel. Any failure means there is nothing to play.
func (o *Orchestrator) synthesize(ctx context.Context, turn *entities.SessionTurn, text string) *entities.SynthesizedAudio {
	type result struct {
		audio *entities.SynthesizedAudio
		err   error
	}

	stageCtx, end := o.deps.Observer.StartStage(ctx, entities.TurnStateSynthesizing)
	results := make(chan result, 1)
	go func() {
		audio, err := o.deps.Synthesizer.Synthesize(stageCtx, text)
		results <- result{audio: audio, err: err}
	}()
	res := <-results
	end(res.err)

	if res.err != nil {
		o.logger.Error("TTS error", zap.String("turnID", turn.ID), zap.Error(res.err))
		return nil
	}
	return res.audio
}

// abort ends a turn early, still removing the recording
func (o *Orchestrator) abort(ctx context.Context, turn *entities.SessionTurn, err error, path string) (*entities.SessionTurn, error) {
	outcome := entities.TurnOutcomeFailed
	if ctx.Err() != nil {
		outcome = entities.TurnOutcomeInterrupted
	}

	o.cleanup(turn, path)
	o.finish(ctx, turn, outcome, err)

	if outcome == entities.TurnOutcomeInterrupted {
		return turn, ctx.Err()
	}
	o.transition(turn, entities.TurnStateAwaitingInput)
	return turn, nil
}

func (o *Orchestrator) cleanup(turn *entities.SessionTurn, path string) {
	if turn.CanTransition(entities.TurnStateCleanup) {
		o.transition(turn, entities.TurnStateCleanup)
	}
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		o.logger.Warn("Failed to remove recording", zap.String("path", path), zap.Error(err))
	}
}

func (o *Orchestrator) finish(ctx context.Context, turn *entities.SessionTurn, outcome entities.TurnOutcome, err error) {
	turn.Finish(outcome, err, o.now())

	o.mu.Lock()
	last := *turn
	o.lastTurn = &last
	o.mu.Unlock()

	o.deps.Observer.TurnFinished(ctx, turn)

	if o.deps.Journal != nil {
		// the turn is recorded even when ctx already ended it
		if err := o.deps.Journal.Record(context.WithoutCancel(ctx), turn); err != nil {
			o.logger.Warn("Failed to journal turn", zap.String("turnID", turn.ID), zap.Error(err))
		}
	}

	o.emit(entities.TurnEvent{
		Type:     entities.EventTurnFinished,
		TurnID:   turn.ID,
		Sequence: turn.Sequence,
		State:    turn.State,
		Data: map[string]interface{}{
			"outcome":       string(turn.Outcome),
			"reply":         turn.ReplyText,
			"audioBytes":    turn.AudioBytes,
			"cacheHit":      turn.CacheHit,
			"elapsedMillis": turn.Elapsed().Milliseconds(),
			"error":         turn.Error,
		},
	})

	o.logger.Info("Turn finished",
		zap.String("turnID", turn.ID),
		zap.Int("sequence", turn.Sequence),
		zap.String("outcome", string(turn.Outcome)),
		zap.Duration("elapsed", turn.Elapsed()))
}

func (o *Orchestrator) transition(turn *entities.SessionTurn, next entities.TurnState) {
	prev := turn.State
	if err := turn.Transition(next); err != nil {
		o.logger.Error("Rejected state transition", zap.String("turnID", turn.ID), zap.Error(err))
		return
	}

	o.mu.Lock()
	o.state = next
	o.mu.Unlock()

	o.emit(entities.TurnEvent{
		Type:     entities.EventStateChanged,
		TurnID:   turn.ID,
		Sequence: turn.Sequence,
		State:    next,
		Data:     map[string]interface{}{"from": string(prev)},
	})
	o.logger.Debug("Turn state changed",
		zap.String("turnID", turn.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(next)))
}

// Shutdown closes the mouth, closes the actuator link and releases the
// audio output. Only the first call has an effect.
func (o *Orchestrator) Shutdown() {
	o.shutdownOnce.Do(func() {
		o.mu.Lock()
		o.state = entities.TurnStateShuttingDown
		o.ready = false
		o.mu.Unlock()

		o.deps.Prompter.Say("Shutting down.")
		o.logger.Info("Shutting down actor")

		o.deps.Performer.CloseMouth()
		if err := o.deps.Actuator.Close(); err != nil {
			o.logger.Warn("Failed to close actuator link", zap.Error(err))
		}
		if err := o.deps.Performer.Close(); err != nil {
			o.logger.Warn("Failed to release audio output", zap.Error(err))
		}

		o.emit(entities.TurnEvent{Type: entities.EventActorShutdown, State: entities.TurnStateShuttingDown})
	})
}

// Status returns a snapshot for monitoring
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s := Status{
		State:     o.state,
		Ready:     o.ready,
		Turns:     o.turns,
		StartedAt: o.startedAt,
	}
	if o.lastTurn != nil {
		last := *o.lastTurn
		s.LastTurn = &last
	}
	return s
}

func (o *Orchestrator) setAngle(servo, angle int, duration time.Duration) {
	if err := o.deps.Actuator.SetAngle(servo, angle, duration); err != nil {
		o.logger.Warn("Actuator write failed", zap.Int("servo", servo), zap.Error(err))
	}
}

func (o *Orchestrator) setIndicator(active bool) {
	if err := o.deps.Actuator.SetIndicator(active); err != nil {
		o.logger.Warn("Indicator write failed", zap.Bool("active", active), zap.Error(err))
	}
}

func (o *Orchestrator) emit(event entities.TurnEvent) {
	if o.deps.Events == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = o.now()
	}
	o.deps.Events.Emit(event)
}
