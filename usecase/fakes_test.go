package usecase

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/arunika-actor/domain/entities"
	"github.com/satriahrh/arunika-actor/domain/repositories"
	"github.com/satriahrh/arunika-actor/internal/animation"
	"github.com/satriahrh/arunika-actor/internal/cache"
	"github.com/satriahrh/arunika-actor/internal/retry"
)

type fakeSpeechModel struct {
	mu     sync.Mutex
	calls  int
	texts  []string
	chunks []repositories.SpeechChunk
	// errs[i] is returned by call i after its chunks were yielded
	errs []error
}

func (m *fakeSpeechModel) StreamSpeech(ctx context.Context, text string, yield func(repositories.SpeechChunk) error) error {
	m.mu.Lock()
	call := m.calls
	m.calls++
	m.texts = append(m.texts, text)
	chunks := m.chunks
	var err error
	if call < len(m.errs) {
		err = m.errs[call]
	}
	m.mu.Unlock()

	for _, c := range chunks {
		if yerr := yield(c); yerr != nil {
			return yerr
		}
	}
	return err
}

func (m *fakeSpeechModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type fakeReplyModel struct {
	mu          sync.Mutex
	uploads     int
	streams     int
	prompts     []string
	released    []repositories.AudioRef
	chunks      []repositories.ReplyChunk
	uploadErrs  []error
	streamErrs  []error
	uploadedRef repositories.AudioRef
}

func (m *fakeReplyModel) Upload(ctx context.Context, path string) (repositories.AudioRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := m.uploads
	m.uploads++
	if call < len(m.uploadErrs) && m.uploadErrs[call] != nil {
		return repositories.AudioRef{}, m.uploadErrs[call]
	}
	if _, err := os.Stat(path); err != nil {
		return repositories.AudioRef{}, err
	}
	m.uploadedRef = repositories.AudioRef{Name: "files/" + fmt.Sprint(call), URI: "https://example.invalid/" + fmt.Sprint(call), MIMEType: "audio/wav"}
	return m.uploadedRef, nil
}

func (m *fakeReplyModel) StreamReply(ctx context.Context, prompt string, ref repositories.AudioRef, yield func(repositories.ReplyChunk) error) error {
	m.mu.Lock()
	call := m.streams
	m.streams++
	m.prompts = append(m.prompts, prompt)
	chunks := m.chunks
	var err error
	if call < len(m.streamErrs) {
		err = m.streamErrs[call]
	}
	m.mu.Unlock()

	if err != nil {
		return err
	}
	for _, c := range chunks {
		if yerr := yield(c); yerr != nil {
			return yerr
		}
	}
	return nil
}

func (m *fakeReplyModel) Release(ctx context.Context, ref repositories.AudioRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, ref)
	return nil
}

type actuatorCall struct {
	kind     string
	servo    int
	angle    int
	duration time.Duration
	active   bool
}

type fakeActuator struct {
	mu     sync.Mutex
	calls  []actuatorCall
	closed int
}

func (a *fakeActuator) SetAngle(servo, angle int, duration time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, actuatorCall{kind: "servo", servo: servo, angle: angle, duration: duration})
	return nil
}

func (a *fakeActuator) SetIndicator(active bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, actuatorCall{kind: "indicator", active: active})
	return nil
}

func (a *fakeActuator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed++
	return nil
}

func (a *fakeActuator) snapshot() []actuatorCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]actuatorCall(nil), a.calls...)
}

type fakeRecorder struct {
	err error
}

func (r *fakeRecorder) Record(ctx context.Context, stop <-chan struct{}) (*entities.CapturedAudio, error) {
	select {
	case <-stop:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return &entities.CapturedAudio{PCM: make([]byte, 3200), SampleRate: 16000, Channels: 1}, nil
}

type fakePlayer struct {
	mu      sync.Mutex
	played  []*entities.SynthesizedAudio
	closed  int
	block   bool
	started chan struct{}
	err     error
}

func (p *fakePlayer) Play(ctx context.Context, audio *entities.SynthesizedAudio) error {
	p.mu.Lock()
	p.played = append(p.played, audio)
	block, started := p.block, p.started
	p.mu.Unlock()

	if block {
		if started != nil {
			close(started)
		}
		<-ctx.Done()
		return ctx.Err()
	}
	return p.err
}

func (p *fakePlayer) Busy() bool { return false }

func (p *fakePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *fakePlayer) playCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

type fakePrompter struct {
	mu          sync.Mutex
	starts      int
	onExhausted func()
	lines       []string
}

func (p *fakePrompter) WaitStart(ctx context.Context) error {
	p.mu.Lock()
	if p.starts == 0 {
		hook := p.onExhausted
		p.mu.Unlock()
		if hook != nil {
			hook()
		}
		<-ctx.Done()
		return ctx.Err()
	}
	p.starts--
	p.mu.Unlock()
	return ctx.Err()
}

func (p *fakePrompter) WaitStop(ctx context.Context) error { return nil }

func (p *fakePrompter) Say(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, fmt.Sprintf(format, args...))
}

type fakeFiles struct {
	dir   string
	mu    sync.Mutex
	paths []string
}

func (f *fakeFiles) WriteTemp(audio *entities.CapturedAudio) (string, error) {
	file, err := os.CreateTemp(f.dir, "turn-*.wav")
	if err != nil {
		return "", err
	}
	defer file.Close()
	if _, err := file.Write(audio.PCM); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.paths = append(f.paths, file.Name())
	f.mu.Unlock()
	return file.Name(), nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []entities.TurnEvent
}

func (e *fakeEvents) Emit(event entities.TurnEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *fakeEvents) states() []entities.TurnState {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []entities.TurnState
	for _, ev := range e.events {
		if ev.Type == entities.EventStateChanged {
			out = append(out, ev.State)
		}
	}
	return out
}

type fakeJournal struct {
	mu    sync.Mutex
	turns []*entities.SessionTurn
}

func (j *fakeJournal) Record(ctx context.Context, turn *entities.SessionTurn) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	copied := *turn
	j.turns = append(j.turns, &copied)
	return nil
}

func (j *fakeJournal) Recent(ctx context.Context, limit int) ([]*entities.SessionTurn, error) {
	return nil, nil
}

func (j *fakeJournal) Prune(ctx context.Context, now time.Time) (int64, error) { return 0, nil }

func (j *fakeJournal) Close() error { return nil }

func newTestRetry(t *testing.T) *retry.Executor {
	return retry.NewExecutor(retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}, zaptest.NewLogger(t))
}

func newTestCache(t *testing.T) *cache.ResponseCache {
	c, err := cache.New(cache.Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	return c
}

type orchestratorHarness struct {
	orchestrator *Orchestrator
	actuator     *fakeActuator
	player       *fakePlayer
	prompter     *fakePrompter
	files        *fakeFiles
	reply        *fakeReplyModel
	speech       *fakeSpeechModel
	recorder     *fakeRecorder
	events       *fakeEvents
	journal      *fakeJournal
}

func newOrchestratorHarness(t *testing.T) *orchestratorHarness {
	t.Helper()
	logger := zaptest.NewLogger(t)

	h := &orchestratorHarness{
		actuator: &fakeActuator{},
		player:   &fakePlayer{},
		prompter: &fakePrompter{starts: 1},
		files:    &fakeFiles{dir: t.TempDir()},
		reply:    &fakeReplyModel{chunks: []repositories.ReplyChunk{{Texts: []string{" Good evening"}}, {Texts: []string{", friend. "}}}},
		speech:   &fakeSpeechModel{chunks: []repositories.SpeechChunk{{Data: make([]byte, 4800), MIMEType: "audio/L16;codec=pcm;rate=24000"}}},
		recorder: &fakeRecorder{},
		events:   &fakeEvents{},
		journal:  &fakeJournal{},
	}

	animator := animation.NewAnimator(h.actuator, animation.Config{MouthServo: 9}, logger)
	deps := Dependencies{
		Actuator:    h.actuator,
		Recorder:    h.recorder,
		Prompter:    h.prompter,
		Files:       h.files,
		Generator:   NewReplyGenerator(h.reply, "", newTestRetry(t), logger),
		Synthesizer: NewSpeechSynthesizer(h.speech, newTestCache(t), newTestRetry(t), nil, logger),
		Performer:   NewPerformer(h.player, animator, PerformerConfig{}, logger),
		Events:      h.events,
		Journal:     h.journal,
	}

	o, err := NewOrchestrator(deps, OrchestratorConfig{}, logger)
	if err != nil {
		t.Fatalf("Failed to create orchestrator: %v", err)
	}
	h.orchestrator = o
	return h
}
