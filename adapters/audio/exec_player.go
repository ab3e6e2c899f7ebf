package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-shellwords"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/entities"
	"github.com/satriahrh/arunika-actor/domain/repositories"
)

// DefaultPlayCommand plays a WAV file with ALSA
const DefaultPlayCommand = "aplay -q {file}"

// ExecPlayer plays audio by writing a stereo WAV file and running an
// external command on it. The placeholders {file}, {rate} and {channels}
// are substituted in every argument.
type ExecPlayer struct {
	cmd    []string
	dir    string
	busy   atomic.Bool
	logger *zap.Logger
}

// Ensure ExecPlayer implements the Player interface
var _ repositories.Player = (*ExecPlayer)(nil)

// NewExecPlayer parses command and creates a player. Temporary files are
// written to dir, or the system temp directory when dir is empty.
func NewExecPlayer(command, dir string, logger *zap.Logger) (*ExecPlayer, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultPlayCommand
		logger.Info("Using default play command", zap.String("command", command))
	}

	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse play command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("play command empty")
	}

	return &ExecPlayer{cmd: args, dir: dir, logger: logger}, nil
}

// Play implements repositories.Player
func (e *ExecPlayer) Play(ctx context.Context, audio *entities.SynthesizedAudio) error {
	if audio.Empty() {
		return nil
	}
	if !IsRawPCM(audio.MIMEType) {
		return fmt.Errorf("unsupported playback format %q", audio.MIMEType)
	}

	e.busy.Store(true)
	defer e.busy.Store(false)

	rate := PlaybackRate(audio.MIMEType)
	stereo := Bytes(Stereo(Samples(audio.Data)))

	file, err := os.CreateTemp(e.dir, "actor-play-*.wav")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := file.Name()
	defer os.Remove(path)

	if err := encodeWAV(file, stereo, rate, PlaybackChannels); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	args := e.expand(path, rate)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("play command failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	e.logger.Debug("Played audio", zap.Int("bytes", len(audio.Data)), zap.Int("rate", rate))
	return nil
}

func (e *ExecPlayer) expand(path string, rate int) []string {
	replacer := strings.NewReplacer(
		"{file}", path,
		"{rate}", strconv.Itoa(rate),
		"{channels}", strconv.Itoa(PlaybackChannels),
	)
	args := make([]string, len(e.cmd))
	for i, arg := range e.cmd {
		args[i] = replacer.Replace(arg)
	}
	return args
}

// Busy reports whether playback is in progress
func (e *ExecPlayer) Busy() bool {
	return e.busy.Load()
}

// Close implements repositories.Player
func (e *ExecPlayer) Close() error {
	return nil
}
