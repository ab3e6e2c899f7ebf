package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/entities"
	"github.com/satriahrh/arunika-actor/domain/repositories"
)

const defaultFramesPerBuffer = 1024

// PortAudioConfig holds configuration for the PortAudio device
// Optional fields with defaults:
// - SampleRate: Capture rate in Hz (default: 16000)
// - FramesPerBuffer: Frames per device read or write (default: 1024)
type PortAudioConfig struct {
	SampleRate      int
	FramesPerBuffer int
}

// PortAudio records from the default input device and plays on the default
// output device
type PortAudio struct {
	sampleRate      int
	framesPerBuffer int
	busy            atomic.Bool
	closeOnce       sync.Once
	logger          *zap.Logger
}

// Ensure PortAudio implements the Recorder and Player interfaces
var (
	_ repositories.Recorder = (*PortAudio)(nil)
	_ repositories.Player   = (*PortAudio)(nil)
)

// NewPortAudio initializes PortAudio. Close releases it.
func NewPortAudio(config PortAudioConfig, logger *zap.Logger) (*PortAudio, error) {
	sampleRate := config.SampleRate
	if sampleRate == 0 {
		sampleRate = CaptureSampleRate
		logger.Info("Using default capture sample rate", zap.Int("sampleRate", sampleRate))
	}

	framesPerBuffer := config.FramesPerBuffer
	if framesPerBuffer == 0 {
		framesPerBuffer = defaultFramesPerBuffer
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	return &PortAudio{
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		logger:          logger,
	}, nil
}

// Record captures mono 16-bit audio until stop is closed or ctx is done
func (p *PortAudio) Record(ctx context.Context, stop <-chan struct{}) (*entities.CapturedAudio, error) {
	buf := make([]int16, p.framesPerBuffer*CaptureChannels)
	stream, err := portaudio.OpenDefaultStream(CaptureChannels, 0, float64(p.sampleRate), p.framesPerBuffer, buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	var pcm []byte
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-stop:
			captured := &entities.CapturedAudio{PCM: pcm, SampleRate: p.sampleRate, Channels: CaptureChannels}
			p.logger.Debug("Recording stopped", zap.Duration("duration", captured.Duration()))
			return captured, nil
		default:
		}

		if err := stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			return nil, fmt.Errorf("read input stream: %w", err)
		}
		pcm = append(pcm, Bytes(buf)...)
	}
}

// Play plays raw 16-bit PCM on the default output device, blocking until it
// has been written or ctx is done. Mono audio is duplicated to both channels.
func (p *PortAudio) Play(ctx context.Context, audio *entities.SynthesizedAudio) error {
	if audio.Empty() {
		return nil
	}
	if !IsRawPCM(audio.MIMEType) {
		return fmt.Errorf("unsupported playback format %q", audio.MIMEType)
	}

	p.busy.Store(true)
	defer p.busy.Store(false)

	rate := PlaybackRate(audio.MIMEType)
	samples := Stereo(Samples(audio.Data))

	buf := make([]int16, p.framesPerBuffer*PlaybackChannels)
	stream, err := portaudio.OpenDefaultStream(0, PlaybackChannels, float64(rate), p.framesPerBuffer, buf)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	defer stream.Stop()

	for offset := 0; offset < len(samples); offset += len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(buf, samples[offset:])
		clear(buf[n:])
		if err := stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("write output stream: %w", err)
		}
	}
	return nil
}

// Busy reports whether playback is in progress
func (p *PortAudio) Busy() bool {
	return p.busy.Load()
}

// Close terminates PortAudio. It is safe to call more than once.
func (p *PortAudio) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = portaudio.Terminate()
	})
	return err
}
