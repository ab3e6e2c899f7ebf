package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/entities"
	"github.com/satriahrh/arunika-actor/domain/repositories"
)

// WAVWriter writes captured utterances to temporary WAV files
type WAVWriter struct {
	dir    string
	logger *zap.Logger
}

// Ensure WAVWriter implements the AudioFileWriter interface
var _ repositories.AudioFileWriter = (*WAVWriter)(nil)

// NewWAVWriter creates a writer placing files in dir, or the system temp
// directory when dir is empty
func NewWAVWriter(dir string, logger *zap.Logger) *WAVWriter {
	return &WAVWriter{dir: dir, logger: logger}
}

// WriteTemp implements repositories.AudioFileWriter
func (w *WAVWriter) WriteTemp(captured *entities.CapturedAudio) (string, error) {
	if captured == nil {
		return "", fmt.Errorf("no audio to write")
	}
	if err := captured.Validate(); err != nil {
		return "", fmt.Errorf("invalid audio: %w", err)
	}

	file, err := os.CreateTemp(w.dir, "actor-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := file.Name()

	if err := encodeWAV(file, captured.PCM, captured.SampleRate, captured.Channels); err != nil {
		file.Close()
		os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	w.logger.Debug("Saved recording",
		zap.String("path", path),
		zap.Duration("duration", captured.Duration()))
	return path, nil
}

func encodeWAV(file *os.File, pcm []byte, sampleRate, channels int) error {
	samples := Samples(pcm)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buffer := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	enc := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
