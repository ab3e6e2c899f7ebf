package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/arunika-actor/domain/entities"
)

func TestWAVWriterWriteTemp(t *testing.T) {
	dir := t.TempDir()
	writer := NewWAVWriter(dir, zaptest.NewLogger(t))

	pcm := Bytes([]int16{0, 100, -100, 2000, -2000, 0})
	path, err := writer.WriteTemp(&entities.CapturedAudio{PCM: pcm, SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("WriteTemp failed: %v", err)
	}

	if filepath.Dir(path) != dir || filepath.Ext(path) != ".wav" {
		t.Errorf("Unexpected path %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open written file: %v", err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	if dec.SampleRate != 16000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Errorf("Unexpected format: rate=%d chans=%d depth=%d", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	want := []int{0, 100, -100, 2000, -2000, 0}
	if len(buf.Data) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(buf.Data))
	}
	for i := range want {
		if buf.Data[i] != want[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, want[i], buf.Data[i])
		}
	}
}

func TestWAVWriterRejectsInvalidAudio(t *testing.T) {
	writer := NewWAVWriter(t.TempDir(), zaptest.NewLogger(t))

	if _, err := writer.WriteTemp(nil); err == nil {
		t.Error("Expected error for nil audio")
	}

	if _, err := writer.WriteTemp(&entities.CapturedAudio{PCM: []byte{1}, SampleRate: 16000, Channels: 1}); err == nil {
		t.Error("Expected error for misaligned PCM")
	}
}
