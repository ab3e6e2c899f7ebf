package tts

import (
	"context"
	"encoding/binary"
	"math"
	"strings"

	"github.com/satriahrh/arunika-actor/domain/repositories"
)

const (
	mockSampleRate  = 24000
	mockChunkFrames = 2400
	// mockWordFrames is how long each word "sounds"
	mockWordFrames = 7200
)

// MockSpeech is an offline SpeechModel that renders a soft tone whose
// length follows the number of words, so the mouth has something to do
type MockSpeech struct{}

// Ensure MockSpeech implements the SpeechModel interface
var _ repositories.SpeechModel = (*MockSpeech)(nil)

// NewMockSpeech creates a new mock speech model
func NewMockSpeech() *MockSpeech {
	return &MockSpeech{}
}

// MockMIMEType is the format of the mock audio
const MockMIMEType = "audio/L16;codec=pcm;rate=24000"

// StreamSpeech implements repositories.SpeechModel. Blank text yields no audio.
func (m *MockSpeech) StreamSpeech(ctx context.Context, text string, yield func(repositories.SpeechChunk) error) error {
	words := len(strings.Fields(text))
	total := words * mockWordFrames

	for start := 0; start < total; start += mockChunkFrames {
		if err := ctx.Err(); err != nil {
			return err
		}
		frames := min(mockChunkFrames, total-start)
		if err := yield(repositories.SpeechChunk{Data: tone(start, frames), MIMEType: MockMIMEType}); err != nil {
			return err
		}
	}
	return nil
}

// tone renders mono 16-bit little-endian samples of a 220 Hz sine
func tone(offset, frames int) []byte {
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		v := 0.2 * math.Sin(2*math.Pi*220*float64(offset+i)/mockSampleRate)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v*math.MaxInt16)))
	}
	return out
}
