package repositories

import "context"

// SpeechModel abstracts a streaming text-to-speech provider
type SpeechModel interface {
	// StreamSpeech synthesizes text, calling yield for each chunk in
	// arrival order. A yield error stops the stream.
	StreamSpeech(ctx context.Context, text string, yield func(SpeechChunk) error) error
}

// SpeechChunk is one streamed piece of synthesized speech. Data may be empty
// for chunks that only carry metadata.
type SpeechChunk struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type,omitempty"`
}
