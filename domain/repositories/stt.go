package repositories

import "context"

// SpeechToText turns a finished recording into text. The actor only uses
// it for the optional transcript of a turn.
type SpeechToText interface {
	TranscribeAudio(ctx context.Context, audioData []byte, config AudioConfig) (string, error)
}

// AudioConfig describes the recording handed to a SpeechToText
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}
