package repositories

import "context"

// ReplyModel abstracts the remote generative model that listens to a
// captured utterance and writes the actor's reply
type ReplyModel interface {
	// Upload makes a local audio file available to the model
	Upload(ctx context.Context, path string) (AudioRef, error)
	// StreamReply generates a reply for prompt + audio, calling yield for
	// each chunk in arrival order. A yield error stops the stream.
	StreamReply(ctx context.Context, prompt string, audio AudioRef, yield func(ReplyChunk) error) error
	// Release frees an uploaded file. Best effort.
	Release(ctx context.Context, audio AudioRef) error
}

// AudioRef points at audio previously uploaded to the reply model
type AudioRef struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MIMEType string `json:"mime_type"`
}

// ReplyChunk is one streamed piece of a generated reply. A chunk may carry
// several text fragments.
type ReplyChunk struct {
	Texts []string `json:"texts"`
}
