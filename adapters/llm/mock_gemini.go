package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/satriahrh/arunika-actor/domain/repositories"
)

// MockReplyModel is an offline ReplyModel that cycles through canned lines
type MockReplyModel struct {
	mu    sync.Mutex
	lines []string
	next  int
}

// Ensure MockReplyModel implements the ReplyModel interface
var _ repositories.ReplyModel = (*MockReplyModel)(nil)

// NewMockReplyModel creates a new mock reply model
func NewMockReplyModel(lines ...string) *MockReplyModel {
	if len(lines) == 0 {
		lines = []string{
			"Good evening! Welcome to the show.",
			"Ah, a question worthy of the stage. Let me think on it.",
			"Bravo! Do come back for the second act.",
		}
	}
	return &MockReplyModel{lines: lines}
}

// Upload checks the recording exists and returns a local reference
func (m *MockReplyModel) Upload(ctx context.Context, path string) (repositories.AudioRef, error) {
	if _, err := os.Stat(path); err != nil {
		return repositories.AudioRef{}, fmt.Errorf("failed to upload recording: %w", err)
	}
	return repositories.AudioRef{Name: path, URI: "file://" + path, MIMEType: "audio/wav"}, nil
}

// StreamReply yields the next canned line word by word
func (m *MockReplyModel) StreamReply(ctx context.Context, prompt string, audio repositories.AudioRef, yield func(repositories.ReplyChunk) error) error {
	m.mu.Lock()
	line := m.lines[m.next%len(m.lines)]
	m.next++
	m.mu.Unlock()

	for _, word := range strings.SplitAfter(line, " ") {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := yield(repositories.ReplyChunk{Texts: []string{word}}); err != nil {
			return err
		}
	}
	return nil
}

// Release implements repositories.ReplyModel
func (m *MockReplyModel) Release(ctx context.Context, audio repositories.AudioRef) error {
	return nil
}
