// Package console provides the operator cues of the interactive loop: Enter
// on stdin starts and stops a recording, and styled lines report progress.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/repositories"
)

// Theme defines the colors of the cues
type Theme struct {
	Primary lipgloss.Color
	Reply   lipgloss.Color
	Dim     lipgloss.Color
}

// DefaultTheme is the default theme
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Reply:   lipgloss.Color("#ffb86c"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds the styles derived from a theme
type Styles struct {
	Cue   lipgloss.Style
	Reply lipgloss.Style
	Label lipgloss.Style
}

// NewStyles creates styles bound to a renderer, so color is only emitted
// when the output is a terminal
func NewStyles(r *lipgloss.Renderer, t Theme) Styles {
	return Styles{
		Cue:   r.NewStyle().Foreground(t.Dim),
		Reply: r.NewStyle().Foreground(t.Reply),
		Label: r.NewStyle().Bold(true).Foreground(t.Primary),
	}
}

const replyPrefix = "AI: "

// Prompter reads Enter presses from an input stream and writes cues to an output
type Prompter struct {
	out    io.Writer
	styles Styles
	lines  chan struct{}
	logger *zap.Logger

	mu sync.Mutex
}

// Ensure Prompter implements the Prompter interface
var _ repositories.Prompter = (*Prompter)(nil)

// NewPrompter starts reading lines from in. The input is read until EOF;
// after that every wait returns io.EOF.
func NewPrompter(in io.Reader, out io.Writer, logger *zap.Logger) *Prompter {
	p := &Prompter{
		out:    out,
		styles: NewStyles(lipgloss.NewRenderer(out), DefaultTheme),
		lines:  make(chan struct{}),
		logger: logger,
	}
	go p.readLines(in)
	return p
}

func (p *Prompter) readLines(in io.Reader) {
	defer close(p.lines)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		p.lines <- struct{}{}
	}
	if err := scanner.Err(); err != nil {
		p.logger.Warn("Failed to read operator input", zap.Error(err))
		return
	}
	p.logger.Debug("Operator input closed")
}

// WaitStart blocks until the operator presses Enter
func (p *Prompter) WaitStart(ctx context.Context) error {
	return p.waitLine(ctx)
}

// WaitStop blocks until the operator presses Enter again
func (p *Prompter) WaitStop(ctx context.Context) error {
	return p.waitLine(ctx)
}

func (p *Prompter) waitLine(ctx context.Context) error {
	select {
	case _, ok := <-p.lines:
		if !ok {
			return io.EOF
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Say prints one cue. Replies are highlighted.
func (p *Prompter) Say(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	var line string
	if reply, ok := strings.CutPrefix(msg, replyPrefix); ok {
		line = p.styles.Label.Render(strings.TrimSpace(replyPrefix)) + " " + p.styles.Reply.Render(reply)
	} else {
		line = p.styles.Cue.Render(msg)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}
