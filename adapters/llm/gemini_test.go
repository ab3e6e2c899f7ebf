package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/satriahrh/arunika-actor/domain/repositories"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *genai.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestGeminiReplyModelStreamReply(t *testing.T) {
	var gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.5-flash:streamGenerateContent") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"Good \"}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"evening\"},{\"text\":\".\"}]}}]}\n\n")
	})

	model, err := NewGeminiReplyModel(client, GeminiConfig{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create model: %v", err)
	}

	var texts []string
	err = model.StreamReply(context.Background(), "Be a pirate.", repositories.AudioRef{URI: "https://files/abc", MIMEType: "audio/wav"},
		func(chunk repositories.ReplyChunk) error {
			texts = append(texts, chunk.Texts...)
			return nil
		})
	if err != nil {
		t.Fatalf("StreamReply failed: %v", err)
	}

	if got := strings.Join(texts, ""); got != "Good evening." {
		t.Errorf("Unexpected reply %q", got)
	}
	if !strings.Contains(gotBody, "Be a pirate.") || !strings.Contains(gotBody, "https://files/abc") {
		t.Errorf("Expected prompt and audio reference in request, got %s", gotBody)
	}
}

func TestGeminiReplyModelStreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
	})

	model, err := NewGeminiReplyModel(client, GeminiConfig{Model: "gemini-test"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create model: %v", err)
	}

	err = model.StreamReply(context.Background(), "p", repositories.AudioRef{URI: "u", MIMEType: "audio/wav"},
		func(repositories.ReplyChunk) error { return nil })
	if err == nil {
		t.Fatal("Expected error from unavailable backend")
	}
}

func TestValidateGeminiConfig(t *testing.T) {
	if err := ValidateGeminiConfig(GeminiConfig{Temperature: 3}); err == nil {
		t.Error("Expected temperature validation error")
	}
	if err := ValidateGeminiConfig(GeminiConfig{TimeoutSeconds: -1}); err == nil {
		t.Error("Expected timeout validation error")
	}
	if err := ValidateGeminiConfig(GeminiConfig{Temperature: 0.8}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(context.Background(), ""); err == nil {
		t.Error("Expected error without API key")
	}
}

func TestMockReplyModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	os.WriteFile(path, []byte("RIFF"), 0o600)

	model := NewMockReplyModel("Hello there friend")
	ref, err := model.Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	var sb strings.Builder
	model.StreamReply(context.Background(), "", ref, func(c repositories.ReplyChunk) error {
		for _, s := range c.Texts {
			sb.WriteString(s)
		}
		return nil
	})
	if sb.String() != "Hello there friend" {
		t.Errorf("Unexpected mock reply %q", sb.String())
	}

	if _, err := model.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Expected upload of a missing file to fail")
	}
}

// Integration test - requires GEMINI_API_KEY and a recording
func TestGeminiReplyModelIntegration(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	recording := os.Getenv("ACTOR_TEST_RECORDING")
	if apiKey == "" || recording == "" {
		t.Skip("GEMINI_API_KEY or ACTOR_TEST_RECORDING not set, skipping integration test")
	}

	client, err := NewGeminiClient(context.Background(), apiKey)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	model, err := NewGeminiReplyModel(client, GeminiConfig{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create model: %v", err)
	}

	ref, err := model.Upload(context.Background(), recording)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	defer model.Release(context.Background(), ref)

	var sb strings.Builder
	err = model.StreamReply(context.Background(), "Reply in one short sentence.", ref, func(c repositories.ReplyChunk) error {
		for _, s := range c.Texts {
			sb.WriteString(s)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("StreamReply failed: %v", err)
	}
	t.Logf("Reply: %s", sb.String())
}
