package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

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

func audioEvent(data []byte) string {
	return fmt.Sprintf("data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"inlineData\":{\"mimeType\":\"audio/L16;codec=pcm;rate=24000\",\"data\":\"%s\"}}]}}]}\n\n",
		base64.StdEncoding.EncodeToString(data))
}

func TestGeminiSpeechStreamSpeech(t *testing.T) {
	var gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, defaultGeminiModel+":streamGenerateContent") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, audioEvent([]byte{1, 2, 3, 4}))
		// text-only chunk carries no audio
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"hm\"}]}}]}\n\n")
		fmt.Fprint(w, audioEvent([]byte{5, 6}))
	})

	speech, err := NewGeminiSpeech(client, GeminiSpeechConfig{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create speech model: %v", err)
	}

	var got []byte
	var mimeTypes []string
	err = speech.StreamSpeech(context.Background(), "Arr, matey.", func(chunk repositories.SpeechChunk) error {
		got = append(got, chunk.Data...)
		mimeTypes = append(mimeTypes, chunk.MIMEType)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamSpeech failed: %v", err)
	}

	if string(got) != string([]byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("Unexpected audio %v", got)
	}
	if len(mimeTypes) != 2 || mimeTypes[0] != "audio/L16;codec=pcm;rate=24000" {
		t.Errorf("Unexpected MIME types %v", mimeTypes)
	}
	if !strings.Contains(gotBody, "Arr, matey.") || !strings.Contains(gotBody, defaultGeminiVoice) {
		t.Errorf("Expected text and voice in request, got %s", gotBody)
	}
	if !strings.Contains(gotBody, "AUDIO") {
		t.Errorf("Expected audio response modality, got %s", gotBody)
	}
}

func TestGeminiSpeechStreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`)
	})

	speech, err := NewGeminiSpeech(client, GeminiSpeechConfig{Voice: "Kore", Timeout: 5 * time.Second}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create speech model: %v", err)
	}

	err = speech.StreamSpeech(context.Background(), "hello", func(repositories.SpeechChunk) error { return nil })
	if err == nil {
		t.Fatal("Expected error from failing stream")
	}
}

func TestNewGeminiSpeechRequiresClient(t *testing.T) {
	if _, err := NewGeminiSpeech(nil, GeminiSpeechConfig{}, zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error without client")
	}
}

func TestSpeechChunkSkipsEmptyResponses(t *testing.T) {
	tests := []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "x"}}}}}},
	}
	for i, resp := range tests {
		if _, ok := speechChunk(resp); ok {
			t.Errorf("case %d: expected no chunk", i)
		}
	}
}

// Integration test - only runs with a real GEMINI_API_KEY
func TestGeminiSpeech_Integration(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test - set GEMINI_API_KEY environment variable")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	speech, err := NewGeminiSpeech(client, GeminiSpeechConfig{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create speech model: %v", err)
	}

	total := 0
	err = speech.StreamSpeech(ctx, "Good evening, traveller.", func(chunk repositories.SpeechChunk) error {
		total += len(chunk.Data)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamSpeech failed: %v", err)
	}
	if total == 0 {
		t.Error("No audio received")
	}
}
