package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/repositories"
)

const (
	defaultLanguage = "en-US"
	// maxRecognizeSeconds is the longest audio a synchronous Recognize call accepts
	maxRecognizeSeconds = 60
)

// ErrNoSpeech is returned when the recording produced no transcript
var ErrNoSpeech = errors.New("no speech detected in audio")

// recognizer is the part of speech.Client the transcriber needs
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
	Close() error
}

type speechClient struct {
	client *speech.Client
}

func (c speechClient) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return c.client.Recognize(ctx, req)
}

func (c speechClient) Close() error {
	return c.client.Close()
}

func dialSpeech(ctx context.Context) (recognizer, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return speechClient{client: client}, nil
}

// GoogleSpeechToText transcribes finished recordings with Google Cloud
// Speech-to-Text. Credentials come from GOOGLE_APPLICATION_CREDENTIALS.
type GoogleSpeechToText struct {
	dial   func(ctx context.Context) (recognizer, error)
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates a new Google Cloud transcriber
func NewGoogleSpeechToText(logger *zap.Logger) *GoogleSpeechToText {
	return &GoogleSpeechToText{dial: dialSpeech, logger: logger}
}

// TranscribeAudio sends the whole recording in one Recognize call. LINEAR16
// recordings longer than a minute are cut to their first minute. The client
// is closed before returning on every path.
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", errors.New("no audio data received")
	}
	config = withAudioDefaults(config)

	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return "", err
	}
	audioData = clipAudio(audioData, config, g.logger)

	client, err := g.dial(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create speech client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			g.logger.Debug("Failed to close speech client", zap.Error(err))
		}
	}()

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: int32(config.SampleRate),
			LanguageCode:    config.Language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to recognize speech: %w", err)
	}

	text := joinResults(resp.GetResults())
	if text == "" {
		return "", ErrNoSpeech
	}
	g.logger.Debug("Transcribed recording",
		zap.Int("audioSize", len(audioData)),
		zap.String("language", config.Language),
		zap.Int("textLength", len(text)))
	return text, nil
}

// joinResults concatenates the best alternative of every result
func joinResults(results []*speechpb.SpeechRecognitionResult) string {
	parts := make([]string, 0, len(results))
	for _, result := range results {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func clipAudio(audioData []byte, config repositories.AudioConfig, logger *zap.Logger) []byte {
	if config.Encoding != "LINEAR16" && config.Encoding != "WAV" {
		return audioData
	}
	limit := config.SampleRate * 2 * maxRecognizeSeconds
	if len(audioData) <= limit {
		return audioData
	}
	logger.Debug("Clipping recording for transcription",
		zap.Int("audioSize", len(audioData)),
		zap.Int("limit", limit))
	return audioData[:limit]
}

// withAudioDefaults fills in the capture format of the actor's microphone
func withAudioDefaults(config repositories.AudioConfig) repositories.AudioConfig {
	if config.Encoding == "" {
		config.Encoding = "LINEAR16"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 16000
	}
	if config.Language == "" {
		config.Language = defaultLanguage
	}
	return config
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
