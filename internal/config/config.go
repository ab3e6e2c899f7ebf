package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/satriahrh/arunika-actor/domain/entities"
)

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console, json
}

type SerialConfig struct {
	Port          string `yaml:"port"` // device path or "dry-run"
	BaudRate      int    `yaml:"baud_rate"`
	SettleDelayMS int    `yaml:"settle_delay_ms"`
}

type CaptureConfig struct {
	SampleRate      int    `yaml:"sample_rate"`
	FramesPerBuffer int    `yaml:"frames_per_buffer"`
	TempDir         string `yaml:"temp_dir"`
}

type PlaybackConfig struct {
	Mode       string `yaml:"mode"` // portaudio, exec
	Command    string `yaml:"command"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type LLMConfig struct {
	Mode           string  `yaml:"mode"` // gemini, mock
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Prompt         string  `yaml:"prompt"`
	PromptFile     string  `yaml:"prompt_file"`
}

type TTSConfig struct {
	Mode           string  `yaml:"mode"` // gemini, elevenlabs, mock
	Model          string  `yaml:"model"`
	Voice          string  `yaml:"voice"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMS int `yaml:"base_delay_ms"`
}

type CacheConfig struct {
	Capacity int `yaml:"capacity"` // negative means unbounded
}

type TranscriptConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Mode     string `yaml:"mode"` // google, mock
	Language string `yaml:"language"`
}

type HTTPConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bind            string `yaml:"bind"`
	Port            int    `yaml:"port"`
	JWTSecret       string `yaml:"jwt_secret"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

type TelemetryConfig struct {
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	TraceFile    string `yaml:"trace_file"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Servers        []string `yaml:"servers"`
	SubjectPrefix  string   `yaml:"subject_prefix"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type JournalConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"` // ephemeral, session, persistent
	RetentionDays int    `yaml:"retention_days"`
	MaxTurns      int    `yaml:"max_turns"`
}

type Config struct {
	ActorName   string            `yaml:"actor_name"`
	Environment string            `yaml:"environment"`
	Log         LogConfig         `yaml:"log"`
	Serial      SerialConfig      `yaml:"serial"`
	Servos      entities.ServoMap `yaml:"servos"`
	Capture     CaptureConfig     `yaml:"capture"`
	Playback    PlaybackConfig    `yaml:"playback"`
	LLM         LLMConfig         `yaml:"llm"`
	TTS         TTSConfig         `yaml:"tts"`
	Retry       RetryConfig       `yaml:"retry"`
	Cache       CacheConfig       `yaml:"cache"`
	Transcript  TranscriptConfig  `yaml:"transcript"`
	HTTP        HTTPConfig        `yaml:"http"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Bus         BusConfig         `yaml:"bus"`
	Journal     JournalConfig     `yaml:"journal"`
}

func Default() Config {
	return Config{
		ActorName:   "arunika-actor",
		Environment: "development",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Serial: SerialConfig{
			Port:          "/dev/ttyUSB0",
			BaudRate:      115200,
			SettleDelayMS: 2000,
		},
		Servos: entities.DefaultServoMap(),
		Capture: CaptureConfig{
			SampleRate:      16000,
			FramesPerBuffer: 1024,
		},
		Playback: PlaybackConfig{
			Mode:       "portaudio",
			SampleRate: 24000,
			Channels:   2,
		},
		LLM: LLMConfig{
			Mode:           "gemini",
			Model:          "gemini-2.5-flash",
			TimeoutSeconds: 60,
		},
		TTS: TTSConfig{
			Mode:           "gemini",
			Model:          "gemini-2.5-flash-preview-tts",
			Voice:          "Aoede",
			Temperature:    0.8,
			TimeoutSeconds: 60,
		},
		Retry: RetryConfig{
			MaxAttempts: 2,
			BaseDelayMS: 1000,
		},
		Cache: CacheConfig{
			Capacity: 128,
		},
		Transcript: TranscriptConfig{
			Enabled:  false,
			Mode:     "google",
			Language: "en-US",
		},
		HTTP: HTTPConfig{
			Enabled:         false,
			Bind:            "127.0.0.1",
			Port:            8080,
			TokenTTLMinutes: 24 * 60,
		},
		Telemetry: TelemetryConfig{
			ServiceName:  "arunika-actor",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Servers:        []string{"nats://localhost:4222"},
			SubjectPrefix:  "actor",
			ConnectTimeout: 2000,
		},
		Journal: JournalConfig{
			Enabled:       false,
			Path:          "./data/actor-journal.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxTurns:      10000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.loadPrompt(); err != nil {
		return cfg, err
	}
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SettleDelay returns the serial settle delay. Zero disables the wait.
func (c SerialConfig) SettleDelay() time.Duration {
	if c.SettleDelayMS <= 0 {
		return -1
	}
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

func (c RetryConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMS) * time.Millisecond
}

func (c HTTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

func (c HTTPConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

func (c BusConfig) Timeout() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Millisecond
}

func (c *Config) loadPrompt() error {
	if c.LLM.PromptFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.LLM.PromptFile)
	if err != nil {
		return fmt.Errorf("failed to read llm.prompt_file: %w", err)
	}
	c.LLM.Prompt = strings.TrimSpace(string(data))
	return nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ActorName, "ACTOR_NAME")
	overrideString(&cfg.Environment, "ACTOR_ENVIRONMENT")
	overrideString(&cfg.Log.Level, "ACTOR_LOG_LEVEL")
	overrideString(&cfg.Log.Format, "ACTOR_LOG_FORMAT")
	overrideString(&cfg.Serial.Port, "ACTOR_SERIAL_PORT")
	overrideInt(&cfg.Serial.BaudRate, "ACTOR_SERIAL_BAUD_RATE")
	overrideInt(&cfg.Serial.SettleDelayMS, "ACTOR_SERIAL_SETTLE_DELAY_MS")
	overrideInt(&cfg.Servos.EyeRight, "ACTOR_SERVO_EYE_RIGHT")
	overrideInt(&cfg.Servos.EyeLeft, "ACTOR_SERVO_EYE_LEFT")
	overrideInt(&cfg.Servos.Mouth, "ACTOR_SERVO_MOUTH")
	overrideString(&cfg.Capture.TempDir, "ACTOR_CAPTURE_TEMP_DIR")
	overrideString(&cfg.Playback.Mode, "ACTOR_PLAYBACK_MODE")
	overrideString(&cfg.Playback.Command, "ACTOR_PLAYBACK_COMMAND")
	overrideString(&cfg.LLM.Mode, "ACTOR_LLM_MODE")
	overrideString(&cfg.LLM.APIKey, "GEMINI_API_KEY")
	overrideString(&cfg.LLM.Model, "ACTOR_LLM_MODEL")
	overrideFloat(&cfg.LLM.Temperature, "ACTOR_LLM_TEMPERATURE")
	overrideString(&cfg.LLM.PromptFile, "ACTOR_LLM_PROMPT_FILE")
	overrideString(&cfg.TTS.Mode, "ACTOR_TTS_MODE")
	overrideString(&cfg.TTS.Model, "ACTOR_TTS_MODEL")
	overrideString(&cfg.TTS.Voice, "ACTOR_TTS_VOICE")
	overrideInt(&cfg.Retry.MaxAttempts, "ACTOR_RETRY_MAX_ATTEMPTS")
	overrideInt(&cfg.Retry.BaseDelayMS, "ACTOR_RETRY_BASE_DELAY_MS")
	overrideInt(&cfg.Cache.Capacity, "ACTOR_CACHE_CAPACITY")
	overrideBool(&cfg.Transcript.Enabled, "ACTOR_TRANSCRIPT_ENABLED")
	overrideString(&cfg.Transcript.Mode, "ACTOR_TRANSCRIPT_MODE")
	overrideString(&cfg.Transcript.Language, "ACTOR_TRANSCRIPT_LANGUAGE")
	overrideBool(&cfg.HTTP.Enabled, "ACTOR_HTTP_ENABLED")
	overrideString(&cfg.HTTP.Bind, "ACTOR_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "ACTOR_HTTP_PORT")
	overrideString(&cfg.HTTP.JWTSecret, "ACTOR_JWT_SECRET")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "ACTOR_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "ACTOR_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.TraceFile, "ACTOR_TELEMETRY_TRACE_FILE")
	overrideBool(&cfg.Bus.Enabled, "ACTOR_BUS_ENABLED")
	overrideStringSlice(&cfg.Bus.Servers, "ACTOR_BUS_SERVERS")
	overrideString(&cfg.Bus.SubjectPrefix, "ACTOR_BUS_SUBJECT_PREFIX")
	overrideString(&cfg.Bus.Username, "ACTOR_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "ACTOR_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "ACTOR_BUS_TOKEN")
	overrideInt(&cfg.Bus.ConnectTimeout, "ACTOR_BUS_CONNECT_TIMEOUT_MS")
	overrideBool(&cfg.Journal.Enabled, "ACTOR_JOURNAL_ENABLED")
	overrideString(&cfg.Journal.Path, "ACTOR_JOURNAL_PATH")
	overrideString(&cfg.Journal.RetentionMode, "ACTOR_JOURNAL_RETENTION_MODE")
	overrideInt(&cfg.Journal.RetentionDays, "ACTOR_JOURNAL_RETENTION_DAYS")
	overrideInt(&cfg.Journal.MaxTurns, "ACTOR_JOURNAL_MAX_TURNS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var trimmed []string
		for _, p := range strings.Split(value, ",") {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ActorName == "" {
		return errors.New("actor_name must not be empty")
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return errors.New("log.format must be one of console|json")
	}
	if cfg.Serial.Port == "" {
		return errors.New("serial.port must not be empty")
	}
	if cfg.Serial.BaudRate <= 0 {
		return errors.New("serial.baud_rate must be positive")
	}
	if err := validateServos(cfg.Servos); err != nil {
		return err
	}
	if cfg.Capture.SampleRate <= 0 {
		return errors.New("capture.sample_rate must be positive")
	}
	switch cfg.Playback.Mode {
	case "portaudio", "exec":
	default:
		return errors.New("playback.mode must be one of portaudio|exec")
	}
	if cfg.Playback.SampleRate <= 0 || cfg.Playback.Channels <= 0 {
		return errors.New("playback.sample_rate and playback.channels must be positive")
	}
	switch cfg.LLM.Mode {
	case "mock", "gemini":
	default:
		return errors.New("llm.mode must be one of gemini|mock")
	}
	switch cfg.TTS.Mode {
	case "mock", "elevenlabs", "gemini":
	default:
		return errors.New("tts.mode must be one of gemini|elevenlabs|mock")
	}
	if cfg.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be >= 1")
	}
	if cfg.Retry.BaseDelayMS < 0 {
		return errors.New("retry.base_delay_ms must be >= 0")
	}
	if cfg.Transcript.Enabled {
		switch cfg.Transcript.Mode {
		case "google", "mock":
		default:
			return errors.New("transcript.mode must be one of google|mock")
		}
	}
	if cfg.HTTP.Enabled {
		if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
			return errors.New("http.port must be between 1 and 65535")
		}
		if cfg.HTTP.JWTSecret == "" {
			return errors.New("http.jwt_secret must be set when http is enabled")
		}
	}
	if cfg.Bus.Enabled && len(cfg.Bus.Servers) == 0 {
		return errors.New("bus.servers must not be empty when bus is enabled")
	}
	if cfg.Journal.Enabled {
		if cfg.Journal.Path == "" {
			return errors.New("journal.path must not be empty")
		}
		switch cfg.Journal.RetentionMode {
		case "ephemeral", "session", "persistent":
		default:
			return errors.New("journal.retention_mode must be one of ephemeral|session|persistent")
		}
		if cfg.Journal.RetentionDays < 0 {
			return errors.New("journal.retention_days must be >= 0")
		}
	}
	return nil
}

func validateServos(m entities.ServoMap) error {
	seen := map[int]string{}
	for _, name := range []string{"eye_right", "eye_left", "mouth"} {
		ch, _ := m.Lookup(name)
		if ch < 0 {
			return fmt.Errorf("servos.%s must be >= 0", name)
		}
		if other, ok := seen[ch]; ok {
			return fmt.Errorf("servos.%s and servos.%s share channel %d", other, name, ch)
		}
		seen[ch] = name
	}
	return nil
}
