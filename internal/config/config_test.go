package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Servos.Mouth != 9 || cfg.Servos.EyeLeft != 8 || cfg.Servos.EyeRight != 7 {
		t.Fatalf("expected default servo map, got %+v", cfg.Servos)
	}
	if cfg.Retry.MaxAttempts != 2 || cfg.Retry.BaseDelay() != time.Second {
		t.Fatalf("expected default retry policy, got %+v", cfg.Retry)
	}
	if cfg.Serial.SettleDelay() != 2*time.Second {
		t.Fatalf("expected 2s settle delay, got %v", cfg.Serial.SettleDelay())
	}
	if cfg.Serial.Port != "/dev/ttyUSB0" || cfg.Serial.BaudRate != 115200 {
		t.Fatalf("expected default serial link, got %+v", cfg.Serial)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.txt")
	if err := os.WriteFile(promptPath, []byte("  You are a grumpy pirate.\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "actor.yaml")
	data := `
actor_name: captain
serial:
  port: dry-run
  settle_delay_ms: 0
servos:
  eye_right: 1
  eye_left: 2
  mouth: 3
llm:
  mode: mock
  prompt_file: ` + promptPath + `
tts:
  mode: mock
cache:
  capacity: -1
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ActorName != "captain" || cfg.Serial.Port != "dry-run" {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if cfg.Serial.SettleDelay() >= 0 {
		t.Fatalf("expected settle delay to be disabled, got %v", cfg.Serial.SettleDelay())
	}
	if cfg.Servos.Mouth != 3 {
		t.Fatalf("expected mouth on 3, got %d", cfg.Servos.Mouth)
	}
	if cfg.LLM.Prompt != "You are a grumpy pirate." {
		t.Fatalf("expected prompt from file, got %q", cfg.LLM.Prompt)
	}
	if cfg.Cache.Capacity != -1 {
		t.Fatalf("expected unbounded cache, got %d", cfg.Cache.Capacity)
	}
	// untouched sections keep defaults
	if cfg.Playback.SampleRate != 24000 {
		t.Fatalf("expected default playback rate, got %d", cfg.Playback.SampleRate)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("ACTOR_SERIAL_PORT", "/dev/ttyUSB1")
	t.Setenv("ACTOR_SERVO_MOUTH", "4")
	t.Setenv("ACTOR_RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("ACTOR_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("ACTOR_JOURNAL_RETENTION_MODE", "persistent")
	t.Setenv("ACTOR_HTTP_ENABLED", "true")
	t.Setenv("ACTOR_JWT_SECRET", "shh")
	t.Setenv("ACTOR_LLM_TEMPERATURE", "0.4")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LLM.APIKey != "gem-key" {
		t.Fatalf("expected api key override")
	}
	if cfg.Serial.Port != "/dev/ttyUSB1" {
		t.Fatalf("expected serial port override, got %s", cfg.Serial.Port)
	}
	if cfg.Servos.Mouth != 4 {
		t.Fatalf("expected mouth override, got %d", cfg.Servos.Mouth)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("expected retry override, got %d", cfg.Retry.MaxAttempts)
	}
	if len(cfg.Bus.Servers) != 2 || cfg.Bus.Servers[1] != "nats://two:4222" {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Journal.RetentionMode != "persistent" {
		t.Fatalf("expected retention override")
	}
	if !cfg.HTTP.Enabled || cfg.HTTP.JWTSecret != "shh" {
		t.Fatalf("expected http overrides")
	}
	if cfg.LLM.Temperature != 0.4 {
		t.Fatalf("expected temperature override, got %f", cfg.LLM.Temperature)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty port", func(c *Config) { c.Serial.Port = "" }, "serial.port"},
		{"shared servo channel", func(c *Config) { c.Servos.Mouth = c.Servos.EyeLeft }, "share channel"},
		{"unknown llm mode", func(c *Config) { c.LLM.Mode = "ollama" }, "llm.mode"},
		{"unknown tts mode", func(c *Config) { c.TTS.Mode = "espeak" }, "tts.mode"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
		{"playback mode", func(c *Config) { c.Playback.Mode = "pygame" }, "playback.mode"},
		{"http without secret", func(c *Config) { c.HTTP.Enabled = true }, "jwt_secret"},
		{"bus without servers", func(c *Config) { c.Bus.Enabled = true; c.Bus.Servers = nil }, "bus.servers"},
		{"journal retention", func(c *Config) { c.Journal.Enabled = true; c.Journal.RetentionMode = "forever" }, "retention_mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if err := validate(Default()); err != nil {
		t.Fatalf("defaults should validate, got %v", err)
	}
}
