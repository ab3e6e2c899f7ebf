package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/satriahrh/arunika-actor/internal/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "actor ") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("ACTOR_JWT_SECRET", "cli-secret")
	t.Setenv("ACTOR_NAME", "stage-left")

	out, err := execute(t, "token", "--subject", "dashboard", "--ttl", "1h")
	if err != nil {
		t.Fatalf("token failed: %v", err)
	}

	issuer, err := auth.NewTokenIssuer("cli-secret", "stage-left", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}
	claims, err := issuer.ValidateToken(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("Minted token is invalid: %v", err)
	}
	if claims.Subject != "dashboard" {
		t.Errorf("Expected subject dashboard, got %s", claims.Subject)
	}
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	t.Setenv("ACTOR_JWT_SECRET", "")

	if _, err := execute(t, "token"); err == nil {
		t.Error("Expected an error without a jwt secret")
	}
}

func TestServoCommandRejectsBadAngle(t *testing.T) {
	t.Setenv("ACTOR_SERIAL_PORT", "dry-run")

	if _, err := execute(t, "servo", "mouth", "wide"); err == nil {
		t.Error("Expected an error for a non-numeric angle")
	}
}
