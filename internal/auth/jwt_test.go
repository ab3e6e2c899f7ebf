package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidate(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", "captain", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}

	token, err := issuer.GenerateMonitorToken("ops-laptop")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.Subject != "ops-laptop" {
		t.Errorf("Expected subject ops-laptop, got %s", claims.Subject)
	}
	if claims.Role != RoleMonitor || claims.Actor != "captain" {
		t.Errorf("Unexpected claims %+v", claims)
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("", "captain", time.Hour); err == nil {
		t.Error("Expected error without secret")
	}
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret", "captain", time.Hour)

	other, _ := NewTokenIssuer("other-secret", "captain", time.Hour)
	token, _ := other.GenerateMonitorToken("x")
	if _, err := issuer.ValidateToken(token); err == nil {
		t.Error("Expected token signed with another secret to be rejected")
	}

	otherActor, _ := NewTokenIssuer("secret", "parrot", time.Hour)
	token, _ = otherActor.GenerateMonitorToken("x")
	if _, err := issuer.ValidateToken(token); err == nil {
		t.Error("Expected token for another actor to be rejected")
	}

	deviceToken := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{Actor: "captain", Role: "device"})
	signed, _ := deviceToken.SignedString([]byte("secret"))
	if _, err := issuer.ValidateToken(signed); err == nil {
		t.Error("Expected non-monitor role to be rejected")
	}

	if _, err := issuer.ValidateToken("not-a-token"); err == nil {
		t.Error("Expected garbage to be rejected")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret", "captain", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := issuer.GenerateMonitorToken("x")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	issuer.now = time.Now
	_, err = issuer.ValidateToken(token)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
}
