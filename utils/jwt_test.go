package utils

import (
	"testing"
	"time"

	"tourly/config"
)

func TestTokenRoundTrip(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	token, err := GenerateToken("tourist-1", "tourist", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	sub, role, err := ExtractCallerFromToken(token)
	if err != nil {
		t.Fatalf("ExtractCallerFromToken failed: %v", err)
	}
	if sub != "tourist-1" || role != "tourist" {
		t.Fatalf("unexpected claims: sub=%q role=%q", sub, role)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	token, err := GenerateToken("tourist-1", "tourist", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, _, err := ExtractCallerFromToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestTamperedSecretRejected(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	token, err := GenerateToken("tourist-1", "tourist", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	config.AppConfig.JWTSecret = "rotated-secret"
	if _, _, err := ExtractCallerFromToken(token); err == nil {
		t.Fatalf("expected token signed with old secret to be rejected")
	}
}
