package auth

import (
	"testing"
	"time"
)

func testIdentity() Identity {
	return Identity{UserID: "user-1", Email: "a@example.com", Name: "Alice"}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Minute, time.Hour)

	raw, expiresAt, err := m.GenerateAccessToken(testIdentity())
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected expiry in the future")
	}

	claims, err := m.VerifyAccessToken(raw)
	if err != nil {
		t.Fatalf("VerifyAccessToken error: %v", err)
	}

	if claims.UserID != "user-1" || claims.Email != "a@example.com" || claims.Name != "Alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := m.VerifyRefreshToken(raw); err != ErrInvalidTokenType {
		t.Fatalf("access token must not verify as refresh, got %v", err)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Minute, time.Hour)

	raw, jti, _, err := m.GenerateRefreshToken(testIdentity())
	if err != nil {
		t.Fatalf("GenerateRefreshToken error: %v", err)
	}

	claims, err := m.VerifyRefreshToken(raw)
	if err != nil {
		t.Fatalf("VerifyRefreshToken error: %v", err)
	}
	if claims.JTI != jti {
		t.Fatalf("got jti %q, want %q", claims.JTI, jti)
	}

	if _, err := m.VerifyAccessToken(raw); err != ErrInvalidTokenType {
		t.Fatalf("refresh token must not verify as access, got %v", err)
	}
}

func TestVerify_WrongSecretAndExpiry(t *testing.T) {
	m := NewManager("secret-a", time.Minute, time.Hour)
	other := NewManager("secret-b", time.Minute, time.Hour)

	raw, _, err := m.GenerateAccessToken(testIdentity())
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	if _, err := other.VerifyAccessToken(raw); err == nil {
		t.Fatalf("expected signature error with a different secret")
	}

	expired := NewManager("secret-a", time.Minute, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	old, _, err := expired.GenerateAccessToken(testIdentity())
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	if _, err := m.VerifyAccessToken(old); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestHashRefreshToken_Deterministic(t *testing.T) {
	m := NewManager("secret", time.Minute, time.Hour)

	if m.HashRefreshToken("abc") != m.HashRefreshToken("abc") {
		t.Fatalf("hash must be deterministic")
	}
	if m.HashRefreshToken("abc") == m.HashRefreshToken("abd") {
		t.Fatalf("different input must hash differently")
	}
}
