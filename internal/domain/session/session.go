package session

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("refresh token not found")
	ErrRevoked  = errors.New("refresh token revoked")
	ErrExpired  = errors.New("refresh token expired")
	// presented token does not hash to the stored value
	ErrMismatch = errors.New("refresh token mismatch")
)

// RefreshToken is the stored half of a refresh session. The raw token is
// never persisted, only its HMAC.
type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	CreatedAt  time.Time
}

// CheckRotatable validates a locked row against the presented token hash.
func (t RefreshToken) CheckRotatable(presentedHash, userID string, now time.Time) error {
	if t.RevokedAt != nil {
		return ErrRevoked
	}

	if now.After(t.ExpiresAt) {
		return ErrExpired
	}

	if t.TokenHash != presentedHash || t.UserID != userID {
		return ErrMismatch
	}

	return nil
}
