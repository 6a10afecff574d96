package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Image        *string   `json:"image,omitempty"`
	PasswordHash *string   `json:"-"` // never expose hash in JSON; nil for Google-only accounts
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPassword reports whether the account can sign in with credentials.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

type CreateParams struct {
	Name         string
	Email        string
	Image        *string
	PasswordHash *string
}

func New(p CreateParams) User {
	now := time.Now().UTC()

	return User{
		ID:           uuid.NewString(),
		Name:         p.Name,
		Email:        p.Email,
		Image:        p.Image,
		PasswordHash: p.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
