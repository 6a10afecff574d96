package db

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/todohub/internal/config"
	"github.com/geocoder89/todohub/internal/domain/user"
	"github.com/geocoder89/todohub/internal/security"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSeedUser creates the configured development account once. It is a
// no-op when no seed credentials are set or the email already exists.
func EnsureSeedUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) (bool, error) {
	if cfg.SeedUserEmail == "" || cfg.SeedUserPassword == "" {
		return false, nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.SeedUserEmail))

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&dummy)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	hash, err := security.HashPassword(cfg.SeedUserPassword)

	if err != nil {
		return false, err
	}

	u := user.New(user.CreateParams{
		Name:         cfg.SeedUserName,
		Email:        email,
		PasswordHash: &hash,
	})

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, name, email, image, password_hash, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
		u.ID, u.Name, u.Email, u.Image, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)

	if err != nil {
		return false, err
	}

	return true, nil
}
