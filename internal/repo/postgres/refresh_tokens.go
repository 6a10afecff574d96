package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/todohub/internal/domain/session"
	"github.com/geocoder89/todohub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RefreshTokensRepo struct {
	pool *pgxpool.Pool
	observer
}

func NewRefreshTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *RefreshTokensRepo {
	return &RefreshTokensRepo{pool: pool, observer: observer{prom: prom}}
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *RefreshTokensRepo) insert(ctx context.Context, db execer, row session.RefreshToken) error {
	return r.observe("refresh_tokens.insert", func() error {
		_, err := db.Exec(ctx,
			`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			`,
			row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.RevokedAt, row.ReplacedBy, row.CreatedAt,
		)
		return err
	})
}

func (r *RefreshTokensRepo) Create(ctx context.Context, row session.RefreshToken) error {
	return r.insert(ctx, r.pool, row)
}

// Locks the row to prevent concurrent refresh races
func (r *RefreshTokensRepo) getForUpdate(ctx context.Context, tx pgx.Tx, id string) (session.RefreshToken, error) {
	var row session.RefreshToken

	err := r.observe("refresh_tokens.get_for_update", func() error {
		return tx.QueryRow(ctx, `
			SELECT id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at
			FROM refresh_tokens
			WHERE id = $1
			FOR UPDATE
		`, id).Scan(
			&row.ID,
			&row.UserID,
			&row.TokenHash,
			&row.ExpiresAt,
			&row.RevokedAt,
			&row.ReplacedBy,
			&row.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.RefreshToken{}, session.ErrNotFound
		}

		return session.RefreshToken{}, err
	}

	return row, nil
}

// Rotate revokes oldID in favour of next inside one transaction. The old row
// must be live and match presentedHash and next.UserID.
func (r *RefreshTokensRepo) Rotate(ctx context.Context, oldID, presentedHash string, next session.RefreshToken, now time.Time) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	old, err := r.getForUpdate(ctx, tx, oldID)
	if err != nil {
		return err
	}

	if err = old.CheckRotatable(presentedHash, next.UserID, now); err != nil {
		return err
	}

	err = r.observe("refresh_tokens.revoke", func() error {
		_, err := tx.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = $2, replaced_by = $3
			WHERE id = $1
		`, oldID, now, next.ID)
		return err
	})
	if err != nil {
		return err
	}

	if err = r.insert(ctx, tx, next); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Revoke is idempotent: unknown or already revoked ids are not an error.
func (r *RefreshTokensRepo) Revoke(ctx context.Context, id string) error {
	return r.observe("refresh_tokens.revoke", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = NOW()
			WHERE id = $1 AND revoked_at IS NULL
		`, id)
		return err
	})
}
