package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/todohub/internal/domain/session"
)

type RefreshTokensRepo struct {
	mu   sync.Mutex
	rows map[string]session.RefreshToken
}

func NewRefreshTokensRepo() *RefreshTokensRepo {
	return &RefreshTokensRepo{rows: make(map[string]session.RefreshToken)}
}

func (r *RefreshTokensRepo) Create(_ context.Context, row session.RefreshToken) error {
	r.mu.Lock()
	r.rows[row.ID] = row
	r.mu.Unlock()
	return nil
}

func (r *RefreshTokensRepo) Rotate(_ context.Context, oldID, presentedHash string, next session.RefreshToken, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.rows[oldID]
	if !ok {
		return session.ErrNotFound
	}

	if err := old.CheckRotatable(presentedHash, next.UserID, now); err != nil {
		return err
	}

	revokedAt := now
	replacedBy := next.ID
	old.RevokedAt = &revokedAt
	old.ReplacedBy = &replacedBy

	r.rows[oldID] = old
	r.rows[next.ID] = next

	return nil
}

func (r *RefreshTokensRepo) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.RevokedAt != nil {
		return nil
	}

	now := time.Now().UTC()
	row.RevokedAt = &now
	r.rows[id] = row

	return nil
}
