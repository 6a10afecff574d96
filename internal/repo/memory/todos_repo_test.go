package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/todohub/internal/domain/session"
	"github.com/geocoder89/todohub/internal/domain/todo"
	"github.com/geocoder89/todohub/internal/domain/user"
)

func seed(t *testing.T, r *TodosRepo, owner, text string, deadline time.Time, status todo.Status) todo.Todo {
	t.Helper()

	td := todo.Todo{
		ID:       text,
		UserID:   owner,
		Text:     text,
		Deadline: deadline,
		Status:   status,
	}
	if _, err := r.Create(context.Background(), td); err != nil {
		t.Fatalf("create: %v", err)
	}
	return td
}

func TestTodosRepo_ListScopesFiltersAndSorts(t *testing.T) {
	r := NewTodosRepo()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	seed(t, r, "alice", "Buy milk", base.Add(48*time.Hour), todo.StatusPending)
	seed(t, r, "alice", "Write report", base.Add(24*time.Hour), todo.StatusDone)
	seed(t, r, "alice", "Call mom", base.Add(72*time.Hour), todo.StatusInProgress)
	seed(t, r, "bob", "Bob milk", base, todo.StatusPending)

	ctx := context.Background()

	all, err := r.List(ctx, "alice", todo.ListFilter{SortBy: todo.SortByDeadline})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []string{"Write report", "Buy milk", "Call mom"}
	if len(all) != len(want) {
		t.Fatalf("got %d items, want %d", len(all), len(want))
	}
	for i, td := range all {
		if td.Text != want[i] {
			t.Fatalf("position %d: got %q, want %q", i, td.Text, want[i])
		}
		if td.UserID != "alice" {
			t.Fatalf("list leaked another user's todo: %+v", td)
		}
	}

	search := "MILK"
	got, _ := r.List(ctx, "alice", todo.ListFilter{Search: &search})
	if len(got) != 1 || got[0].Text != "Buy milk" {
		t.Fatalf("expected case-insensitive match on Buy milk, got %+v", got)
	}

	byStatus, _ := r.List(ctx, "alice", todo.ListFilter{SortBy: todo.SortByStatus})
	if byStatus[0].Status != todo.StatusDone || byStatus[2].Status != todo.StatusPending {
		t.Fatalf("unexpected status order: %+v", byStatus)
	}

	done := todo.StatusDone
	onlyDone, _ := r.List(ctx, "alice", todo.ListFilter{Status: &done})
	if len(onlyDone) != 1 || onlyDone[0].Text != "Write report" {
		t.Fatalf("unexpected status filter result: %+v", onlyDone)
	}

	empty, _ := r.List(ctx, "carol", todo.ListFilter{})
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected an empty non-nil slice, got %#v", empty)
	}
}

func TestTodosRepo_UpdateAndDeleteOwnership(t *testing.T) {
	r := NewTodosRepo()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	td := seed(t, r, "alice", "Buy milk", now, todo.StatusPending)
	done := todo.StatusDone

	if _, err := r.Update(ctx, "bob", td.ID, todo.Patch{Status: &done}, now); !errors.Is(err, todo.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	unchanged, _ := r.List(ctx, "alice", todo.ListFilter{})
	if unchanged[0].Status != todo.StatusPending {
		t.Fatalf("forbidden update must not mutate")
	}

	if _, err := r.Update(ctx, "alice", "missing", todo.Patch{Status: &done}, now); !errors.Is(err, todo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	updated, err := r.Update(ctx, "alice", td.ID, todo.Patch{Status: &done}, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FinishedTime == nil || !updated.FinishedTime.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected finishedTime stamped, got %v", updated.FinishedTime)
	}

	if err := r.Delete(ctx, "bob", td.ID); !errors.Is(err, todo.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := r.Delete(ctx, "alice", td.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.Delete(ctx, "alice", td.ID); !errors.Is(err, todo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUsersRepo_UniqueEmail(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	u, err := r.Create(ctx, user.New(user.CreateParams{Name: "Alice", Email: "a@example.com"}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := r.Create(ctx, user.New(user.CreateParams{Name: "Other", Email: "a@example.com"})); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	found, err := r.GetByEmail(ctx, "a@example.com")
	if err != nil || found.ID != u.ID {
		t.Fatalf("GetByEmail: %+v %v", found, err)
	}

	if _, err := r.GetByID(ctx, "nope"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRefreshTokensRepo_RotateOnce(t *testing.T) {
	r := NewRefreshTokensRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = r.Create(ctx, session.RefreshToken{ID: "a", UserID: "u", TokenHash: "ha", ExpiresAt: now.Add(time.Hour)})

	next := session.RefreshToken{ID: "b", UserID: "u", TokenHash: "hb", ExpiresAt: now.Add(time.Hour)}
	if err := r.Rotate(ctx, "a", "ha", next, now); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	again := session.RefreshToken{ID: "c", UserID: "u", TokenHash: "hc", ExpiresAt: now.Add(time.Hour)}
	if err := r.Rotate(ctx, "a", "ha", again, now); !errors.Is(err, session.ErrRevoked) {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}

	if err := r.Rotate(ctx, "zzz", "x", again, now); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
