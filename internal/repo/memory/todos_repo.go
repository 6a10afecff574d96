package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/todohub/internal/domain/todo"
)

type TodosRepo struct {
	mu    sync.RWMutex
	items map[string]todo.Todo // {"id": todo}
}

func NewTodosRepo() *TodosRepo {
	return &TodosRepo{
		items: make(map[string]todo.Todo),
	}
}

func (r *TodosRepo) Create(_ context.Context, t todo.Todo) (todo.Todo, error) {
	r.mu.Lock()
	r.items[t.ID] = t
	r.mu.Unlock()

	return t, nil
}

func (r *TodosRepo) List(_ context.Context, userID string, f todo.ListFilter) ([]todo.Todo, error) {
	r.mu.RLock()
	out := make([]todo.Todo, 0, len(r.items))
	for _, t := range r.items {
		if t.UserID == userID && f.Matches(t) {
			out = append(out, t)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return f.Less(out[i], out[j]) })

	return out, nil
}

// owned must be called with the lock held.
func (r *TodosRepo) owned(userID, id string) (todo.Todo, error) {
	t, ok := r.items[id]
	if !ok {
		return todo.Todo{}, todo.ErrNotFound
	}
	if t.UserID != userID {
		return todo.Todo{}, todo.ErrForbidden
	}
	return t, nil
}

func (r *TodosRepo) Update(_ context.Context, userID, id string, p todo.Patch, now time.Time) (todo.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.owned(userID, id)
	if err != nil {
		return todo.Todo{}, err
	}

	next := current.Apply(p, now)
	r.items[id] = next

	return next, nil
}

func (r *TodosRepo) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.owned(userID, id); err != nil {
		return err
	}

	delete(r.items, id)
	return nil
}
