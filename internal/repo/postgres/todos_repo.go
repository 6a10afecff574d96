package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/todohub/internal/domain/todo"
	"github.com/geocoder89/todohub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const todoColumns = `id, user_id, text, deadline, status, priority, finished_time, created_at, updated_at`

type TodosRepo struct {
	pool *pgxpool.Pool
	observer
}

func NewTodosRepo(pool *pgxpool.Pool, prom *observability.Prom) *TodosRepo {
	return &TodosRepo{pool: pool, observer: observer{prom: prom}}
}

func scanTodo(row pgx.Row) (todo.Todo, error) {
	var t todo.Todo
	var status string
	var priority *string

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Text,
		&t.Deadline,
		&status,
		&priority,
		&t.FinishedTime,
		&t.CreatedAt,
		&t.UpdatedAt,
	)

	if err != nil {
		return todo.Todo{}, err
	}

	t.Status = todo.Status(status)

	if priority != nil {
		p := todo.Priority(*priority)
		t.Priority = &p
	}

	return t, nil
}

func priorityArg(p *todo.Priority) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

func (r *TodosRepo) Create(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	err := r.observe("todos.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO todos (`+todoColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			t.ID, t.UserID, t.Text, t.Deadline, string(t.Status), priorityArg(t.Priority), t.FinishedTime, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return todo.Todo{}, err
	}

	return t, nil
}

// escapeLike makes % and _ in a search term match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (r *TodosRepo) List(ctx context.Context, userID string, f todo.ListFilter) ([]todo.Todo, error) {
	conds := []string{"user_id = $1"}
	args := []interface{}{userID}

	argsPosition := 2

	if f.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", argsPosition))
		args = append(args, string(*f.Status))
		argsPosition++
	}

	if f.Search != nil {
		conds = append(conds, fmt.Sprintf(`text ILIKE $%d ESCAPE '\'`, argsPosition))
		args = append(args, "%"+escapeLike(*f.Search)+"%")
	}

	query := `SELECT ` + todoColumns + ` FROM todos WHERE ` + strings.Join(conds, " AND ")

	// ties fall back to deadline then id so the order is stable
	if f.SortBy == todo.SortByStatus {
		query += " ORDER BY status ASC, deadline ASC, id ASC"
	} else {
		query += " ORDER BY deadline ASC, id ASC"
	}

	output := make([]todo.Todo, 0)

	err := r.observe("todos.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			t, err := scanTodo(rows)

			if err != nil {
				return err
			}

			output = append(output, t)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

// lockOwned loads the row FOR UPDATE and checks it belongs to userID.
func (r *TodosRepo) lockOwned(ctx context.Context, tx pgx.Tx, op, userID, id string) (todo.Todo, error) {
	var t todo.Todo

	err := r.observe(op, func() error {
		var err error
		t, err = scanTodo(tx.QueryRow(ctx,
			`SELECT `+todoColumns+`
			FROM todos
			WHERE id = $1
			FOR UPDATE`,
			id,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return todo.Todo{}, todo.ErrNotFound
		}
		return todo.Todo{}, err
	}

	if t.UserID != userID {
		return todo.Todo{}, todo.ErrForbidden
	}

	return t, nil
}

func (r *TodosRepo) Update(ctx context.Context, userID, id string, p todo.Patch, now time.Time) (updated todo.Todo, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return todo.Todo{}, err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	current, err := r.lockOwned(ctx, tx, "todos.update.lock", userID, id)
	if err != nil {
		return todo.Todo{}, err
	}

	next := current.Apply(p, now)

	err = r.observe("todos.update", func() error {
		_, err := tx.Exec(ctx,
			`UPDATE todos
				SET text = $2,
						deadline = $3,
						status = $4,
						priority = $5,
						finished_time = $6,
						updated_at = $7
			WHERE id = $1`,
			next.ID, next.Text, next.Deadline, string(next.Status), priorityArg(next.Priority), next.FinishedTime, next.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return todo.Todo{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return todo.Todo{}, err
	}

	return next, nil
}

func (r *TodosRepo) Delete(ctx context.Context, userID, id string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = r.lockOwned(ctx, tx, "todos.delete.lock", userID, id); err != nil {
		return err
	}

	err = r.observe("todos.delete", func() error {
		_, err := tx.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
