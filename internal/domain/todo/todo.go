package todo

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("todo not found")
	ErrForbidden = errors.New("todo belongs to another user")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Completed reports whether s is the terminal state that carries a finish time.
func (s Status) Completed() bool {
	return s == StatusDone
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Todo struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Text         string     `json:"text"`
	Deadline     time.Time  `json:"deadline"`
	Status       Status     `json:"status"`
	Priority     *Priority  `json:"priority,omitempty"`
	FinishedTime *time.Time `json:"finishedTime,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// deadline is carried as a string so a malformed timestamp surfaces as a field
// error from the validator instead of a JSON type error.
type CreateTodoRequest struct {
	Text     string `json:"text" binding:"required"`
	Deadline string `json:"deadline" binding:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Status   string `json:"status" binding:"omitempty,oneof=pending in_progress done"`
	Priority string `json:"priority" binding:"omitempty,oneof=low medium high"`
}

// nil fields are left untouched.
type UpdateTodoRequest struct {
	Text     *string `json:"text" binding:"omitempty,min=1"`
	Deadline *string `json:"deadline" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Status   *string `json:"status" binding:"omitempty,oneof=pending in_progress done"`
	Priority *string `json:"priority" binding:"omitempty,oneof=low medium high"`
}

// Patch is the parsed form of UpdateTodoRequest.
type Patch struct {
	Text     *string
	Deadline *time.Time
	Status   *Status
	Priority *Priority
}

func (p Patch) IsEmpty() bool {
	return p.Text == nil && p.Deadline == nil && p.Status == nil && p.Priority == nil
}

func ParseDeadline(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (r UpdateTodoRequest) ToPatch() (Patch, error) {
	var p Patch

	if r.Text != nil {
		text := *r.Text
		p.Text = &text
	}

	if r.Deadline != nil {
		d, err := ParseDeadline(*r.Deadline)
		if err != nil {
			return Patch{}, err
		}
		p.Deadline = &d
	}

	if r.Status != nil {
		s := Status(*r.Status)
		p.Status = &s
	}

	if r.Priority != nil {
		pr := Priority(*r.Priority)
		p.Priority = &pr
	}

	return p, nil
}

// NewFromCreateRequest builds a todo owned by userID.
func NewFromCreateRequest(userID string, req CreateTodoRequest, now time.Time) (Todo, error) {
	deadline, err := ParseDeadline(req.Deadline)
	if err != nil {
		return Todo{}, err
	}

	status := StatusPending
	if req.Status != "" {
		status = Status(req.Status)
	}

	t := Todo{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      req.Text,
		Deadline:  deadline,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if req.Priority != "" {
		pr := Priority(req.Priority)
		t.Priority = &pr
	}

	if status.Completed() {
		finished := now
		t.FinishedTime = &finished
	}

	return t, nil
}

// Apply returns existing with the supplied patch fields applied. FinishedTime
// is stamped only on a transition into the completed state.
func (t Todo) Apply(p Patch, now time.Time) Todo {
	if p.IsEmpty() {
		return t
	}

	next := t

	if p.Text != nil {
		next.Text = *p.Text
	}

	if p.Deadline != nil {
		next.Deadline = *p.Deadline
	}

	if p.Priority != nil {
		pr := *p.Priority
		next.Priority = &pr
	}

	if p.Status != nil {
		if p.Status.Completed() && !t.Status.Completed() {
			finished := now
			next.FinishedTime = &finished
		}
		next.Status = *p.Status
	}

	next.UpdatedAt = now

	return next
}
