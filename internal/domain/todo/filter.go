package todo

import (
	"errors"
	"strings"
)

var (
	ErrInvalidStatusFilter = errors.New("status must be one of all, pending, in_progress, done")
	ErrInvalidSortKey      = errors.New("sortBy must be one of deadline, status")
)

type SortKey string

const (
	SortByDeadline SortKey = "deadline"
	SortByStatus   SortKey = "status"
)

// with pointers if optional, it will be nil
type ListFilter struct {
	Status *Status
	Search *string
	SortBy SortKey
}

// ParseListFilter turns raw query values into a ListFilter. An empty or "all"
// status means no status filter; an empty sortBy means deadline.
func ParseListFilter(status, search, sortBy string) (ListFilter, error) {
	var f ListFilter

	status = strings.TrimSpace(status)
	if status != "" && status != "all" {
		s := Status(status)
		if !s.IsValid() {
			return ListFilter{}, ErrInvalidStatusFilter
		}
		f.Status = &s
	}

	if search != "" {
		f.Search = &search
	}

	switch SortKey(strings.TrimSpace(sortBy)) {
	case "", SortByDeadline:
		f.SortBy = SortByDeadline
	case SortByStatus:
		f.SortBy = SortByStatus
	default:
		return ListFilter{}, ErrInvalidSortKey
	}

	return f, nil
}

// Matches applies the status and search parts of the filter to a single todo.
func (f ListFilter) Matches(t Todo) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}

	if f.Search != nil && !strings.Contains(strings.ToLower(t.Text), strings.ToLower(*f.Search)) {
		return false
	}

	return true
}

// Less orders todos ascending by the filter's sort key, then deadline, then id.
func (f ListFilter) Less(a, b Todo) bool {
	if f.SortBy == SortByStatus && a.Status != b.Status {
		return a.Status < b.Status
	}

	if !a.Deadline.Equal(b.Deadline) {
		return a.Deadline.Before(b.Deadline)
	}

	return a.ID < b.ID
}
