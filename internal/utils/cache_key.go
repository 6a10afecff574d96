package utils

import (
	"net/url"
	"strings"

	"github.com/geocoder89/todohub/internal/domain/todo"
)

// BuildTodoListCacheKey derives the per-user cache field for a list filter.
// The search term is query-escaped so it cannot collide with separators.
// Matching is case-insensitive, so the term is lowered first.
func BuildTodoListCacheKey(f todo.ListFilter) string {
	s := "all"
	if f.Status != nil {
		s = string(*f.Status)
	}

	q := ""
	if f.Search != nil {
		q = url.QueryEscape(strings.ToLower(*f.Search))
	}

	sortBy := string(f.SortBy)
	if sortBy == "" {
		sortBy = string(todo.SortByDeadline)
	}

	return "v1:status=" + s +
		":search=" + q +
		":sort=" + sortBy
}
