package todo

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidWindow = errors.New("window must be one of all, today, week, month")

type BadgeKind string

const (
	BadgeDone     BadgeKind = "done"
	BadgeOverdue  BadgeKind = "overdue"
	BadgeToday    BadgeKind = "today"
	BadgeUpcoming BadgeKind = "upcoming"
)

type Badge struct {
	Kind  BadgeKind `json:"kind"`
	Label string    `json:"label"`
	// calendar days from today to the deadline; negative when overdue
	Days int `json:"days"`
}

// SmartBadge describes how close t is to its deadline, counted in calendar
// days in loc.
func SmartBadge(t Todo, now time.Time, loc *time.Location) Badge {
	days := DaysUntil(t.Deadline, now, loc)

	if t.Status.Completed() {
		return Badge{Kind: BadgeDone, Label: "Done", Days: days}
	}

	switch {
	case days < 0:
		return Badge{Kind: BadgeOverdue, Label: fmt.Sprintf("Overdue by %s", pluralDays(-days)), Days: days}
	case days == 0:
		return Badge{Kind: BadgeToday, Label: "Due today", Days: 0}
	default:
		return Badge{Kind: BadgeUpcoming, Label: pluralDays(days) + " left", Days: days}
	}
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// DaysUntil counts calendar-day boundaries between now and deadline in loc.
func DaysUntil(deadline, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}

	// compare dates, not durations: DST days are 23 or 25 hours long
	dy, dm, dd := deadline.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	du := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	nu := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)

	return int(du.Sub(nu).Hours() / 24)
}

type Stats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	InProgress     int `json:"inProgress"`
	Pending        int `json:"pending"`
	Overdue        int `json:"overdue"`
	CompletionRate int `json:"completionRate"`
}

// ComputeStats counts todos by state. CompletionRate is a rounded percentage
// and zero for an empty list.
func ComputeStats(todos []Todo, now time.Time) Stats {
	var s Stats
	s.Total = len(todos)

	for _, t := range todos {
		switch t.Status {
		case StatusDone:
			s.Completed++
		case StatusInProgress:
			s.InProgress++
		default:
			s.Pending++
		}

		if !t.Status.Completed() && t.Deadline.Before(now) {
			s.Overdue++
		}
	}

	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}

	return s
}

type Window string

const (
	WindowAll   Window = "all"
	WindowToday Window = "today"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

func ParseWindow(raw string) (Window, error) {
	switch Window(raw) {
	case "", WindowAll:
		return WindowAll, nil
	case WindowToday, WindowWeek, WindowMonth:
		return Window(raw), nil
	}
	return "", ErrInvalidWindow
}

// Bounds returns the half-open [start, end) range of w around now in loc.
// Weeks start on Sunday. ok is false for WindowAll.
func (w Window) Bounds(now time.Time, loc *time.Location) (start, end time.Time, ok bool) {
	if loc == nil {
		loc = time.UTC
	}
	today := startOfDay(now.In(loc))

	switch w {
	case WindowToday:
		return today, today.AddDate(0, 0, 1), true
	case WindowWeek:
		start = today.AddDate(0, 0, -int(today.Weekday()))
		return start, start.AddDate(0, 0, 7), true
	case WindowMonth:
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0), true
	}

	return time.Time{}, time.Time{}, false
}

// FilterWindow keeps the todos whose deadline falls inside w.
func FilterWindow(todos []Todo, w Window, now time.Time, loc *time.Location) []Todo {
	start, end, ok := w.Bounds(now, loc)
	if !ok {
		return todos
	}

	out := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if !t.Deadline.Before(start) && t.Deadline.Before(end) {
			out = append(out, t)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
