package dashboard

import (
	"time"

	"vilapos/m/internal/clock"
)

// Window is an inclusive range of calendar days.
type Window struct {
	From time.Time
	To   time.Time
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Today is the calendar day of now.
func Today(now time.Time) Window {
	day := startOfDay(now)
	return Window{From: day, To: day}
}

// RollingWeek is the seven days ending today.
func RollingWeek(now time.Time) Window {
	return Trailing(now, 7)
}

// CalendarMonth is the month containing now, first to last day.
func CalendarMonth(now time.Time) Window {
	y, m, _ := now.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	return Window{From: first, To: first.AddDate(0, 1, -1)}
}

// Trailing is the n days ending today. n below 1 is treated as 1.
func Trailing(now time.Time, n int) Window {
	if n < 1 {
		n = 1
	}
	day := startOfDay(now)
	return Window{From: day.AddDate(0, 0, -(n - 1)), To: day}
}

// Bounds renders the window for comparison against date(column).
func (w Window) Bounds() (from, to string) {
	return w.From.Format(clock.DateLayout), w.To.Format(clock.DateLayout)
}

// Days lists every day of the window in ascending order.
func (w Window) Days() []string {
	var days []string
	for d := w.From; !d.After(w.To); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(clock.DateLayout))
	}
	return days
}
