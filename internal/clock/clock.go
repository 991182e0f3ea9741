// Package clock is the "current time" source for the storage core.
package clock

import (
	"sync"
	"time"
)

// Layout is the timestamp format stored in TEXT date columns. It matches
// SQLite's datetime('now', 'localtime').
const Layout = "2006-01-02 15:04:05"

// DateLayout is the day granularity used by window filters.
const DateLayout = "2006-01-02"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in the given location (time.Local when nil).
type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now()
	}
	return time.Now().In(s.Location)
}

// Fixed always returns the same instant until Set is called.
// Safe for concurrent use.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// Stamp formats t for a TEXT timestamp column.
func Stamp(t time.Time) string {
	return t.Format(Layout)
}
