// Package clock provides the single time source shared by the lifecycle
// service, the fan-out and both scanners.
package clock

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// DisplayLayout is the canonical rendering used in notification text.
const DisplayLayout = "2006-01-02 15:04"

var ErrInvalidTimestamp = errors.New("invalid timestamp")

var acceptedLayouts = []string{
	DisplayLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04",
	"2006/01/02 15:04:05",
}

type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c systemClock) Location() *time.Location {
	return c.loc
}

// Fake is a manually advanced clock for tests and replays.
type Fake struct {
	mu  sync.Mutex
	now time.Time
	loc *time.Location
}

func NewFake(now time.Time) *Fake {
	loc := now.Location()
	if loc == nil {
		loc = time.UTC
	}
	return &Fake{now: now, loc: loc}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Location() *time.Location {
	return f.loc
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

// Parse accepts RFC3339 and the separator/space delimited layouts the admin
// front-end sends. Values without an offset are read in loc.
func Parse(raw string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	if loc == nil {
		loc = time.UTC
	}

	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.In(loc), nil
	}
	for _, layout := range acceptedLayouts {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}

func Format(ts time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Format(DisplayLayout)
}
