package history

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ErrBadSince is returned when a --since expression cannot be understood.
var ErrBadSince = errors.New("cannot parse time expression")

var naturalTime = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseSince turns a user-supplied lower time bound into an absolute time.
// It accepts a Go duration meaning "that long ago" ("36h"), a date
// ("2026-05-01"), an RFC 3339 timestamp, or natural language ("last week",
// "3 days ago", "yesterday").
func ParseSince(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, nil
	}

	if d, err := time.ParseDuration(text); err == nil {
		return now.Add(-d), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", text, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}

	r, err := naturalTime.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrBadSince, text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrBadSince, text)
	}
	return r.Time, nil
}
