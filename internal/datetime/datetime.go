// Package datetime resolves relative and absolute date phrases into canonical local timestamps.
package datetime

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical storage format, e.g. 2025-10-30 14:30:00+07:00.
const Layout = "2006-01-02 15:04:05-07:00"

// DisplayLayout is used when showing timestamps back to the user.
const DisplayLayout = "2006-01-02 15:04"

// DefaultZone is used when no time zone is configured.
const DefaultZone = "Asia/Jakarta"

// ErrInvalidDateTime is returned when no supported pattern matches.
var ErrInvalidDateTime = errors.New("invalid date/time")

var (
	nowWords       = map[string]bool{"today": true, "now": true, "hari ini": true, "sekarang": true}
	yesterdayWords = map[string]bool{"yesterday": true, "kemarin": true}

	dateTimeLayouts = []string{
		"2006-1-2 15:4:5",
		"2006-1-2 15:4",
		"2-1-2006 15:4:5",
		"2-1-2006 15:4",
	}
	dateLayouts = []string{
		"2006-1-2",
		"2-1-2006",
	}
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Normalizer parses user input relative to a fixed local zone.
type Normalizer struct {
	loc   *time.Location
	clock Clock
}

// NewNormalizer creates a Normalizer for loc using the system clock.
func NewNormalizer(loc *time.Location) *Normalizer {
	return NewNormalizerWithClock(loc, systemClock{})
}

// NewNormalizerWithClock creates a Normalizer with a custom clock for testing.
func NewNormalizerWithClock(loc *time.Location, clock Clock) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{loc: loc, clock: clock}
}

// LoadLocation resolves a zone name, falling back to DefaultZone when empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", name, err)
	}
	return loc, nil
}

// Location returns the configured zone.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Now returns the current local time truncated to whole seconds.
func (n *Normalizer) Now() time.Time {
	return n.clock.Now().In(n.loc).Truncate(time.Second)
}

// NowString returns Now in the canonical layout.
func (n *Normalizer) NowString() string {
	return n.Format(n.Now())
}

// Format renders t in the canonical layout in the local zone.
func (n *Normalizer) Format(t time.Time) string {
	return t.In(n.loc).Format(Layout)
}

// Parse resolves text into the canonical layout.
func (n *Normalizer) Parse(text string) (string, error) {
	t, err := n.ParseTime(text)
	if err != nil {
		return "", err
	}
	return n.Format(t), nil
}

// ParseTime is Parse without the final formatting step.
func (n *Normalizer) ParseTime(text string) (time.Time, error) {
	raw := strings.TrimSpace(text)
	word := strings.ToLower(raw)

	if word == "" || word == "0" || nowWords[word] {
		return n.Now(), nil
	}
	if yesterdayWords[word] {
		return n.Now().Add(-24 * time.Hour), nil
	}

	if t, err := time.Parse(Layout, raw); err == nil {
		return t.In(n.loc), nil
	}

	s := strings.ReplaceAll(raw, "/", "-")
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return t, nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, text)
}

// Display renders a stored timestamp for chat output.
func (n *Normalizer) Display(stored string) string {
	if stored == "" {
		return "-"
	}
	t, err := time.Parse(Layout, stored)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, stored); err != nil {
			return strings.Replace(stored, "T", " ", 1)
		}
	}
	return t.In(n.loc).Format(DisplayLayout)
}

// Compare orders two canonical timestamps; unparsable values sort first.
func Compare(a, b string) int {
	ta, errA := time.Parse(Layout, a)
	tb, errB := time.Parse(Layout, b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return ta.Compare(tb)
}
