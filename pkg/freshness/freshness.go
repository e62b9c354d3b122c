// Package freshness derives the freshness status of a food item from its
// expiry date.
package freshness

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the persisted form of every inventory date.
const DateLayout = "2006/01/02"

// ExpiringSoonDays is the inclusive upper bound of the ExpiringSoon window.
const ExpiringSoonDays = 7

type Label string

const (
	Unknown      Label = "Unknown"
	Expired      Label = "Expired"
	ExpiringSoon Label = "Expiring Soon"
	Fresh        Label = "Fresh"
)

type Severity int

const (
	SeverityNeutral Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "neutral"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Status struct {
	Label    Label    `json:"label"`
	Severity Severity `json:"severity"`
}

// Classify maps an expiry date to a status relative to now. Only the calendar
// dates matter; time of day is ignored.
func Classify(expiry *time.Time, now time.Time) Status {
	if expiry == nil {
		return Status{Label: Unknown, Severity: SeverityNeutral}
	}

	days := DaysUntil(*expiry, now)
	switch {
	case days < 0:
		return Status{Label: Expired, Severity: SeverityHigh}
	case days <= ExpiringSoonDays:
		return Status{Label: ExpiringSoon, Severity: SeverityMedium}
	default:
		return Status{Label: Fresh, Severity: SeverityLow}
	}
}

// ClassifyString classifies a persisted date string. A missing or unparseable
// value is Unknown.
func ClassifyString(expiry *string, now time.Time) Status {
	if expiry == nil {
		return Classify(nil, now)
	}
	t, err := ParseDate(*expiry)
	if err != nil {
		return Classify(nil, now)
	}
	return Classify(&t, now)
}

// DaysUntil returns the number of calendar days from now's date to expiry's
// date. Each date is read in its own location.
func DaysUntil(expiry, now time.Time) int {
	ey, em, ed := expiry.Date()
	ny, nm, nd := now.Date()
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	n := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(e.Sub(n).Hours() / 24)
}

// ParseDate accepts the persisted YYYY/MM/DD form and ISO YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// FormatDate renders the calendar date of t in the persisted form.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeDate parses s and returns it in the persisted form.
func NormalizeDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return FormatDate(t), nil
}
