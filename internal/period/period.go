// Package period models the half-month payroll window every payment,
// delivery, and bonus is keyed on.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var ErrInvalidKey = errors.New("invalid_period_key")

// Period is a closed date window. Start and End are UTC midnights.
type Period struct {
	Start time.Time
	End   time.Time
}

// ForDate returns the half-month window containing t: days 1-15, or day 16
// through the end of the month.
func ForDate(t time.Time) Period {
	t = t.UTC()
	year, month, day := t.Date()
	if day <= 15 {
		return Period{
			Start: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(year, month, 15, 0, 0, 0, 0, time.UTC),
		}
	}
	return Period{
		Start: time.Date(year, month, 16, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1),
	}
}

// Parse decodes a "{start}_{end}" key produced by Key.
func Parse(key string) (Period, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 2 {
		return Period{}, ErrInvalidKey
	}
	start, err := time.ParseInLocation(dateLayout, parts[0], time.UTC)
	if err != nil {
		return Period{}, ErrInvalidKey
	}
	end, err := time.ParseInLocation(dateLayout, parts[1], time.UTC)
	if err != nil {
		return Period{}, ErrInvalidKey
	}
	if end.Before(start) {
		return Period{}, ErrInvalidKey
	}
	return Period{Start: start, End: end}, nil
}

// Key is the canonical period identifier, e.g. "2025-06-01_2025-06-15".
func (p Period) Key() string {
	return fmt.Sprintf("%s_%s", p.Start.Format(dateLayout), p.End.Format(dateLayout))
}

// Contains reports whether the date of t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	day := t.UTC().Truncate(24 * time.Hour)
	return !day.Before(p.Start) && !day.After(p.End)
}

func (p Period) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}
