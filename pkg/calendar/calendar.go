// Package calendar normalises instants to calendar days in the reference
// timezone. A day is always represented as midnight in that timezone and keyed
// in storage by its YYYY-MM-DD form.
package calendar

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// DayLayout is the storage and query layout for calendar days.
const DayLayout = "2006-01-02"

// Calendar converts between instants, request strings and stored dates.
type Calendar struct {
	loc *time.Location
}

// New loads the reference timezone by IANA name. Empty means UTC.
func New(timezone string) (*Calendar, error) {
	if strings.TrimSpace(timezone) == "" {
		return &Calendar{loc: time.UTC}, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Calendar{loc: loc}, nil
}

// MustNew is New for tests and static timezones.
func MustNew(timezone string) *Calendar {
	c, err := New(timezone)
	if err != nil {
		panic(err)
	}
	return c
}

// Location returns the reference timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// StartOfDay returns midnight of the calendar day containing t.
func (c *Calendar) StartOfDay(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
}

// Parse accepts YYYY-MM-DD, read as a day in the reference timezone, or an
// RFC3339 timestamp, which is truncated to its day in the reference timezone.
func (c *Calendar) Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	if day, err := time.ParseInLocation(DayLayout, raw, c.loc); err == nil {
		return day, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return c.StartOfDay(ts), nil
}

// FromStorage maps a DATE value, whatever location the driver attached to it,
// onto the same calendar day in the reference timezone.
func (c *Calendar) FromStorage(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

// MonthBounds returns the first and last day of a calendar month.
func (c *Calendar) MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, c.loc)
	last := first.AddDate(0, 1, -1)
	return first, last
}

// Key formats a day for storage queries.
func Key(day time.Time) string {
	return day.Format(DayLayout)
}
