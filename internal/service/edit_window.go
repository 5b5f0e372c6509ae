package service

import (
	"time"

	"github.com/noah-isme/student-attendance-api/pkg/calendar"
)

// DefaultEditWindow is how long after a day begins its attendance stays editable.
const DefaultEditWindow = 24 * time.Hour

// EditWindow decides whether a day's attendance is still open for correction.
// The deadline is measured from the start of the day, not from marking time.
type EditWindow struct {
	cal    *calendar.Calendar
	window time.Duration
}

// NewEditWindow constructs an EditWindow; a non-positive window uses DefaultEditWindow.
func NewEditWindow(cal *calendar.Calendar, window time.Duration) EditWindow {
	if window <= 0 {
		window = DefaultEditWindow
	}
	return EditWindow{cal: cal, window: window}
}

// CanEdit reports whether now - startOfDay(day) <= window.
func (w EditWindow) CanEdit(day, now time.Time) bool {
	return now.Sub(w.cal.StartOfDay(day)) <= w.window
}

// Deadline returns the last instant at which day can be edited.
func (w EditWindow) Deadline(day time.Time) time.Time {
	return w.cal.StartOfDay(day).Add(w.window)
}
