package dto

import (
	"time"

	"github.com/noah-isme/student-attendance-api/internal/models"
)

// AttendanceRecordRow is a stored record as returned by the API. Date uses
// the same YYYY-MM-DD form as the reports.
type AttendanceRecordRow struct {
	ID        string                  `json:"id"`
	StudentID string                  `json:"studentId"`
	Date      string                  `json:"date"`
	Status    models.AttendanceStatus `json:"status"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// MarkAttendanceResult is the outcome of a mark batch. Records is populated
// under the upsert policy, Message under insert-only.
type MarkAttendanceResult struct {
	Policy  string
	Records []AttendanceRecordRow
	Message string
}

// EditAttendanceResult acknowledges an edit batch.
type EditAttendanceResult struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
}
