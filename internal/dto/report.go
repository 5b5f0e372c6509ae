package dto

import (
	"time"

	"github.com/noah-isme/student-attendance-api/internal/models"
)

// DailyReportRow is one attendance record with its resolved student.
type DailyReportRow struct {
	ID        string                  `json:"id"`
	StudentID string                  `json:"studentId"`
	Date      string                  `json:"date"`
	Status    models.AttendanceStatus `json:"status"`
	Student   models.StudentRef       `json:"student"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// MonthlyReportRow aggregates one student's records over a calendar month.
type MonthlyReportRow struct {
	StudentID  string        `json:"studentId"`
	RollNo     models.RollNo `json:"rollNo"`
	Name       string        `json:"name"`
	Present    int           `json:"present"`
	Absent     int           `json:"absent"`
	Total      int           `json:"total"`
	Percentage float64       `json:"percentage"`
}

// MonthlyReport wraps the rows with the period they cover.
type MonthlyReport struct {
	Month int
	Year  int
	Rows  []MonthlyReportRow
}
