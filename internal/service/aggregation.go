package service

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/student-attendance-api/internal/dto"
	"github.com/noah-isme/student-attendance-api/internal/models"
	"github.com/noah-isme/student-attendance-api/pkg/calendar"
)

func buildDailyReport(cal *calendar.Calendar, records []models.AttendanceRecordDetail) []dto.DailyReportRow {
	rows := make([]dto.DailyReportRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, dto.DailyReportRow{
			ID:        rec.ID,
			StudentID: rec.StudentID,
			Date:      storedDay(cal, rec.Date),
			Status:    rec.Status,
			Student:   rec.Student(),
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return rows
}

func buildRecordRows(cal *calendar.Calendar, records []models.AttendanceRecord) []dto.AttendanceRecordRow {
	rows := make([]dto.AttendanceRecordRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, dto.AttendanceRecordRow{
			ID:        rec.ID,
			StudentID: rec.StudentID,
			Date:      storedDay(cal, rec.Date),
			Status:    rec.Status,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return rows
}

// storedDay renders a DATE column value as its YYYY-MM-DD key.
func storedDay(cal *calendar.Calendar, date time.Time) string {
	return calendar.Key(cal.FromStorage(date))
}

// buildMonthlyReport groups records by student. Every group is emitted, with
// the deleted placeholder when the student cannot be resolved.
func buildMonthlyReport(records []models.AttendanceRecord, students map[string]models.Student) []dto.MonthlyReportRow {
	index := make(map[string]int)
	rows := make([]dto.MonthlyReportRow, 0)
	for _, rec := range records {
		i, ok := index[rec.StudentID]
		if !ok {
			i = len(rows)
			index[rec.StudentID] = i
			row := dto.MonthlyReportRow{StudentID: rec.StudentID, Name: models.DeletedStudentName}
			if student, found := students[rec.StudentID]; found {
				row.Name = student.Name
				row.RollNo = models.KnownRollNo(student.RollNo)
			}
			rows = append(rows, row)
		}
		switch rec.Status {
		case models.AttendanceStatusPresent:
			rows[i].Present++
		case models.AttendanceStatusAbsent:
			rows[i].Absent++
		}
	}

	for i := range rows {
		rows[i].Total = rows[i].Present + rows[i].Absent
		rows[i].Percentage = percentage(rows[i].Present, rows[i].Total)
	}

	sort.SliceStable(rows, func(a, b int) bool {
		ra, rb := rows[a], rows[b]
		if ra.RollNo.Valid != rb.RollNo.Valid {
			return ra.RollNo.Valid
		}
		if ra.RollNo.Value != rb.RollNo.Value {
			return ra.RollNo.Value < rb.RollNo.Value
		}
		if ra.Name != rb.Name {
			return ra.Name < rb.Name
		}
		return ra.StudentID < rb.StudentID
	})
	return rows
}

// percentage rounds present/total*100 to two decimals.
func percentage(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*100*100) / 100
}

// computeDashboardStats keeps the historic monthly average: days without any
// record do not count towards the denominator.
func computeDashboardStats(totalStudents, presentToday int, daily []models.DailyPresence) dto.DashboardStats {
	stats := dto.DashboardStats{TotalStudents: totalStudents}
	if totalStudents == 0 {
		return stats
	}
	stats.TodayPercentage = int(math.Round(float64(presentToday) / float64(totalStudents) * 100))
	if len(daily) == 0 {
		return stats
	}
	sum := 0
	for _, d := range daily {
		sum += d.Present
	}
	stats.MonthlyAvg = int(math.Round(float64(sum) / float64(len(daily)*totalStudents) * 100))
	return stats
}
