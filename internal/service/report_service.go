package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-attendance-api/internal/dto"
	"github.com/noah-isme/student-attendance-api/internal/models"
	"github.com/noah-isme/student-attendance-api/pkg/calendar"
	appErrors "github.com/noah-isme/student-attendance-api/pkg/errors"
	"github.com/noah-isme/student-attendance-api/pkg/export"
)

type reportAttendanceRepository interface {
	ListDetailedByDate(ctx context.Context, day string) ([]models.AttendanceRecordDetail, error)
	ListByRange(ctx context.Context, from, to string) ([]models.AttendanceRecord, error)
}

type reportStudentRepository interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// MonthlyReportQuery selects a calendar month.
type MonthlyReportQuery struct {
	Month int `validate:"min=1,max=12"`
	Year  int `validate:"min=1,max=9999"`
}

// Export formats for the monthly report.
const (
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
	ExportFormatXLSX = "xlsx"
)

// ExportFile is a rendered report ready to be sent as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

var monthlyHeaders = []string{"Roll No", "Name", "Present", "Absent", "Total", "Percentage"}

// ReportService builds daily and monthly attendance reports.
type ReportService struct {
	attendance reportAttendanceRepository
	students   reportStudentRepository
	cal        *calendar.Calendar
	renderers  map[string]datasetRenderer
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewReportService constructs a ReportService with the CSV, PDF and XLSX renderers.
func NewReportService(attendance reportAttendanceRepository, students reportStudentRepository, cal *calendar.Calendar, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		attendance: attendance,
		students:   students,
		cal:        cal,
		renderers: map[string]datasetRenderer{
			ExportFormatCSV:  export.NewCSVExporter(),
			ExportFormatPDF:  export.NewPDFExporter(),
			ExportFormatXLSX: export.NewXLSXExporter(),
		},
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Daily returns the day's records in insertion order with resolved students.
func (s *ReportService) Daily(ctx context.Context, rawDate string) ([]dto.DailyReportRow, error) {
	if strings.TrimSpace(rawDate) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Date is required")
	}
	day, err := s.cal.Parse(rawDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}
	start := time.Now()
	records, err := s.attendance.ListDetailedByDate(ctx, calendar.Key(day))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load daily report")
	}
	s.metrics.ObserveReportQuery("daily", time.Since(start))
	return buildDailyReport(s.cal, records), nil
}

// Monthly aggregates a calendar month per student.
func (s *ReportService) Monthly(ctx context.Context, query MonthlyReportQuery) (*dto.MonthlyReport, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Month and year required")
	}
	start := time.Now()
	first, last := s.cal.MonthBounds(query.Year, time.Month(query.Month))
	records, err := s.attendance.ListByRange(ctx, calendar.Key(first), calendar.Key(last))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load monthly report")
	}

	ids := distinctStudentIDs(records)
	students := make(map[string]models.Student, len(ids))
	if len(ids) > 0 {
		found, err := s.students.FindByIDs(ctx, ids)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to resolve students")
		}
		for _, st := range found {
			students[st.ID] = st
		}
	}
	s.metrics.ObserveReportQuery("monthly", time.Since(start))

	return &dto.MonthlyReport{
		Month: query.Month,
		Year:  query.Year,
		Rows:  buildMonthlyReport(records, students),
	}, nil
}

// Export renders the monthly report in the requested format.
func (s *ReportService) Export(ctx context.Context, query MonthlyReportQuery, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be one of csv, pdf, xlsx")
	}

	report, err := s.Monthly(ctx, query)
	if err != nil {
		return nil, err
	}

	dataset := monthlyDataset(report)
	body, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render report")
	}
	s.logger.Info("monthly report exported", zap.Int("month", report.Month), zap.Int("year", report.Year), zap.String("format", format), zap.Int("rows", len(report.Rows)))
	return &ExportFile{
		Filename:    fmt.Sprintf("attendance-%04d-%02d.%s", report.Year, report.Month, format),
		ContentType: contentTypes[format],
		Body:        body,
	}, nil
}

var contentTypes = map[string]string{
	ExportFormatCSV:  "text/csv",
	ExportFormatPDF:  "application/pdf",
	ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func monthlyDataset(report *dto.MonthlyReport) export.Dataset {
	rows := make([]map[string]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, map[string]string{
			"Roll No":    row.RollNo.String(),
			"Name":       row.Name,
			"Present":    fmt.Sprintf("%d", row.Present),
			"Absent":     fmt.Sprintf("%d", row.Absent),
			"Total":      fmt.Sprintf("%d", row.Total),
			"Percentage": fmt.Sprintf("%.2f", row.Percentage),
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Attendance %04d-%02d", report.Year, report.Month),
		Headers: monthlyHeaders,
		Rows:    rows,
	}
}

func distinctStudentIDs(records []models.AttendanceRecord) []string {
	seen := make(map[string]struct{}, len(records))
	ids := make([]string, 0)
	for _, rec := range records {
		if _, ok := seen[rec.StudentID]; ok {
			continue
		}
		seen[rec.StudentID] = struct{}{}
		ids = append(ids, rec.StudentID)
	}
	return ids
}
