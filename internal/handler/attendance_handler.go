package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-attendance-api/internal/dto"
	"github.com/noah-isme/student-attendance-api/internal/middleware"
	"github.com/noah-isme/student-attendance-api/internal/service"
	"github.com/noah-isme/student-attendance-api/pkg/config"
	appErrors "github.com/noah-isme/student-attendance-api/pkg/errors"
	"github.com/noah-isme/student-attendance-api/pkg/response"
)

type attendanceService interface {
	Mark(ctx context.Context, req service.AttendanceBatchRequest) (*dto.MarkAttendanceResult, error)
	Edit(ctx context.Context, req service.AttendanceBatchRequest) (*dto.EditAttendanceResult, error)
}

type reportService interface {
	Daily(ctx context.Context, rawDate string) ([]dto.DailyReportRow, error)
	Monthly(ctx context.Context, query service.MonthlyReportQuery) (*dto.MonthlyReport, error)
	Export(ctx context.Context, query service.MonthlyReportQuery, format string) (*service.ExportFile, error)
}

// AttendanceHandler exposes marking, editing and reporting endpoints.
type AttendanceHandler struct {
	attendance attendanceService
	reports    reportService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService, reports reportService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, reports: reports}
}

// Mark godoc
// @Summary Mark attendance for a day
// @Description Upsert policy returns the stored records; insert-only policy returns a message and rejects days already marked.
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.AttendanceBatchRequest true "Attendance batch"
// @Success 201 {array} dto.AttendanceRecordRow
// @Failure 400 {object} errors.Error
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.AttendanceBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Date and records required"))
		return
	}
	req.Actor = actor(c)
	result, err := h.attendance.Mark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Policy == config.MarkPolicyInsertOnly {
		response.Created(c, response.Message{Message: result.Message})
		return
	}
	response.Created(c, result.Records)
}

// Edit godoc
// @Summary Correct a day's attendance
// @Description Only existing records are updated, and only within 24 hours of the day's start.
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.AttendanceBatchRequest true "Attendance batch"
// @Success 200 {object} dto.EditAttendanceResult
// @Failure 403 {object} errors.Error
// @Failure 404 {object} errors.Error
// @Router /attendance/edit [put]
func (h *AttendanceHandler) Edit(c *gin.Context) {
	var req service.AttendanceBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Date and records required"))
		return
	}
	req.Actor = actor(c)
	result, err := h.attendance.Edit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Daily godoc
// @Summary Daily attendance report
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param date query string true "Day (YYYY-MM-DD or RFC3339)"
// @Success 200 {array} dto.DailyReportRow
// @Failure 400 {object} errors.Error
// @Router /attendance/daily [get]
func (h *AttendanceHandler) Daily(c *gin.Context) {
	rows, err := h.reports.Daily(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows)
}

// Monthly godoc
// @Summary Monthly attendance report
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param month query int true "Month (1-12)"
// @Param year query int true "Year"
// @Success 200 {array} dto.MonthlyReportRow
// @Failure 400 {object} errors.Error
// @Router /attendance/monthly [get]
func (h *AttendanceHandler) Monthly(c *gin.Context) {
	query, err := parseMonthQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.reports.Monthly(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report.Rows)
}

// Export godoc
// @Summary Download the monthly attendance report
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param month query int true "Month (1-12)"
// @Param year query int true "Year"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} errors.Error
// @Router /attendance/monthly/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	query, err := parseMonthQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.reports.Export(c.Request.Context(), query, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func actor(c *gin.Context) string {
	if principal := middleware.CurrentPrincipal(c); principal != nil {
		return principal.Method + ":" + principal.Subject
	}
	return ""
}

func parseMonthQuery(c *gin.Context) (service.MonthlyReportQuery, error) {
	month, monthErr := strconv.Atoi(c.Query("month"))
	year, yearErr := strconv.Atoi(c.Query("year"))
	if monthErr != nil || yearErr != nil {
		return service.MonthlyReportQuery{}, appErrors.Clone(appErrors.ErrValidation, "Month and year required")
	}
	return service.MonthlyReportQuery{Month: month, Year: year}, nil
}
