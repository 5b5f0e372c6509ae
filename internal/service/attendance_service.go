package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/student-attendance-api/internal/dto"
	"github.com/noah-isme/student-attendance-api/internal/models"
	"github.com/noah-isme/student-attendance-api/pkg/calendar"
	"github.com/noah-isme/student-attendance-api/pkg/config"
	"github.com/noah-isme/student-attendance-api/pkg/database"
	appErrors "github.com/noah-isme/student-attendance-api/pkg/errors"
)

type attendanceRepository interface {
	ExistsForDate(ctx context.Context, day string) (bool, error)
	UpsertBatch(ctx context.Context, day string, entries []models.AttendanceEntry) ([]models.AttendanceRecord, error)
	InsertBatch(ctx context.Context, day string, entries []models.AttendanceEntry) error
	UpdateStatuses(ctx context.Context, day string, entries []models.AttendanceEntry) (int, error)
}

// AttendanceEntryRequest is one student status in a batch. Entries with an
// empty studentId or status are skipped.
type AttendanceEntryRequest struct {
	StudentID string `json:"studentId" validate:"omitempty,uuid"`
	Status    string `json:"status" validate:"omitempty,attendance_status"`
}

// AttendanceBatchRequest is the payload for marking or editing a day.
type AttendanceBatchRequest struct {
	Date    string                   `json:"date" validate:"required"`
	Records []AttendanceEntryRequest `json:"records" validate:"required,dive"`
	// Actor names the authenticated caller for the audit log.
	Actor string `json:"-"`
}

const (
	msgAttendanceMarked  = "Attendance marked successfully"
	msgAttendanceUpdated = "Attendance updated successfully"
	msgAlreadyMarked     = "Attendance already marked for this date"
	msgAttendanceLocked  = "Attendance is locked after 24 hours"
)

// AttendanceService implements the attendance ledger and its edit window.
type AttendanceService struct {
	repo      attendanceRepository
	cal       *calendar.Calendar
	window    EditWindow
	policy    string
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// AttendanceServiceConfig bundles the ledger policies.
type AttendanceServiceConfig struct {
	MarkPolicy string
	EditWindow time.Duration
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, cal *calendar.Calendar, cfg AttendanceServiceConfig, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := cfg.MarkPolicy
	if policy != config.MarkPolicyInsertOnly {
		policy = config.MarkPolicyUpsert
	}
	return &AttendanceService{
		repo:      repo,
		cal:       cal,
		window:    NewEditWindow(cal, cfg.EditWindow),
		policy:    policy,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Policy returns the configured mark policy.
func (s *AttendanceService) Policy() string {
	return s.policy
}

// Mark records a day's attendance using the configured policy.
func (s *AttendanceService) Mark(ctx context.Context, req AttendanceBatchRequest) (*dto.MarkAttendanceResult, error) {
	day, entries, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	key := calendar.Key(day)

	if s.policy == config.MarkPolicyInsertOnly {
		return s.markInsertOnly(ctx, key, entries, req.Actor)
	}

	if len(entries) == 0 {
		return &dto.MarkAttendanceResult{Policy: s.policy, Records: []dto.AttendanceRecordRow{}}, nil
	}
	records, err := s.repo.UpsertBatch(ctx, key, entries)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to mark attendance")
	}
	s.afterWrite(ctx, "upsert", len(records))
	s.logger.Info("attendance marked", zap.String("date", key), zap.String("policy", s.policy), zap.Int("records", len(records)), zap.String("actor", req.Actor))
	return &dto.MarkAttendanceResult{Policy: s.policy, Records: buildRecordRows(s.cal, records)}, nil
}

func (s *AttendanceService) markInsertOnly(ctx context.Context, key string, entries []models.AttendanceEntry, actor string) (*dto.MarkAttendanceResult, error) {
	if err := s.repo.InsertBatch(ctx, key, entries); err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			s.metrics.IncAttendanceRejected("already_marked")
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, msgAlreadyMarked)
		}
		return nil, appErrors.Internal(err, "failed to mark attendance")
	}
	s.afterWrite(ctx, "insert", len(entries))
	s.logger.Info("attendance marked", zap.String("date", key), zap.String("policy", s.policy), zap.Int("records", len(entries)), zap.String("actor", actor))
	return &dto.MarkAttendanceResult{Policy: s.policy, Message: msgAttendanceMarked}, nil
}

// Edit changes statuses of an existing day while its edit window is open.
func (s *AttendanceService) Edit(ctx context.Context, req AttendanceBatchRequest) (*dto.EditAttendanceResult, error) {
	day, entries, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	key := calendar.Key(day)

	exists, err := s.repo.ExistsForDate(ctx, key)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check attendance")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Attendance not found for this date")
	}
	if !s.window.CanEdit(day, s.now()) {
		s.metrics.IncAttendanceRejected("locked")
		s.logger.Info("attendance edit rejected", zap.String("date", key), zap.Time("locked_at", s.window.Deadline(day)), zap.String("actor", req.Actor))
		return nil, appErrors.Clone(appErrors.ErrForbidden, msgAttendanceLocked)
	}

	updated := 0
	if len(entries) > 0 {
		updated, err = s.repo.UpdateStatuses(ctx, key, entries)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to edit attendance")
		}
	}
	s.afterWrite(ctx, "edit", updated)
	s.logger.Info("attendance edited", zap.String("date", key), zap.Int("updated", updated), zap.String("actor", req.Actor))
	return &dto.EditAttendanceResult{Message: msgAttendanceUpdated, Updated: updated}, nil
}

// prepare validates the batch, normalises the day and drops incomplete entries.
// Repeated studentIds keep their last status.
func (s *AttendanceService) prepare(req AttendanceBatchRequest) (time.Time, []models.AttendanceEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return time.Time{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Date and valid records are required")
	}
	day, err := s.cal.Parse(req.Date)
	if err != nil {
		return time.Time{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}

	position := make(map[string]int, len(req.Records))
	entries := make([]models.AttendanceEntry, 0, len(req.Records))
	for _, rec := range req.Records {
		if rec.StudentID == "" || rec.Status == "" {
			continue
		}
		id, err := uuid.Parse(rec.StudentID)
		if err != nil {
			return time.Time{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid studentId")
		}
		entry := models.AttendanceEntry{StudentID: id.String(), Status: models.AttendanceStatus(rec.Status)}
		if i, seen := position[entry.StudentID]; seen {
			entries[i] = entry
			continue
		}
		position[entry.StudentID] = len(entries)
		entries = append(entries, entry)
	}
	return day, entries, nil
}

func (s *AttendanceService) afterWrite(ctx context.Context, operation string, n int) {
	s.metrics.AddAttendanceWritten(operation, n)
	_ = s.cache.Invalidate(ctx, dashboardCachePattern)
}
