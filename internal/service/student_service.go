package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/student-attendance-api/internal/models"
	"github.com/noah-isme/student-attendance-api/pkg/config"
	"github.com/noah-isme/student-attendance-api/pkg/database"
	appErrors "github.com/noah-isme/student-attendance-api/pkg/errors"
)

type studentRepository interface {
	ListActive(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsActiveRollNo(ctx context.Context, rollNo int, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// StudentRequest holds the payload for creating or updating students.
type StudentRequest struct {
	Name   string `json:"name" validate:"required"`
	RollNo *int   `json:"rollNo" validate:"required"`
}

const msgStudentRemoved = "Student removed successfully"

// StudentService handles student use-cases.
type StudentService struct {
	repo        studentRepository
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	removalMode string
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, removalMode string) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if removalMode != config.RemovalHard {
		removalMode = config.RemovalSoft
	}
	return &StudentService{repo: repo, cache: cache, validator: validate, logger: logger, removalMode: removalMode}
}

// List returns active students ordered by roll number.
func (s *StudentService) List(ctx context.Context) ([]models.Student, error) {
	students, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	if !isStudentID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Name and roll number are required")
	}
	if err := s.ensureRollNoFree(ctx, *req.RollNo, ""); err != nil {
		return nil, err
	}
	student := &models.Student{Name: req.Name, RollNo: *req.RollNo}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, s.writeError(err, "failed to create student")
	}
	s.invalidate(ctx)
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.Int("roll_no", student.RollNo))
	return student, nil
}

// Update modifies name and roll number of an existing student.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Name and roll number are required")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if student.IsActive {
		if err := s.ensureRollNoFree(ctx, *req.RollNo, id); err != nil {
			return nil, err
		}
	}
	student.Name = req.Name
	student.RollNo = *req.RollNo
	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return nil, s.writeError(err, "failed to update student")
	}
	s.invalidate(ctx)
	return student, nil
}

// Remove deactivates or deletes a student depending on the removal mode.
// Attendance history is never touched.
func (s *StudentService) Remove(ctx context.Context, id string) (string, error) {
	if !isStudentID(id) {
		return "", appErrors.Clone(appErrors.ErrNotFound, "Student not found")
	}
	var err error
	if s.removalMode == config.RemovalHard {
		err = s.repo.Delete(ctx, id)
	} else {
		err = s.repo.Deactivate(ctx, id)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return "", appErrors.Internal(err, "failed to remove student")
	}
	s.invalidate(ctx)
	s.logger.Info("student removed", zap.String("student_id", id), zap.String("mode", s.removalMode))
	return msgStudentRemoved, nil
}

func (s *StudentService) ensureRollNoFree(ctx context.Context, rollNo int, excludeID string) error {
	exists, err := s.repo.ExistsActiveRollNo(ctx, rollNo, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate roll number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "Roll number already exists")
	}
	return nil
}

// The unique index is authoritative; the pre-check only covers the common case.
func (s *StudentService) writeError(err error, message string) error {
	if errors.Is(err, database.ErrUniqueViolation) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "Roll number already exists")
	}
	return appErrors.Internal(err, message)
}

func (s *StudentService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, dashboardCachePattern)
}

// isStudentID reports whether id can name a stored student. Anything that is
// not a UUID cannot exist, so it never reaches the students.id column.
func isStudentID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
