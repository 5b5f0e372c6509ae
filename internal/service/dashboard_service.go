package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-attendance-api/internal/dto"
	"github.com/noah-isme/student-attendance-api/internal/models"
	"github.com/noah-isme/student-attendance-api/pkg/calendar"
	appErrors "github.com/noah-isme/student-attendance-api/pkg/errors"
)

type dashboardStudentRepository interface {
	CountActive(ctx context.Context) (int, error)
}

type dashboardAttendanceRepository interface {
	CountPresent(ctx context.Context, day string) (int, error)
	DailyPresence(ctx context.Context, from, to string) ([]models.DailyPresence, error)
}

// DashboardService computes roster and attendance summaries.
type DashboardService struct {
	students   dashboardStudentRepository
	attendance dashboardAttendanceRepository
	cal        *calendar.Calendar
	cache      *CacheService
	cacheTTL   time.Duration
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewDashboardService constructs a dashboard service.
func NewDashboardService(students dashboardStudentRepository, attendance dashboardAttendanceRepository, cal *calendar.Calendar, cache *CacheService, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		students:   students,
		attendance: attendance,
		cal:        cal,
		cache:      cache,
		cacheTTL:   cacheTTL,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Stats returns today's summary and whether it was served from cache.
func (s *DashboardService) Stats(ctx context.Context) (*dto.DashboardStats, bool, error) {
	today := s.cal.StartOfDay(s.now())
	key := dashboardCachePrefix + calendar.Key(today)

	var cached dto.DashboardStats
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	gen := s.cache.Generation()
	stats, err := s.compute(ctx, today)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.SetIfCurrent(ctx, key, stats, s.cacheTTL, gen); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
	return stats, false, nil
}

func (s *DashboardService) compute(ctx context.Context, today time.Time) (*dto.DashboardStats, error) {
	start := time.Now()
	total, err := s.students.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "Failed to load stats")
	}
	present, err := s.attendance.CountPresent(ctx, calendar.Key(today))
	if err != nil {
		return nil, appErrors.Internal(err, "Failed to load stats")
	}
	first, last := s.cal.MonthBounds(today.Year(), today.Month())
	daily, err := s.attendance.DailyPresence(ctx, calendar.Key(first), calendar.Key(last))
	if err != nil {
		return nil, appErrors.Internal(err, "Failed to load stats")
	}
	s.metrics.ObserveReportQuery("dashboard", time.Since(start))

	stats := computeDashboardStats(total, present, daily)
	return &stats, nil
}
