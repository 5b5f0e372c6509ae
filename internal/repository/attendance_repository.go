package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-attendance-api/internal/models"
	"github.com/noah-isme/student-attendance-api/pkg/database"
)

// Days are passed to every query as YYYY-MM-DD strings so the DATE column
// never sees a timezone conversion.

// AttendanceRepository persists per-student per-day attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ExistsForDate reports whether any record exists for the day.
func (r *AttendanceRepository) ExistsForDate(ctx context.Context, day string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM attendance_records WHERE date = $1)", day); err != nil {
		return false, fmt.Errorf("check attendance for %s: %w", day, err)
	}
	return exists, nil
}

// UpsertBatch writes every entry with ON CONFLICT DO UPDATE inside one transaction.
func (r *AttendanceRepository) UpsertBatch(ctx context.Context, day string, entries []models.AttendanceEntry) ([]models.AttendanceRecord, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert attendance: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	query := `INSERT INTO attendance_records (id, student_id, date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (student_id, date)
DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
RETURNING id, student_id, date, status, created_at, updated_at`
	now := time.Now().UTC()
	records := make([]models.AttendanceRecord, 0, len(entries))
	for _, entry := range entries {
		var stored models.AttendanceRecord
		if err := tx.GetContext(ctx, &stored, query, uuid.NewString(), entry.StudentID, day, entry.Status, now, now); err != nil {
			return nil, fmt.Errorf("upsert attendance for %s: %w", entry.StudentID, err)
		}
		records = append(records, stored)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert attendance: %w", err)
	}
	commit = true
	return records, nil
}

// InsertBatch records a day exactly once. A transaction-scoped advisory lock
// on the day serialises concurrent batches, so the existence check and the
// inserts see the same state. A marked day or a unique index violation aborts
// the batch with database.ErrUniqueViolation.
func (r *AttendanceRepository) InsertBatch(ctx context.Context, day string, entries []models.AttendanceEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert attendance: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", dayLockKey(day)); err != nil {
		return fmt.Errorf("lock attendance day %s: %w", day, err)
	}
	var exists bool
	if err := tx.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM attendance_records WHERE date = $1)", day); err != nil {
		return fmt.Errorf("check attendance for %s: %w", day, err)
	}
	if exists {
		return fmt.Errorf("attendance for %s already marked: %w", day, database.ErrUniqueViolation)
	}

	query := `INSERT INTO attendance_records (id, student_id, date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	now := time.Now().UTC()
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query, uuid.NewString(), entry.StudentID, day, entry.Status, now, now); err != nil {
			return fmt.Errorf("insert attendance for %s: %w", entry.StudentID, database.TranslateError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert attendance: %w", database.TranslateError(err))
	}
	commit = true
	return nil
}

func dayLockKey(day string) string {
	return "attendance:" + day
}

// UpdateStatuses changes the status of existing records for the day and
// returns how many rows were touched. Entries without a record are ignored.
func (r *AttendanceRepository) UpdateStatuses(ctx context.Context, day string, entries []models.AttendanceEntry) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin edit attendance: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	query := "UPDATE attendance_records SET status = $1, updated_at = $2 WHERE student_id = $3 AND date = $4"
	now := time.Now().UTC()
	updated := 0
	for _, entry := range entries {
		res, err := tx.ExecContext(ctx, query, entry.Status, now, entry.StudentID, day)
		if err != nil {
			return 0, fmt.Errorf("edit attendance for %s: %w", entry.StudentID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		updated += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit edit attendance: %w", err)
	}
	commit = true
	return updated, nil
}

// ListDetailedByDate returns the day's records in insertion order, left-joined to students.
func (r *AttendanceRepository) ListDetailedByDate(ctx context.Context, day string) ([]models.AttendanceRecordDetail, error) {
	query := `SELECT a.id, a.student_id, a.date, a.status, a.created_at, a.updated_at,
       s.name AS student_name, s.roll_no AS student_roll_no
FROM attendance_records a
LEFT JOIN students s ON s.id = a.student_id
WHERE a.date = $1
ORDER BY a.created_at ASC, a.id ASC`
	var rows []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &rows, query, day); err != nil {
		return nil, fmt.Errorf("list attendance for %s: %w", day, err)
	}
	return rows, nil
}

// ListByRange returns records dated within [from, to].
func (r *AttendanceRepository) ListByRange(ctx context.Context, from, to string) ([]models.AttendanceRecord, error) {
	query := `SELECT id, student_id, date, status, created_at, updated_at
FROM attendance_records
WHERE date BETWEEN $1 AND $2
ORDER BY date ASC, created_at ASC, id ASC`
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("list attendance between %s and %s: %w", from, to, err)
	}
	return rows, nil
}

// CountPresent returns the number of present records on the day.
func (r *AttendanceRepository) CountPresent(ctx context.Context, day string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM attendance_records WHERE date = $1 AND status = $2", day, models.AttendanceStatusPresent); err != nil {
		return 0, fmt.Errorf("count present for %s: %w", day, err)
	}
	return total, nil
}

// DailyPresence returns per-day present counts for days with at least one record in [from, to].
func (r *AttendanceRepository) DailyPresence(ctx context.Context, from, to string) ([]models.DailyPresence, error) {
	query := `SELECT date, COUNT(*) FILTER (WHERE status = $3) AS present
FROM attendance_records
WHERE date BETWEEN $1 AND $2
GROUP BY date
ORDER BY date ASC`
	var rows []models.DailyPresence
	if err := r.db.SelectContext(ctx, &rows, query, from, to, models.AttendanceStatusPresent); err != nil {
		return nil, fmt.Errorf("daily presence between %s and %s: %w", from, to, err)
	}
	return rows, nil
}
