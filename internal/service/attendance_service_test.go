package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/student-attendance-api/internal/models"
	"github.com/noah-isme/student-attendance-api/pkg/calendar"
	"github.com/noah-isme/student-attendance-api/pkg/config"
	"github.com/noah-isme/student-attendance-api/pkg/database"
	appErrors "github.com/noah-isme/student-attendance-api/pkg/errors"
)

const (
	studentA = "0b9f2c1e-6d3a-4bde-9a55-6f0c1d2e3a41"
	studentB = "5c7e8d90-1a2b-4c3d-8e4f-a1b2c3d4e5f6"
)

// memoryLedger mimics the attendance_records table and its (student_id, date) index.
type memoryLedger struct {
	records   []models.AttendanceRecord
	insertErr error
	seq       int
}

func (m *memoryLedger) find(studentID, day string) int {
	for i, rec := range m.records {
		if rec.StudentID == studentID && calendar.Key(rec.Date) == day {
			return i
		}
	}
	return -1
}

func (m *memoryLedger) ExistsForDate(ctx context.Context, day string) (bool, error) {
	for _, rec := range m.records {
		if calendar.Key(rec.Date) == day {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryLedger) UpsertBatch(ctx context.Context, day string, entries []models.AttendanceEntry) ([]models.AttendanceRecord, error) {
	date, _ := time.Parse(calendar.DayLayout, day)
	out := make([]models.AttendanceRecord, 0, len(entries))
	for _, entry := range entries {
		if i := m.find(entry.StudentID, day); i >= 0 {
			m.records[i].Status = entry.Status
			out = append(out, m.records[i])
			continue
		}
		m.seq++
		rec := models.AttendanceRecord{ID: fmt.Sprintf("r%d", m.seq), StudentID: entry.StudentID, Date: date, Status: entry.Status}
		m.records = append(m.records, rec)
		out = append(out, rec)
	}
	return out, nil
}

func (m *memoryLedger) InsertBatch(ctx context.Context, day string, entries []models.AttendanceEntry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if marked, _ := m.ExistsForDate(ctx, day); marked {
		return database.ErrUniqueViolation
	}
	for _, entry := range entries {
		if m.find(entry.StudentID, day) >= 0 {
			return database.ErrUniqueViolation
		}
	}
	_, err := m.UpsertBatch(ctx, day, entries)
	return err
}

func (m *memoryLedger) UpdateStatuses(ctx context.Context, day string, entries []models.AttendanceEntry) (int, error) {
	updated := 0
	for _, entry := range entries {
		if i := m.find(entry.StudentID, day); i >= 0 {
			m.records[i].Status = entry.Status
			updated++
		}
	}
	return updated, nil
}

func newAttendanceService(repo attendanceRepository, policy string, now time.Time) *AttendanceService {
	svc := NewAttendanceService(repo, calendar.MustNew("UTC"), AttendanceServiceConfig{MarkPolicy: policy}, nil, nil, nil, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestAttendanceServiceMarkUpsertIsIdempotent(t *testing.T) {
	repo := &memoryLedger{}
	svc := newAttendanceService(repo, config.MarkPolicyUpsert, time.Now())
	ctx := context.Background()

	_, err := svc.Mark(ctx, AttendanceBatchRequest{Date: "2024-03-01", Records: []AttendanceEntryRequest{
		{StudentID: studentA, Status: "present"},
	}})
	require.NoError(t, err)

	result, err := svc.Mark(ctx, AttendanceBatchRequest{Date: "2024-03-01T15:30:00Z", Records: []AttendanceEntryRequest{
		{StudentID: studentA, Status: "absent"},
	}})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, config.MarkPolicyUpsert, result.Policy)
	assert.Equal(t, "2024-03-01", result.Records[0].Date)

	require.Len(t, repo.records, 1)
	assert.Equal(t, models.AttendanceStatusAbsent, repo.records[0].Status)
}

func TestAttendanceServiceMarkSkipsIncompleteEntries(t *testing.T) {
	repo := &memoryLedger{}
	svc := newAttendanceService(repo, "", time.Now())

	result, err := svc.Mark(context.Background(), AttendanceBatchRequest{Date: "2024-03-01", Records: []AttendanceEntryRequest{
		{StudentID: studentA, Status: "present"},
		{StudentID: "", Status: "present"},
		{StudentID: studentB, Status: ""},
	}})
	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
	assert.Len(t, repo.records, 1)
}

func TestAttendanceServiceMarkDuplicateEntriesLastWins(t *testing.T) {
	repo := &memoryLedger{}
	svc := newAttendanceService(repo, "", time.Now())

	result, err := svc.Mark(context.Background(), AttendanceBatchRequest{Date: "2024-03-01", Records: []AttendanceEntryRequest{
		{StudentID: studentA, Status: "present"},
		{StudentID: studentA, Status: "absent"},
	}})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, models.AttendanceStatusAbsent, repo.records[0].Status)
}

func TestAttendanceServiceMarkRejectsInvalidInput(t *testing.T) {
	repo := &memoryLedger{}
	svc := newAttendanceService(repo, "", time.Now())
	ctx := context.Background()

	cases := []AttendanceBatchRequest{
		{Date: "", Records: []AttendanceEntryRequest{}},
		{Date: "2024-03-01"},
		{Date: "03/01/2024", Records: []AttendanceEntryRequest{}},
		{Date: "2024-03-01", Records: []AttendanceEntryRequest{{StudentID: studentA, Status: "late"}}},
		{Date: "2024-03-01", Records: []AttendanceEntryRequest{{StudentID: "S1", Status: "present"}}},
	}
	for _, req := range cases {
		_, err := svc.Mark(ctx, req)
		require.Error(t, err, "%+v", req)
		assert.ErrorIs(t, err, appErrors.ErrValidation)
	}
	assert.Empty(t, repo.records)
}

func TestAttendanceServiceMarkInsertOnly(t *testing.T) {
	repo := &memoryLedger{}
	svc := newAttendanceService(repo, config.MarkPolicyInsertOnly, time.Now())
	ctx := context.Background()

	result, err := svc.Mark(ctx, AttendanceBatchRequest{Date: "2024-03-01", Records: []AttendanceEntryRequest{
		{StudentID: studentA, Status: "present"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Attendance marked successfully", result.Message)
	assert.Nil(t, result.Records)

	_, err = svc.Mark(ctx, AttendanceBatchRequest{Date: "2024-03-01", Records: []AttendanceEntryRequest{
		{StudentID: studentB, Status: "present"},
	}})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)
	assert.Len(t, repo.records, 1)
}

func TestAttendanceServiceMarkInsertOnlyStorageConflict(t *testing.T) {
	repo := &memoryLedger{insertErr: errors.Join(database.ErrUniqueViolation, errors.New("pq: duplicate key"))}
	svc := newAttendanceService(repo, config.MarkPolicyInsertOnly, time.Now())

	_, err := svc.Mark(context.Background(), AttendanceBatchRequest{Date: "2024-03-01", Records: []AttendanceEntryRequest{
		{StudentID: studentA, Status: "present"},
	}})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, "Attendance already marked for this date", appErrors.FromError(err).Message)
}

func TestAttendanceServiceEditWithinWindow(t *testing.T) {
	repo := &memoryLedger{}
	now := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	svc := newAttendanceService(repo, "", now)
	ctx := context.Background()

	_, err := svc.Mark(ctx, AttendanceBatchRequest{Date: "2024-03-01", Records: []AttendanceEntryRequest{
		{StudentID: studentA, Status: "present"},
	}})
	require.NoError(t, err)

	result, err := svc.Edit(ctx, AttendanceBatchRequest{Date: "2024-03-01", Records: []AttendanceEntryRequest{
		{StudentID: studentA, Status: "absent"},
		{StudentID: studentB, Status: "present"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, repo.records, 1, "edit must not insert")
	assert.Equal(t, models.AttendanceStatusAbsent, repo.records[0].Status)
}

func TestAttendanceServiceEditLockedAfterWindow(t *testing.T) {
	repo := &memoryLedger{}
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := newAttendanceService(repo, "", day).Mark(ctx, AttendanceBatchRequest{Date: "2024-03-01", Records: []AttendanceEntryRequest{
		{StudentID: studentA, Status: "present"},
	}})
	require.NoError(t, err)

	edit := AttendanceBatchRequest{Date: "2024-03-01", Records: []AttendanceEntryRequest{{StudentID: studentA, Status: "absent"}}}

	_, err = newAttendanceService(repo, "", day.Add(24*time.Hour)).Edit(ctx, edit)
	require.NoError(t, err)

	_, err = newAttendanceService(repo, "", day.Add(24*time.Hour+time.Second)).Edit(ctx, edit)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, 403, appErr.Status)
}

func TestAttendanceServiceEditLockedLogsDeadlineAndActor(t *testing.T) {
	repo := &memoryLedger{}
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := newAttendanceService(repo, "", day).Mark(ctx, AttendanceBatchRequest{Date: "2024-03-01", Records: []AttendanceEntryRequest{
		{StudentID: studentA, Status: "present"},
	}})
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	svc := NewAttendanceService(repo, calendar.MustNew("UTC"), AttendanceServiceConfig{}, nil, nil, nil, zap.New(core))
	svc.now = func() time.Time { return day.Add(48 * time.Hour) }

	_, err = svc.Edit(ctx, AttendanceBatchRequest{Date: "2024-03-01", Actor: "jwt:admin", Records: []AttendanceEntryRequest{{StudentID: studentA, Status: "late"}}})
	require.Error(t, err)

	entries := logs.FilterMessage("attendance edit rejected").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "jwt:admin", fields["actor"])
	lockedAt, ok := fields["locked_at"].(time.Time)
	require.True(t, ok)
	assert.True(t, lockedAt.Equal(day.Add(DefaultEditWindow)), lockedAt)
}

func TestAttendanceServiceEditMissingDay(t *testing.T) {
	svc := newAttendanceService(&memoryLedger{}, "", time.Now())

	_, err := svc.Edit(context.Background(), AttendanceBatchRequest{Date: "2024-03-01", Records: []AttendanceEntryRequest{
		{StudentID: studentA, Status: "absent"},
	}})
	require.Error(t, err)
	assert.Equal(t, 404, appErrors.FromError(err).Status)
}
