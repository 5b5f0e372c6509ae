package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-attendance-api/internal/models"
	"github.com/noah-isme/student-attendance-api/pkg/config"
	"github.com/noah-isme/student-attendance-api/pkg/database"
	appErrors "github.com/noah-isme/student-attendance-api/pkg/errors"
)

const (
	sid1       = "3f7a1c2e-0b4d-4e8f-9a6b-1c2d3e4f5a61"
	sid2       = "3f7a1c2e-0b4d-4e8f-9a6b-1c2d3e4f5a62"
	sid3       = "3f7a1c2e-0b4d-4e8f-9a6b-1c2d3e4f5a63"
	sidMissing = "3f7a1c2e-0b4d-4e8f-9a6b-1c2d3e4f5a69"
)

type mockStudentRepo struct {
	students    map[string]models.Student
	deactivated []string
	deleted     []string
	createErr   error
	err         error
}

func (m *mockStudentRepo) ListActive(ctx context.Context) ([]models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		if s.IsActive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RollNo < out[j].RollNo })
	return out, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	out := make([]models.Student, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.students[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStudentRepo) CountActive(ctx context.Context) (int, error) {
	active, err := m.ListActive(ctx)
	return len(active), err
}

func (m *mockStudentRepo) ExistsActiveRollNo(ctx context.Context, rollNo int, excludeID string) (bool, error) {
	for id, s := range m.students {
		if s.IsActive && s.RollNo == rollNo && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	if student.ID == "" {
		student.ID = "generated"
	}
	student.IsActive = true
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if _, ok := m.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Deactivate(ctx context.Context, id string) error {
	s, ok := m.students[id]
	if !ok || !s.IsActive {
		return sql.ErrNoRows
	}
	s.IsActive = false
	m.students[id] = s
	m.deactivated = append(m.deactivated, id)
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func intPtr(v int) *int { return &v }

func TestStudentServiceCreate(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := NewStudentService(repo, nil, nil, zap.NewNop(), config.RemovalSoft)

	student, err := svc.Create(context.Background(), StudentRequest{Name: "Asha", RollNo: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, "Asha", student.Name)
	assert.True(t, student.IsActive)
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, nil, nil, nil, "")

	_, err := svc.Create(context.Background(), StudentRequest{Name: "Asha"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, 400, appErrors.FromError(err).Status)

	_, err = svc.Create(context.Background(), StudentRequest{RollNo: intPtr(3)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStudentServiceCreateDuplicateRollNo(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		sid1: {ID: sid1, Name: "Asha", RollNo: 1, IsActive: true},
	}}
	svc := NewStudentService(repo, nil, nil, nil, "")

	_, err := svc.Create(context.Background(), StudentRequest{Name: "Bima", RollNo: intPtr(1)})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, "Roll number already exists", appErr.Message)
}

func TestStudentServiceCreateRollNoReusableAfterSoftRemoval(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		sid1: {ID: sid1, Name: "Asha", RollNo: 1, IsActive: false},
	}}
	svc := NewStudentService(repo, nil, nil, nil, "")

	_, err := svc.Create(context.Background(), StudentRequest{Name: "Bima", RollNo: intPtr(1)})
	assert.NoError(t, err)
}

func TestStudentServiceCreateStorageUniqueViolation(t *testing.T) {
	repo := &mockStudentRepo{createErr: errors.Join(database.ErrUniqueViolation, errors.New("pq: duplicate key"))}
	svc := NewStudentService(repo, nil, nil, nil, "")

	_, err := svc.Create(context.Background(), StudentRequest{Name: "Bima", RollNo: intPtr(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestStudentServiceCreateStorageFailure(t *testing.T) {
	repo := &mockStudentRepo{createErr: errors.New("connection reset")}
	svc := NewStudentService(repo, nil, nil, nil, "")

	_, err := svc.Create(context.Background(), StudentRequest{Name: "Bima", RollNo: intPtr(1)})
	appErr := appErrors.FromError(err)
	assert.Equal(t, 500, appErr.Status)
	assert.NotContains(t, appErr.Message, "connection reset")
}

func TestStudentServiceList(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		sid2: {ID: sid2, Name: "Bima", RollNo: 2, IsActive: true},
		sid1: {ID: sid1, Name: "Asha", RollNo: 1, IsActive: true},
		sid3: {ID: sid3, Name: "Citra", RollNo: 3, IsActive: false},
	}}
	svc := NewStudentService(repo, nil, nil, nil, "")

	students, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, sid1, students[0].ID)
	assert.Equal(t, sid2, students[1].ID)
}

func TestStudentServiceUpdate(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		sid1: {ID: sid1, Name: "Asha", RollNo: 1, IsActive: true},
		sid2: {ID: sid2, Name: "Bima", RollNo: 2, IsActive: true},
	}}
	svc := NewStudentService(repo, nil, nil, nil, "")

	updated, err := svc.Update(context.Background(), sid1, StudentRequest{Name: "Asha K", RollNo: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.RollNo)
	assert.Equal(t, "Asha K", repo.students[sid1].Name)

	_, err = svc.Update(context.Background(), sid1, StudentRequest{Name: "Asha", RollNo: intPtr(2)})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Update(context.Background(), sidMissing, StudentRequest{Name: "X", RollNo: intPtr(9)})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceRemoveSoft(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		sid1: {ID: sid1, Name: "Asha", RollNo: 1, IsActive: true},
	}}
	svc := NewStudentService(repo, nil, nil, nil, config.RemovalSoft)

	msg, err := svc.Remove(context.Background(), sid1)
	require.NoError(t, err)
	assert.Equal(t, "Student removed successfully", msg)
	assert.Equal(t, []string{sid1}, repo.deactivated)
	assert.Contains(t, repo.students, sid1)

	_, err = svc.Remove(context.Background(), sid1)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceRemoveHard(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		sid1: {ID: sid1, Name: "Asha", RollNo: 1, IsActive: true},
	}}
	svc := NewStudentService(repo, nil, nil, nil, config.RemovalHard)

	_, err := svc.Remove(context.Background(), sid1)
	require.NoError(t, err)
	assert.Equal(t, []string{sid1}, repo.deleted)
	assert.NotContains(t, repo.students, sid1)

	_, err = svc.Remove(context.Background(), sidMissing)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceGet(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		sid1: {ID: sid1, Name: "Asha", RollNo: 1, IsActive: false},
	}}
	svc := NewStudentService(repo, nil, nil, nil, "")

	student, err := svc.Get(context.Background(), sid1)
	require.NoError(t, err)
	assert.False(t, student.IsActive)

	_, err = svc.Get(context.Background(), sid2)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceMalformedIDIsNotFound(t *testing.T) {
	repo := &strictIDStudentRepo{mockStudentRepo: mockStudentRepo{students: map[string]models.Student{
		sid1: {ID: sid1, Name: "Asha", RollNo: 1, IsActive: true},
	}}}
	ctx := context.Background()

	for _, mode := range []string{config.RemovalSoft, config.RemovalHard} {
		svc := NewStudentService(repo, nil, nil, nil, mode)

		_, err := svc.Get(ctx, "abc")
		assert.ErrorIs(t, err, appErrors.ErrNotFound)
		assert.Equal(t, "Student not found", appErrors.FromError(err).Message)

		_, err = svc.Update(ctx, "abc", StudentRequest{Name: "X", RollNo: intPtr(9)})
		assert.ErrorIs(t, err, appErrors.ErrNotFound)

		_, err = svc.Remove(ctx, "abc")
		assert.ErrorIs(t, err, appErrors.ErrNotFound)
	}
	assert.Zero(t, repo.calls)
}

// strictIDStudentRepo fails like a UUID column does when handed a non-UUID literal.
type strictIDStudentRepo struct {
	mockStudentRepo
	calls int
}

func (r *strictIDStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	r.calls++
	return nil, errors.New(`pq: invalid input syntax for type uuid: "` + id + `"`)
}

func (r *strictIDStudentRepo) Deactivate(ctx context.Context, id string) error {
	r.calls++
	return errors.New("pq: invalid input syntax for type uuid")
}

func (r *strictIDStudentRepo) Delete(ctx context.Context, id string) error {
	r.calls++
	return errors.New("pq: invalid input syntax for type uuid")
}
