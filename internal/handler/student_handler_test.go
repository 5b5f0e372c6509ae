package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-attendance-api/internal/models"
	"github.com/noah-isme/student-attendance-api/internal/service"
	appErrors "github.com/noah-isme/student-attendance-api/pkg/errors"
)

type fakeStudentSrv struct {
	students  []models.Student
	created   *service.StudentRequest
	updatedID string
	removed   string
	err       error
}

func (f *fakeStudentSrv) List(context.Context) ([]models.Student, error) {
	return f.students, f.err
}

func (f *fakeStudentSrv) Get(_ context.Context, id string) (*models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: id, Name: "Asha", RollNo: 1, IsActive: true}, nil
}

func (f *fakeStudentSrv) Create(_ context.Context, req service.StudentRequest) (*models.Student, error) {
	f.created = &req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: "s1", Name: req.Name, RollNo: *req.RollNo, IsActive: true}, nil
}

func (f *fakeStudentSrv) Update(_ context.Context, id string, req service.StudentRequest) (*models.Student, error) {
	f.updatedID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: id, Name: req.Name, RollNo: *req.RollNo, IsActive: true}, nil
}

func (f *fakeStudentSrv) Remove(_ context.Context, id string) (string, error) {
	f.removed = id
	if f.err != nil {
		return "", f.err
	}
	return "Student removed successfully", nil
}

func newJSONContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func TestStudentHandlerCreate(t *testing.T) {
	srv := &fakeStudentSrv{}
	handler := NewStudentHandler(srv)

	c, rec := newJSONContext(http.MethodPost, "/api/students", `{"name":"Asha","rollNo":1}`)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Asha", body["name"])
	assert.Equal(t, float64(1), body["rollNo"])
	assert.Equal(t, true, body["isActive"])
	require.NotNil(t, srv.created)
}

func TestStudentHandlerCreateConflict(t *testing.T) {
	handler := NewStudentHandler(&fakeStudentSrv{err: appErrors.Clone(appErrors.ErrConflict, "Roll number already exists")})

	c, rec := newJSONContext(http.MethodPost, "/api/students", `{"name":"Asha","rollNo":1}`)
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Roll number already exists")
}

func TestStudentHandlerCreateMalformedBody(t *testing.T) {
	srv := &fakeStudentSrv{}
	handler := NewStudentHandler(srv)

	c, rec := newJSONContext(http.MethodPost, "/api/students", `{"name":`)
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, srv.created)
}

func TestStudentHandlerList(t *testing.T) {
	handler := NewStudentHandler(&fakeStudentSrv{students: []models.Student{{ID: "s1", Name: "Asha", RollNo: 1}}})

	c, rec := newJSONContext(http.MethodGet, "/api/students", "")
	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body, 1)
}

func TestStudentHandlerUpdateNotFound(t *testing.T) {
	srv := &fakeStudentSrv{err: appErrors.Clone(appErrors.ErrNotFound, "Student not found")}
	handler := NewStudentHandler(srv)

	c, rec := newJSONContext(http.MethodPut, "/api/students/missing", `{"name":"Asha","rollNo":2}`)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Update(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "missing", srv.updatedID)
}

func TestStudentHandlerDelete(t *testing.T) {
	srv := &fakeStudentSrv{}
	handler := NewStudentHandler(srv)

	c, rec := newJSONContext(http.MethodDelete, "/api/students/s1", "")
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	handler.Delete(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Student removed successfully"}`, rec.Body.String())
	assert.Equal(t, "s1", srv.removed)
}

func TestStudentHandlerHidesInternalErrors(t *testing.T) {
	handler := NewStudentHandler(&fakeStudentSrv{err: appErrors.Internal(assert.AnError, "failed to list students")})

	c, rec := newJSONContext(http.MethodGet, "/api/students", "")
	handler.List(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
	assert.Len(t, c.Errors, 1)
}
