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

	"github.com/noah-isme/rollcall-ledger/internal/models"
	"github.com/noah-isme/rollcall-ledger/internal/service"
	appErrors "github.com/noah-isme/rollcall-ledger/pkg/errors"
)

type fakeStudentSrv struct {
	students   []models.Student
	lastFilter models.StudentFilter
	lastCreate service.CreateStudentRequest
	err        error
	deleted    string
}

func (f *fakeStudentSrv) List(_ context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.students, &models.Pagination{Page: 1, PageSize: 50, TotalCount: len(f.students)}, nil
}

func (f *fakeStudentSrv) Summary(context.Context) (*models.RosterSummary, error) {
	return &models.RosterSummary{Total: len(f.students), Active: len(f.students)}, f.err
}

func (f *fakeStudentSrv) Get(_ context.Context, id string) (*models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.students {
		if s.ID == id {
			student := s
			return &student, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

func (f *fakeStudentSrv) Create(_ context.Context, req service.CreateStudentRequest) (*models.Student, error) {
	f.lastCreate = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: "new", Name: req.Name, RollNum: req.RollNum, Status: models.StudentStatusActive}, nil
}

func (f *fakeStudentSrv) Update(_ context.Context, id string, req service.UpdateStudentRequest) (*models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: id, Name: req.Name, RollNum: req.RollNum, Status: models.StudentStatus(req.Status)}, nil
}

func (f *fakeStudentSrv) Delete(_ context.Context, id string) error {
	f.deleted = id
	return f.err
}

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestStudentHandlerListParsesQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeStudentSrv{students: []models.Student{{ID: "1", Name: "Ana Li"}}}
	handler := NewStudentHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students?search=li&status=Active&page=2&limit=10", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "li", srv.lastFilter.Search)
	require.NotNil(t, srv.lastFilter.Status)
	assert.Equal(t, models.StudentStatusActive, *srv.lastFilter.Status)
	assert.Equal(t, 2, srv.lastFilter.Page)
	assert.Equal(t, 10, srv.lastFilter.PageSize)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestStudentHandlerListRejectsUnknownStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStudentHandler(&fakeStudentSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students?status=graduated", nil)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeStudentSrv{}
	handler := NewStudentHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(`{"name":"Ana Li","roll_num":"R-01"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "R-01", srv.lastCreate.RollNum)
	var student models.Student
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &student))
	assert.Equal(t, "new", student.ID)
}

func TestStudentHandlerCreateBadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStudentHandler(&fakeStudentSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(`{"name":`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStudentHandler(&fakeStudentSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestStudentHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeStudentSrv{}
	router := gin.New()
	router.DELETE("/students/:id", NewStudentHandler(srv).Delete)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/students/1", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1", srv.deleted)
}

func TestStudentHandlerStoreUnreachable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStudentHandler(&fakeStudentSrv{err: appErrors.Clone(appErrors.ErrNotReachable, "")})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students/summary", nil)

	handler.Summary(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
