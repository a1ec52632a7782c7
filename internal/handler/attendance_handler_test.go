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

type fakeAttendanceSrv struct {
	outcome     *models.MarkOutcome
	view        *models.DayView
	err         error
	lastMark    service.MarkAttendanceRequest
	lastCheckIn service.CheckInRequest
	lastDate    string
}

func (f *fakeAttendanceSrv) MarkStudent(_ context.Context, req service.MarkAttendanceRequest) (*models.MarkOutcome, error) {
	f.lastMark = req
	return f.outcome, f.err
}

func (f *fakeAttendanceSrv) CheckIn(_ context.Context, req service.CheckInRequest) (*models.MarkOutcome, error) {
	f.lastCheckIn = req
	return f.outcome, f.err
}

func (f *fakeAttendanceSrv) DayView(_ context.Context, date string) (*models.DayView, error) {
	f.lastDate = date
	return f.view, f.err
}

func postJSON(handler gin.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	handler(c)
	return rec
}

func TestAttendanceHandlerMarkCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAttendanceSrv{outcome: &models.MarkOutcome{
		Record:  models.AttendanceRecord{ID: "r1", StudentID: "1", Status: models.AttendanceStatusPresent},
		Created: true,
		Changed: true,
	}}
	handler := NewAttendanceHandler(srv)

	rec := postJSON(handler.Mark, "/attendance/mark", `{"student_id":"1","status":"present","date":"2024-05-01"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "1", srv.lastMark.StudentID)
	assert.Equal(t, "2024-05-01", srv.lastMark.Date)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope.Meta["stale"])
}

func TestAttendanceHandlerMarkOverwriteIsOK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAttendanceSrv{outcome: &models.MarkOutcome{Changed: true, Stale: true}}
	handler := NewAttendanceHandler(srv)

	rec := postJSON(handler.Mark, "/attendance/mark", `{"student_id":"1","status":"late"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeEnvelope(t, rec).Meta["stale"])
}

func TestAttendanceHandlerMarkInactive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&fakeAttendanceSrv{err: appErrors.Clone(appErrors.ErrStudentInactive, "student Carla is inactive")})

	rec := postJSON(handler.Mark, "/attendance/mark", `{"student_id":"3","status":"present"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "STUDENT_INACTIVE", envelope.Error.Code)
}

func TestAttendanceHandlerCheckInAmbiguous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAttendanceSrv{outcome: &models.MarkOutcome{
		Student:   &models.Student{ID: "a", Name: "First"},
		Ambiguous: true,
	}}
	handler := NewAttendanceHandler(srv)

	rec := postJSON(handler.CheckIn, "/attendance/checkin", `{"roll_num":"R-09"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "R-09", srv.lastCheckIn.RollNum)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["ambiguous"])
	var outcome models.MarkOutcome
	require.NoError(t, json.Unmarshal(envelope.Data, &outcome))
	assert.Equal(t, "First", outcome.Student.Name)
}

func TestAttendanceHandlerCheckInNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&fakeAttendanceSrv{err: appErrors.Clone(appErrors.ErrNotFound, "no student with roll number nope")})

	rec := postJSON(handler.CheckIn, "/attendance/checkin", `{"roll_num":"nope"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceHandlerDay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAttendanceSrv{view: &models.DayView{
		Date:    "2024-05-01",
		Entries: []models.DayViewEntry{{Student: models.Student{ID: "1"}, Status: models.EffectiveStatusPending}},
		Summary: models.DaySummary{Pending: 1, Total: 1},
	}}
	handler := NewAttendanceHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance?date=2024-05-01", nil)

	handler.Day(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-05-01", srv.lastDate)
	var view models.DayView
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &view))
	require.Len(t, view.Entries, 1)
	assert.Equal(t, models.EffectiveStatusPending, view.Entries[0].Status)
}
