package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rollcall-ledger/internal/models"
	"github.com/noah-isme/rollcall-ledger/internal/service"
	appErrors "github.com/noah-isme/rollcall-ledger/pkg/errors"
	"github.com/noah-isme/rollcall-ledger/pkg/response"
)

type attendanceService interface {
	MarkStudent(ctx context.Context, req service.MarkAttendanceRequest) (*models.MarkOutcome, error)
	CheckIn(ctx context.Context, req service.CheckInRequest) (*models.MarkOutcome, error)
	DayView(ctx context.Context, date string) (*models.DayView, error)
}

// AttendanceHandler exposes the daily attendance endpoints.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Day godoc
// @Summary Day view
// @Description Effective status (present, absent, late or pending) for every active student.
// @Tags Attendance
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) Day(c *gin.Context) {
	view, err := h.attendance.DayView(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Mark godoc
// @Summary Mark attendance
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkAttendanceRequest true "Mark payload"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.attendance.MarkStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeOutcome(c, outcome)
}

// CheckIn godoc
// @Summary Roll number check-in
// @Description Resolves the roll number and marks the student present.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.CheckInRequest true "Check-in payload"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/checkin [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req service.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.attendance.CheckIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeOutcome(c, outcome)
}

func writeOutcome(c *gin.Context, outcome *models.MarkOutcome) {
	status := http.StatusOK
	if outcome.Created {
		status = http.StatusCreated
	}
	meta := map[string]interface{}{"stale": outcome.Stale}
	if outcome.Ambiguous {
		meta["ambiguous"] = true
	}
	response.JSON(c, status, outcome, nil, meta)
}
