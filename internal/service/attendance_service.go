package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/rollcall-ledger/internal/models"
	appErrors "github.com/noah-isme/rollcall-ledger/pkg/errors"
	"github.com/noah-isme/rollcall-ledger/pkg/logger"
)

type rosterReader interface {
	List(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type dayReader interface {
	Select(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type attendanceMarker interface {
	Mark(ctx context.Context, studentID string, date time.Time, status models.AttendanceStatus) (*models.MarkResult, error)
}

// MarkAttendanceRequest is the direct marking payload. Date defaults to today.
type MarkAttendanceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status    string `json:"status" validate:"required,attendance_status"`
}

// CheckInRequest is the roll-number intake payload. Check-ins always mark present.
type CheckInRequest struct {
	RollNum string `json:"roll_num"`
	Date    string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// AttendanceService coordinates the marking and check-in intake paths and the day view.
type AttendanceService struct {
	roster    rosterReader
	records   dayReader
	ledger    attendanceMarker
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	location  *time.Location
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service. Dates omitted by callers resolve to today in loc.
func NewAttendanceService(roster rosterReader, records dayReader, ledger attendanceMarker, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, loc *time.Location) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	registerValidators(validate)
	return &AttendanceService{
		roster:    roster,
		records:   records,
		ledger:    ledger,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		location:  loc,
		now:       time.Now,
	}
}

// MarkStudent records a status for one student chosen directly.
func (s *AttendanceService) MarkStudent(ctx context.Context, req MarkAttendanceRequest) (*models.MarkOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	status, _ := models.ParseAttendanceStatus(req.Status)
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, err
	}

	student, err := s.roster.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeError(err, "failed to load student")
	}
	if !student.IsActive() {
		return nil, appErrors.Clone(appErrors.ErrStudentInactive, fmt.Sprintf("student %s is inactive", student.Name))
	}

	result, err := s.ledger.Mark(ctx, student.ID, date, status)
	if err != nil {
		return nil, err
	}

	outcome := newMarkOutcome(result, student)
	if !result.Stale {
		roster, err := s.roster.List(ctx)
		if err != nil {
			logger.WithContext(ctx, s.logger).Warn("roster refresh failed after attendance mark", zap.Error(err))
			outcome.Stale = true
		} else {
			outcome.View = buildDayView(date.Format(models.DateLayout), roster, result.Day)
		}
	}
	return outcome, nil
}

// CheckIn resolves a typed roll number against a fresh roster and marks the student present.
func (s *AttendanceService) CheckIn(ctx context.Context, req CheckInRequest) (*models.MarkOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}
	roll := strings.TrimSpace(req.RollNum)
	if roll == "" {
		s.metrics.RecordCheckIn(models.MatchNotFound)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "roll number is required")
	}
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, err
	}

	roster, err := s.roster.List(ctx)
	if err != nil {
		return nil, storeError(err, "failed to load roster")
	}

	log := logger.WithContext(ctx, s.logger).With(zap.String("roll_num", roll))
	match := ResolveRoll(roll, roster)
	s.metrics.RecordCheckIn(match.Kind)
	switch match.Kind {
	case models.MatchNotFound:
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no student with roll number %s", roll))
	case models.MatchInactive:
		return nil, appErrors.Clone(appErrors.ErrStudentInactive, fmt.Sprintf("student %s is inactive", match.Student.Name))
	}
	if match.Ambiguous {
		log.Warn("roll number shared by several students, using first match",
			zap.Int("candidates", match.Candidates),
			zap.String("student_id", match.Student.ID))
	}

	result, err := s.ledger.Mark(ctx, match.Student.ID, date, models.AttendanceStatusPresent)
	if err != nil {
		return nil, err
	}

	outcome := newMarkOutcome(result, match.Student)
	outcome.Ambiguous = match.Ambiguous
	if !result.Stale {
		outcome.View = buildDayView(date.Format(models.DateLayout), roster, result.Day)
	}
	return outcome, nil
}

// DayView projects the effective status of every active student for date (today when empty).
func (s *AttendanceService) DayView(ctx context.Context, rawDate string) (*models.DayView, error) {
	date, err := s.resolveDate(rawDate)
	if err != nil {
		return nil, err
	}
	roster, err := s.roster.List(ctx)
	if err != nil {
		return nil, storeError(err, "failed to load roster")
	}
	records, err := s.records.Select(ctx, models.AttendanceFilter{Date: &date})
	if err != nil {
		return nil, storeError(err, "failed to load attendance")
	}
	return buildDayView(date.Format(models.DateLayout), roster, records), nil
}

// Today returns the current calendar date in the configured timezone.
func (s *AttendanceService) Today() time.Time {
	return models.NormalizeDate(s.now().In(s.location))
}

func (s *AttendanceService) resolveDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return s.Today(), nil
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must use YYYY-MM-DD")
	}
	return date, nil
}

func newMarkOutcome(result *models.MarkResult, student *models.Student) *models.MarkOutcome {
	return &models.MarkOutcome{
		Record:  result.Record,
		Created: result.Created,
		Changed: result.Changed,
		Stale:   result.Stale,
		Student: student,
	}
}
