package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/rollcall-ledger/internal/models"
	appErrors "github.com/noah-isme/rollcall-ledger/pkg/errors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type studentRepository interface {
	List(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// CreateStudentRequest holds payload for registering students.
type CreateStudentRequest struct {
	Name    string `json:"name" validate:"required"`
	RollNum string `json:"roll_num" validate:"required"`
	Status  string `json:"status" validate:"omitempty,student_status"`
}

// UpdateStudentRequest holds payload for editing students.
type UpdateStudentRequest struct {
	Name    string `json:"name" validate:"required"`
	RollNum string `json:"roll_num" validate:"required"`
	Status  string `json:"status" validate:"required,student_status"`
}

// StudentService handles roster use-cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerValidators(validate)
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns the newest-first roster narrowed by filter, paginated in memory.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, nil, storeError(err, "failed to list students")
	}
	if filter.Status != nil {
		students = FilterByStatus(students, *filter.Status)
	}
	students = SearchRoster(students, filter.Search)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	total := len(students)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students[start:end], pagination, nil
}

// Summary returns roster counts.
func (s *StudentService) Summary(ctx context.Context) (*models.RosterSummary, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list students")
	}
	summary := SummarizeRoster(students)
	return &summary, nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeError(err, "failed to load student")
	}
	return student, nil
}

// Create registers a new student and returns the stored row.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{
		Name:    strings.TrimSpace(req.Name),
		RollNum: strings.TrimSpace(req.RollNum),
		Status:  normalizeStudentStatus(req.Status),
	}
	if student.Name == "" || student.RollNum == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name and roll number must not be blank")
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, storeError(err, "failed to create student")
	}
	s.logger.Info("student registered", zap.String("student_id", student.ID), zap.String("roll_num", student.RollNum))
	return s.Get(ctx, student.ID)
}

// Update edits a student and returns the stored row.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{
		ID:      id,
		Name:    strings.TrimSpace(req.Name),
		RollNum: strings.TrimSpace(req.RollNum),
		Status:  normalizeStudentStatus(req.Status),
	}
	if student.Name == "" || student.RollNum == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name and roll number must not be blank")
	}
	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeError(err, "failed to update student")
	}
	return s.Get(ctx, id)
}

// Delete removes a student. Ledger rows that reference it are left in place.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return storeError(err, "failed to delete student")
	}
	s.logger.Info("student removed", zap.String("student_id", id))
	return nil
}

func normalizeStudentStatus(raw string) models.StudentStatus {
	status := models.StudentStatus(strings.ToLower(strings.TrimSpace(raw)))
	if status == "" {
		return models.StudentStatusActive
	}
	return status
}
