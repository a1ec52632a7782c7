package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/rollcall-ledger/internal/models"
)

const studentColumns = "id, name, roll_num, status, created_at"

// StudentRepository manages persistence for roster records.
type StudentRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB, observer QueryObserver) *StudentRepository {
	return &StudentRepository{db: db, observer: observerOrNop(observer)}
}

// List returns the whole roster, newest first.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	defer observe(r.observer, "students.list", time.Now())
	query := "SELECT " + studentColumns + " FROM students ORDER BY created_at DESC, id DESC"
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID. Missing rows surface as sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	defer observe(r.observer, "students.find", time.Now())
	query := "SELECT " + studentColumns + " FROM students WHERE id = $1"
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	defer observe(r.observer, "students.create", time.Now())
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO students (id, name, roll_num, status, created_at)
        VALUES (:id, :name, :roll_num, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies every mutable field of an existing student. id and created_at never change.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	defer observe(r.observer, "students.update", time.Now())
	const query = `UPDATE students SET name = :name, roll_num = :roll_num, status = :status WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireAffected(res, "update student")
}

// Delete removes a student. Attendance rows referencing it are left in place.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	defer observe(r.observer, "students.delete", time.Now())
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireAffected(res, "delete student")
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}
