package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/rollcall-ledger/internal/models"
)

const attendanceColumns = "id, student_id, date, status, created_at, updated_at"

// AttendanceRepository is the keyed-record adapter over the attendance ledger table.
type AttendanceRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB, observer QueryObserver) *AttendanceRepository {
	return &AttendanceRepository{db: db, observer: observerOrNop(observer)}
}

// Select returns the rows matching every non-empty field of filter.
func (r *AttendanceRepository) Select(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	defer observe(r.observer, "attendance.select", time.Now())
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Date != nil {
		where = append(where, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, models.NormalizeDate(*filter.Date))
	}
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE %s ORDER BY created_at ASC, id ASC", attendanceColumns, strings.Join(where, " AND "))

	records := []models.AttendanceRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("select attendance: %w", err)
	}
	return records, nil
}

// Insert writes a new row. The (student_id, date) unique constraint rejects a second row for the same key.
func (r *AttendanceRepository) Insert(ctx context.Context, record *models.AttendanceRecord) error {
	defer observe(r.observer, "attendance.insert", time.Now())
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.Date = models.NormalizeDate(record.Date)
	record.CreatedAt = now
	record.UpdatedAt = now
	const query = `INSERT INTO attendance (id, student_id, date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, record.ID, record.StudentID, record.Date, record.Status, record.CreatedAt, record.UpdatedAt); err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// UpdateStatus overwrites the status of an existing row. Missing rows surface as sql.ErrNoRows.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	defer observe(r.observer, "attendance.update", time.Now())
	query := `UPDATE attendance SET status = $2, updated_at = $3 WHERE id = $1
RETURNING ` + attendanceColumns
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query, id, status, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("update attendance: %w", err)
	}
	return &stored, nil
}

// Delete removes a row by id.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	defer observe(r.observer, "attendance.delete", time.Now())
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return requireAffected(res, "delete attendance")
}

// Upsert inserts the row or replaces the status of the existing (student_id, date) row in one statement.
// created reports whether a new row was inserted.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, bool, error) {
	defer observe(r.observer, "attendance.upsert", time.Now())
	now := time.Now().UTC()
	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}
	query := `INSERT INTO attendance (id, student_id, date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (student_id, date)
DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
RETURNING ` + attendanceColumns + `, (xmax = 0) AS inserted`
	var row struct {
		models.AttendanceRecord
		Inserted bool `db:"inserted"`
	}
	if err := r.db.GetContext(ctx, &row, query, id, record.StudentID, models.NormalizeDate(record.Date), record.Status, now); err != nil {
		return nil, false, fmt.Errorf("upsert attendance: %w", err)
	}
	stored := row.AttendanceRecord
	return &stored, row.Inserted, nil
}
