package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/rollcall-ledger/internal/models"
	"github.com/noah-isme/rollcall-ledger/internal/repository"
	"github.com/noah-isme/rollcall-ledger/pkg/config"
	appErrors "github.com/noah-isme/rollcall-ledger/pkg/errors"
	"github.com/noah-isme/rollcall-ledger/pkg/lock"
	"github.com/noah-isme/rollcall-ledger/pkg/logger"
)

type attendanceStore interface {
	Select(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	Insert(ctx context.Context, record *models.AttendanceRecord) error
	UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) (*models.AttendanceRecord, error)
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, bool, error)
}

// LedgerOptions configures an AttendanceLedger.
type LedgerOptions struct {
	Strategy string
	Timeout  time.Duration
	LockWait time.Duration
	Locker   lock.Locker
	Metrics  *MetricsService
	Logger   *zap.Logger
}

// AttendanceLedger keeps exactly one record per (student, date).
type AttendanceLedger struct {
	store    attendanceStore
	locker   lock.Locker
	strategy string
	timeout  time.Duration
	lockWait time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAttendanceLedger constructs the ledger. A nil locker falls back to an in-process key lock.
func NewAttendanceLedger(store attendanceStore, opts LedgerOptions) *AttendanceLedger {
	if opts.Locker == nil {
		opts.Locker = lock.NewLocal()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Strategy != config.StrategyAtomicUpsert {
		opts.Strategy = config.StrategyFindOrCreate
	}
	return &AttendanceLedger{
		store:    store,
		locker:   opts.Locker,
		strategy: opts.Strategy,
		timeout:  opts.Timeout,
		lockWait: opts.LockWait,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
}

// Mark records status for (studentID, date), creating the record or overwriting its status.
// The day is re-fetched after the write; when that refresh fails the write still stands and
// the result is flagged Stale.
func (l *AttendanceLedger) Mark(ctx context.Context, studentID string, date time.Time, status models.AttendanceStatus) (*models.MarkResult, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported attendance status %q", status))
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	day := models.NormalizeDate(date)
	log := logger.WithContext(ctx, l.logger).With(
		zap.String("student_id", studentID),
		zap.String("date", day.Format(models.DateLayout)),
		zap.String("status", string(status)),
	)

	result, conflicted, err := l.write(ctx, studentID, day, status, log)
	if err != nil {
		log.Warn("attendance mark failed", zap.Error(err))
		l.metrics.RecordLedgerMark(l.strategy, LedgerOutcomeFailed, time.Since(start))
		return nil, err
	}

	records, err := l.store.Select(ctx, models.AttendanceFilter{Date: &day})
	if err != nil {
		log.Warn("attendance day refresh failed after write", zap.String("record_id", result.Record.ID), zap.Error(err))
		result.Stale = true
	} else {
		result.Day = records
	}

	l.metrics.RecordLedgerMark(l.strategy, markOutcome(result, conflicted), time.Since(start))
	return result, nil
}

func (l *AttendanceLedger) write(ctx context.Context, studentID string, day time.Time, status models.AttendanceStatus, log *zap.Logger) (*models.MarkResult, bool, error) {
	lockCtx := ctx
	if l.lockWait > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, l.lockWait)
		defer cancel()
	}
	release, err := l.locker.Acquire(lockCtx, ledgerKey(studentID, day))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, false, appErrors.WrapAs(appErrors.ErrLockTimeout, err, "")
		}
		return nil, false, storeError(err, "failed to lock attendance record")
	}
	defer release()

	if l.strategy == config.StrategyAtomicUpsert {
		stored, created, err := l.store.Upsert(ctx, &models.AttendanceRecord{StudentID: studentID, Date: day, Status: status})
		if err != nil {
			return nil, false, storeError(err, "failed to save attendance")
		}
		return &models.MarkResult{Record: *stored, Created: created, Changed: true}, false, nil
	}

	existing, err := l.findOne(ctx, studentID, day)
	if err != nil {
		return nil, false, storeError(err, "failed to load attendance")
	}
	if existing != nil {
		result, err := l.overwrite(ctx, existing, status)
		return result, false, err
	}

	record := &models.AttendanceRecord{StudentID: studentID, Date: day, Status: status}
	insertErr := l.store.Insert(ctx, record)
	if insertErr == nil {
		return &models.MarkResult{Record: *record, Created: true, Changed: true}, false, nil
	}
	if !repository.IsUniqueViolation(insertErr) {
		return nil, false, storeError(insertErr, "failed to create attendance")
	}

	log.Info("attendance record created concurrently, reconciling")
	existing, err = l.findOne(ctx, studentID, day)
	if err != nil {
		return nil, true, storeError(err, "failed to load attendance")
	}
	if existing == nil {
		return nil, true, storeError(insertErr, "failed to create attendance")
	}
	result, err := l.overwrite(ctx, existing, status)
	return result, true, err
}

func (l *AttendanceLedger) overwrite(ctx context.Context, existing *models.AttendanceRecord, status models.AttendanceStatus) (*models.MarkResult, error) {
	if existing.Status == status {
		return &models.MarkResult{Record: *existing}, nil
	}
	updated, err := l.store.UpdateStatus(ctx, existing.ID, status)
	if err != nil {
		return nil, storeError(err, "failed to update attendance")
	}
	return &models.MarkResult{Record: *updated, Changed: true}, nil
}

// findOne returns the record the day view shows for the key, or nil when none exists.
func (l *AttendanceLedger) findOne(ctx context.Context, studentID string, day time.Time) (*models.AttendanceRecord, error) {
	records, err := l.store.Select(ctx, models.AttendanceFilter{StudentID: studentID, Date: &day})
	if err != nil {
		return nil, err
	}
	record, ok := models.LatestRecord(records)
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func ledgerKey(studentID string, day time.Time) string {
	return "attendance:" + studentID + ":" + day.Format(models.DateLayout)
}

func markOutcome(result *models.MarkResult, conflicted bool) string {
	switch {
	case result.Stale:
		return LedgerOutcomeStale
	case conflicted:
		return LedgerOutcomeConflict
	case result.Created:
		return LedgerOutcomeCreated
	case result.Changed:
		return LedgerOutcomeUpdated
	default:
		return LedgerOutcomeUnchanged
	}
}
