package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// QueryObserver receives query timings. MetricsService satisfies it.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveDBQuery(string, time.Duration) {}

func observerOrNop(o QueryObserver) QueryObserver {
	if o == nil {
		return nopObserver{}
	}
	return o
}

func observe(o QueryObserver, label string, start time.Time) {
	o.ObserveDBQuery(label, time.Since(start))
}

// sqlState extracts the SQLSTATE code from either supported driver.
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return err != nil && sqlState(err) == uniqueViolation
}

// IsRejected reports integrity or data errors raised by the store for the submitted row.
func IsRejected(err error) bool {
	if err == nil {
		return false
	}
	code := sqlState(err)
	return strings.HasPrefix(code, "23") || strings.HasPrefix(code, "22")
}

// IsUnreachable reports transport failures and timeouts talking to the store.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	if code := sqlState(err); strings.HasPrefix(code, "08") || strings.HasPrefix(code, "57P") {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	return errors.As(err, &connectErr)
}
