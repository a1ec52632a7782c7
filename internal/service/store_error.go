package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/rollcall-ledger/internal/repository"
	appErrors "github.com/noah-isme/rollcall-ledger/pkg/errors"
)

// storeError tags a repository failure with the store taxonomy. Errors that are already typed pass through.
func storeError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.WrapAs(appErrors.ErrNotFound, err, message)
	case repository.IsUnreachable(err):
		return appErrors.WrapAs(appErrors.ErrNotReachable, err, message)
	case repository.IsRejected(err):
		return appErrors.WrapAs(appErrors.ErrRejected, err, message)
	default:
		return appErrors.WrapAs(appErrors.ErrInternal, err, message)
	}
}
