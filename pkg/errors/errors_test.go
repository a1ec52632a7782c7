package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrNotFound, "student not found"))
	appErr := FromError(wrapped)
	assert.Equal(t, ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "student not found", appErr.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(stdErrors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
}

func TestIsMatchesByCode(t *testing.T) {
	cause := stdErrors.New("dial tcp: connection refused")
	err := WrapAs(ErrNotReachable, cause, "failed to load roster")
	assert.True(t, stdErrors.Is(err, ErrNotReachable))
	assert.False(t, stdErrors.Is(err, ErrRejected))
	assert.True(t, stdErrors.Is(err, cause))
	assert.Equal(t, "failed to load roster: dial tcp: connection refused", err.Error())
}

func TestTaxonomyCodesAreDistinct(t *testing.T) {
	taxonomy := map[*Error]int{
		ErrNotFound:        http.StatusNotFound,
		ErrValidation:      http.StatusBadRequest,
		ErrInternal:        http.StatusInternalServerError,
		ErrTooManyRequests: http.StatusTooManyRequests,
		ErrNotReachable:    http.StatusServiceUnavailable,
		ErrRejected:        http.StatusUnprocessableEntity,
		ErrStudentInactive: http.StatusConflict,
		ErrLockTimeout:     http.StatusServiceUnavailable,
	}
	seen := map[string]bool{}
	for sentinel, status := range taxonomy {
		assert.Equal(t, status, sentinel.Status, sentinel.Code)
		assert.False(t, seen[sentinel.Code], "duplicate code %s", sentinel.Code)
		seen[sentinel.Code] = true
	}
}
