// Package dberror defines the errors surfaced by the record store. Domain
// packages translate these into their own sentinels where a more specific
// message helps; the status codes here are the fallback mapping.
package dberror

import (
	"net/http"

	"github.com/yarihq/yari-server/internal/common/apperrors"
)

var (
	ErrDatabase      apperrors.Error = apperrors.New("db error").SetStatusCode(http.StatusInternalServerError)
	ErrNotFound      apperrors.Error = ErrDatabase.New("not found").SetStatusCode(http.StatusNotFound)
	ErrAlreadyExists apperrors.Error = ErrDatabase.New("already exists").SetStatusCode(http.StatusConflict)
	ErrInvalidInput  apperrors.Error = ErrDatabase.New("invalid input").SetStatusCode(http.StatusBadRequest)

	// ErrConditionFailed is returned when a conditional update matched no
	// row: either the row is absent or its guard column already changed.
	// The slot-booking CAS relies on this to reject the losing racer.
	ErrConditionFailed apperrors.Error = ErrDatabase.New("conditional update failed").SetStatusCode(http.StatusConflict)
)
