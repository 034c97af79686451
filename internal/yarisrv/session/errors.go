package session

import (
	"net/http"

	"github.com/yarihq/yari-server/internal/common/apperrors"
)

// Base session error
var (
	ErrSession apperrors.Error = apperrors.New("session processing failed").SetStatusCode(http.StatusInternalServerError)
)

// Not found errors
var (
	ErrSessionNotFound apperrors.Error = ErrSession.New("session not found").SetStatusCode(http.StatusNotFound)
	ErrExpertNotFound  apperrors.Error = ErrSession.New("expert not found").SetStatusCode(http.StatusNotFound)
)

// Validation errors
var (
	ErrInvalidBooking    apperrors.Error = ErrSession.New("invalid booking").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	ErrInvalidStatus     apperrors.Error = ErrSession.New("invalid status").SetStatusCode(http.StatusBadRequest)
	ErrInvalidTransition apperrors.Error = ErrSession.New("invalid status transition").SetStatusCode(http.StatusConflict)
)

// Authorization errors
var (
	ErrNotParticipant apperrors.Error = ErrSession.New("caller is not a session participant").SetStatusCode(http.StatusForbidden)
	ErrExpertOnly     apperrors.Error = ErrSession.New("only the expert may confirm a session").SetStatusCode(http.StatusForbidden)
)
