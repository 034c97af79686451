package availability

import (
	"net/http"

	"github.com/yarihq/yari-server/internal/common/apperrors"
)

// Base availability error
var (
	ErrAvailability apperrors.Error = apperrors.New("availability processing failed").SetStatusCode(http.StatusInternalServerError)
)

// Not found errors
var (
	ErrSlotNotFound   apperrors.Error = ErrAvailability.New("slot not found").SetStatusCode(http.StatusNotFound)
	ErrExpertNotFound apperrors.Error = ErrAvailability.New("expert not found").SetStatusCode(http.StatusNotFound)
)

// Conflict errors
var (
	ErrSlotOverlap apperrors.Error = ErrAvailability.New("slot overlaps an existing slot").SetStatusCode(http.StatusConflict)
	ErrSlotBooked  apperrors.Error = ErrAvailability.New("slot is already booked").SetStatusCode(http.StatusConflict)
)

// Validation errors
var (
	ErrInvalidSlot     apperrors.Error = ErrAvailability.New("invalid slot").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	ErrInvalidSettings apperrors.Error = ErrAvailability.New("invalid settings").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	ErrInvalidBooking  apperrors.Error = ErrAvailability.New("invalid booking").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
)

// Authorization errors
var (
	ErrNotSlotOwner apperrors.Error = ErrAvailability.New("caller does not own this slot").SetStatusCode(http.StatusForbidden)
)
