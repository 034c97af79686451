package notifications

import (
	"net/http"

	"github.com/yarihq/yari-server/internal/common/apperrors"
)

var (
	ErrNotification apperrors.Error = apperrors.New("notification processing failed").SetStatusCode(http.StatusInternalServerError)

	ErrNotificationNotFound apperrors.Error = ErrNotification.New("notification not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidPayload       apperrors.Error = ErrNotification.New("invalid notification payload").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
)
