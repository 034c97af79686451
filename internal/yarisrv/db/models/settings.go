package models

import (
	"time"

	"github.com/yarihq/yari-server/internal/common/uuid"
)

// AvailabilitySettings is the one-to-one per-user booking configuration.
// The row is created lazily on first write; reads of an absent row return
// DefaultAvailabilitySettings without persisting anything.
type AvailabilitySettings struct {
	UserID              uuid.UUID `db:"user_id" json:"user_id"`
	FreeSessionDuration int       `db:"free_session_duration" json:"free_session_duration"` // minutes, 15-60
	PaidSessionDuration int       `db:"paid_session_duration" json:"paid_session_duration"` // minutes, 30-180
	PaidSessionPrice    float64   `db:"paid_session_price" json:"paid_session_price"`
	Timezone            string    `db:"timezone" json:"timezone"`
	BufferMinutes       int       `db:"buffer_minutes" json:"buffer_minutes"`       // 0-60
	AdvanceBookingDays  int       `db:"advance_booking_days" json:"advance_booking_days"` // 1-90
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultAvailabilitySettings returns the documented defaults served when a
// user has never written settings.
func DefaultAvailabilitySettings(userID uuid.UUID) *AvailabilitySettings {
	return &AvailabilitySettings{
		UserID:              userID,
		FreeSessionDuration: 30,
		PaidSessionDuration: 60,
		PaidSessionPrice:    50,
		Timezone:            "UTC",
		BufferMinutes:       15,
		AdvanceBookingDays:  30,
	}
}
