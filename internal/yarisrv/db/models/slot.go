// Package models defines the persistent record types owned by the store.
// The engine and lifecycle packages operate on these as stateless
// validators; all durable state lives here.
package models

import (
	"fmt"
	"time"

	"github.com/yarihq/yari-server/internal/common/uuid"
)

// SlotType classifies a bookable interval.
type SlotType string

const (
	SlotTypeFree    SlotType = "free"
	SlotTypePaid    SlotType = "paid"
	SlotTypeBlocked SlotType = "blocked"
)

// RecurrencePattern describes how a slot repeats.
type RecurrencePattern string

const (
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
)

// Recurrence is an optional repetition descriptor attached to a slot.
type Recurrence struct {
	Pattern RecurrencePattern `db:"recurrence_pattern" json:"pattern"`
	Until   time.Time         `db:"recurrence_until" json:"until"`
}

// AvailabilitySlot is an expert-owned bookable or blocked interval on a
// calendar day. Start and end are stored as minutes since midnight;
// [Start,End) intervals for the same expert and date must never overlap.
// IsBooked flips to true exactly once, through a conditional update taken
// atomically with session creation.
type AvailabilitySlot struct {
	SlotID       uuid.UUID   `db:"slot_id" json:"slot_id"`
	ExpertID     uuid.UUID   `db:"expert_id" json:"expert_id"`
	Date         time.Time   `db:"slot_date" json:"date"` // civil date; time-of-day is ignored
	StartMinutes int         `db:"start_minutes" json:"-"`
	EndMinutes   int         `db:"end_minutes" json:"-"`
	SlotType     SlotType    `db:"slot_type" json:"slot_type"`
	Price        float64     `db:"price" json:"price"`
	Duration     int         `db:"duration_minutes" json:"duration_minutes"`
	IsBooked     bool        `db:"is_booked" json:"is_booked"`
	SessionID    *uuid.UUID  `db:"session_id" json:"session_id,omitempty"`
	BookedBy     *uuid.UUID  `db:"booked_by" json:"booked_by,omitempty"`
	Recurrence   *Recurrence `db:"-" json:"recurrence,omitempty"`
	Note         string      `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// StartTime renders the start as a zero-padded HH:MM string.
func (s *AvailabilitySlot) StartTime() string {
	return MinutesToClock(s.StartMinutes)
}

// EndTime renders the end as a zero-padded HH:MM string.
func (s *AvailabilitySlot) EndTime() string {
	return MinutesToClock(s.EndMinutes)
}

// MinutesToClock formats minutes-since-midnight as HH:MM.
func MinutesToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseClock parses a zero-padded HH:MM string into minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return h*60 + m, nil
}
