// Package memory is a mutex-guarded in-memory implementation of db.Store.
// It mirrors the conditional-update semantics of the postgres store exactly,
// which is what makes it usable for the concurrency properties the tests
// exercise. Used by tests and by dev mode without a database.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db/dberror"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
)

// Store holds every collection in maps keyed by id. All methods copy
// records on the way in and out so callers can never alias internal state.
type Store struct {
	mu sync.RWMutex

	users         map[uuid.UUID]*models.User
	settings      map[uuid.UUID]*models.AvailabilitySettings
	slots         map[uuid.UUID]*models.AvailabilitySlot
	sessions      map[uuid.UUID]*models.Session
	yariSessions  map[uuid.UUID]*models.YariConnectSession
	messages      map[uuid.UUID]*models.ChatMessage
	notifications map[uuid.UUID]*models.Notification
	requests      map[uuid.UUID]*models.ConnectionRequest
	connections   map[uuid.UUID]*models.Connection

	// failWrites forces every write to fail; tests use it to verify
	// persist-before-relay ordering.
	failWrites bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:         make(map[uuid.UUID]*models.User),
		settings:      make(map[uuid.UUID]*models.AvailabilitySettings),
		slots:         make(map[uuid.UUID]*models.AvailabilitySlot),
		sessions:      make(map[uuid.UUID]*models.Session),
		yariSessions:  make(map[uuid.UUID]*models.YariConnectSession),
		messages:      make(map[uuid.UUID]*models.ChatMessage),
		notifications: make(map[uuid.UUID]*models.Notification),
		requests:      make(map[uuid.UUID]*models.ConnectionRequest),
		connections:   make(map[uuid.UUID]*models.Connection),
	}
}

// FailWrites toggles forced write failures.
func (s *Store) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = fail
}

func (s *Store) writeAllowed() apperrors.Error {
	if s.failWrites {
		return dberror.ErrDatabase.Msg("store unavailable")
	}
	return nil
}

// Ping implements db.Store.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close implements db.Store.
func (s *Store) Close() error { return nil }

// CreateUser implements db.UserStore.
func (s *Store) CreateUser(ctx context.Context, user *models.User) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	if _, ok := s.users[user.UserID]; ok {
		return dberror.ErrAlreadyExists.Msg("user already exists")
	}
	cp := *user
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.users[user.UserID] = &cp
	return nil
}

// GetUser implements db.UserStore.
func (s *Store) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("user not found")
	}
	cp := *u
	return &cp, nil
}

// GetSettings implements db.AvailabilityStore.
func (s *Store) GetSettings(ctx context.Context, userID uuid.UUID) (*models.AvailabilitySettings, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settings[userID]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("settings not found")
	}
	cp := *st
	return &cp, nil
}

// UpsertSettings implements db.AvailabilityStore.
func (s *Store) UpsertSettings(ctx context.Context, settings *models.AvailabilitySettings) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	cp := *settings
	now := time.Now().UTC()
	if existing, ok := s.settings[settings.UserID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.settings[settings.UserID] = &cp
	return nil
}

func copySlot(slot *models.AvailabilitySlot) *models.AvailabilitySlot {
	cp := *slot
	if slot.SessionID != nil {
		id := *slot.SessionID
		cp.SessionID = &id
	}
	if slot.BookedBy != nil {
		id := *slot.BookedBy
		cp.BookedBy = &id
	}
	if slot.Recurrence != nil {
		rec := *slot.Recurrence
		cp.Recurrence = &rec
	}
	return &cp
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// CreateSlot implements db.AvailabilityStore.
func (s *Store) CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	if _, ok := s.slots[slot.SlotID]; ok {
		return dberror.ErrAlreadyExists.Msg("slot already exists")
	}
	cp := copySlot(slot)
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.slots[slot.SlotID] = cp
	return nil
}

// GetSlot implements db.AvailabilityStore.
func (s *Store) GetSlot(ctx context.Context, slotID uuid.UUID) (*models.AvailabilitySlot, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[slotID]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("slot not found")
	}
	return copySlot(slot), nil
}

// ListSlotsByDate implements db.AvailabilityStore.
func (s *Store) ListSlotsByDate(ctx context.Context, expertID uuid.UUID, date time.Time) ([]*models.AvailabilitySlot, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.AvailabilitySlot
	for _, slot := range s.slots {
		if slot.ExpertID == expertID && sameDate(slot.Date, date) {
			out = append(out, copySlot(slot))
		}
	}
	return out, nil
}

// ListSlotsInRange implements db.AvailabilityStore.
func (s *Store) ListSlotsInRange(ctx context.Context, expertID uuid.UUID, start, end time.Time) ([]*models.AvailabilitySlot, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.AvailabilitySlot
	for _, slot := range s.slots {
		if slot.ExpertID != expertID {
			continue
		}
		d := slot.Date.UTC().Truncate(24 * time.Hour)
		if !d.Before(start.UTC().Truncate(24*time.Hour)) && !d.After(end.UTC().Truncate(24*time.Hour)) {
			out = append(out, copySlot(slot))
		}
	}
	return out, nil
}

// UpdateSlot implements db.AvailabilityStore. The update is conditional on
// the slot being unbooked.
func (s *Store) UpdateSlot(ctx context.Context, slot *models.AvailabilitySlot) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	existing, ok := s.slots[slot.SlotID]
	if !ok {
		return dberror.ErrNotFound.Msg("slot not found")
	}
	if existing.IsBooked {
		return dberror.ErrConditionFailed.Msg("slot is booked")
	}
	cp := copySlot(slot)
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	s.slots[slot.SlotID] = cp
	return nil
}

// DeleteSlot implements db.AvailabilityStore. Conditional on unbooked.
func (s *Store) DeleteSlot(ctx context.Context, slotID uuid.UUID) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	existing, ok := s.slots[slotID]
	if !ok {
		return dberror.ErrNotFound.Msg("slot not found")
	}
	if existing.IsBooked {
		return dberror.ErrConditionFailed.Msg("slot is booked")
	}
	delete(s.slots, slotID)
	return nil
}

// ClaimSlot implements db.AvailabilityStore. The check and the flip happen
// under one lock acquisition, matching the postgres conditional UPDATE.
func (s *Store) ClaimSlot(ctx context.Context, slotID, sessionID, bookedBy uuid.UUID) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	existing, ok := s.slots[slotID]
	if !ok {
		return dberror.ErrNotFound.Msg("slot not found")
	}
	if existing.IsBooked {
		return dberror.ErrConditionFailed.Msg("slot is already booked")
	}
	existing.IsBooked = true
	existing.SessionID = &sessionID
	existing.BookedBy = &bookedBy
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

// ReleaseSlot implements db.AvailabilityStore.
func (s *Store) ReleaseSlot(ctx context.Context, slotID uuid.UUID) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.slots[slotID]
	if !ok {
		return dberror.ErrNotFound.Msg("slot not found")
	}
	existing.IsBooked = false
	existing.SessionID = nil
	existing.BookedBy = nil
	existing.UpdatedAt = time.Now().UTC()
	return nil
}
