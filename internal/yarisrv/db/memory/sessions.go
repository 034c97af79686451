package memory

import (
	"context"
	"time"

	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db/dberror"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
)

func copySession(sess *models.Session) *models.Session {
	cp := *sess
	if sess.SlotID != nil {
		id := *sess.SlotID
		cp.SlotID = &id
	}
	return &cp
}

// CreateSession implements db.SessionStore.
func (s *Store) CreateSession(ctx context.Context, session *models.Session) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	if _, ok := s.sessions[session.SessionID]; ok {
		return dberror.ErrAlreadyExists.Msg("session already exists")
	}
	cp := copySession(session)
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.sessions[session.SessionID] = cp
	return nil
}

// GetSession implements db.SessionStore.
func (s *Store) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("session not found")
	}
	return copySession(sess), nil
}

// UpdateSessionStatus implements db.SessionStore. The transition only
// applies while the row still holds the expected prior status.
func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID uuid.UUID, from, to models.SessionStatus, meetingLink string) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	sess, ok := s.sessions[sessionID]
	if !ok {
		return dberror.ErrNotFound.Msg("session not found")
	}
	if sess.Status != from {
		return dberror.ErrConditionFailed.Msg("session status changed concurrently")
	}
	sess.Status = to
	if meetingLink != "" {
		sess.MeetingLink = meetingLink
	}
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateSessionNotes implements db.SessionStore.
func (s *Store) UpdateSessionNotes(ctx context.Context, sessionID uuid.UUID, notes string) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	sess, ok := s.sessions[sessionID]
	if !ok {
		return dberror.ErrNotFound.Msg("session not found")
	}
	sess.Notes = notes
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

// CreateYariSession implements db.YariConnectStore.
func (s *Store) CreateYariSession(ctx context.Context, session *models.YariConnectSession) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	if _, ok := s.yariSessions[session.ID]; ok {
		return dberror.ErrAlreadyExists.Msg("yari-connect session already exists")
	}
	cp := *session
	if session.EndedAt != nil {
		t := *session.EndedAt
		cp.EndedAt = &t
	}
	s.yariSessions[session.ID] = &cp
	return nil
}

// GetYariSession implements db.YariConnectStore.
func (s *Store) GetYariSession(ctx context.Context, id uuid.UUID) (*models.YariConnectSession, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.yariSessions[id]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("yari-connect session not found")
	}
	cp := *sess
	if sess.EndedAt != nil {
		t := *sess.EndedAt
		cp.EndedAt = &t
	}
	return &cp, nil
}

// EndYariSession implements db.YariConnectStore. Conditional on active.
func (s *Store) EndYariSession(ctx context.Context, id uuid.UUID, endedAt time.Time, durationSeconds int) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	sess, ok := s.yariSessions[id]
	if !ok {
		return dberror.ErrNotFound.Msg("yari-connect session not found")
	}
	if sess.Status != models.YariConnectActive {
		return dberror.ErrConditionFailed.Msg("session already ended")
	}
	t := endedAt
	sess.EndedAt = &t
	sess.DurationSeconds = durationSeconds
	sess.Status = models.YariConnectEnded
	return nil
}
