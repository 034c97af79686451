package memory

import (
	"context"
	"sort"
	"time"

	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db/dberror"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
)

// CreateChatMessage implements db.ChatStore.
func (s *Store) CreateChatMessage(ctx context.Context, msg *models.ChatMessage) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	if _, ok := s.messages[msg.MessageID]; ok {
		return dberror.ErrAlreadyExists.Msg("message already exists")
	}
	cp := *msg
	if msg.SessionID != nil {
		id := *msg.SessionID
		cp.SessionID = &id
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.messages[msg.MessageID] = &cp
	return nil
}

// ListConversation implements db.ChatStore. Messages come back oldest first.
func (s *Store) ListConversation(ctx context.Context, userA, userB uuid.UUID, limit int) ([]*models.ChatMessage, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ChatMessage
	for _, m := range s.messages {
		between := (m.SenderID == userA && m.Recipient == userB) ||
			(m.SenderID == userB && m.Recipient == userA)
		if between {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// MarkMessageRead implements db.ChatStore. Recipient-scoped.
func (s *Store) MarkMessageRead(ctx context.Context, messageID, recipientID uuid.UUID) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	m, ok := s.messages[messageID]
	if !ok {
		return dberror.ErrNotFound.Msg("message not found")
	}
	if m.Recipient != recipientID {
		return dberror.ErrConditionFailed.Msg("not the message recipient")
	}
	m.Read = true
	return nil
}

// CreateNotification implements db.NotificationStore.
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	cp := *n
	if n.SenderID != nil {
		id := *n.SenderID
		cp.SenderID = &id
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.notifications[n.NotificationID] = &cp
	return nil
}

// ListNotifications implements db.NotificationStore, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID) ([]*models.Notification, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MarkNotificationRead implements db.NotificationStore. Target-scoped.
func (s *Store) MarkNotificationRead(ctx context.Context, notificationID, userID uuid.UUID) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	n, ok := s.notifications[notificationID]
	if !ok {
		return dberror.ErrNotFound.Msg("notification not found")
	}
	if n.UserID != userID {
		return dberror.ErrConditionFailed.Msg("not the notification target")
	}
	n.Read = true
	return nil
}

// DeleteNotification implements db.NotificationStore. Target-scoped.
func (s *Store) DeleteNotification(ctx context.Context, notificationID, userID uuid.UUID) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	n, ok := s.notifications[notificationID]
	if !ok {
		return dberror.ErrNotFound.Msg("notification not found")
	}
	if n.UserID != userID {
		return dberror.ErrConditionFailed.Msg("not the notification target")
	}
	delete(s.notifications, notificationID)
	return nil
}

// CreateConnectionRequest implements db.ConnectionStore.
func (s *Store) CreateConnectionRequest(ctx context.Context, req *models.ConnectionRequest) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	for _, existing := range s.requests {
		if existing.SenderID == req.SenderID && existing.ReceiverID == req.ReceiverID &&
			existing.Status == models.RequestPending {
			return dberror.ErrAlreadyExists.Msg("a pending request already exists")
		}
	}
	cp := *req
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.requests[req.RequestID] = &cp
	return nil
}

// GetConnectionRequest implements db.ConnectionStore.
func (s *Store) GetConnectionRequest(ctx context.Context, requestID uuid.UUID) (*models.ConnectionRequest, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("connection request not found")
	}
	cp := *req
	return &cp, nil
}

// GetPendingRequest implements db.ConnectionStore.
func (s *Store) GetPendingRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.ConnectionRequest, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, req := range s.requests {
		if req.SenderID == senderID && req.ReceiverID == receiverID && req.Status == models.RequestPending {
			cp := *req
			return &cp, nil
		}
	}
	return nil, dberror.ErrNotFound.Msg("no pending request")
}

// AcceptConnectionRequest implements db.ConnectionStore. The request flip
// and the connection insert happen in one mutex section, mirroring the
// postgres transaction.
func (s *Store) AcceptConnectionRequest(ctx context.Context, requestID uuid.UUID) (*models.Connection, apperrors.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return nil, err
	}
	req, ok := s.requests[requestID]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("connection request not found")
	}
	if req.Status != models.RequestPending {
		return nil, dberror.ErrConditionFailed.Msg("request is not pending")
	}
	req.Status = models.RequestAccepted
	req.UpdatedAt = time.Now().UTC()

	u1, u2 := models.NormalizePair(req.SenderID, req.ReceiverID)
	conn := &models.Connection{
		ConnectionID: uuid.New(),
		User1:        u1,
		User2:        u2,
		CreatedAt:    time.Now().UTC(),
	}
	s.connections[conn.ConnectionID] = conn
	cp := *conn
	return &cp, nil
}

// DeclineConnectionRequest implements db.ConnectionStore.
func (s *Store) DeclineConnectionRequest(ctx context.Context, requestID uuid.UUID) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAllowed(); err != nil {
		return err
	}
	req, ok := s.requests[requestID]
	if !ok {
		return dberror.ErrNotFound.Msg("connection request not found")
	}
	if req.Status != models.RequestPending {
		return dberror.ErrConditionFailed.Msg("request is not pending")
	}
	req.Status = models.RequestDeclined
	req.UpdatedAt = time.Now().UTC()
	return nil
}

// GetConnectionBetween implements db.ConnectionStore.
func (s *Store) GetConnectionBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Connection, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u1, u2 := models.NormalizePair(userA, userB)
	for _, conn := range s.connections {
		if conn.User1 == u1 && conn.User2 == u2 {
			cp := *conn
			return &cp, nil
		}
	}
	return nil, dberror.ErrNotFound.Msg("no connection between users")
}

// ListConnections implements db.ConnectionStore.
func (s *Store) ListConnections(ctx context.Context, userID uuid.UUID) ([]*models.Connection, apperrors.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Connection
	for _, conn := range s.connections {
		if conn.User1 == userID || conn.User2 == userID {
			cp := *conn
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
