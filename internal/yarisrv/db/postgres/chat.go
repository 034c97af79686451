package postgres

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db/dberror"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
)

// CreateChatMessage appends a direct message. The row must be durable
// before the message is relayed to the recipient.
func (s *Store) CreateChatMessage(ctx context.Context, msg *models.ChatMessage) apperrors.Error {
	query := `
		INSERT INTO chat_messages (message_id, sender_id, recipient_id, session_id, body)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.MessageID,
		msg.SenderID,
		msg.Recipient,
		msg.SessionID,
		msg.Body,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dberror.ErrAlreadyExists.Msg("message already exists")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert chat message")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// ListConversation returns the most recent messages exchanged between the
// two users, oldest first.
func (s *Store) ListConversation(ctx context.Context, userA, userB uuid.UUID, limit int) ([]*models.ChatMessage, apperrors.Error) {
	query := `
		SELECT message_id, sender_id, recipient_id, session_id, body, read, created_at
		FROM (
			SELECT message_id, sender_id, recipient_id, session_id, body, read, created_at
			FROM chat_messages
			WHERE (sender_id = $1 AND recipient_id = $2)
				OR (sender_id = $2 AND recipient_id = $1)
			ORDER BY created_at DESC
			LIMIT $3
		) recent
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, userA, userB, limit)
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var result []*models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(
			&msg.MessageID,
			&msg.SenderID,
			&msg.Recipient,
			&msg.SessionID,
			&msg.Body,
			&msg.Read,
			&msg.CreatedAt,
		); err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		result = append(result, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return result, nil
}

// MarkMessageRead flips the read flag, guarded on the caller being the
// recipient. Senders cannot mark their own messages read.
func (s *Store) MarkMessageRead(ctx context.Context, messageID, recipientID uuid.UUID) apperrors.Error {
	query := `UPDATE chat_messages SET read = TRUE WHERE message_id = $1 AND recipient_id = $2`

	result, err := s.db.ExecContext(ctx, query, messageID, recipientID)
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rows == 0 {
		return dberror.ErrNotFound.Msg("message not found")
	}
	return nil
}
