// README: Conversation store backed by PostgreSQL; every status change is a conditional update.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"charterhub/internal/apperr"
	"charterhub/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const selectConversation = `
	SELECT id, match_id, user_id, charter_id, status, is_archived, expires_at,
	       closed_by, closed_at, created_at, updated_at
	FROM conversations`

func (s *Store) MatchParties(ctx context.Context, matchID types.ID) (*MatchParties, error) {
	var p MatchParties
	var charterID *string
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, charter_id, status
		FROM travel_matches
		WHERE id = $1 AND deleted_at IS NULL`, string(matchID),
	).Scan(&p.MatchID, &p.UserID, &charterID, &p.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("match")
	}
	if err != nil {
		return nil, fmt.Errorf("get match parties: %w", err)
	}
	if charterID != nil {
		id := types.ID(*charterID)
		p.CharterID = &id
	}
	return &p, nil
}

// Create inserts c unless the match already has a conversation; it reports whether a row was written.
func (s *Store) Create(ctx context.Context, c *Conversation) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO conversations (
			id, match_id, user_id, charter_id, status, is_archived, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $7)
		ON CONFLICT (match_id) DO NOTHING`,
		string(c.ID), string(c.MatchID), string(c.UserID), string(c.CharterID),
		string(c.Status), c.ExpiresAt, c.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert conversation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Conversation, error) {
	return scanConversation(s.db.QueryRow(ctx, selectConversation+` WHERE id = $1`, string(id)))
}

func (s *Store) GetByMatch(ctx context.Context, matchID types.ID) (*Conversation, error) {
	return scanConversation(s.db.QueryRow(ctx, selectConversation+` WHERE match_id = $1`, string(matchID)))
}

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	var closedBy *string
	err := row.Scan(&c.ID, &c.MatchID, &c.UserID, &c.CharterID, &c.Status, &c.IsArchived, &c.ExpiresAt,
		&closedBy, &c.ClosedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("conversation")
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	if closedBy != nil {
		id := types.ID(*closedBy)
		c.ClosedBy = &id
	}
	return &c, nil
}

func (s *Store) MarkExpired(ctx context.Context, id types.ID, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE conversations
		SET status = 'expired', updated_at = $2
		WHERE id = $1 AND status = 'active' AND expires_at <= $2`,
		string(id), now,
	)
	if err != nil {
		return false, fmt.Errorf("mark conversation expired: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// InsertMessage writes m only while the conversation is active and inside its window.
func (s *Store) InsertMessage(ctx context.Context, m *Message, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, is_read, created_at)
		SELECT $1, c.id, $3, $4, FALSE, $5
		FROM conversations c
		WHERE c.id = $2 AND c.status = 'active' AND c.expires_at > $5`,
		string(m.ID), string(m.ConversationID), string(m.SenderID), m.Content, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert message: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID types.ID) ([]Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, conversation_id, sender_id, content, is_read, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC`, string(conversationID))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRead flips every unread message not authored by readerID.
func (s *Store) MarkRead(ctx context.Context, conversationID, readerID types.ID) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE conversation_id = $1 AND sender_id <> $2 AND NOT is_read`,
		string(conversationID), string(readerID),
	)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ListActiveForUser(ctx context.Context, userID types.ID, now time.Time) ([]Summary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.match_id, c.user_id, c.charter_id, c.status, c.is_archived, c.expires_at,
		       c.closed_by, c.closed_at, c.created_at, c.updated_at,
		       lm.id, lm.sender_id, lm.content, lm.is_read, lm.created_at,
		       (SELECT COUNT(*) FROM messages m
		        WHERE m.conversation_id = c.id AND m.sender_id <> $1 AND NOT m.is_read)
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, sender_id, content, is_read, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		WHERE (c.user_id = $1 OR c.charter_id = $1)
		  AND c.status = 'active'
		  AND c.expires_at > $2
		ORDER BY COALESCE(lm.created_at, c.created_at) DESC`,
		string(userID), now,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		var closedBy, lastID, lastSender, lastContent *string
		var lastRead *bool
		var lastAt *time.Time
		c := &sum.Conversation
		if err := rows.Scan(&c.ID, &c.MatchID, &c.UserID, &c.CharterID, &c.Status, &c.IsArchived, &c.ExpiresAt,
			&closedBy, &c.ClosedAt, &c.CreatedAt, &c.UpdatedAt,
			&lastID, &lastSender, &lastContent, &lastRead, &lastAt,
			&sum.UnreadCount); err != nil {
			return nil, err
		}
		if closedBy != nil {
			id := types.ID(*closedBy)
			c.ClosedBy = &id
		}
		if lastID != nil {
			sum.LastMessage = &Message{
				ID:             types.ID(*lastID),
				ConversationID: c.ID,
				SenderID:       types.ID(*lastSender),
				Content:        *lastContent,
				IsRead:         *lastRead,
				CreatedAt:      *lastAt,
			}
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) CloseActive(ctx context.Context, id, closedBy types.ID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE conversations
		SET status = 'closed', closed_by = $2, closed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'active'`,
		string(id), string(closedBy), at,
	)
	if err != nil {
		return false, fmt.Errorf("close conversation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SetArchived(ctx context.Context, id types.ID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE conversations
		SET is_archived = TRUE, updated_at = $2
		WHERE id = $1`,
		string(id), at,
	)
	if err != nil {
		return false, fmt.Errorf("archive conversation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireDue is sweep phase one: active, unarchived, past-due rows become expired.
func (s *Store) ExpireDue(ctx context.Context, now time.Time) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE conversations
		SET status = 'expired', updated_at = $1
		WHERE status = 'active' AND NOT is_archived AND expires_at <= $1
		RETURNING id`, now)
	if err != nil {
		return nil, fmt.Errorf("expire conversations: %w", err)
	}
	defer rows.Close()

	var ids []types.ID
	for rows.Next() {
		var id types.ID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteExpired is sweep phase two; messages go with the conversation via ON DELETE CASCADE.
// Rows referenced by a report are archived first, so they never match here.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM conversations
		WHERE status = 'expired' AND NOT is_archived AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired conversations: %w", err)
	}
	return tag.RowsAffected(), nil
}
