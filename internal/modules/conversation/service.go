// README: Conversation Engine: provisioning on accept, messaging with lazy expiry, close/archive and the sweeper.
package conversation

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"charterhub/internal/apperr"
	"charterhub/internal/realtime"
	"charterhub/internal/types"
)

type Repository interface {
	MatchParties(ctx context.Context, matchID types.ID) (*MatchParties, error)
	Create(ctx context.Context, c *Conversation) (bool, error)
	Get(ctx context.Context, id types.ID) (*Conversation, error)
	GetByMatch(ctx context.Context, matchID types.ID) (*Conversation, error)
	MarkExpired(ctx context.Context, id types.ID, now time.Time) (bool, error)
	InsertMessage(ctx context.Context, m *Message, now time.Time) (bool, error)
	ListMessages(ctx context.Context, conversationID types.ID) ([]Message, error)
	MarkRead(ctx context.Context, conversationID, readerID types.ID) (int64, error)
	ListActiveForUser(ctx context.Context, userID types.ID, now time.Time) ([]Summary, error)
	CloseActive(ctx context.Context, id, closedBy types.ID, at time.Time) (bool, error)
	SetArchived(ctx context.Context, id types.ID, at time.Time) (bool, error)
	ExpireDue(ctx context.Context, now time.Time) ([]types.ID, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Notifier interface {
	NotifyNewConversation(userID types.ID, c realtime.ConversationOpened)
	BroadcastMessage(room types.ID, message any)
	NotifyMessagesRead(room types.ID, r realtime.MessagesRead)
	NotifyConversationClosed(room, closedBy types.ID)
	NotifyConversationExpired(room types.ID)
}

type Service struct {
	store    Repository
	notifier Notifier
	clock    *types.Clock
	ttl      time.Duration
	log      *zap.Logger
}

func NewService(store Repository, notifier Notifier, clock *types.Clock, ttl time.Duration, log *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, notifier: notifier, clock: clock, ttl: ttl, log: log}
}

// Create opens the conversation for an accepted match. A second call for the same
// match returns the existing conversation.
func (s *Service) Create(ctx context.Context, matchID types.ID) (*Conversation, error) {
	if existing, err := s.store.GetByMatch(ctx, matchID); err == nil {
		return existing, nil
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	parties, err := s.store.MatchParties(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if parties.Status != "accepted" {
		return nil, apperr.InvalidState("match", parties.Status, "open a conversation")
	}
	if parties.CharterID == nil {
		return nil, apperr.New(apperr.KindInvalidState, "match has no assigned charter")
	}

	now := s.clock.Now()
	c := &Conversation{
		ID:        types.NewID(),
		MatchID:   matchID,
		UserID:    parties.UserID,
		CharterID: *parties.CharterID,
		Status:    StatusActive,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.store.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	// Lost the race to a concurrent creator; theirs is the conversation.
	if !created {
		return s.store.GetByMatch(ctx, matchID)
	}

	opened := realtime.ConversationOpened{
		ConversationID: c.ID,
		MatchID:        c.MatchID,
		UserID:         c.UserID,
		CharterID:      c.CharterID,
		ExpiresAt:      c.ExpiresAt,
	}
	s.notifier.NotifyNewConversation(c.UserID, opened)
	s.notifier.NotifyNewConversation(c.CharterID, opened)
	s.log.Info("conversation opened",
		zap.String("conversation_id", string(c.ID)),
		zap.String("match_id", string(matchID)),
		zap.Time("expires_at", c.ExpiresAt))
	return c, nil
}

// Get returns the conversation to a member.
func (s *Service) Get(ctx context.Context, conversationID, userID types.ID) (*Conversation, error) {
	c, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !c.IsMember(userID) {
		return nil, apperr.Forbidden("not a participant of this conversation")
	}
	return c, nil
}

func (s *Service) SendMessage(ctx context.Context, conversationID, senderID types.ID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("message content is required")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, apperr.Validation("message content exceeds 2000 characters")
	}

	c, err := s.Get(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusActive {
		return nil, apperr.InvalidState("conversation", string(c.Status), "send messages")
	}
	now := s.clock.Now()
	if c.ExpiredAt(now) {
		return nil, s.expireLazily(ctx, c, now)
	}

	m := &Message{
		ID:             types.NewID(),
		ConversationID: c.ID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      now,
	}
	ok, err := s.store.InsertMessage(ctx, m, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Closed or expired between the read and the insert.
		cur, err := s.store.Get(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		if cur.Status == StatusActive && cur.ExpiredAt(now) {
			return nil, s.expireLazily(ctx, cur, now)
		}
		return nil, apperr.InvalidState("conversation", string(cur.Status), "send messages")
	}

	s.notifier.BroadcastMessage(c.ID, m)
	return m, nil
}

func (s *Service) expireLazily(ctx context.Context, c *Conversation, now time.Time) error {
	flipped, err := s.store.MarkExpired(ctx, c.ID, now)
	if err != nil {
		return err
	}
	if flipped {
		s.notifier.NotifyConversationExpired(c.ID)
		s.log.Info("conversation expired on send", zap.String("conversation_id", string(c.ID)))
	}
	return apperr.InvalidState("conversation", string(StatusExpired), "send messages")
}

// GetMessages returns the full history. Marking the counterpart's messages read is
// best effort: a failure is logged and the history is still returned.
func (s *Service) GetMessages(ctx context.Context, conversationID, userID types.ID) ([]Message, error) {
	c, err := s.Get(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	n, err := s.store.MarkRead(ctx, c.ID, userID)
	if err != nil {
		s.log.Warn("mark messages read failed",
			zap.String("conversation_id", string(c.ID)),
			zap.String("user_id", string(userID)),
			zap.Error(err))
		return msgs, nil
	}
	if n > 0 {
		s.notifier.NotifyMessagesRead(c.ID, realtime.MessagesRead{ConversationID: c.ID, ReaderID: userID, Count: n})
	}
	return msgs, nil
}

// History returns all messages without a membership check. Moderation only.
func (s *Service) History(ctx context.Context, conversationID types.ID) ([]Message, error) {
	return s.store.ListMessages(ctx, conversationID)
}

// Lookup returns a conversation without a membership check.
func (s *Service) Lookup(ctx context.Context, conversationID types.ID) (*Conversation, error) {
	return s.store.Get(ctx, conversationID)
}

func (s *Service) ListForUser(ctx context.Context, userID types.ID) ([]Summary, error) {
	return s.store.ListActiveForUser(ctx, userID, s.clock.Now())
}

func (s *Service) Close(ctx context.Context, conversationID, userID types.ID) (*Conversation, error) {
	c, err := s.Get(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusActive {
		return nil, apperr.InvalidState("conversation", string(c.Status), "close")
	}
	now := s.clock.Now()
	ok, err := s.store.CloseActive(ctx, c.ID, userID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		cur, err := s.store.Get(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		return nil, apperr.InvalidState("conversation", string(cur.Status), "close")
	}

	c.Status = StatusClosed
	c.ClosedBy = &userID
	c.ClosedAt = &now
	c.UpdatedAt = now
	s.notifier.NotifyConversationClosed(c.ID, userID)
	return c, nil
}

// Archive exempts the conversation from the sweep permanently.
func (s *Service) Archive(ctx context.Context, conversationID types.ID) error {
	ok, err := s.store.SetArchived(ctx, conversationID, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("conversation")
	}
	return nil
}

// CanJoin implements realtime.RoomAuthorizer.
func (s *Service) CanJoin(ctx context.Context, conversationID, userID types.ID) (bool, error) {
	c, err := s.store.Get(ctx, conversationID)
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return c.IsMember(userID), nil
}

// Sweep expires overdue conversations, then deletes expired unarchived ones.
// A crash between the phases leaves rows expired, and the next run deletes them.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	var res SweepResult

	expired, err := s.store.ExpireDue(ctx, now)
	if err != nil {
		return res, err
	}
	res.Expired = int64(len(expired))
	for _, id := range expired {
		s.notifier.NotifyConversationExpired(id)
	}

	deleted, err := s.store.DeleteExpired(ctx, now)
	if err != nil {
		return res, err
	}
	res.Deleted = deleted
	return res, nil
}

func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := s.Sweep(ctx)
			if err != nil {
				s.log.Error("conversation sweep failed", zap.Error(err))
				continue
			}
			if res.Expired > 0 || res.Deleted > 0 {
				s.log.Info("conversation sweep", zap.Int64("expired", res.Expired), zap.Int64("deleted", res.Deleted))
			}
		}
	}
}
