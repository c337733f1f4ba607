package conversation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"charterhub/internal/apperr"
	"charterhub/internal/realtime"
	"charterhub/internal/types"
)

// memStore mirrors the conditional-update semantics of Store in memory.
type memStore struct {
	mu       sync.Mutex
	matches  map[types.ID]*MatchParties
	convs    map[types.ID]*Conversation
	messages []Message

	markReadErr error
}

func newMemStore() *memStore {
	return &memStore{matches: map[types.ID]*MatchParties{}, convs: map[types.ID]*Conversation{}}
}

func (m *memStore) addMatch(id, user types.ID, charter *types.ID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[id] = &MatchParties{MatchID: id, UserID: user, CharterID: charter, Status: status}
}

func (m *memStore) MatchParties(_ context.Context, id types.ID) (*MatchParties, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.matches[id]
	if !ok {
		return nil, apperr.NotFound("match")
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, c *Conversation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.convs {
		if existing.MatchID == c.MatchID {
			return false, nil
		}
	}
	cp := *c
	m.convs[c.ID] = &cp
	return true, nil
}

func (m *memStore) Get(_ context.Context, id types.ID) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, apperr.NotFound("conversation")
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetByMatch(_ context.Context, matchID types.ID) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.convs {
		if c.MatchID == matchID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("conversation")
}

func (m *memStore) MarkExpired(_ context.Context, id types.ID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok || c.Status != StatusActive || c.ExpiresAt.After(now) {
		return false, nil
	}
	c.Status = StatusExpired
	return true, nil
}

func (m *memStore) InsertMessage(_ context.Context, msg *Message, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[msg.ConversationID]
	if !ok || c.Status != StatusActive || !c.ExpiresAt.After(now) {
		return false, nil
	}
	m.messages = append(m.messages, *msg)
	return true, nil
}

func (m *memStore) ListMessages(_ context.Context, id types.ID) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Message{}
	for _, msg := range m.messages {
		if msg.ConversationID == id {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) MarkRead(_ context.Context, id, reader types.ID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markReadErr != nil {
		return 0, m.markReadErr
	}
	var n int64
	for i := range m.messages {
		msg := &m.messages[i]
		if msg.ConversationID == id && msg.SenderID != reader && !msg.IsRead {
			msg.IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListActiveForUser(_ context.Context, user types.ID, now time.Time) ([]Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Summary{}
	for _, c := range m.convs {
		if !c.IsMember(user) || c.Status != StatusActive || !c.ExpiresAt.After(now) {
			continue
		}
		sum := Summary{Conversation: *c}
		for i := range m.messages {
			msg := m.messages[i]
			if msg.ConversationID != c.ID {
				continue
			}
			sum.LastMessage = &msg
			if msg.SenderID != user && !msg.IsRead {
				sum.UnreadCount++
			}
		}
		out = append(out, sum)
	}
	return out, nil
}

func (m *memStore) CloseActive(_ context.Context, id, by types.ID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok || c.Status != StatusActive {
		return false, nil
	}
	c.Status = StatusClosed
	c.ClosedBy = &by
	c.ClosedAt = &at
	return true, nil
}

func (m *memStore) SetArchived(_ context.Context, id types.ID, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return false, nil
	}
	c.IsArchived = true
	return true, nil
}

func (m *memStore) ExpireDue(_ context.Context, now time.Time) ([]types.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []types.ID
	for id, c := range m.convs {
		if c.Status == StatusActive && !c.IsArchived && !c.ExpiresAt.After(now) {
			c.Status = StatusExpired
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, c := range m.convs {
		if c.Status == StatusExpired && !c.IsArchived && !c.ExpiresAt.After(now) {
			delete(m.convs, id)
			kept := m.messages[:0]
			for _, msg := range m.messages {
				if msg.ConversationID != id {
					kept = append(kept, msg)
				}
			}
			m.messages = kept
			n++
		}
	}
	return n, nil
}

// recorder captures notifier calls.
type recorder struct {
	mu       sync.Mutex
	opened   map[types.ID][]realtime.ConversationOpened
	messages map[types.ID][]any
	reads    []realtime.MessagesRead
	closed   []types.ID
	expired  []types.ID
}

func newRecorder() *recorder {
	return &recorder{opened: map[types.ID][]realtime.ConversationOpened{}, messages: map[types.ID][]any{}}
}

func (r *recorder) NotifyNewConversation(user types.ID, c realtime.ConversationOpened) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened[user] = append(r.opened[user], c)
}

func (r *recorder) BroadcastMessage(room types.ID, msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[room] = append(r.messages[room], msg)
}

func (r *recorder) NotifyMessagesRead(_ types.ID, rd realtime.MessagesRead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads = append(r.reads, rd)
}

func (r *recorder) NotifyConversationClosed(room, _ types.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, room)
}

func (r *recorder) NotifyConversationExpired(room types.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = append(r.expired, room)
}

var errBoom = errors.New("boom")
