package matching

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"charterhub/internal/apperr"
	"charterhub/internal/modules/account"
	"charterhub/internal/modules/charter"
	"charterhub/internal/modules/conversation"
	"charterhub/internal/modules/geo"
	"charterhub/internal/modules/pricing"
	"charterhub/internal/modules/trip"
	"charterhub/internal/realtime"
	"charterhub/internal/types"
)

var errBoom = errors.New("boom")

// ---------------------------------------------------------------------------
// accounts: shared by the user lookup and the trip debit
// ---------------------------------------------------------------------------

type accounts struct {
	mu    sync.Mutex
	users map[types.ID]*account.User
}

func (a *accounts) Get(_ context.Context, id types.ID) (*account.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (a *accounts) balance(id types.ID) types.Credits {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.users[id].Credits
}

// ---------------------------------------------------------------------------
// memRepo mirrors the conditional updates and the trip transaction of Store
// ---------------------------------------------------------------------------

type memRepo struct {
	mu        sync.Mutex
	accounts  *accounts
	matches   map[types.ID]*TravelMatch
	trips     map[types.ID]*trip.Trip
	movements []trip.Movement
	events    []Event
}

func newMemRepo(a *accounts) *memRepo {
	return &memRepo{accounts: a, matches: map[types.ID]*TravelMatch{}, trips: map[types.ID]*trip.Trip{}}
}

func (r *memRepo) Create(_ context.Context, m *TravelMatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.matches[m.ID] = &cp
	return nil
}

func (r *memRepo) Get(_ context.Context, id types.ID) (*TravelMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, apperr.NotFound("match")
	}
	cp := *m
	return &cp, nil
}

func (r *memRepo) list(keep func(*TravelMatch) bool) []TravelMatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []TravelMatch
	for _, m := range r.matches {
		if keep(m) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memRepo) ListByUser(_ context.Context, userID types.ID, status Status) ([]TravelMatch, error) {
	return r.list(func(m *TravelMatch) bool {
		return m.UserID == userID && (status == "" || m.Status == status)
	}), nil
}

func (r *memRepo) ListByCharter(_ context.Context, charterID types.ID, status Status) ([]TravelMatch, error) {
	return r.list(func(m *TravelMatch) bool {
		return m.IsCharter(charterID) && (status == "" || m.Status == status)
	}), nil
}

func (r *memRepo) AssignCharter(_ context.Context, id, charterID types.ID, distanceKm float64, credits types.Credits, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok || m.Status != StatusSearching {
		return false, nil
	}
	m.CharterID = &charterID
	m.DistanceKm = &distanceKm
	m.EstimatedCredits = &credits
	m.Status = StatusPending
	m.UpdatedAt = at
	return true, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id types.ID, from, to Status, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok || m.Status != from {
		return false, nil
	}
	m.Status = to
	m.UpdatedAt = at
	return true, nil
}

func (r *memRepo) SetConversation(_ context.Context, id, conversationID types.ID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return apperr.NotFound("match")
	}
	m.ConversationID = &conversationID
	m.UpdatedAt = at
	return nil
}

func (r *memRepo) CreateTrip(_ context.Context, matchID types.ID, t *trip.Trip, reserve *trip.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts.mu.Lock()
	defer r.accounts.mu.Unlock()

	u := r.accounts.users[t.UserID]
	if u.Credits < t.EstimatedCredits {
		return ErrDebitRejected
	}
	m := r.matches[matchID]
	if m.Status != StatusAccepted || m.TripID != nil {
		return ErrMatchMoved
	}
	u.Credits -= t.EstimatedCredits
	cp := *t
	r.trips[t.ID] = &cp
	r.movements = append(r.movements, *reserve)
	m.Status = StatusCompleted
	m.TripID = &t.ID
	m.UpdatedAt = t.CreatedAt
	return nil
}

func (r *memRepo) ExpireStale(_ context.Context, now time.Time) ([]Stale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Stale
	for _, m := range r.matches {
		if m.Status == StatusSearching && !m.ExpiresAt.After(now) {
			m.Status = StatusExpired
			m.UpdatedAt = now
			out = append(out, Stale{ID: m.ID, UserID: m.UserID})
		}
	}
	return out, nil
}

func (r *memRepo) AppendEvent(_ context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *memRepo) set(id types.ID, fn func(*TravelMatch)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.matches[id])
}

func (r *memRepo) tripCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trips)
}

// ---------------------------------------------------------------------------
// directory, rates, conversations, notifier
// ---------------------------------------------------------------------------

type directory struct {
	accounts  *accounts
	available map[types.ID]bool
	findErr   error
}

func (d *directory) FindAvailable(_ context.Context, pickup types.Point, radiusKm float64) ([]charter.Charter, error) {
	if d.findErr != nil {
		return nil, d.findErr
	}
	d.accounts.mu.Lock()
	defer d.accounts.mu.Unlock()
	var out []charter.Charter
	for id, u := range d.accounts.users {
		if !u.IsCharter() || u.Origin == nil || !d.available[id] {
			continue
		}
		if geo.WithinRadius(pickup, *u.Origin, radiusKm) {
			out = append(out, charter.Charter{ID: u.ID, Name: u.Name, OriginAddress: u.OriginAddress, Origin: *u.Origin})
		}
	}
	return out, nil
}

func (d *directory) Get(ctx context.Context, id types.ID) (*account.User, error) {
	u, err := d.accounts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsCharter() {
		return nil, apperr.NotFound("charter")
	}
	return u, nil
}

func (d *directory) IsAvailable(_ context.Context, id types.ID) (bool, error) {
	return d.available[id], nil
}

type rates struct {
	mu    sync.Mutex
	r     pricing.Rates
	loads int
}

func (r *rates) LoadRates(context.Context) (pricing.Rates, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	return r.r, nil
}

type conversations struct {
	mu      sync.Mutex
	clock   *types.Clock
	err     error
	created map[types.ID]*conversation.Conversation
}

func (c *conversations) Create(_ context.Context, matchID types.ID) (*conversation.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if existing, ok := c.created[matchID]; ok {
		return existing, nil
	}
	now := c.clock.Now()
	conv := &conversation.Conversation{
		ID:        types.NewID(),
		MatchID:   matchID,
		Status:    conversation.StatusActive,
		ExpiresAt: now.Add(conversation.DefaultTTL),
		CreatedAt: now,
	}
	c.created[matchID] = conv
	return conv, nil
}

type push struct {
	to    types.ID
	match *realtime.MatchUpdate
	trip  *realtime.TripUpdate
}

type notifier struct {
	mu     sync.Mutex
	pushes []push
}

func (n *notifier) NotifyMatchUpdate(userID types.ID, u realtime.MatchUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushes = append(n.pushes, push{to: userID, match: &u})
}

func (n *notifier) NotifyTripCreated(userID types.ID, u realtime.TripUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushes = append(n.pushes, push{to: userID, trip: &u})
}

func (n *notifier) matchUpdates(to types.ID) []realtime.MatchUpdate {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []realtime.MatchUpdate
	for _, p := range n.pushes {
		if p.to == to && p.match != nil {
			out = append(out, *p.match)
		}
	}
	return out
}

func (n *notifier) tripUpdates(to types.ID) []realtime.TripUpdate {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []realtime.TripUpdate
	for _, p := range n.pushes {
		if p.to == to && p.trip != nil {
			out = append(out, *p.trip)
		}
	}
	return out
}
