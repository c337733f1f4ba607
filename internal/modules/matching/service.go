// README: Match State Machine: discovery, selection, charter response, trip conversion, cancel and expiry.
package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

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

type Repository interface {
	Create(ctx context.Context, m *TravelMatch) error
	Get(ctx context.Context, id types.ID) (*TravelMatch, error)
	ListByUser(ctx context.Context, userID types.ID, status Status) ([]TravelMatch, error)
	ListByCharter(ctx context.Context, charterID types.ID, status Status) ([]TravelMatch, error)
	AssignCharter(ctx context.Context, id, charterID types.ID, distanceKm float64, credits types.Credits, at time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, at time.Time) (bool, error)
	SetConversation(ctx context.Context, id, conversationID types.ID, at time.Time) error
	CreateTrip(ctx context.Context, matchID types.ID, t *trip.Trip, reserve *trip.Movement) error
	ExpireStale(ctx context.Context, now time.Time) ([]Stale, error)
	AppendEvent(ctx context.Context, e *Event) error
}

type Users interface {
	Get(ctx context.Context, id types.ID) (*account.User, error)
}

type Directory interface {
	FindAvailable(ctx context.Context, pickup types.Point, radiusKm float64) ([]charter.Charter, error)
	Get(ctx context.Context, charterID types.ID) (*account.User, error)
	IsAvailable(ctx context.Context, charterID types.ID) (bool, error)
}

type RateLoader interface {
	LoadRates(ctx context.Context) (pricing.Rates, error)
}

type Conversations interface {
	Create(ctx context.Context, matchID types.ID) (*conversation.Conversation, error)
}

type Notifier interface {
	NotifyMatchUpdate(userID types.ID, u realtime.MatchUpdate)
	NotifyTripCreated(userID types.ID, u realtime.TripUpdate)
}

// Deps are the collaborators the state machine calls out to.
type Deps struct {
	Users         Users
	Charters      Directory
	Pricing       RateLoader
	Conversations Conversations
	Notifier      Notifier
}

type Config struct {
	TTL             time.Duration
	DefaultRadiusKm float64
}

type Service struct {
	store Repository
	deps  Deps
	cfg   Config
	clock *types.Clock
	log   *zap.Logger
}

func NewService(store Repository, deps Deps, cfg Config, clock *types.Clock, log *zap.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = DefaultRadiusKm
	}
	return &Service{store: store, deps: deps, cfg: cfg, clock: clock, log: log}
}

// CreateCommand carries raw request values; coordinates and schedule arrive as strings.
type CreateCommand struct {
	RequesterID        types.ID
	PickupAddress      string
	PickupLat          string
	PickupLng          string
	DestinationAddress string
	DestinationLat     string
	DestinationLng     string
	ScheduledAt        string
	MaxRadiusKm        *float64
	WorkersCount       *int
}

type CreateResult struct {
	Match      *TravelMatch `json:"match"`
	Candidates []Candidate  `json:"candidates"`
}

func (s *Service) CreateMatch(ctx context.Context, cmd CreateCommand) (*CreateResult, error) {
	if _, err := s.deps.Users.Get(ctx, cmd.RequesterID); err != nil {
		return nil, err
	}
	pickup, err := geo.ParsePoint(cmd.PickupLat, cmd.PickupLng)
	if err != nil {
		return nil, err
	}
	destination, err := geo.ParsePoint(cmd.DestinationLat, cmd.DestinationLng)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var scheduledAt *time.Time
	if cmd.ScheduledAt != "" {
		t, err := s.clock.ParseSchedule(cmd.ScheduledAt)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("invalid scheduled_at: %q", cmd.ScheduledAt))
		}
		if t.Before(now) {
			return nil, apperr.Validation("scheduled_at is in the past")
		}
		scheduledAt = &t
	}

	radius := s.cfg.DefaultRadiusKm
	if cmd.MaxRadiusKm != nil {
		radius = *cmd.MaxRadiusKm
		if radius < MinRadiusKm || radius > MaxRadiusKm {
			return nil, apperr.Validation(fmt.Sprintf("max_radius_km must be within %v..%v", MinRadiusKm, MaxRadiusKm))
		}
	}
	workers := 0
	if cmd.WorkersCount != nil {
		workers = *cmd.WorkersCount
		if workers < 0 || workers > MaxWorkers {
			return nil, apperr.Validation(fmt.Sprintf("workers_count must be within 0..%d", MaxWorkers))
		}
	}

	found, err := s.deps.Charters.FindAvailable(ctx, pickup, radius)
	if err != nil {
		return nil, err
	}
	candidates := []Candidate{}
	if len(found) > 0 {
		// One rate load for the whole candidate set.
		rates, err := s.deps.Pricing.LoadRates(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range found {
			if c.ID == cmd.RequesterID {
				continue
			}
			d := geo.Travel(c.Origin, pickup, destination)
			candidates = append(candidates, Candidate{
				CharterID:        c.ID,
				Name:             c.Name,
				OriginAddress:    c.OriginAddress,
				Origin:           c.Origin,
				Distances:        d,
				EstimatedCredits: pricing.Cost(d.Total, workers, rates),
			})
		}
		geo.SortByDistance(candidates, func(c Candidate) float64 { return c.Distances.ToPickup })
	}

	m := &TravelMatch{
		ID:                 types.NewID(),
		UserID:             cmd.RequesterID,
		PickupAddress:      cmd.PickupAddress,
		Pickup:             pickup,
		DestinationAddress: cmd.DestinationAddress,
		Destination:        destination,
		ScheduledAt:        scheduledAt,
		MaxRadiusKm:        radius,
		WorkersCount:       workers,
		Status:             StatusSearching,
		ExpiresAt:          now.Add(s.cfg.TTL),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, m.ID, StatusNone, StatusSearching, ActorUser, &cmd.RequesterID, now)

	s.log.Info("match created",
		zap.String("match_id", string(m.ID)),
		zap.String("user_id", string(m.UserID)),
		zap.Int("candidates", len(candidates)))
	return &CreateResult{Match: m, Candidates: candidates}, nil
}

// SelectCharter recomputes distance and price against the charter's current origin
// and moves the match to pending. The price fixed here is what the trip debits.
func (s *Service) SelectCharter(ctx context.Context, requesterID, matchID, charterID types.ID) (*TravelMatch, error) {
	m, err := s.store.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.UserID != requesterID {
		return nil, apperr.Forbidden("only the requester can select a charter")
	}
	if m.Status != StatusSearching {
		return nil, apperr.InvalidState("match", string(m.Status), "select a charter")
	}
	now := s.clock.Now()
	if !now.Before(m.ExpiresAt) {
		s.expire(ctx, m, now)
		return nil, apperr.InvalidState("match", string(StatusExpired), "select a charter")
	}

	c, err := s.deps.Charters.Get(ctx, charterID)
	if err != nil {
		return nil, err
	}
	available, err := s.deps.Charters.IsAvailable(ctx, charterID)
	if err != nil {
		return nil, err
	}
	if !available || !c.IsVerified() || c.Origin == nil {
		return nil, apperr.New(apperr.KindInvalidState, "charter is not available")
	}

	rates, err := s.deps.Pricing.LoadRates(ctx)
	if err != nil {
		return nil, err
	}
	d := geo.Travel(*c.Origin, m.Pickup, m.Destination)
	cost := pricing.Cost(d.Total, m.WorkersCount, rates)

	ok, err := s.store.AssignCharter(ctx, m.ID, charterID, d.Total, cost, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.conflict(ctx, m.ID, "select a charter")
	}
	s.appendEvent(ctx, m.ID, StatusSearching, StatusPending, ActorUser, &requesterID, now)

	m.CharterID = &charterID
	m.DistanceKm = &d.Total
	m.EstimatedCredits = &cost
	m.Status = StatusPending
	m.UpdatedAt = now

	s.deps.Notifier.NotifyMatchUpdate(charterID, realtime.MatchUpdate{
		MatchID:          m.ID,
		Status:           string(StatusPending),
		CharterID:        &charterID,
		EstimatedCredits: &cost,
	})
	return m, nil
}

// RespondToMatch records the charter's answer. On accept the conversation is opened
// synchronously; if that fails the acceptance still stands.
func (s *Service) RespondToMatch(ctx context.Context, charterID, matchID types.ID, accept bool) (*TravelMatch, error) {
	m, err := s.store.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != StatusPending {
		return nil, apperr.InvalidState("match", string(m.Status), "respond")
	}
	if !m.IsCharter(charterID) {
		return nil, apperr.Forbidden("only the assigned charter can respond")
	}

	to := StatusRejected
	if accept {
		to = StatusAccepted
	}
	now := s.clock.Now()
	ok, err := s.store.UpdateStatus(ctx, m.ID, StatusPending, to, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.conflict(ctx, m.ID, "respond")
	}
	s.appendEvent(ctx, m.ID, StatusPending, to, ActorCharter, &charterID, now)
	m.Status = to
	m.UpdatedAt = now

	if accept {
		s.openConversation(ctx, m)
	}

	s.deps.Notifier.NotifyMatchUpdate(m.UserID, realtime.MatchUpdate{
		MatchID:          m.ID,
		Status:           string(to),
		CharterID:        m.CharterID,
		EstimatedCredits: m.EstimatedCredits,
		ConversationID:   m.ConversationID,
	})
	return m, nil
}

func (s *Service) openConversation(ctx context.Context, m *TravelMatch) {
	c, err := s.deps.Conversations.Create(ctx, m.ID)
	if err != nil {
		s.log.Warn("conversation provisioning failed; acceptance kept",
			zap.String("match_id", string(m.ID)), zap.Error(err))
		return
	}
	if err := s.store.SetConversation(ctx, m.ID, c.ID, s.clock.Now()); err != nil {
		s.log.Warn("link conversation to match failed",
			zap.String("match_id", string(m.ID)),
			zap.String("conversation_id", string(c.ID)),
			zap.Error(err))
	}
	m.ConversationID = &c.ID
}

// CreateTripFromMatch commits the requester's credits and converts the match into a trip.
func (s *Service) CreateTripFromMatch(ctx context.Context, requesterID, matchID types.ID) (*trip.Trip, error) {
	m, err := s.store.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.UserID != requesterID {
		return nil, apperr.Forbidden("only the requester can create a trip")
	}
	if m.Status != StatusAccepted {
		return nil, apperr.InvalidState("match", string(m.Status), "create a trip")
	}
	if m.CharterID == nil || m.EstimatedCredits == nil {
		return nil, apperr.New(apperr.KindInvalidState, "match has no assigned charter")
	}
	if m.TripID != nil {
		return nil, apperr.Conflict("match already has a trip")
	}

	amount := *m.EstimatedCredits
	u, err := s.deps.Users.Get(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if u.Credits < amount {
		return nil, apperr.InsufficientFunds(int64(amount), int64(u.Credits))
	}

	now := s.clock.Now()
	t := &trip.Trip{
		ID:               types.NewID(),
		MatchID:          m.ID,
		UserID:           m.UserID,
		CharterID:        *m.CharterID,
		Address:          m.DestinationAddress,
		Location:         m.Destination,
		WorkersCount:     m.WorkersCount,
		ScheduledAt:      m.ScheduledAt,
		EstimatedCredits: amount,
		Status:           trip.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	reserve := &trip.Movement{
		ID:        types.NewID(),
		UserID:    m.UserID,
		TripID:    t.ID,
		Delta:     -amount,
		Reason:    trip.ReasonTripReserve,
		CreatedAt: now,
	}

	err = s.store.CreateTrip(ctx, m.ID, t, reserve)
	switch {
	case errors.Is(err, ErrDebitRejected):
		available := types.Credits(0)
		if cur, uerr := s.deps.Users.Get(ctx, requesterID); uerr == nil {
			available = cur.Credits
		}
		return nil, apperr.InsufficientFunds(int64(amount), int64(available))
	case errors.Is(err, ErrMatchMoved):
		return nil, s.conflict(ctx, m.ID, "create a trip")
	case err != nil:
		return nil, err
	}
	s.appendEvent(ctx, m.ID, StatusAccepted, StatusCompleted, ActorUser, &requesterID, now)

	update := realtime.TripUpdate{TripID: t.ID, MatchID: m.ID, Status: string(t.Status), EstimatedCredits: amount}
	s.deps.Notifier.NotifyTripCreated(t.UserID, update)
	s.deps.Notifier.NotifyTripCreated(t.CharterID, update)

	s.log.Info("trip created",
		zap.String("trip_id", string(t.ID)),
		zap.String("match_id", string(m.ID)),
		zap.Int64("credits", int64(amount)))
	return t, nil
}

func (s *Service) CancelMatch(ctx context.Context, requesterID, matchID types.ID) (*TravelMatch, error) {
	m, err := s.store.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.UserID != requesterID {
		return nil, apperr.Forbidden("only the requester can cancel a match")
	}
	if !CanTransition(m.Status, StatusCancelled) {
		return nil, apperr.InvalidState("match", string(m.Status), "cancel")
	}
	now := s.clock.Now()
	ok, err := s.store.UpdateStatus(ctx, m.ID, m.Status, StatusCancelled, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.conflict(ctx, m.ID, "cancel")
	}
	s.appendEvent(ctx, m.ID, m.Status, StatusCancelled, ActorUser, &requesterID, now)
	m.Status = StatusCancelled
	m.UpdatedAt = now

	if m.CharterID != nil {
		s.deps.Notifier.NotifyMatchUpdate(*m.CharterID, realtime.MatchUpdate{
			MatchID:   m.ID,
			Status:    string(StatusCancelled),
			CharterID: m.CharterID,
		})
	}
	return m, nil
}

// GetMatch returns the match to its requester or assigned charter.
func (s *Service) GetMatch(ctx context.Context, userID, matchID types.ID) (*TravelMatch, error) {
	m, err := s.store.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.IsMember(userID) {
		return nil, apperr.Forbidden("not a participant of this match")
	}
	return m, nil
}

func (s *Service) ListUserMatches(ctx context.Context, userID types.ID, status string) ([]TravelMatch, error) {
	st, err := statusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.store.ListByUser(ctx, userID, st)
}

func (s *Service) ListCharterMatches(ctx context.Context, charterID types.ID, status string) ([]TravelMatch, error) {
	st, err := statusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.store.ListByCharter(ctx, charterID, st)
}

func statusFilter(v string) (Status, error) {
	if v == "" {
		return "", nil
	}
	st, ok := ParseStatus(v)
	if !ok {
		return "", apperr.Validation(fmt.Sprintf("unknown match status %q", v))
	}
	return st, nil
}

// ExpireStale moves every searching match past its window to expired and tells the requester.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	now := s.clock.Now()
	stale, err := s.store.ExpireStale(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, st := range stale {
		s.appendEvent(ctx, st.ID, StatusSearching, StatusExpired, ActorSystem, nil, now)
		s.deps.Notifier.NotifyMatchUpdate(st.UserID, realtime.MatchUpdate{MatchID: st.ID, Status: string(StatusExpired)})
	}
	return len(stale), nil
}

func (s *Service) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ExpireStale(ctx)
			if err != nil {
				s.log.Error("match expiry sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("expired stale matches", zap.Int("count", n))
			}
		}
	}
}

// expire is the lazy counterpart of ExpireStale for a single match.
func (s *Service) expire(ctx context.Context, m *TravelMatch, now time.Time) {
	ok, err := s.store.UpdateStatus(ctx, m.ID, StatusSearching, StatusExpired, now)
	if err != nil {
		s.log.Warn("lazy match expiry failed", zap.String("match_id", string(m.ID)), zap.Error(err))
		return
	}
	if ok {
		s.appendEvent(ctx, m.ID, StatusSearching, StatusExpired, ActorSystem, nil, now)
		s.deps.Notifier.NotifyMatchUpdate(m.UserID, realtime.MatchUpdate{MatchID: m.ID, Status: string(StatusExpired)})
	}
}

// conflict reports a lost conditional update, naming the status found on re-read.
func (s *Service) conflict(ctx context.Context, matchID types.ID, action string) error {
	cur, err := s.store.Get(ctx, matchID)
	if err != nil {
		return apperr.Conflict(fmt.Sprintf("match changed concurrently; cannot %s", action))
	}
	return apperr.Conflict(fmt.Sprintf("match is now %s; cannot %s", cur.Status, action))
}

func (s *Service) appendEvent(ctx context.Context, id types.ID, from, to Status, actorType string, actorID *types.ID, at time.Time) {
	_ = s.store.AppendEvent(ctx, &Event{
		MatchID:    id,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  at,
	})
}
