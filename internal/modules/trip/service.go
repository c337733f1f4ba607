// README: Trip service: charter completion, requester confirmation with payout, feedback eligibility.
package trip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"charterhub/internal/apperr"
	"charterhub/internal/realtime"
	"charterhub/internal/types"
)

type Repository interface {
	Get(ctx context.Context, id types.ID) (*Trip, error)
	MarkCharterCompleted(ctx context.Context, id types.ID, at time.Time) (bool, error)
	Settle(ctx context.Context, t *Trip, payout *Movement) error
	HasFeedback(ctx context.Context, tripID, userID types.ID) (bool, error)
}

type Notifier interface {
	NotifyTripUpdate(userID types.ID, u realtime.TripUpdate)
}

type Service struct {
	store    Repository
	notifier Notifier
	clock    *types.Clock
	log      *zap.Logger
}

func NewService(store Repository, notifier Notifier, clock *types.Clock, log *zap.Logger) *Service {
	return &Service{store: store, notifier: notifier, clock: clock, log: log}
}

func (s *Service) Get(ctx context.Context, userID, tripID types.ID) (*Trip, error) {
	t, err := s.store.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.IsParticipant(userID) {
		return nil, apperr.Forbidden("not a participant of this trip")
	}
	return t, nil
}

// CharterComplete is the charter's half of the completion handshake.
func (s *Service) CharterComplete(ctx context.Context, charterID, tripID types.ID) (*Trip, error) {
	t, err := s.store.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t.CharterID != charterID {
		return nil, apperr.Forbidden("only the assigned charter can complete the trip")
	}
	if !CanTransition(t.Status, StatusCharterCompleted) {
		return nil, apperr.InvalidState("trip", string(t.Status), "mark as completed")
	}

	now := s.clock.Now()
	ok, err := s.store.MarkCharterCompleted(ctx, t.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.conflict(ctx, t.ID, "mark as completed")
	}
	t.Status = StatusCharterCompleted
	t.CharterCompletedAt = &now
	t.UpdatedAt = now

	s.notify(t)
	return t, nil
}

// Confirm is the requester's half. It releases the reserved credits to the charter.
func (s *Service) Confirm(ctx context.Context, requesterID, tripID types.ID) (*Trip, error) {
	t, err := s.store.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t.UserID != requesterID {
		return nil, apperr.Forbidden("only the requester can confirm the trip")
	}
	if !CanTransition(t.Status, StatusCompleted) {
		return nil, apperr.InvalidState("trip", string(t.Status), "confirm")
	}

	now := s.clock.Now()
	payout := &Movement{
		ID:        types.NewID(),
		UserID:    t.CharterID,
		TripID:    t.ID,
		Delta:     t.EstimatedCredits,
		Reason:    ReasonTripPayout,
		CreatedAt: now,
	}
	err = s.store.Settle(ctx, t, payout)
	if errors.Is(err, ErrTripMoved) {
		return nil, s.conflict(ctx, t.ID, "confirm")
	}
	if err != nil {
		return nil, err
	}
	t.Status = StatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now

	s.log.Info("trip settled",
		zap.String("trip_id", string(t.ID)),
		zap.String("charter_id", string(t.CharterID)),
		zap.Int64("credits", int64(t.EstimatedCredits)))
	s.notify(t)
	return t, nil
}

// CanLeaveFeedback reports whether the caller may rate the other party.
func (s *Service) CanLeaveFeedback(ctx context.Context, userID, tripID types.ID) (bool, error) {
	t, err := s.store.Get(ctx, tripID)
	if err != nil {
		return false, err
	}
	if !t.IsParticipant(userID) || t.Status != StatusCompleted {
		return false, nil
	}
	left, err := s.store.HasFeedback(ctx, tripID, userID)
	if err != nil {
		return false, err
	}
	return !left, nil
}

func (s *Service) notify(t *Trip) {
	u := realtime.TripUpdate{TripID: t.ID, MatchID: t.MatchID, Status: string(t.Status), EstimatedCredits: t.EstimatedCredits}
	s.notifier.NotifyTripUpdate(t.UserID, u)
	s.notifier.NotifyTripUpdate(t.CharterID, u)
}

func (s *Service) conflict(ctx context.Context, tripID types.ID, action string) error {
	cur, err := s.store.Get(ctx, tripID)
	if err != nil {
		return apperr.Conflict(fmt.Sprintf("trip changed concurrently; cannot %s", action))
	}
	return apperr.Conflict(fmt.Sprintf("trip is now %s; cannot %s", cur.Status, action))
}
