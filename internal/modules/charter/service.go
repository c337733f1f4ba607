// README: Charter directory service: radius discovery, availability self-service and origin updates.
package charter

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"charterhub/internal/apperr"
	"charterhub/internal/modules/account"
	"charterhub/internal/modules/geo"
	"charterhub/internal/types"
)

type Repository interface {
	ListAvailable(ctx context.Context, ids []types.ID) ([]Charter, error)
	GetAvailability(ctx context.Context, charterID types.ID) (*Availability, error)
	UpsertAvailability(ctx context.Context, charterID types.ID, available bool, at time.Time) error
	UpdateOrigin(ctx context.Context, charterID types.ID, address string, p types.Point, at time.Time) (bool, error)
}

// Index is an optional spatial pre-filter. Postgres stays authoritative: an empty
// search result, or any failed index write since the last Reindex, sends discovery
// to a directory scan.
type Index interface {
	Add(ctx context.Context, id types.ID, p types.Point) error
	Remove(ctx context.Context, id types.ID) error
	Search(ctx context.Context, center types.Point, radiusKm float64) ([]types.ID, error)
	Reset(ctx context.Context, charters []Charter) error
}

type Users interface {
	Get(ctx context.Context, id types.ID) (*account.User, error)
}

type Service struct {
	store Repository
	index Index
	users Users
	clock *types.Clock
	log   *zap.Logger

	// stale is set when an index write fails and cleared by a successful Reindex.
	stale atomic.Bool
}

// NewService wires the directory. index may be nil.
func NewService(store Repository, index Index, users Users, clock *types.Clock, log *zap.Logger) *Service {
	return &Service{store: store, index: index, users: users, clock: clock, log: log}
}

// FindAvailable returns charters whose origin lies within radiusKm of pickup, in directory order.
func (s *Service) FindAvailable(ctx context.Context, pickup types.Point, radiusKm float64) ([]Charter, error) {
	var ids []types.ID
	if s.index != nil && !s.stale.Load() {
		found, err := s.index.Search(ctx, pickup, radiusKm+indexSlackKm)
		if err != nil {
			s.log.Warn("charter index search failed; scanning directory", zap.Error(err))
		} else if len(found) > 0 {
			ids = found
		}
		// No hits leaves ids nil: scan the directory, which also covers an
		// index emptied by a Redis restart or flush.
	}

	all, err := s.store.ListAvailable(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Charter, 0, len(all))
	for _, c := range all {
		if geo.WithinRadius(pickup, c.Origin, radiusKm) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Get returns the charter profile; non-charters and deleted users are not found.
func (s *Service) Get(ctx context.Context, charterID types.ID) (*account.User, error) {
	u, err := s.users.Get(ctx, charterID)
	if err != nil {
		return nil, err
	}
	if !u.IsCharter() {
		return nil, apperr.NotFound("charter")
	}
	return u, nil
}

func (s *Service) IsAvailable(ctx context.Context, charterID types.ID) (bool, error) {
	a, err := s.store.GetAvailability(ctx, charterID)
	if err != nil {
		return false, err
	}
	return a.Available, nil
}

// ToggleAvailability flips the charter's flag. Going available needs verification and an origin.
func (s *Service) ToggleAvailability(ctx context.Context, charterID types.ID, available bool) (*Availability, error) {
	u, err := s.Get(ctx, charterID)
	if err != nil {
		return nil, err
	}
	if available {
		if !u.IsVerified() {
			return nil, apperr.Forbidden("charter must be verified to become available")
		}
		if u.Origin == nil {
			return nil, apperr.Validation("charter origin must be set before becoming available")
		}
	}

	now := s.clock.Now()
	if err := s.store.UpsertAvailability(ctx, charterID, available, now); err != nil {
		return nil, err
	}
	s.syncIndex(ctx, charterID, available, u.Origin)

	return &Availability{CharterID: charterID, Available: available, Configured: true, LastToggledAt: &now}, nil
}

func (s *Service) GetAvailability(ctx context.Context, charterID types.ID) (*Availability, error) {
	if _, err := s.Get(ctx, charterID); err != nil {
		return nil, err
	}
	return s.store.GetAvailability(ctx, charterID)
}

func (s *Service) UpdateOrigin(ctx context.Context, charterID types.ID, address, lat, lng string) (*types.Point, error) {
	p, err := geo.ParsePoint(lat, lng)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, charterID); err != nil {
		return nil, err
	}
	ok, err := s.store.UpdateOrigin(ctx, charterID, address, p, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("charter")
	}

	a, err := s.store.GetAvailability(ctx, charterID)
	if err != nil {
		s.log.Warn("origin updated but availability lookup failed", zap.String("charter_id", string(charterID)), zap.Error(err))
		return &p, nil
	}
	if a.Available {
		s.syncIndex(ctx, charterID, true, &p)
	}
	return &p, nil
}

// Reindex rebuilds the GEO index from the directory. Called at startup.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	all, err := s.store.ListAvailable(ctx, nil)
	if err != nil {
		return 0, err
	}
	if err := s.index.Reset(ctx, all); err != nil {
		s.stale.Store(true)
		return 0, err
	}
	s.stale.Store(false)
	return len(all), nil
}

// RunIndexResync rebuilds the GEO index from Postgres every interval so writes
// made elsewhere, or lost by Redis, converge.
func (s *Service) RunIndexResync(ctx context.Context, interval time.Duration) {
	if s.index == nil {
		return
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Reindex(ctx); err != nil {
				s.log.Warn("charter geo index resync failed; discovery scans the directory", zap.Error(err))
			}
		}
	}
}

func (s *Service) syncIndex(ctx context.Context, charterID types.ID, available bool, origin *types.Point) {
	if s.index == nil {
		return
	}
	var err error
	if available && origin != nil {
		err = s.index.Add(ctx, charterID, *origin)
	} else {
		err = s.index.Remove(ctx, charterID)
	}
	if err != nil {
		s.stale.Store(true)
		s.log.Warn("charter index update failed; discovery scans the directory until the next resync", zap.String("charter_id", string(charterID)), zap.Bool("available", available), zap.Error(err))
	}
}
