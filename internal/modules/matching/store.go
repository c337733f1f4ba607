// README: Match store backed by PostgreSQL; transitions are conditional updates, trip creation is one transaction.
package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"charterhub/internal/apperr"
	"charterhub/internal/modules/trip"
	"charterhub/internal/types"
)

var (
	// ErrDebitRejected means the conditional debit found the balance short.
	ErrDebitRejected = errors.New("credit debit rejected")
	// ErrMatchMoved means the match left accepted, or gained a trip, inside the transaction.
	ErrMatchMoved = errors.New("match changed during trip creation")
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, m *TravelMatch) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO travel_matches (
			id, user_id, charter_id,
			pickup_address, pickup_lat, pickup_lng,
			destination_address, destination_lat, destination_lng,
			scheduled_at, max_radius_km, workers_count,
			distance_km, estimated_credits, status, expires_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9,
			$10, $11, $12,
			$13, $14, $15, $16,
			$17, $17
		)`,
		string(m.ID), string(m.UserID), idPtr(m.CharterID),
		m.PickupAddress, m.Pickup.Lat, m.Pickup.Lng,
		m.DestinationAddress, m.Destination.Lat, m.Destination.Lng,
		m.ScheduledAt, m.MaxRadiusKm, m.WorkersCount,
		m.DistanceKm, creditsPtr(m.EstimatedCredits), string(m.Status), m.ExpiresAt,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

const selectMatch = `
	SELECT id, user_id, charter_id,
	       pickup_address, pickup_lat, pickup_lng,
	       destination_address, destination_lat, destination_lng,
	       scheduled_at, max_radius_km, workers_count,
	       distance_km, estimated_credits, status, expires_at,
	       trip_id, conversation_id, created_at, updated_at, deleted_at IS NOT NULL
	FROM travel_matches`

// Get returns the match; soft-deleted matches are reported as not found.
func (s *Store) Get(ctx context.Context, id types.ID) (*TravelMatch, error) {
	m, err := scanMatch(s.db.QueryRow(ctx, selectMatch+` WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("match")
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	if !m.Lifecycle.Usable() {
		return nil, apperr.NotFound("match")
	}
	return m, nil
}

func (s *Store) ListByUser(ctx context.Context, userID types.ID, status Status) ([]TravelMatch, error) {
	return s.list(ctx, `user_id`, userID, status)
}

func (s *Store) ListByCharter(ctx context.Context, charterID types.ID, status Status) ([]TravelMatch, error) {
	return s.list(ctx, `charter_id`, charterID, status)
}

func (s *Store) list(ctx context.Context, column string, id types.ID, status Status) ([]TravelMatch, error) {
	var statusArg *string
	if status != "" {
		v := string(status)
		statusArg = &v
	}
	rows, err := s.db.Query(ctx, selectMatch+`
		WHERE `+column+` = $1
		  AND deleted_at IS NULL
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id DESC`, string(id), statusArg)
	if err != nil {
		return nil, fmt.Errorf("list matches by %s: %w", column, err)
	}
	defer rows.Close()

	out := []TravelMatch{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func scanMatch(row pgx.Row) (*TravelMatch, error) {
	var m TravelMatch
	var charterID, tripID, conversationID *string
	var credits *int64
	var deleted bool
	err := row.Scan(
		&m.ID, &m.UserID, &charterID,
		&m.PickupAddress, &m.Pickup.Lat, &m.Pickup.Lng,
		&m.DestinationAddress, &m.Destination.Lat, &m.Destination.Lng,
		&m.ScheduledAt, &m.MaxRadiusKm, &m.WorkersCount,
		&m.DistanceKm, &credits, &m.Status, &m.ExpiresAt,
		&tripID, &conversationID, &m.CreatedAt, &m.UpdatedAt, &deleted,
	)
	if err != nil {
		return nil, err
	}
	m.CharterID = toIDPtr(charterID)
	m.TripID = toIDPtr(tripID)
	m.ConversationID = toIDPtr(conversationID)
	if credits != nil {
		c := types.Credits(*credits)
		m.EstimatedCredits = &c
	}
	if deleted {
		m.Lifecycle = types.LifecycleDeleted
	}
	return &m, nil
}

// AssignCharter moves searching -> pending and fixes the price the charter will see.
func (s *Store) AssignCharter(ctx context.Context, id, charterID types.ID, distanceKm float64, credits types.Credits, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE travel_matches
		SET charter_id = $2, distance_km = $3, estimated_credits = $4,
		    status = 'pending', updated_at = $5
		WHERE id = $1 AND status = 'searching' AND deleted_at IS NULL`,
		string(id), string(charterID), distanceKm, int64(credits), at,
	)
	if err != nil {
		return false, fmt.Errorf("assign charter: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE travel_matches
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2 AND deleted_at IS NULL`,
		string(id), string(from), string(to), at,
	)
	if err != nil {
		return false, fmt.Errorf("update match status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SetConversation(ctx context.Context, id, conversationID types.ID, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE travel_matches
		SET conversation_id = $2, updated_at = $3
		WHERE id = $1`,
		string(id), string(conversationID), at,
	)
	if err != nil {
		return fmt.Errorf("set match conversation: %w", err)
	}
	return nil
}

// CreateTrip debits the requester, records the reservation, inserts the trip and
// completes the match in one transaction. Any zero-row step rolls everything back.
func (s *Store) CreateTrip(ctx context.Context, matchID types.ID, t *trip.Trip, reserve *trip.Movement) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE users
			SET credits = credits - $2, updated_at = $3
			WHERE id = $1 AND credits >= $2 AND deleted_at IS NULL`,
			string(t.UserID), int64(t.EstimatedCredits), t.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("debit requester: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return ErrDebitRejected
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO trips (
				id, match_id, user_id, charter_id, address, lat, lng,
				workers_count, scheduled_at, estimated_credits, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
			string(t.ID), string(t.MatchID), string(t.UserID), string(t.CharterID),
			t.Address, t.Location.Lat, t.Location.Lng,
			t.WorkersCount, t.ScheduledAt, int64(t.EstimatedCredits), string(t.Status), t.CreatedAt,
		)
		if isUniqueViolation(err) {
			// A concurrent conversion already owns this match's trip row.
			return ErrMatchMoved
		}
		if err != nil {
			return fmt.Errorf("insert trip: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO credit_movements (id, user_id, trip_id, delta, reason, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			string(reserve.ID), string(reserve.UserID), string(reserve.TripID),
			int64(reserve.Delta), string(reserve.Reason), reserve.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert reserve movement: %w", err)
		}

		tag, err = tx.Exec(ctx, `
			UPDATE travel_matches
			SET status = 'completed', trip_id = $2, updated_at = $3
			WHERE id = $1 AND status = 'accepted' AND trip_id IS NULL AND deleted_at IS NULL`,
			string(matchID), string(t.ID), t.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("complete match: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return ErrMatchMoved
		}
		return nil
	})
}

// ExpireStale moves searching matches past their window to expired.
func (s *Store) ExpireStale(ctx context.Context, now time.Time) ([]Stale, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE travel_matches
		SET status = 'expired', updated_at = $1
		WHERE status = 'searching' AND expires_at <= $1 AND deleted_at IS NULL
		RETURNING id, user_id`, now)
	if err != nil {
		return nil, fmt.Errorf("expire stale matches: %w", err)
	}
	defer rows.Close()

	var out []Stale
	for rows.Next() {
		var st Stale
		if err := rows.Scan(&st.ID, &st.UserID); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO match_state_events (
			match_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.MatchID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		idPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func idPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	v := string(*id)
	return &v
}

func toIDPtr(v *string) *types.ID {
	if v == nil {
		return nil
	}
	id := types.ID(*v)
	return &id
}

func creditsPtr(c *types.Credits) *int64 {
	if c == nil {
		return nil
	}
	v := int64(*c)
	return &v
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
