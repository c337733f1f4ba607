// README: Trip aggregate, status definitions and the settlement ledger entry.
package trip

import (
	"time"

	"charterhub/internal/types"
)

type Status string

const (
	StatusPending          Status = "pending"
	StatusCharterCompleted Status = "charter_completed"
	StatusCompleted        Status = "completed"
	StatusCancelled        Status = "cancelled"
)

// Trip is created from an accepted match once the requester commits credits.
type Trip struct {
	ID                 types.ID      `json:"id"`
	MatchID            types.ID      `json:"match_id"`
	UserID             types.ID      `json:"user_id"`
	CharterID          types.ID      `json:"charter_id"`
	Address            string        `json:"address"`
	Location           types.Point   `json:"location"`
	WorkersCount       int           `json:"workers_count"`
	ScheduledAt        *time.Time    `json:"scheduled_at,omitempty"`
	EstimatedCredits   types.Credits `json:"estimated_credits"`
	Status             Status        `json:"status"`
	CharterCompletedAt *time.Time    `json:"charter_completed_at,omitempty"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

func (t *Trip) IsParticipant(userID types.ID) bool {
	return userID != "" && (userID == t.UserID || userID == t.CharterID)
}

// AllowedTransitions is the two-phase completion handshake as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:          {StatusCharterCompleted, StatusCancelled},
	StatusCharterCompleted: {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

type MovementReason string

const (
	ReasonTripReserve MovementReason = "trip_reserve"
	ReasonTripPayout  MovementReason = "trip_payout"
)

// Movement is one credit_movements ledger row, written in the same transaction as the balance change.
type Movement struct {
	ID        types.ID
	UserID    types.ID
	TripID    types.ID
	Delta     types.Credits
	Reason    MovementReason
	CreatedAt time.Time
}
