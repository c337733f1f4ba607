// README: Travel match aggregate, candidate ranking rows and the match state flow.
package matching

import (
	"time"

	"charterhub/internal/modules/geo"
	"charterhub/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusSearching Status = "searching"
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

const (
	DefaultTTL      = 30 * time.Minute
	DefaultRadiusKm = 30.0
	MinRadiusKm     = 1.0
	MaxRadiusKm     = 100.0
	MaxWorkers      = 10
)

// AllowedTransitions represents the match state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusNone:      {StatusSearching},
	StatusSearching: {StatusPending, StatusCancelled, StatusExpired},
	StatusPending:   {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:  {StatusCompleted, StatusCancelled},
	StatusRejected:  {StatusCancelled},
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

func ParseStatus(v string) (Status, bool) {
	switch s := Status(v); s {
	case StatusSearching, StatusPending, StatusAccepted, StatusRejected,
		StatusCompleted, StatusCancelled, StatusExpired:
		return s, true
	}
	return "", false
}

type TravelMatch struct {
	ID                 types.ID        `json:"id"`
	UserID             types.ID        `json:"user_id"`
	CharterID          *types.ID       `json:"charter_id,omitempty"`
	PickupAddress      string          `json:"pickup_address"`
	Pickup             types.Point     `json:"pickup"`
	DestinationAddress string          `json:"destination_address"`
	Destination        types.Point     `json:"destination"`
	ScheduledAt        *time.Time      `json:"scheduled_at,omitempty"`
	MaxRadiusKm        float64         `json:"max_radius_km"`
	WorkersCount       int             `json:"workers_count"`
	DistanceKm         *float64        `json:"distance_km,omitempty"`
	EstimatedCredits   *types.Credits  `json:"estimated_credits,omitempty"`
	Status             Status          `json:"status"`
	ExpiresAt          time.Time       `json:"expires_at"`
	TripID             *types.ID       `json:"trip_id,omitempty"`
	ConversationID     *types.ID       `json:"conversation_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Lifecycle          types.Lifecycle `json:"-"`
}

func (m *TravelMatch) IsCharter(userID types.ID) bool {
	return m.CharterID != nil && *m.CharterID == userID
}

func (m *TravelMatch) IsMember(userID types.ID) bool {
	return userID != "" && (m.UserID == userID || m.IsCharter(userID))
}

// Candidate is one ranked charter offer returned by CreateMatch.
type Candidate struct {
	CharterID        types.ID            `json:"charter_id"`
	Name             string              `json:"name"`
	OriginAddress    string              `json:"origin_address,omitempty"`
	Origin           types.Point         `json:"origin"`
	Distances        geo.TravelDistances `json:"distances"`
	EstimatedCredits types.Credits       `json:"estimated_credits"`
}

type Event struct {
	ID         int64
	MatchID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

const (
	ActorUser    = "user"
	ActorCharter = "charter"
	ActorSystem  = "system"
)

// Stale identifies a match moved to expired by the sweeper.
type Stale struct {
	ID     types.ID
	UserID types.ID
}
