// README: Shared identifiers, coordinates and lifecycle markers used across modules.
package types

import (
	"github.com/google/uuid"
)

type ID string

// NewID returns a time-ordered identifier, so ids sort in creation order.
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		return ID(uuid.NewString())
	}
	return ID(id.String())
}

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Lifecycle replaces the nullable deleted_at convention with an explicit state.
type Lifecycle int

const (
	LifecycleActive Lifecycle = iota
	LifecycleDeleted
)

func (l Lifecycle) Usable() bool { return l == LifecycleActive }

func (l Lifecycle) String() string {
	if l == LifecycleDeleted {
		return "deleted"
	}
	return "active"
}
