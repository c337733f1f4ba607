// README: Charter directory entries and availability rows.
package charter

import (
	"time"

	"charterhub/internal/types"
)

// Charter is a verified, available operator with a known origin.
type Charter struct {
	ID            types.ID    `json:"id"`
	Name          string      `json:"name"`
	OriginAddress string      `json:"origin_address,omitempty"`
	Origin        types.Point `json:"origin"`
}

type Availability struct {
	CharterID     types.ID   `json:"charter_id"`
	Available     bool       `json:"available"`
	Configured    bool       `json:"configured"`
	LastToggledAt *time.Time `json:"last_toggled_at,omitempty"`
}

// indexSlackKm widens GEO pre-filter queries so rounding in the index never drops
// a charter that the exact haversine check would keep.
const indexSlackKm = 1.0
