// README: Report aggregate and moderation statuses.
package report

import (
	"time"

	"charterhub/internal/modules/conversation"
	"charterhub/internal/types"
)

type Status string

const (
	StatusPending       Status = "pending"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusDismissed     Status = "dismissed"
)

const (
	MaxReasonLength      = 200
	MaxDescriptionLength = 1000
	MaxAdminNotesLength  = 2000
)

func ParseStatus(v string) (Status, bool) {
	switch s := Status(v); s {
	case StatusPending, StatusInvestigating, StatusResolved, StatusDismissed:
		return s, true
	}
	return "", false
}

// Closes reports whether moving to s stamps the resolver.
func (s Status) Closes() bool { return s == StatusResolved || s == StatusDismissed }

type Report struct {
	ID             types.ID   `json:"id"`
	ConversationID types.ID   `json:"conversation_id"`
	ReporterID     types.ID   `json:"reporter_id"`
	ReportedID     types.ID   `json:"reported_id"`
	Reason         string     `json:"reason"`
	Description    string     `json:"description,omitempty"`
	Status         Status     `json:"status"`
	AdminNotes     *string    `json:"admin_notes,omitempty"`
	ResolvedBy     *types.ID  `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Detail is what an admin reviews: the report plus the preserved conversation.
type Detail struct {
	Report       *Report                     `json:"report"`
	Conversation *conversation.Conversation `json:"conversation"`
	Messages     []conversation.Message      `json:"messages"`
}
