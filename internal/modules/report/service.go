// README: Report service: file a report (archiving the conversation first), admin review and resolution.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"charterhub/internal/apperr"
	"charterhub/internal/modules/conversation"
	"charterhub/internal/types"
)

type Repository interface {
	Create(ctx context.Context, r *Report) error
	Exists(ctx context.Context, conversationID, reporterID types.ID) (bool, error)
	Get(ctx context.Context, id types.ID) (*Report, error)
	List(ctx context.Context, status Status) ([]Report, error)
	ListByReporter(ctx context.Context, reporterID types.ID) ([]Report, error)
	ListAgainst(ctx context.Context, reportedID types.ID) ([]Report, error)
	Update(ctx context.Context, r *Report) error
}

type Conversations interface {
	Lookup(ctx context.Context, conversationID types.ID) (*conversation.Conversation, error)
	Archive(ctx context.Context, conversationID types.ID) error
	History(ctx context.Context, conversationID types.ID) ([]conversation.Message, error)
}

type Service struct {
	store Repository
	convs Conversations
	clock *types.Clock
	log   *zap.Logger
}

func NewService(store Repository, convs Conversations, clock *types.Clock, log *zap.Logger) *Service {
	return &Service{store: store, convs: convs, clock: clock, log: log}
}

type CreateCommand struct {
	ConversationID types.ID `json:"conversation_id"`
	ReportedID     types.ID `json:"reported_id"`
	Reason         string   `json:"reason"`
	Description    string   `json:"description"`
}

// Create files a report against the other member of a conversation. The conversation is
// archived first so the sweeper cannot delete the evidence; if archiving fails no report is written.
func (s *Service) Create(ctx context.Context, reporterID types.ID, cmd CreateCommand) (*Report, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" || utf8.RuneCountInString(reason) > MaxReasonLength {
		return nil, apperr.Validation(fmt.Sprintf("reason must be 1..%d characters", MaxReasonLength))
	}
	description := strings.TrimSpace(cmd.Description)
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return nil, apperr.Validation(fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}

	c, err := s.convs.Lookup(ctx, cmd.ConversationID)
	if err != nil {
		return nil, err
	}
	if !c.IsMember(reporterID) {
		return nil, apperr.Forbidden("not a member of this conversation")
	}
	if cmd.ReportedID != c.Other(reporterID) {
		return nil, apperr.Validation("only the other member of the conversation can be reported")
	}

	exists, err := s.store.Exists(ctx, c.ID, reporterID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("conversation already reported")
	}

	if err := s.convs.Archive(ctx, c.ID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	r := &Report{
		ID:             types.NewID(),
		ConversationID: c.ID,
		ReporterID:     reporterID,
		ReportedID:     cmd.ReportedID,
		Reason:         reason,
		Description:    description,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.store.Create(ctx, r)
	if errors.Is(err, ErrDuplicate) {
		return nil, apperr.Conflict("conversation already reported")
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("report filed",
		zap.String("report_id", string(r.ID)),
		zap.String("conversation_id", string(c.ID)),
		zap.String("reporter_id", string(reporterID)),
		zap.String("reported_id", string(r.ReportedID)))
	return r, nil
}

func (s *Service) List(ctx context.Context, status string) ([]Report, error) {
	var st Status
	if status != "" {
		var ok bool
		if st, ok = ParseStatus(status); !ok {
			return nil, apperr.Validation(fmt.Sprintf("unknown report status %q", status))
		}
	}
	return s.store.List(ctx, st)
}

// Get returns the report with its conversation and full message history.
func (s *Service) Get(ctx context.Context, reportID types.ID) (*Detail, error) {
	r, err := s.store.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	c, err := s.convs.Lookup(ctx, r.ConversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.convs.History(ctx, r.ConversationID)
	if err != nil {
		return nil, err
	}
	return &Detail{Report: r, Conversation: c, Messages: msgs}, nil
}

type UpdateCommand struct {
	Status     *string `json:"status"`
	AdminNotes *string `json:"admin_notes"`
}

func (s *Service) Update(ctx context.Context, adminID, reportID types.ID, cmd UpdateCommand) (*Report, error) {
	r, err := s.store.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	if cmd.Status != nil {
		st, ok := ParseStatus(*cmd.Status)
		if !ok {
			return nil, apperr.Validation(fmt.Sprintf("unknown report status %q", *cmd.Status))
		}
		r.Status = st
		if st.Closes() {
			r.ResolvedBy = &adminID
			r.ResolvedAt = &now
		} else {
			// reopened
			r.ResolvedBy = nil
			r.ResolvedAt = nil
		}
	}
	if cmd.AdminNotes != nil {
		if utf8.RuneCountInString(*cmd.AdminNotes) > MaxAdminNotesLength {
			return nil, apperr.Validation(fmt.Sprintf("admin_notes must be at most %d characters", MaxAdminNotesLength))
		}
		notes := *cmd.AdminNotes
		r.AdminNotes = &notes
	}
	r.UpdatedAt = now

	if err := s.store.Update(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("report updated",
		zap.String("report_id", string(r.ID)),
		zap.String("status", string(r.Status)),
		zap.String("admin_id", string(adminID)))
	return r, nil
}

func (s *Service) ListByReporter(ctx context.Context, reporterID types.ID) ([]Report, error) {
	return s.store.ListByReporter(ctx, reporterID)
}

func (s *Service) ListAgainst(ctx context.Context, reportedID types.ID) ([]Report, error) {
	return s.store.ListAgainst(ctx, reportedID)
}
