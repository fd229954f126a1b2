package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"memberhub/internal/domain"
	"memberhub/internal/realtime"
	"memberhub/internal/repository"

	"go.uber.org/zap"
)

const (
	defaultMessagePage = 50
	maxMessagePage     = 100
)

// MessageService runs 1:1 conversations and pushes new messages to participants.
type MessageService interface {
	StartConversation(ctx context.Context, viewer *domain.Profile, recipientID string) (*domain.ConversationSummary, error)
	ListConversations(ctx context.Context, viewer *domain.Profile) ([]domain.ConversationSummary, error)
	ListMessages(ctx context.Context, viewer *domain.Profile, conversationID string, req ListMessagesRequest) (*ListMessagesResponse, error)
	Send(ctx context.Context, viewer *domain.Profile, conversationID, body string) (*domain.Message, error)
	MarkRead(ctx context.Context, viewer *domain.Profile, conversationID string) error
	UnreadCount(ctx context.Context, viewer *domain.Profile) (int, error)
}

type messageService struct {
	conversations repository.ConversationsRepository
	profiles      repository.ProfilesRepository
	broadcaster   realtime.Broadcaster
	logger        *zap.Logger
	now           func() time.Time
}

func NewMessageService(
	conversations repository.ConversationsRepository,
	profiles repository.ProfilesRepository,
	broadcaster realtime.Broadcaster,
	logger *zap.Logger,
) MessageService {
	return &messageService{
		conversations: conversations,
		profiles:      profiles,
		broadcaster:   broadcaster,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ListMessagesRequest pages backwards from (Before, BeforeID); both zero means the newest page.
type ListMessagesRequest struct {
	Before   time.Time
	BeforeID string
	Limit    int
}

// ListMessagesResponse holds one page, oldest first. NextBefore and
// NextBeforeID together page further back.
type ListMessagesResponse struct {
	Items        []*domain.Message `json:"items"`
	HasMore      bool              `json:"has_more"`
	NextBefore   *time.Time        `json:"next_before,omitempty"`
	NextBeforeID string            `json:"next_before_id,omitempty"`
}

// participantConversation loads a conversation the viewer belongs to.
func (s *messageService) participantConversation(ctx context.Context, viewer *domain.Profile, id string) (*domain.Conversation, error) {
	c, err := s.conversations.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.HasParticipant(viewer.ID) {
		return nil, fmt.Errorf("%w: not a participant", domain.ErrForbidden)
	}
	return c, nil
}

func (s *messageService) StartConversation(ctx context.Context, viewer *domain.Profile, recipientID string) (*domain.ConversationSummary, error) {
	if recipientID == "" {
		return nil, fmt.Errorf("%w: recipient_id is required", domain.ErrInvalidInput)
	}
	if recipientID == viewer.ID {
		return nil, fmt.Errorf("%w: cannot message yourself", domain.ErrInvalidInput)
	}
	recipient, err := s.profiles.GetProfile(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if !recipient.IsActive() {
		return nil, fmt.Errorf("member %w", domain.ErrNotFound)
	}

	c, err := s.conversations.FindDirectConversation(ctx, viewer.ID, recipient.ID)
	if errors.Is(err, domain.ErrNotFound) {
		c, err = s.conversations.CreateConversation(ctx, []string{viewer.ID, recipient.ID})
		if err == nil {
			s.logger.Info("Conversation started",
				zap.String("conversation_id", c.ID),
				zap.String("profile_id", viewer.ID),
			)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation: %w", err)
	}

	card := recipient.Card()
	return &domain.ConversationSummary{
		ID:             c.ID,
		Other:          &card,
		LastActivityAt: c.LastActivityAt,
	}, nil
}

func (s *messageService) ListConversations(ctx context.Context, viewer *domain.Profile) ([]domain.ConversationSummary, error) {
	rows, err := s.conversations.ListInbox(ctx, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	out := make([]domain.ConversationSummary, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.OtherID)
	}
	others, err := s.profiles.GetProfiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}

	for _, r := range rows {
		summary := domain.ConversationSummary{
			ID:             r.ConversationID,
			LastMessage:    r.LastMessage,
			UnreadCount:    r.UnreadCount,
			LastActivityAt: r.LastActivityAt,
		}
		if p, ok := others[r.OtherID]; ok {
			card := p.Card()
			summary.Other = &card
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *messageService) ListMessages(ctx context.Context, viewer *domain.Profile, conversationID string, req ListMessagesRequest) (*ListMessagesResponse, error) {
	if _, err := s.participantConversation(ctx, viewer, conversationID); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultMessagePage
	}
	if limit > maxMessagePage {
		limit = maxMessagePage
	}

	if req.Before.IsZero() && req.BeforeID != "" {
		return nil, fmt.Errorf("%w: before_id requires before", domain.ErrInvalidInput)
	}
	cursor := domain.MessageCursor{Before: req.Before, BeforeID: req.BeforeID}
	msgs, err := s.conversations.ListMessages(ctx, conversationID, cursor, limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	resp := &ListMessagesResponse{}
	if len(msgs) > limit {
		msgs = msgs[:limit]
		resp.HasMore = true
	}
	// newest-first from the store; the page reads oldest-first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if resp.HasMore && len(msgs) > 0 {
		oldest := msgs[0].CreatedAt
		resp.NextBefore = &oldest
		resp.NextBeforeID = msgs[0].ID
	}
	resp.Items = msgs
	if resp.Items == nil {
		resp.Items = []*domain.Message{}
	}
	return resp, nil
}

func (s *messageService) Send(ctx context.Context, viewer *domain.Profile, conversationID, body string) (*domain.Message, error) {
	c, err := s.participantConversation(ctx, viewer, conversationID)
	if err != nil {
		return nil, err
	}
	msg, err := domain.NewMessage(c.ID, viewer.ID, body)
	if err != nil {
		return nil, err
	}
	msg.CreatedAt = s.now()

	created, err := s.conversations.CreateMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	// the sender has read everything up to their own message
	if err := s.conversations.MarkRead(ctx, c.ID, viewer.ID, created.CreatedAt); err != nil {
		s.logger.Warn("mark read after send failed", zap.String("conversation_id", c.ID), zap.Error(err))
	}

	s.push(ctx, realtime.EventMessageCreated, c.ParticipantIDs, created)
	return created, nil
}

func (s *messageService) MarkRead(ctx context.Context, viewer *domain.Profile, conversationID string) error {
	c, err := s.participantConversation(ctx, viewer, conversationID)
	if err != nil {
		return err
	}
	at := s.now()
	if err := s.conversations.MarkRead(ctx, c.ID, viewer.ID, at); err != nil {
		return fmt.Errorf("failed to mark conversation read: %w", err)
	}
	s.push(ctx, realtime.EventConversationRead, c.ParticipantIDs, map[string]any{
		"conversation_id": c.ID,
		"profile_id":      viewer.ID,
		"read_at":         at,
	})
	return nil
}

func (s *messageService) UnreadCount(ctx context.Context, viewer *domain.Profile) (int, error) {
	return s.conversations.CountUnread(ctx, viewer.ID)
}

// push fans a realtime event out; delivery problems never fail the request.
func (s *messageService) push(ctx context.Context, eventType string, recipients []string, data any) {
	if s.broadcaster == nil {
		return
	}
	env, err := realtime.NewEnvelope(eventType, recipients, data)
	if err != nil {
		s.logger.Error("realtime encode failed", zap.Error(err))
		return
	}
	if err := s.broadcaster.Publish(ctx, env); err != nil {
		s.logger.Warn("realtime publish failed", zap.String("type", eventType), zap.Error(err))
	}
}
