package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"memberhub/internal/domain"

	"github.com/google/uuid"
)

type memoryConversation struct {
	conv     domain.Conversation
	lastRead map[string]time.Time // profileID -> read watermark
	messages []*domain.Message    // oldest first
}

// MemoryConversationsRepository keeps direct messages in process.
type MemoryConversationsRepository struct {
	mu    sync.RWMutex
	convs map[string]*memoryConversation
}

func NewMemoryConversationsRepository() *MemoryConversationsRepository {
	return &MemoryConversationsRepository{convs: map[string]*memoryConversation{}}
}

var _ ConversationsRepository = (*MemoryConversationsRepository)(nil)

func copyConversation(c domain.Conversation) *domain.Conversation {
	c.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	return &c
}

func (r *MemoryConversationsRepository) FindDirectConversation(_ context.Context, a, b string) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *domain.Conversation
	for _, mc := range r.convs {
		c := mc.conv
		if len(c.ParticipantIDs) == 2 && c.HasParticipant(a) && c.HasParticipant(b) {
			if found == nil || c.CreatedAt.Before(found.CreatedAt) {
				found = copyConversation(c)
			}
		}
	}
	if found == nil {
		return nil, notFound("conversation")
	}
	return found, nil
}

func (r *MemoryConversationsRepository) CreateConversation(_ context.Context, participantIDs []string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(participantIDs) == 2 {
		key := domain.DirectPairKey(participantIDs[0], participantIDs[1])
		for _, mc := range r.convs {
			if ids := mc.conv.ParticipantIDs; len(ids) == 2 && domain.DirectPairKey(ids[0], ids[1]) == key {
				return copyConversation(mc.conv), nil
			}
		}
	}
	now := time.Now().UTC()
	mc := &memoryConversation{
		conv: domain.Conversation{
			ID:             uuid.NewString(),
			ParticipantIDs: append([]string(nil), participantIDs...),
			CreatedAt:      now,
			LastActivityAt: now,
		},
		lastRead: map[string]time.Time{},
	}
	r.convs[mc.conv.ID] = mc
	return copyConversation(mc.conv), nil
}

func (r *MemoryConversationsRepository) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mc, ok := r.convs[id]
	if !ok {
		return nil, notFound("conversation")
	}
	return copyConversation(mc.conv), nil
}

func (mc *memoryConversation) unread(profileID string) int {
	n := 0
	watermark := mc.lastRead[profileID]
	for _, m := range mc.messages {
		if m.SenderID != profileID && m.CreatedAt.After(watermark) {
			n++
		}
	}
	return n
}

func (r *MemoryConversationsRepository) ListInbox(_ context.Context, profileID string) ([]domain.InboxRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.InboxRow{}
	for _, mc := range r.convs {
		if !mc.conv.HasParticipant(profileID) {
			continue
		}
		row := domain.InboxRow{
			ConversationID: mc.conv.ID,
			OtherID:        mc.conv.OtherParticipant(profileID),
			UnreadCount:    mc.unread(profileID),
			LastActivityAt: mc.conv.LastActivityAt,
		}
		if n := len(mc.messages); n > 0 {
			m := *mc.messages[n-1]
			row.LastMessage = &m
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].LastActivityAt.After(out[j].LastActivityAt)
		}
		return out[i].ConversationID < out[j].ConversationID
	})
	return out, nil
}

func (r *MemoryConversationsRepository) ListMessages(_ context.Context, conversationID string, cursor domain.MessageCursor, limit int) ([]*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Message{}
	mc, ok := r.convs[conversationID]
	if !ok {
		return out, nil
	}
	if limit <= 0 {
		limit = 50
	}
	for _, m := range mc.messages {
		if cursor.Admits(m) {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NewerThan(out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryConversationsRepository) CreateMessage(_ context.Context, m *domain.Message) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mc, ok := r.convs[m.ConversationID]
	if !ok {
		return nil, notFound("conversation")
	}
	c := *m
	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	mc.messages = append(mc.messages, &c)
	mc.conv.LastActivityAt = c.CreatedAt
	out := c
	return &out, nil
}

func (r *MemoryConversationsRepository) MarkRead(_ context.Context, conversationID, profileID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	mc, ok := r.convs[conversationID]
	if !ok || !mc.conv.HasParticipant(profileID) {
		return notFound("conversation participant")
	}
	if at.After(mc.lastRead[profileID]) {
		mc.lastRead[profileID] = at
	}
	return nil
}

func (r *MemoryConversationsRepository) CountUnread(_ context.Context, profileID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, mc := range r.convs {
		if mc.conv.HasParticipant(profileID) {
			n += mc.unread(profileID)
		}
	}
	return n, nil
}

func (r *MemoryConversationsRepository) CountMessagesSince(_ context.Context, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, mc := range r.convs {
		for _, m := range mc.messages {
			if !m.CreatedAt.Before(since) {
				n++
			}
		}
	}
	return n, nil
}
