package repository

import (
	"context"
	"database/sql"
	"time"

	"memberhub/internal/domain"
)

// ProfilesRepository stores community members.
// Lookups that miss return an error wrapping domain.ErrNotFound.
type ProfilesRepository interface {
	CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error)
	// GetProfiles returns the profiles that exist among ids, keyed by id.
	GetProfiles(ctx context.Context, ids []string) (map[string]*domain.Profile, error)
	// ListProfiles filters, orders by full name and paginates (page is 1-based).
	ListProfiles(ctx context.Context, filter domain.ProfileFilter, page, size int) ([]*domain.Profile, int, error)
	UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.Profile, error)
	UpdateMembership(ctx context.Context, id string, tier domain.Tier, role domain.Role, status domain.ProfileStatus) (*domain.Profile, error)
	UpdatePasswordHash(ctx context.Context, id string, hash []byte) error
	CountProfiles(ctx context.Context) (*ProfileCounts, error)
}

// ProfileCounts aggregates membership for the admin dashboard.
type ProfileCounts struct {
	Total     int                 `json:"total"`
	Active    int                 `json:"active"`
	Suspended int                 `json:"suspended"`
	ByTier    map[domain.Tier]int `json:"by_tier"`
}

// SpacesRepository stores spaces and their membership rows.
type SpacesRepository interface {
	ListSpaces(ctx context.Context) ([]*domain.Space, error)
	GetSpaceBySlug(ctx context.Context, slug string) (*domain.Space, error)
	CreateSpace(ctx context.Context, s *domain.Space) (*domain.Space, error)
	UpdateSpace(ctx context.Context, slug string, in domain.SpaceInput) (*domain.Space, error)
	DeleteSpace(ctx context.Context, slug string) error

	// AddMember is idempotent; it reports whether a new row was created.
	AddMember(ctx context.Context, spaceID, profileID string) (bool, error)
	RemoveMember(ctx context.Context, spaceID, profileID string) error
	IsMember(ctx context.Context, spaceID, profileID string) (bool, error)
	ListMemberSpaceIDs(ctx context.Context, profileID string) ([]string, error)
}

// PostsRepository stores posts inside spaces.
type PostsRepository interface {
	CreatePost(ctx context.Context, p *domain.Post) (*domain.Post, error)
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	// ListPosts orders pinned posts first, then newest first.
	ListPosts(ctx context.Context, spaceID string, page, size int) ([]*domain.Post, int, error)
	DeletePost(ctx context.Context, id string) error
	CountPosts(ctx context.Context) (int, error)
}

// PartnersRepository stores the partner directory.
type PartnersRepository interface {
	ListPartners(ctx context.Context, category string) ([]*domain.Partner, error)
	GetPartner(ctx context.Context, id string) (*domain.Partner, error)
	CreatePartner(ctx context.Context, p *domain.Partner) (*domain.Partner, error)
	UpdatePartner(ctx context.Context, id string, in domain.PartnerInput) (*domain.Partner, error)
	DeletePartner(ctx context.Context, id string) error
}

// ConversationsRepository stores direct-message threads.
type ConversationsRepository interface {
	FindDirectConversation(ctx context.Context, a, b string) (*domain.Conversation, error)
	// CreateConversation returns the existing thread when two members already share one.
	CreateConversation(ctx context.Context, participantIDs []string) (*domain.Conversation, error)
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	// ListInbox returns one row per conversation of profileID, most recent activity first.
	ListInbox(ctx context.Context, profileID string) ([]domain.InboxRow, error)
	// ListMessages returns up to limit messages sorting before cursor, newest first.
	ListMessages(ctx context.Context, conversationID string, cursor domain.MessageCursor, limit int) ([]*domain.Message, error)
	// CreateMessage persists m and bumps the conversation's last activity.
	CreateMessage(ctx context.Context, m *domain.Message) (*domain.Message, error)
	MarkRead(ctx context.Context, conversationID, profileID string, at time.Time) error
	CountUnread(ctx context.Context, profileID string) (int, error)
	CountMessagesSince(ctx context.Context, since time.Time) (int, error)
}

// EventsRepository stores events and RSVPs.
type EventsRepository interface {
	// ListEvents returns upcoming events ascending or past events descending.
	ListEvents(ctx context.Context, scope domain.EventScope, now time.Time, limit int) ([]*domain.Event, error)
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	CreateEvent(ctx context.Context, e *domain.Event) (*domain.Event, error)
	UpdateEvent(ctx context.Context, id string, in domain.EventInput) (*domain.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	GetRSVP(ctx context.Context, eventID, profileID string) (*domain.RSVP, error)
	// UpsertRSVP enforces capacity for "going" atomically; a full event yields domain.ErrConflict.
	UpsertRSVP(ctx context.Context, r *domain.RSVP) error
	DeleteRSVP(ctx context.Context, eventID, profileID string) error
	ListRSVPsForProfile(ctx context.Context, profileID string) (map[string]domain.RSVPStatus, error)
	ListGoingProfileIDs(ctx context.Context, eventID string) ([]string, error)
	CountUpcoming(ctx context.Context, now time.Time) (int, error)
}

// Repositories bundles every store the services need.
type Repositories struct {
	Profiles      ProfilesRepository
	Spaces        SpacesRepository
	Posts         PostsRepository
	Partners      PartnersRepository
	Conversations ConversationsRepository
	Events        EventsRepository
}

func normalizePage(page, size, def int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = def
	}
	return page, size
}

// NewPostgresRepositories wires every repository to one connection pool.
func NewPostgresRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Profiles:      NewPostgresProfilesRepository(db),
		Spaces:        NewPostgresSpacesRepository(db),
		Posts:         NewPostgresPostsRepository(db),
		Partners:      NewPostgresPartnersRepository(db),
		Conversations: NewPostgresConversationsRepository(db),
		Events:        NewPostgresEventsRepository(db),
	}
}

// NewMemoryRepositories is the in-process fallback used when the DB is disabled or unreachable.
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Profiles:      NewMemoryProfilesRepository(),
		Spaces:        NewMemorySpacesRepository(),
		Posts:         NewMemoryPostsRepository(),
		Partners:      NewMemoryPartnersRepository(),
		Conversations: NewMemoryConversationsRepository(),
		Events:        NewMemoryEventsRepository(),
	}
}
