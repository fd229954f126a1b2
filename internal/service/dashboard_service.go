package service

import (
	"context"
	"fmt"
	"time"

	"memberhub/internal/domain"
	"memberhub/internal/repository"
	"memberhub/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	overviewEventCount  = 3
	dashboardEventCount = 5
)

// DashboardService assembles the member home page and the public marketing data.
type DashboardService interface {
	Dashboard(ctx context.Context, viewer *domain.Profile) (*DashboardResponse, error)
	Overview(ctx context.Context) (*OverviewResponse, error)
	Tiers() []domain.TierInfo
}

type dashboardService struct {
	repos  *repository.Repositories
	prefs  *store.Preferences
	cache  *store.RouteCache
	logger *zap.Logger
	now    func() time.Time
}

func NewDashboardService(repos *repository.Repositories, prefs *store.Preferences, cache *store.RouteCache, logger *zap.Logger) DashboardService {
	return &dashboardService{
		repos:  repos,
		prefs:  prefs,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type DashboardResponse struct {
	Profile        domain.ProfileCard `json:"profile"`
	Role           domain.Role        `json:"role"`
	Spaces         []*domain.Space    `json:"spaces"`
	UpcomingEvents []domain.EventView `json:"upcoming_events"`
	UnreadMessages int                `json:"unread_messages"`
	Preferences    domain.Preferences `json:"preferences"`
}

// PublicEvent is the subset of an event shown to visitors.
type PublicEvent struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Location string      `json:"location"`
	StartsAt time.Time   `json:"starts_at"`
	MinTier  domain.Tier `json:"min_tier"`
}

type OverviewResponse struct {
	MemberCount    int               `json:"member_count"`
	SpaceCount     int               `json:"space_count"`
	UpcomingEvents []PublicEvent     `json:"upcoming_events"`
	Tiers          []domain.TierInfo `json:"tiers"`
}

func (s *dashboardService) Dashboard(ctx context.Context, viewer *domain.Profile) (*DashboardResponse, error) {
	resp := &DashboardResponse{
		Profile: viewer.Card(),
		Role:    viewer.Role,
	}
	now := s.now()

	var (
		spaces   []*domain.Space
		joined   []string
		events   []*domain.Event
		rsvps    map[string]domain.RSVPStatus
		unread   int
		settings domain.Preferences
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		spaces, err = s.repos.Spaces.ListSpaces(gctx)
		return err
	})
	g.Go(func() (err error) {
		joined, err = s.repos.Spaces.ListMemberSpaceIDs(gctx, viewer.ID)
		return err
	})
	g.Go(func() (err error) {
		events, err = s.repos.Events.ListEvents(gctx, domain.ScopeUpcoming, now, 0)
		return err
	})
	g.Go(func() (err error) {
		rsvps, err = s.repos.Events.ListRSVPsForProfile(gctx, viewer.ID)
		return err
	})
	g.Go(func() (err error) {
		unread, err = s.repos.Conversations.CountUnread(gctx, viewer.ID)
		return err
	})
	g.Go(func() (err error) {
		settings, err = s.prefs.Get(gctx, viewer.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}

	member := make(map[string]bool, len(joined))
	for _, id := range joined {
		member[id] = true
	}
	resp.Spaces = make([]*domain.Space, 0, len(joined))
	for _, sp := range spaces {
		if member[sp.ID] {
			resp.Spaces = append(resp.Spaces, sp)
		}
	}

	resp.UpcomingEvents = make([]domain.EventView, 0, dashboardEventCount)
	for _, e := range events {
		st, ok := rsvps[e.ID]
		if !ok {
			continue
		}
		resp.UpcomingEvents = append(resp.UpcomingEvents, domain.EventView{Event: *e, RSVP: st})
		if len(resp.UpcomingEvents) == dashboardEventCount {
			break
		}
	}
	resp.UnreadMessages = unread
	resp.Preferences = settings
	return resp, nil
}

func (s *dashboardService) Overview(ctx context.Context) (*OverviewResponse, error) {
	var resp OverviewResponse
	err := s.cache.Remember(ctx, TagOverview, "public", 0, &resp, func(ctx context.Context) (any, error) {
		return s.loadOverview(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *dashboardService) loadOverview(ctx context.Context) (*OverviewResponse, error) {
	var (
		counts *repository.ProfileCounts
		spaces []*domain.Space
		events []*domain.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts, err = s.repos.Profiles.CountProfiles(gctx)
		return err
	})
	g.Go(func() (err error) {
		spaces, err = s.repos.Spaces.ListSpaces(gctx)
		return err
	})
	g.Go(func() (err error) {
		events, err = s.repos.Events.ListEvents(gctx, domain.ScopeUpcoming, s.now(), overviewEventCount)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load overview: %w", err)
	}

	resp := &OverviewResponse{
		MemberCount:    counts.Active,
		SpaceCount:     len(spaces),
		UpcomingEvents: make([]PublicEvent, 0, len(events)),
		Tiers:          domain.TierCatalog(),
	}
	for _, e := range events {
		resp.UpcomingEvents = append(resp.UpcomingEvents, PublicEvent{
			ID:       e.ID,
			Title:    e.Title,
			Location: e.Location,
			StartsAt: e.StartsAt,
			MinTier:  e.MinTier,
		})
	}
	return resp, nil
}

func (s *dashboardService) Tiers() []domain.TierInfo {
	return domain.TierCatalog()
}
