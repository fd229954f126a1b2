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

// exportLimit bounds a single spreadsheet export.
const exportLimit = 10000

// AdminService backs the admin panel.
type AdminService interface {
	Stats(ctx context.Context) (*AdminStats, error)
	ListMembers(ctx context.Context, req ListMembersRequest) (*AdminMembersResponse, error)
	UpdateMember(ctx context.Context, admin *domain.Profile, id string, req UpdateMemberRequest) (*AdminMember, error)
	ExportMembers(ctx context.Context, req ListMembersRequest) ([]byte, error)
}

type adminService struct {
	repos  *repository.Repositories
	cache  *store.RouteCache
	logger *zap.Logger
	now    func() time.Time
}

func NewAdminService(repos *repository.Repositories, cache *store.RouteCache, logger *zap.Logger) AdminService {
	return &adminService{
		repos:  repos,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type AdminStats struct {
	Members        repository.ProfileCounts `json:"members"`
	Spaces         int                      `json:"spaces"`
	Posts          int                      `json:"posts"`
	UpcomingEvents int                      `json:"upcoming_events"`
	MessagesLast7d int                      `json:"messages_last_7d"`
}

// AdminMember is a directory card plus the fields only admins see.
type AdminMember struct {
	domain.ProfileCard
	Email  string               `json:"email"`
	Role   domain.Role          `json:"role"`
	Status domain.ProfileStatus `json:"status"`
}

func adminMember(p *domain.Profile) AdminMember {
	return AdminMember{ProfileCard: p.Card(), Email: p.Email, Role: p.Role, Status: p.Status}
}

type AdminMembersResponse struct {
	Items []AdminMember `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
}

// UpdateMemberRequest changes membership fields; empty fields are left alone.
type UpdateMemberRequest struct {
	Tier   string `json:"tier"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

func (s *adminService) Stats(ctx context.Context) (*AdminStats, error) {
	var (
		stats  AdminStats
		counts *repository.ProfileCounts
		spaces []*domain.Space
	)
	now := s.now()
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
		stats.Posts, err = s.repos.Posts.CountPosts(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.UpcomingEvents, err = s.repos.Events.CountUpcoming(gctx, now)
		return err
	})
	g.Go(func() (err error) {
		stats.MessagesLast7d, err = s.repos.Conversations.CountMessagesSince(gctx, now.Add(-7*24*time.Hour))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	stats.Members = *counts
	stats.Spaces = len(spaces)
	return &stats, nil
}

func (s *adminService) ListMembers(ctx context.Context, req ListMembersRequest) (*AdminMembersResponse, error) {
	filter, err := req.Filter()
	if err != nil {
		return nil, err
	}
	filter.IncludeSuspended = true
	page, size := clampPage(req.Page, req.Size, defaultPageSize)

	profiles, total, err := s.repos.Profiles.ListProfiles(ctx, filter, page, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	items := make([]AdminMember, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, adminMember(p))
	}
	return &AdminMembersResponse{Items: items, Total: total, Page: page, Size: size}, nil
}

func (s *adminService) UpdateMember(ctx context.Context, admin *domain.Profile, id string, req UpdateMemberRequest) (*AdminMember, error) {
	current, err := s.repos.Profiles.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	tier, role, status := current.Tier, current.Role, current.Status
	if req.Tier != "" {
		if tier, err = domain.ParseTier(req.Tier); err != nil {
			return nil, err
		}
	}
	if req.Role != "" {
		role = domain.Role(req.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, req.Role)
		}
	}
	if req.Status != "" {
		status = domain.ProfileStatus(req.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, req.Status)
		}
	}
	if admin.ID == id && (role != domain.RoleAdmin || status != domain.StatusActive) {
		return nil, fmt.Errorf("%w: admins cannot demote or suspend themselves", domain.ErrForbidden)
	}

	updated, err := s.repos.Profiles.UpdateMembership(ctx, id, tier, role, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Member updated",
		zap.String("profile_id", id),
		zap.String("admin_id", admin.ID),
		zap.String("tier", string(tier)),
		zap.String("role", string(role)),
		zap.String("status", string(status)),
	)
	s.cache.Revalidate(ctx, TagOverview)
	m := adminMember(updated)
	return &m, nil
}

func (s *adminService) ExportMembers(ctx context.Context, req ListMembersRequest) ([]byte, error) {
	filter, err := req.Filter()
	if err != nil {
		return nil, err
	}
	filter.IncludeSuspended = true
	profiles, _, err := s.repos.Profiles.ListProfiles(ctx, filter, 1, exportLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	data, err := GenerateMemberExport(profiles)
	if err != nil {
		s.logger.Error("ExportMembers failed", zap.Error(err))
		return nil, err
	}
	return data, nil
}
