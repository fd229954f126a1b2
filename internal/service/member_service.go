package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"memberhub/internal/domain"
	"memberhub/internal/repository"

	"go.uber.org/zap"
)

// MemberService serves the member directory and profile settings.
type MemberService interface {
	List(ctx context.Context, viewer *domain.Profile, req ListMembersRequest) (*ListMembersResponse, error)
	Get(ctx context.Context, viewer *domain.Profile, id string) (*domain.ProfileCard, error)
	UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*domain.Profile, error)
}

type memberService struct {
	profiles repository.ProfilesRepository
	logger   *zap.Logger
}

func NewMemberService(profiles repository.ProfilesRepository, logger *zap.Logger) MemberService {
	return &memberService{profiles: profiles, logger: logger}
}

type ListMembersRequest struct {
	Query    string
	Tier     string
	Location string
	Interest string
	Page     int
	Size     int
}

// Filter validates the request into a repository filter.
func (r ListMembersRequest) Filter() (domain.ProfileFilter, error) {
	f := domain.ProfileFilter{
		Query:    strings.TrimSpace(r.Query),
		Location: strings.TrimSpace(r.Location),
		Interest: strings.ToLower(strings.TrimSpace(r.Interest)),
	}
	if strings.TrimSpace(r.Tier) != "" {
		t, err := domain.ParseTier(r.Tier)
		if err != nil {
			return f, err
		}
		f.Tier = t
	}
	return f, nil
}

type ListMembersResponse struct {
	Items []domain.ProfileCard `json:"items"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
	Size  int                  `json:"size"`
}

func (s *memberService) List(ctx context.Context, viewer *domain.Profile, req ListMembersRequest) (*ListMembersResponse, error) {
	filter, err := req.Filter()
	if err != nil {
		return nil, err
	}
	filter.IncludeSuspended = viewer.IsAdmin()
	page, size := clampPage(req.Page, req.Size, defaultPageSize)

	profiles, total, err := s.profiles.ListProfiles(ctx, filter, page, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	items := make([]domain.ProfileCard, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, p.Card())
	}
	return &ListMembersResponse{Items: items, Total: total, Page: page, Size: size}, nil
}

func (s *memberService) Get(ctx context.Context, viewer *domain.Profile, id string) (*domain.ProfileCard, error) {
	p, err := s.profiles.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() && !viewer.IsAdmin() {
		return nil, fmt.Errorf("member %w", domain.ErrNotFound)
	}
	card := p.Card()
	return &card, nil
}

// UpdateProfileRequest carries optional settings fields; nil leaves a field unchanged.
type UpdateProfileRequest struct {
	FullName  *string  `json:"full_name"`
	Headline  *string  `json:"headline"`
	Bio       *string  `json:"bio"`
	Location  *string  `json:"location"`
	Company   *string  `json:"company"`
	AvatarURL *string  `json:"avatar_url"`
	Interests []string `json:"interests"`
}

func optionalText(field string, v *string, max int, required bool) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s, err := limitText(field, *v, max, required)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r UpdateProfileRequest) patch() (domain.ProfilePatch, error) {
	var (
		p   domain.ProfilePatch
		err error
	)
	if p.FullName, err = optionalText("full_name", r.FullName, maxNameLength, true); err != nil {
		return p, err
	}
	if p.Headline, err = optionalText("headline", r.Headline, 140, false); err != nil {
		return p, err
	}
	if p.Bio, err = optionalText("bio", r.Bio, 2000, false); err != nil {
		return p, err
	}
	if p.Location, err = optionalText("location", r.Location, 120, false); err != nil {
		return p, err
	}
	if p.Company, err = optionalText("company", r.Company, 120, false); err != nil {
		return p, err
	}
	if p.AvatarURL, err = optionalText("avatar_url", r.AvatarURL, 500, false); err != nil {
		return p, err
	}
	if p.AvatarURL != nil {
		if err := checkURL("avatar_url", *p.AvatarURL); err != nil {
			return p, err
		}
	}
	if r.Interests != nil {
		p.Interests = domain.NormalizeInterests(r.Interests)
	}
	return p, nil
}

func (s *memberService) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*domain.Profile, error) {
	patch, err := req.patch()
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.UpdateProfile(ctx, id, patch)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	s.logger.Info("Profile updated", zap.String("profile_id", id))
	return p, nil
}
