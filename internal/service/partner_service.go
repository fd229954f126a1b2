package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"memberhub/internal/domain"
	"memberhub/internal/repository"
	"memberhub/internal/store"

	"go.uber.org/zap"
)

// PartnerService serves the partner directory. Perks stay hidden below the partner's tier.
type PartnerService interface {
	List(ctx context.Context, viewer *domain.Profile, category string) ([]domain.PartnerView, error)
	Create(ctx context.Context, req PartnerRequest) (*domain.Partner, error)
	Update(ctx context.Context, id string, req PartnerRequest) (*domain.Partner, error)
	Delete(ctx context.Context, id string) error
}

type partnerService struct {
	partners repository.PartnersRepository
	cache    *store.RouteCache
	logger   *zap.Logger
}

func NewPartnerService(partners repository.PartnersRepository, cache *store.RouteCache, logger *zap.Logger) PartnerService {
	return &partnerService{partners: partners, cache: cache, logger: logger}
}

type PartnerRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Website     string `json:"website"`
	Perk        string `json:"perk"`
	MinTier     string `json:"min_tier"`
	LogoURL     string `json:"logo_url"`
}

func checkURL(field, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s must be an http(s) URL", domain.ErrInvalidInput, field)
	}
	return nil
}

func (r PartnerRequest) input() (domain.PartnerInput, error) {
	var (
		in  domain.PartnerInput
		err error
	)
	if in.Name, err = limitText("name", r.Name, 120, true); err != nil {
		return in, err
	}
	if in.Category, err = limitText("category", r.Category, 60, false); err != nil {
		return in, err
	}
	if in.Description, err = limitText("description", r.Description, 2000, false); err != nil {
		return in, err
	}
	if in.Perk, err = limitText("perk", r.Perk, 500, false); err != nil {
		return in, err
	}
	in.Website = strings.TrimSpace(r.Website)
	in.LogoURL = strings.TrimSpace(r.LogoURL)
	if err := checkURL("website", in.Website); err != nil {
		return in, err
	}
	if err := checkURL("logo_url", in.LogoURL); err != nil {
		return in, err
	}
	in.MinTier = domain.TierSilver
	if r.MinTier != "" {
		if in.MinTier, err = domain.ParseTier(r.MinTier); err != nil {
			return in, err
		}
	}
	return in, nil
}

func (s *partnerService) List(ctx context.Context, viewer *domain.Profile, category string) ([]domain.PartnerView, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	var partners []*domain.Partner
	err := s.cache.Remember(ctx, TagPartners, "category:"+category, 0, &partners, func(ctx context.Context) (any, error) {
		return s.partners.ListPartners(ctx, category)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
	}

	views := make([]domain.PartnerView, 0, len(partners))
	for _, p := range partners {
		v := domain.PartnerView{Partner: *p}
		if !viewer.CanAccess(p.MinTier) {
			v.Perk = ""
			v.Locked = true
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *partnerService) Create(ctx context.Context, req PartnerRequest) (*domain.Partner, error) {
	in, err := req.input()
	if err != nil {
		return nil, err
	}
	p, err := s.partners.CreatePartner(ctx, &domain.Partner{
		Name:        in.Name,
		Category:    in.Category,
		Description: in.Description,
		Website:     in.Website,
		Perk:        in.Perk,
		MinTier:     in.MinTier,
		LogoURL:     in.LogoURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create partner: %w", err)
	}
	s.cache.Revalidate(ctx, TagPartners)
	return p, nil
}

func (s *partnerService) Update(ctx context.Context, id string, req PartnerRequest) (*domain.Partner, error) {
	in, err := req.input()
	if err != nil {
		return nil, err
	}
	p, err := s.partners.UpdatePartner(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.cache.Revalidate(ctx, TagPartners)
	return p, nil
}

func (s *partnerService) Delete(ctx context.Context, id string) error {
	if err := s.partners.DeletePartner(ctx, id); err != nil {
		return err
	}
	s.cache.Revalidate(ctx, TagPartners)
	return nil
}
