package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"memberhub/internal/domain"

	"github.com/google/uuid"
)

// MemoryPartnersRepository keeps the partner directory in process.
type MemoryPartnersRepository struct {
	mu       sync.RWMutex
	partners map[string]*domain.Partner
}

func NewMemoryPartnersRepository() *MemoryPartnersRepository {
	return &MemoryPartnersRepository{partners: map[string]*domain.Partner{}}
}

var _ PartnersRepository = (*MemoryPartnersRepository)(nil)

func (r *MemoryPartnersRepository) ListPartners(_ context.Context, category string) ([]*domain.Partner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	category = strings.TrimSpace(category)
	out := []*domain.Partner{}
	for _, p := range r.partners {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryPartnersRepository) GetPartner(_ context.Context, id string) (*domain.Partner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.partners[id]
	if !ok {
		return nil, notFound("partner")
	}
	c := *p
	return &c, nil
}

func (r *MemoryPartnersRepository) CreatePartner(_ context.Context, p *domain.Partner) (*domain.Partner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *p
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	r.partners[c.ID] = &c
	out := c
	return &out, nil
}

func (r *MemoryPartnersRepository) UpdatePartner(_ context.Context, id string, in domain.PartnerInput) (*domain.Partner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.partners[id]
	if !ok {
		return nil, notFound("partner")
	}
	p.Name, p.Category, p.Description = in.Name, in.Category, in.Description
	p.Website, p.Perk, p.MinTier, p.LogoURL = in.Website, in.Perk, in.MinTier, in.LogoURL
	c := *p
	return &c, nil
}

func (r *MemoryPartnersRepository) DeletePartner(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.partners[id]; !ok {
		return notFound("partner")
	}
	delete(r.partners, id)
	return nil
}
