package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"memberhub/internal/domain"

	"github.com/google/uuid"
)

// MemoryProfilesRepository keeps profiles in process when the DB is disabled.
type MemoryProfilesRepository struct {
	mu       sync.RWMutex
	profiles map[string]*domain.Profile // id -> profile
	byEmail  map[string]string          // email -> id
}

func NewMemoryProfilesRepository() *MemoryProfilesRepository {
	return &MemoryProfilesRepository{
		profiles: map[string]*domain.Profile{},
		byEmail:  map[string]string{},
	}
}

var _ ProfilesRepository = (*MemoryProfilesRepository)(nil)

func cloneProfile(p *domain.Profile) *domain.Profile {
	c := *p
	c.PasswordHash = append([]byte(nil), p.PasswordHash...)
	c.Interests = append([]string{}, p.Interests...)
	return &c
}

func (r *MemoryProfilesRepository) CreateProfile(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	if p == nil || p.Email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[p.Email]; ok {
		return nil, fmt.Errorf("profile already exists: %w", domain.ErrConflict)
	}
	c := cloneProfile(p)
	c.ID = uuid.NewString()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	r.profiles[c.ID] = c
	r.byEmail[c.Email] = c.ID
	return cloneProfile(c), nil
}

func (r *MemoryProfilesRepository) GetProfile(_ context.Context, id string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, notFound("profile")
	}
	return cloneProfile(p), nil
}

func (r *MemoryProfilesRepository) GetProfileByEmail(_ context.Context, email string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, notFound("profile")
	}
	return cloneProfile(r.profiles[id]), nil
}

func (r *MemoryProfilesRepository) GetProfiles(_ context.Context, ids []string) (map[string]*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*domain.Profile, len(ids))
	for _, id := range ids {
		if p, ok := r.profiles[id]; ok {
			out[id] = cloneProfile(p)
		}
	}
	return out, nil
}

func matchesFilter(p *domain.Profile, f domain.ProfileFilter) bool {
	if !f.IncludeSuspended && p.Status != domain.StatusActive {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		hay := strings.ToLower(p.FullName + "\n" + p.Headline + "\n" + p.Company + "\n" + p.Bio)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	if f.Tier != "" && p.Tier != f.Tier {
		return false
	}
	if loc := strings.ToLower(strings.TrimSpace(f.Location)); loc != "" &&
		!strings.Contains(strings.ToLower(p.Location), loc) {
		return false
	}
	if interest := strings.ToLower(strings.TrimSpace(f.Interest)); interest != "" {
		found := false
		for _, i := range p.Interests {
			if i == interest {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *MemoryProfilesRepository) ListProfiles(_ context.Context, filter domain.ProfileFilter, page, size int) ([]*domain.Profile, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		if matchesFilter(p, filter) {
			all = append(all, cloneProfile(p))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := strings.ToLower(all[i].FullName), strings.ToLower(all[j].FullName)
		if a != b {
			return a < b
		}
		return all[i].ID < all[j].ID
	})

	page, size = normalizePage(page, size, 24)
	total := len(all)
	start, end := pageBounds(total, page, size)
	return all[start:end], total, nil
}

func (r *MemoryProfilesRepository) UpdateProfile(_ context.Context, id string, patch domain.ProfilePatch) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, notFound("profile")
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.FullName, patch.FullName)
	set(&p.Headline, patch.Headline)
	set(&p.Bio, patch.Bio)
	set(&p.Location, patch.Location)
	set(&p.Company, patch.Company)
	set(&p.AvatarURL, patch.AvatarURL)
	if patch.Interests != nil {
		p.Interests = append([]string{}, patch.Interests...)
	}
	p.UpdatedAt = time.Now().UTC()
	return cloneProfile(p), nil
}

func (r *MemoryProfilesRepository) UpdateMembership(_ context.Context, id string, tier domain.Tier, role domain.Role, status domain.ProfileStatus) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, notFound("profile")
	}
	p.Tier, p.Role, p.Status = tier, role, status
	p.UpdatedAt = time.Now().UTC()
	return cloneProfile(p), nil
}

func (r *MemoryProfilesRepository) UpdatePasswordHash(_ context.Context, id string, hash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return notFound("profile")
	}
	p.PasswordHash = append([]byte(nil), hash...)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryProfilesRepository) CountProfiles(_ context.Context) (*ProfileCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := &ProfileCounts{ByTier: map[domain.Tier]int{}}
	for _, t := range domain.Tiers() {
		counts.ByTier[t] = 0
	}
	for _, p := range r.profiles {
		counts.Total++
		counts.ByTier[p.Tier]++
		if p.Status == domain.StatusSuspended {
			counts.Suspended++
		} else {
			counts.Active++
		}
	}
	return counts, nil
}

// pageBounds clamps a 1-based page window to [0, total].
func pageBounds(total, page, size int) (int, int) {
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return start, end
}
