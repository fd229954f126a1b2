package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"memberhub/internal/domain"

	"github.com/google/uuid"
)

type memoryMembership struct {
	profileID string
	joinedAt  time.Time
}

// MemorySpacesRepository keeps spaces and their members in process.
type MemorySpacesRepository struct {
	mu      sync.RWMutex
	spaces  map[string]*domain.Space               // id -> space
	members map[string]map[string]memoryMembership // spaceID -> profileID -> row
}

func NewMemorySpacesRepository() *MemorySpacesRepository {
	return &MemorySpacesRepository{
		spaces:  map[string]*domain.Space{},
		members: map[string]map[string]memoryMembership{},
	}
}

var _ SpacesRepository = (*MemorySpacesRepository)(nil)

func (r *MemorySpacesRepository) view(s *domain.Space) *domain.Space {
	c := *s
	c.MemberCount = len(r.members[s.ID])
	return &c
}

func (r *MemorySpacesRepository) bySlug(slug string) *domain.Space {
	for _, s := range r.spaces {
		if s.Slug == slug {
			return s
		}
	}
	return nil
}

func (r *MemorySpacesRepository) ListSpaces(_ context.Context) ([]*domain.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Space, 0, len(r.spaces))
	for _, s := range r.spaces {
		out = append(out, r.view(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemorySpacesRepository) GetSpaceBySlug(_ context.Context, slug string) (*domain.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.bySlug(slug)
	if s == nil {
		return nil, notFound("space")
	}
	return r.view(s), nil
}

func (r *MemorySpacesRepository) CreateSpace(_ context.Context, s *domain.Space) (*domain.Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bySlug(s.Slug) != nil {
		return nil, fmt.Errorf("space already exists: %w", domain.ErrConflict)
	}
	c := *s
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	r.spaces[c.ID] = &c
	return r.view(&c), nil
}

func (r *MemorySpacesRepository) UpdateSpace(_ context.Context, slug string, in domain.SpaceInput) (*domain.Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.bySlug(slug)
	if s == nil {
		return nil, notFound("space")
	}
	if in.Slug != slug {
		if other := r.bySlug(in.Slug); other != nil {
			return nil, fmt.Errorf("space already exists: %w", domain.ErrConflict)
		}
	}
	s.Slug, s.Name, s.Description, s.MinTier = in.Slug, in.Name, in.Description, in.MinTier
	return r.view(s), nil
}

func (r *MemorySpacesRepository) DeleteSpace(_ context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.bySlug(slug)
	if s == nil {
		return notFound("space")
	}
	delete(r.spaces, s.ID)
	delete(r.members, s.ID)
	return nil
}

func (r *MemorySpacesRepository) AddMember(_ context.Context, spaceID, profileID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.spaces[spaceID]; !ok {
		return false, notFound("space")
	}
	m := r.members[spaceID]
	if m == nil {
		m = map[string]memoryMembership{}
		r.members[spaceID] = m
	}
	if _, ok := m[profileID]; ok {
		return false, nil
	}
	m[profileID] = memoryMembership{profileID: profileID, joinedAt: time.Now()}
	return true, nil
}

func (r *MemorySpacesRepository) RemoveMember(_ context.Context, spaceID, profileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[spaceID], profileID)
	return nil
}

func (r *MemorySpacesRepository) IsMember(_ context.Context, spaceID, profileID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[spaceID][profileID]
	return ok, nil
}

func (r *MemorySpacesRepository) ListMemberSpaceIDs(_ context.Context, profileID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	type joined struct {
		spaceID string
		at      time.Time
	}
	rows := []joined{}
	for spaceID, m := range r.members {
		if row, ok := m[profileID]; ok {
			rows = append(rows, joined{spaceID: spaceID, at: row.joinedAt})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.spaceID)
	}
	return ids, nil
}

// MemoryPostsRepository keeps posts in process.
type MemoryPostsRepository struct {
	mu    sync.RWMutex
	posts map[string]*domain.Post
}

func NewMemoryPostsRepository() *MemoryPostsRepository {
	return &MemoryPostsRepository{posts: map[string]*domain.Post{}}
}

var _ PostsRepository = (*MemoryPostsRepository)(nil)

func (r *MemoryPostsRepository) CreatePost(_ context.Context, p *domain.Post) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *p
	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = c.CreatedAt
	c.Author = nil
	r.posts[c.ID] = &c
	out := c
	return &out, nil
}

func (r *MemoryPostsRepository) GetPost(_ context.Context, id string) (*domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, notFound("post")
	}
	c := *p
	return &c, nil
}

func (r *MemoryPostsRepository) ListPosts(_ context.Context, spaceID string, page, size int) ([]*domain.Post, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := []*domain.Post{}
	for _, p := range r.posts {
		if p.SpaceID == spaceID {
			c := *p
			all = append(all, &c)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Pinned != all[j].Pinned {
			return all[i].Pinned
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	page, size = normalizePage(page, size, 20)
	total := len(all)
	start, end := pageBounds(total, page, size)
	return all[start:end], total, nil
}

func (r *MemoryPostsRepository) DeletePost(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return notFound("post")
	}
	delete(r.posts, id)
	return nil
}

func (r *MemoryPostsRepository) CountPosts(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.posts), nil
}
