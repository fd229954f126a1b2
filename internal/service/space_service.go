package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"memberhub/internal/domain"
	"memberhub/internal/mqtt"
	"memberhub/internal/repository"
	"memberhub/internal/store"

	"go.uber.org/zap"
)

// SpaceService covers spaces, membership and posts.
type SpaceService interface {
	List(ctx context.Context, viewer *domain.Profile) ([]domain.SpaceView, error)
	Get(ctx context.Context, viewer *domain.Profile, slug string) (*domain.SpaceView, error)
	Join(ctx context.Context, viewer *domain.Profile, slug string) (*domain.SpaceView, error)
	Leave(ctx context.Context, viewer *domain.Profile, slug string) error

	ListPosts(ctx context.Context, viewer *domain.Profile, slug string, page, size int) (*ListPostsResponse, error)
	CreatePost(ctx context.Context, viewer *domain.Profile, slug string, req CreatePostRequest) (*domain.Post, error)
	DeletePost(ctx context.Context, viewer *domain.Profile, postID string) error

	CreateSpace(ctx context.Context, admin *domain.Profile, req SpaceRequest) (*domain.Space, error)
	UpdateSpace(ctx context.Context, slug string, req SpaceRequest) (*domain.Space, error)
	DeleteSpace(ctx context.Context, slug string) error
}

type spaceService struct {
	spaces   repository.SpacesRepository
	posts    repository.PostsRepository
	profiles repository.ProfilesRepository
	cache    *store.RouteCache
	activity mqtt.ActivityPublisher
	logger   *zap.Logger
}

func NewSpaceService(
	spaces repository.SpacesRepository,
	posts repository.PostsRepository,
	profiles repository.ProfilesRepository,
	cache *store.RouteCache,
	activity mqtt.ActivityPublisher,
	logger *zap.Logger,
) SpaceService {
	return &spaceService{
		spaces:   spaces,
		posts:    posts,
		profiles: profiles,
		cache:    cache,
		activity: activity,
		logger:   logger,
	}
}

type ListPostsResponse struct {
	Items []*domain.Post `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

type CreatePostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type SpaceRequest struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MinTier     string `json:"min_tier"`
}

func (r SpaceRequest) input() (domain.SpaceInput, error) {
	var in domain.SpaceInput
	name, err := limitText("name", r.Name, 80, true)
	if err != nil {
		return in, err
	}
	desc, err := limitText("description", r.Description, 1000, false)
	if err != nil {
		return in, err
	}
	slug := r.Slug
	if slug == "" {
		slug = domain.Slugify(name)
	}
	if !domain.ValidSlug(slug) {
		return in, fmt.Errorf("%w: slug must be lowercase words joined by hyphens", domain.ErrInvalidInput)
	}
	tier := domain.TierSilver
	if r.MinTier != "" {
		if tier, err = domain.ParseTier(r.MinTier); err != nil {
			return in, err
		}
	}
	return domain.SpaceInput{Slug: slug, Name: name, Description: desc, MinTier: tier}, nil
}

func (s *spaceService) allSpaces(ctx context.Context) ([]*domain.Space, error) {
	var spaces []*domain.Space
	err := s.cache.Remember(ctx, TagSpaces, "all", 0, &spaces, func(ctx context.Context) (any, error) {
		return s.spaces.ListSpaces(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	return spaces, nil
}

func (s *spaceService) spaceBySlug(ctx context.Context, slug string) (*domain.Space, error) {
	var space domain.Space
	err := s.cache.Remember(ctx, SpaceTag(slug), "detail", 0, &space, func(ctx context.Context) (any, error) {
		return s.spaces.GetSpaceBySlug(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	return &space, nil
}

func (s *spaceService) view(viewer *domain.Profile, space *domain.Space, joined bool) domain.SpaceView {
	return domain.SpaceView{
		Space:  *space,
		Joined: joined,
		Locked: !viewer.CanAccess(space.MinTier),
	}
}

func (s *spaceService) List(ctx context.Context, viewer *domain.Profile) ([]domain.SpaceView, error) {
	spaces, err := s.allSpaces(ctx)
	if err != nil {
		return nil, err
	}
	joinedIDs, err := s.spaces.ListMemberSpaceIDs(ctx, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	joined := make(map[string]bool, len(joinedIDs))
	for _, id := range joinedIDs {
		joined[id] = true
	}

	views := make([]domain.SpaceView, 0, len(spaces))
	for _, sp := range spaces {
		views = append(views, s.view(viewer, sp, joined[sp.ID]))
	}
	return views, nil
}

func (s *spaceService) Get(ctx context.Context, viewer *domain.Profile, slug string) (*domain.SpaceView, error) {
	space, err := s.spaceBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	joined, err := s.spaces.IsMember(ctx, space.ID, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	v := s.view(viewer, space, joined)
	return &v, nil
}

func (s *spaceService) Join(ctx context.Context, viewer *domain.Profile, slug string) (*domain.SpaceView, error) {
	space, err := s.spaceBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !viewer.CanAccess(space.MinTier) {
		return nil, fmt.Errorf("%w: %s membership required", domain.ErrTierRequired, space.MinTier)
	}
	added, err := s.spaces.AddMember(ctx, space.ID, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to join space: %w", err)
	}
	if added {
		s.cache.Revalidate(ctx, TagSpaces, SpaceTag(slug), TagOverview)
		publish(ctx, s.activity, s.logger, domain.Activity{
			Kind:       domain.ActivitySpaceJoined,
			ActorID:    viewer.ID,
			SubjectID:  space.ID,
			Attributes: map[string]string{"slug": space.Slug},
		})
		space.MemberCount++
	}
	v := s.view(viewer, space, true)
	return &v, nil
}

func (s *spaceService) Leave(ctx context.Context, viewer *domain.Profile, slug string) error {
	space, err := s.spaceBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.spaces.RemoveMember(ctx, space.ID, viewer.ID); err != nil {
		return fmt.Errorf("failed to leave space: %w", err)
	}
	s.cache.Revalidate(ctx, TagSpaces, SpaceTag(slug), TagOverview)
	return nil
}

func (s *spaceService) ListPosts(ctx context.Context, viewer *domain.Profile, slug string, page, size int) (*ListPostsResponse, error) {
	space, err := s.spaceBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !viewer.CanAccess(space.MinTier) {
		return nil, fmt.Errorf("%w: %s membership required", domain.ErrTierRequired, space.MinTier)
	}
	page, size = clampPage(page, size, 20)

	// the cached page holds posts only; author cards follow profile edits
	var resp ListPostsResponse
	key := "posts:" + strconv.Itoa(page) + ":" + strconv.Itoa(size)
	err = s.cache.Remember(ctx, SpaceTag(slug), key, 0, &resp, func(ctx context.Context) (any, error) {
		posts, total, err := s.posts.ListPosts(ctx, space.ID, page, size)
		if err != nil {
			return nil, fmt.Errorf("failed to list posts: %w", err)
		}
		return &ListPostsResponse{Items: posts, Total: total, Page: page, Size: size}, nil
	})
	if err != nil {
		return nil, err
	}
	if resp.Items == nil {
		resp.Items = []*domain.Post{}
	}
	if err := s.attachAuthors(ctx, resp.Items); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *spaceService) attachAuthors(ctx context.Context, posts []*domain.Post) error {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.AuthorID)
	}
	authors, err := s.profiles.GetProfiles(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load authors: %w", err)
	}
	for _, p := range posts {
		if a, ok := authors[p.AuthorID]; ok {
			card := a.Card()
			p.Author = &card
		}
	}
	return nil
}

func (s *spaceService) CreatePost(ctx context.Context, viewer *domain.Profile, slug string, req CreatePostRequest) (*domain.Post, error) {
	space, err := s.spaceBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	member, err := s.spaces.IsMember(ctx, space.ID, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member && !viewer.IsAdmin() {
		return nil, fmt.Errorf("%w: join the space to post", domain.ErrForbidden)
	}

	post, err := domain.NewPost(space.ID, viewer.ID, req.Title, req.Body)
	if err != nil {
		return nil, err
	}
	created, err := s.posts.CreatePost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	card := viewer.Card()
	created.Author = &card

	s.cache.Revalidate(ctx, SpaceTag(slug))
	publish(ctx, s.activity, s.logger, domain.Activity{
		Kind:       domain.ActivityPostCreated,
		ActorID:    viewer.ID,
		SubjectID:  created.ID,
		Attributes: map[string]string{"space": space.Slug, "title": created.Title},
	})
	return created, nil
}

func (s *spaceService) DeletePost(ctx context.Context, viewer *domain.Profile, postID string) error {
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != viewer.ID && !viewer.IsAdmin() {
		return fmt.Errorf("%w: only the author or an admin may delete a post", domain.ErrForbidden)
	}
	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return err
	}

	spaces, err := s.allSpaces(ctx)
	if err != nil {
		// the post is gone; the stale page expires with its TTL
		s.logger.Warn("revalidate after post delete failed", zap.Error(err))
		return nil
	}
	for _, sp := range spaces {
		if sp.ID == post.SpaceID {
			s.cache.Revalidate(ctx, SpaceTag(sp.Slug))
			break
		}
	}
	return nil
}

func (s *spaceService) CreateSpace(ctx context.Context, admin *domain.Profile, req SpaceRequest) (*domain.Space, error) {
	in, err := req.input()
	if err != nil {
		return nil, err
	}
	created, err := s.spaces.CreateSpace(ctx, &domain.Space{
		Slug:        in.Slug,
		Name:        in.Name,
		Description: in.Description,
		MinTier:     in.MinTier,
		CreatedBy:   admin.ID,
	})
	if errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("%w: slug %q is taken", domain.ErrConflict, in.Slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create space: %w", err)
	}
	s.logger.Info("Space created", zap.String("slug", created.Slug), zap.String("admin_id", admin.ID))
	s.cache.Revalidate(ctx, TagSpaces, SpaceTag(created.Slug), TagOverview)
	return created, nil
}

func (s *spaceService) UpdateSpace(ctx context.Context, slug string, req SpaceRequest) (*domain.Space, error) {
	if req.Slug == "" {
		req.Slug = slug
	}
	in, err := req.input()
	if err != nil {
		return nil, err
	}
	updated, err := s.spaces.UpdateSpace(ctx, slug, in)
	if errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("%w: slug %q is taken", domain.ErrConflict, in.Slug)
	}
	if err != nil {
		return nil, err
	}
	s.cache.Revalidate(ctx, TagSpaces, SpaceTag(slug), SpaceTag(updated.Slug), TagOverview)
	return updated, nil
}

func (s *spaceService) DeleteSpace(ctx context.Context, slug string) error {
	if err := s.spaces.DeleteSpace(ctx, slug); err != nil {
		return err
	}
	s.logger.Info("Space deleted", zap.String("slug", slug))
	s.cache.Revalidate(ctx, TagSpaces, SpaceTag(slug), TagOverview)
	return nil
}
