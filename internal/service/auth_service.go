package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"memberhub/internal/domain"
	"memberhub/internal/mqtt"
	"memberhub/internal/notify"
	"memberhub/internal/repository"
	"memberhub/internal/store"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores input past 72 bytes
	MaxPasswordLength = 72
	maxNameLength     = 120
)

// AuthService handles sign-up, sessions and passwords.
type AuthService interface {
	SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, token string) error
	// Authenticate resolves a session token to an active profile.
	Authenticate(ctx context.Context, token string) (*domain.Profile, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
	// EnsureAdmin creates the admin account, or promotes an existing one.
	EnsureAdmin(ctx context.Context, email, password string) (*domain.Profile, bool, error)
}

type authService struct {
	profiles repository.ProfilesRepository
	sessions *store.Sessions
	cache    *store.RouteCache
	notifier notify.Notifier
	activity mqtt.ActivityPublisher
	logger   *zap.Logger
	cost     int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(
	profiles repository.ProfilesRepository,
	sessions *store.Sessions,
	cache *store.RouteCache,
	notifier notify.Notifier,
	activity mqtt.ActivityPublisher,
	logger *zap.Logger,
) AuthService {
	return &authService{
		profiles: profiles,
		sessions: sessions,
		cache:    cache,
		notifier: notifier,
		activity: activity,
		logger:   logger,
		cost:     bcrypt.DefaultCost,
	}
}

type SignUpRequest struct {
	Email    string
	Password string
	FullName string
}

type LoginRequest struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

type AuthResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	Profile   domain.ProfileCard `json:"profile"`
	Role      domain.Role        `json:"role"`
}

type ChangePasswordRequest struct {
	ProfileID       string
	CurrentPassword string
	NewPassword     string
}

var errBadCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)

func validatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, MinPasswordLength)
	}
	if len(pw) > MaxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, MaxPasswordLength)
	}
	return nil
}

func (s *authService) hash(pw string) ([]byte, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return h, nil
}

func (s *authService) issue(ctx context.Context, p *domain.Profile) (*AuthResponse, error) {
	token, err := s.sessions.Create(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.sessions.TTL()).UTC(),
		Profile:   p.Card(),
		Role:      p.Role,
	}, nil
}

func (s *authService) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	email := domain.NormalizeEmail(req.Email)
	if !domain.ValidEmail(email) {
		return nil, fmt.Errorf("%w: a valid email is required", domain.ErrInvalidInput)
	}
	name, err := limitText("full_name", req.FullName, maxNameLength, true)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	p, err := s.profiles.CreateProfile(ctx, &domain.Profile{
		Email:        email,
		PasswordHash: hash,
		FullName:     name,
		Tier:         domain.TierSilver,
		Role:         domain.RoleMember,
		Status:       domain.StatusActive,
		Interests:    []string{},
	})
	if errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("%w: an account with this email already exists", domain.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("Member signed up", zap.String("profile_id", p.ID))

	s.cache.Revalidate(ctx, TagOverview)
	publish(ctx, s.activity, s.logger, domain.Activity{
		Kind:      domain.ActivityMemberSignedUp,
		ActorID:   p.ID,
		SubjectID: p.ID,
	})
	if err := s.notifier.Notify(ctx, notify.Notification{
		Kind:      notify.KindMemberSignedUp,
		ProfileID: p.ID,
		Email:     p.Email,
		Subject:   "Welcome to memberhub",
		Data:      map[string]any{"full_name": p.FullName, "tier": p.Tier},
	}); err != nil {
		s.logger.Warn("signup notification failed", zap.String("profile_id", p.ID), zap.Error(err))
	}

	return s.issue(ctx, p)
}

// compareDummy burns a bcrypt comparison so unknown emails cost the same as wrong passwords.
func (s *authService) compareDummy(pw string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("memberhub-dummy-password"), s.cost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(pw))
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := domain.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, errBadCredentials
	}

	p, err := s.profiles.GetProfileByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.compareDummy(req.Password)
		s.logger.Warn("Login failed",
			zap.String("reason", "unknown_email"),
			zap.String("ip_address", req.IPAddress),
		)
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(req.Password)); err != nil {
		s.logger.Warn("Login failed",
			zap.String("profile_id", p.ID),
			zap.String("reason", "wrong_password"),
			zap.String("ip_address", req.IPAddress),
		)
		return nil, errBadCredentials
	}
	if !p.IsActive() {
		s.logger.Warn("Login failed",
			zap.String("profile_id", p.ID),
			zap.String("reason", "suspended"),
			zap.String("ip_address", req.IPAddress),
		)
		return nil, errBadCredentials
	}

	s.logger.Info("Login succeeded",
		zap.String("profile_id", p.ID),
		zap.String("ip_address", req.IPAddress),
		zap.String("user_agent", req.UserAgent),
	)
	return s.issue(ctx, p)
}

func (s *authService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

func (s *authService) Authenticate(ctx context.Context, token string) (*domain.Profile, error) {
	id, err := s.sessions.Resolve(ctx, token)
	if errors.Is(err, store.ErrNoSession) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.GetProfile(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		_ = s.sessions.Revoke(ctx, token)
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		_ = s.sessions.Revoke(ctx, token)
		return nil, fmt.Errorf("%w: account suspended", domain.ErrUnauthorized)
	}
	return p, nil
}

func (s *authService) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	p, err := s.profiles.GetProfile(ctx, req.ProfileID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(req.CurrentPassword)); err != nil {
		return fmt.Errorf("%w: current password is incorrect", domain.ErrInvalidInput)
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}
	hash, err := s.hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.profiles.UpdatePasswordHash(ctx, p.ID, hash); err != nil {
		return err
	}
	s.logger.Info("Password changed", zap.String("profile_id", p.ID))
	return nil
}

func (s *authService) EnsureAdmin(ctx context.Context, email, password string) (*domain.Profile, bool, error) {
	email = domain.NormalizeEmail(email)
	if !domain.ValidEmail(email) {
		return nil, false, fmt.Errorf("%w: invalid admin email %q", domain.ErrInvalidInput, email)
	}

	existing, err := s.profiles.GetProfileByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() && existing.IsActive() {
			return existing, false, nil
		}
		p, err := s.profiles.UpdateMembership(ctx, existing.ID, domain.TierDiamond, domain.RoleAdmin, domain.StatusActive)
		return p, false, err
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, err
	}

	if err := validatePassword(password); err != nil {
		return nil, false, err
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, false, err
	}
	p, err := s.profiles.CreateProfile(ctx, &domain.Profile{
		Email:        email,
		PasswordHash: hash,
		FullName:     "Administrator",
		Tier:         domain.TierDiamond,
		Role:         domain.RoleAdmin,
		Status:       domain.StatusActive,
		Interests:    []string{},
	})
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}
