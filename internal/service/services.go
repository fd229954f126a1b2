package service

import (
	"time"

	"memberhub/internal/jobs"
	"memberhub/internal/mqtt"
	"memberhub/internal/notify"
	"memberhub/internal/realtime"
	"memberhub/internal/repository"
	"memberhub/internal/store"

	"go.uber.org/zap"
)

// Deps are the collaborators shared by every service.
// Nil integrations fall back to no-ops.
type Deps struct {
	Repos       *repository.Repositories
	KV          store.KV
	SessionTTL  time.Duration
	CacheTTL    time.Duration
	Notifier    notify.Notifier
	Activity    mqtt.ActivityPublisher
	Broadcaster realtime.Broadcaster
	Scheduler   jobs.Scheduler
	Logger      *zap.Logger
}

type Services struct {
	Auth        AuthService
	Members     MemberService
	Spaces      SpaceService
	Partners    PartnerService
	Messages    MessageService
	Events      EventService
	Dashboard   DashboardService
	Preferences PreferencesService
	Admin       AdminService
}

func New(d Deps) *Services {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Notifier == nil {
		d.Notifier = notify.Noop{}
	}
	if d.Activity == nil {
		d.Activity = mqtt.Noop{}
	}
	if d.Scheduler == nil {
		d.Scheduler = jobs.Noop{}
	}

	cache := store.NewRouteCache(d.KV, d.CacheTTL, d.Logger)
	sessions := store.NewSessions(d.KV, d.SessionTTL)
	prefs := store.NewPreferences(d.KV)
	r := d.Repos

	return &Services{
		Auth:        NewAuthService(r.Profiles, sessions, cache, d.Notifier, d.Activity, d.Logger),
		Members:     NewMemberService(r.Profiles, d.Logger),
		Spaces:      NewSpaceService(r.Spaces, r.Posts, r.Profiles, cache, d.Activity, d.Logger),
		Partners:    NewPartnerService(r.Partners, cache, d.Logger),
		Messages:    NewMessageService(r.Conversations, r.Profiles, d.Broadcaster, d.Logger),
		Events:      NewEventService(r.Events, d.Scheduler, cache, d.Activity, d.Logger),
		Dashboard:   NewDashboardService(r, prefs, cache, d.Logger),
		Preferences: NewPreferencesService(prefs, d.Logger),
		Admin:       NewAdminService(r, cache, d.Logger),
	}
}
