package httpapi

import (
	"memberhub/internal/realtime"
	"memberhub/internal/service"

	"go.uber.org/zap"
)

// NewAPI builds the router with every route registered.
func NewAPI(svc *service.Services, hub *realtime.Hub, cookieName string, checks map[string]HealthCheck, logger *zap.Logger) *Router {
	sessions := NewSessions(svc.Auth, cookieName, logger)
	router := NewRouter(logger)

	router.RegisterAuthRoutes(NewAuthHandler(svc.Auth, sessions, logger))
	router.RegisterPublicRoutes(NewPublicHandler(svc.Dashboard, svc.Members, checks, logger))
	router.RegisterMemberRoutes(sessions,
		NewMemberHandler(svc.Members, svc.Auth, svc.Dashboard, svc.Preferences, logger),
		NewSpaceHandler(svc.Spaces, logger),
		NewMessageHandler(svc.Messages, hub, sessions, logger),
		NewEventHandler(svc.Events, logger),
		NewPartnerHandler(svc.Partners, logger),
	)
	router.RegisterAdminRoutes(sessions, NewAdminHandler(svc.Admin, svc.Spaces, svc.Events, svc.Partners, logger))
	return router
}
