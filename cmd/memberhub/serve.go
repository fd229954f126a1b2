package main

import (
	"context"
	"os/signal"
	"syscall"

	"memberhub/internal/database"
	httpapi "memberhub/internal/http"
	"memberhub/internal/jobs"
	"memberhub/internal/mqtt"
	"memberhub/internal/notify"
	"memberhub/internal/realtime"
	"memberhub/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const realtimeStream = "memberhub:messages"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and realtime socket",
	Long: `Run the HTTP API. Postgres and Redis are optional at startup: when
either is unreachable the server logs a warning and keeps that state in
memory, which is only suitable for development.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	checks := map[string]httpapi.HealthCheck{}
	if a.db != nil {
		applied, err := database.Migrate(ctx, a.db)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			logger.Info("Applied migrations", zap.Strings("versions", applied))
		}
		checks["database"] = a.db.PingContext
	}

	var activity mqtt.ActivityPublisher = mqtt.Noop{}
	if cfg.MQTT.Enabled {
		pub, err := mqtt.Connect(&cfg.MQTT, logger)
		if err != nil {
			logger.Warn("MQTT enabled but connection failed, activity bridge disabled", zap.Error(err))
		} else {
			activity = pub
			defer pub.Close()
		}
	}

	notifier := notify.New(cfg.Webhook.URL, cfg.Webhook.Secret, logger)

	hub := realtime.NewHub(logger)
	defer hub.Close()
	var broadcaster realtime.Broadcaster = realtime.NewLocalBroadcaster(hub)

	var scheduler jobs.Scheduler = jobs.Noop{}
	if a.redis != nil {
		client := a.redis
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

		consumer := realtime.NewStreamConsumer(client, realtimeStream, uuid.NewString(), hub, logger)
		if err := consumer.Start(ctx); err != nil {
			logger.Warn("Realtime stream unavailable, delivering in-process only", zap.Error(err))
		} else {
			broadcaster = realtime.NewStreamBroadcaster(client, realtimeStream)
			defer consumer.Stop(context.Background())
		}

		if cfg.Jobs.Enabled {
			opt := jobs.RedisOpt(&cfg.Redis)
			s := jobs.NewAsynqScheduler(opt, cfg.ReminderLead())
			defer s.Close()
			scheduler = s

			worker := jobs.NewWorker(opt, jobs.NewReminderHandler(a.repos.Events, a.repos.Profiles, notifier, logger), logger)
			if err := worker.Start(); err != nil {
				return err
			}
			defer worker.Stop()
		}
	} else if cfg.Jobs.Enabled {
		logger.Warn("Jobs enabled but Redis is unavailable, event reminders disabled")
	}

	svc := service.New(service.Deps{
		Repos:       a.repos,
		KV:          a.kv,
		SessionTTL:  cfg.SessionTTL(),
		CacheTTL:    cfg.CacheTTL(),
		Notifier:    notifier,
		Activity:    activity,
		Broadcaster: broadcaster,
		Scheduler:   scheduler,
		Logger:      logger,
	})

	if cfg.Seed.AdminEmail != "" {
		admin, created, err := svc.Auth.EnsureAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword)
		if err != nil {
			return err
		}
		logger.Info("Admin account ready", zap.String("profile_id", admin.ID), zap.Bool("created", created))
	}

	router := httpapi.NewAPI(svc, hub, cfg.Session.CookieName, checks, logger)
	srv := service.NewServer(cfg.HTTP.Addr, router, logger)
	srv.OnShutdown(hub.Close)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(sigCtx)
}
