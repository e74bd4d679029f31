package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/lumenlearn/engage/internal/api"
	"github.com/lumenlearn/engage/internal/campaign"
	"github.com/lumenlearn/engage/internal/channel"
	"github.com/lumenlearn/engage/internal/config"
	"github.com/lumenlearn/engage/internal/pkg/distlock"
	"github.com/lumenlearn/engage/internal/pkg/logger"
	"github.com/lumenlearn/engage/internal/repository/postgres"
	"github.com/lumenlearn/engage/internal/scheduler"
	"github.com/lumenlearn/engage/internal/service/activity"
	"github.com/lumenlearn/engage/internal/service/prefs"
	"github.com/lumenlearn/engage/internal/service/schedule"
	"github.com/lumenlearn/engage/internal/transport"
	"github.com/lumenlearn/engage/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("loading config failed", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("engagement engine starting")

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("opening database failed", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("database unreachable", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("database connected")

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, job locks fall back to postgres", "error", err.Error())
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	locks := distlock.NewFactory(redisClient, db, 10*time.Minute)

	// Repositories.
	prefsRepo := postgres.NewPrefsRepo(db)
	eventRepo := postgres.NewEventRepo(db)
	logRepo := postgres.NewLogRepo(db)
	subRepo := postgres.NewSubscriptionRepo(db)
	activityRepo := postgres.NewActivityRepo(db)
	contentRepo := postgres.NewContentRepo(db)

	// Services.
	prefsSvc := prefs.NewService(prefsRepo)
	scheduleSvc := schedule.NewService(eventRepo)
	activitySvc := activity.NewService(activityRepo)

	// Transports and channels.
	pushTransport := transport.NewHTTPPushTransport(cfg.Push)
	callTransport := transport.NewHTTPCallTransport(cfg.Telephony)
	notifCh := channel.NewNotificationChannel(subRepo, logRepo, contentRepo, pushTransport, cfg.Push.TTLSeconds)
	callCh := channel.NewCallChannel(logRepo, prefsSvc, callTransport, cfg.Server.PublicBaseURL)

	// Dispatcher.
	dispatcher := worker.NewDispatcher(eventRepo, prefsSvc, callCh, notifCh, locks, cfg.Dispatcher.Tick(), cfg.Dispatcher.BatchSize)

	// Campaign jobs on their cron schedules. Micro-lessons run before the
	// inactivity sweep so a user is not double-touched the same morning.
	jobs := campaign.NewJobs(activitySvc, prefsSvc, scheduleSvc, notifCh, contentRepo, contentRepo, locks, cfg.Jobs.InactivityThresholdDays)
	cron := scheduler.New()
	mustRegister(cron, "micro-lessons", cfg.Jobs.MicroLessonsCron, jobs.RunDailyMicroLessons)
	mustRegister(cron, "inactivity-sweep", cfg.Jobs.InactivitySweepCron, jobs.RunInactivitySweep)
	mustRegister(cron, "goal-sweep", cfg.Jobs.GoalSweepCron, jobs.RunGoalAchievementSweep)
	// The dispatcher owns its own cadence; registering without a spec makes
	// the tick triggerable through the admin surface without double-firing.
	mustRegister(cron, "dispatcher-tick", "", dispatcher.RunTick)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher.Start(ctx)
	cron.Start()

	handlers := api.NewHandlers(db, logRepo, contentRepo, callCh, cron, jobs, dispatcher, cfg.Server.PublicBaseURL)
	server := api.NewServer(cfg.Server, handlers)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("http server failed", "error", err.Error())
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err.Error())
	}
	cron.Stop()
	dispatcher.Stop()
	logger.Info("engagement engine stopped")
}

func mustRegister(cron *scheduler.Scheduler, name, spec string, fn scheduler.JobFunc) {
	if err := cron.Register(name, spec, fn); err != nil {
		logger.Error("registering job failed", "job", name, "error", err.Error())
		os.Exit(1)
	}
}
