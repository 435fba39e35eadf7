package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/config"
	"github.com/iliyamo/sportsclub/internal/database"
	"github.com/iliyamo/sportsclub/internal/handler"
	"github.com/iliyamo/sportsclub/internal/jobs"
	"github.com/iliyamo/sportsclub/internal/middleware"
	"github.com/iliyamo/sportsclub/internal/queue"
	"github.com/iliyamo/sportsclub/internal/repository"
	"github.com/iliyamo/sportsclub/internal/router"
	"github.com/iliyamo/sportsclub/internal/service"
	"github.com/iliyamo/sportsclub/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := config.NewLogger(cfg.Env, cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	applied, err := database.Migrate(mctx, db)
	cancel()
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("schema ready", zap.Int("statements", applied))

	cipher, err := utils.NewCipher(cfg.CryptoKey)
	if err != nil {
		return fmt.Errorf("crypto key: %w", err)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	facilities := repository.NewFacilityRepo(db)
	bookings := repository.NewBookingRepo(db)
	schedules := repository.NewScheduleRepo(db)
	equipment := repository.NewEquipmentRepo(db)
	notifications := repository.NewNotificationRepo(db)

	// The broker is optional: without it notifications stay inbox-only.
	sink := &service.StoreNotifier{Store: notifications}
	if pub, err := queue.NewPublisher(cfg.RabbitURL, cfg.NotifyExchange); err != nil {
		log.Warn("rabbitmq unavailable, notifications are inbox only", zap.Error(err))
	} else {
		defer pub.Close()
		sink.Publisher = pub
	}
	notifier := service.NewAsyncNotifier(sink, log, cfg.NotifyBuffer, cfg.NotifyWorkers, cfg.NotifyTimeout)
	defer notifier.Close()

	if cfg.NotifyConsumerEnabled {
		go func() {
			err := queue.StartNotificationConsumer(ctx, queue.ConsumerConfig{
				URL: cfg.RabbitURL, Exchange: cfg.NotifyExchange, LogDir: cfg.NotifyLogDir,
			}, log)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification consumer stopped", zap.Error(err))
			}
		}()
	}

	checker := service.NewAvailabilityChecker(facilities, bookings, schedules)
	bookingSvc := service.NewBookingService(facilities, bookings, schedules, users, notifier, log)
	bookingSvc.ReleaseOnReject = cfg.ReleaseEquipmentOnReject
	equipmentSvc := service.NewEquipmentService(equipment, log)
	sweeper := service.NewSweeper(bookings, users, notifier, log)

	if cfg.JobsEnabled {
		rule, err := jobs.ParseResetRule(cfg.ResetRule)
		if err != nil {
			return fmt.Errorf("RESET_RULE: %w", err)
		}
		sched, err := jobs.NewScheduler(jobs.Config{
			ReminderCron:  cfg.ReminderCron,
			SweepInterval: cfg.SweepInterval,
		}, &jobs.Tasks{Sweeper: sweeper, Tokens: tokens, Log: log, Rule: &rule}, log)
		if err != nil {
			return fmt.Errorf("jobs: %w", err)
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				log.Warn("job scheduler shutdown", zap.Error(err))
			}
		}()
	}

	rdb := config.NewRedisClient(loadRedisConfig(log))
	if rdb != nil {
		defer rdb.Close()
	}
	var catalog router.CatalogMiddleware
	var purge func(context.Context) error
	if rlCfg, err := config.LoadRateLimitConfig(); err != nil {
		log.Warn("rate limit config", zap.Error(err))
	} else {
		catalog.RateLimit = middleware.NewTokenBucket(rlCfg, rdb, log)
	}
	if cacheCfg, err := config.LoadCacheConfig(); err != nil {
		log.Warn("cache config", zap.Error(err))
	} else {
		catalog.Cache = middleware.NewRedisCache(cacheCfg, rdb, log)
		if rdb != nil {
			purge = func(ctx context.Context) error { return middleware.PurgeCache(ctx, cacheCfg, rdb) }
		}
	}

	authH := handler.NewAuthHandler(handler.AuthSettings{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
	}, users, tokens, cipher, log)
	bookingH := handler.NewBookingHandler(checker, bookingSvc, log)
	equipmentH := handler.NewEquipmentHandler(equipmentSvc, log)
	facilityH := handler.NewFacilityHandler(facilities, log)
	facilityH.OnChange = purge
	notificationH := handler.NewNotificationHandler(notifications, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterBookings(e, bookingH, cfg.JWTSecret)
	router.RegisterCatalog(e, facilityH, equipmentH, cfg.JWTSecret, catalog)
	router.RegisterNotifications(e, notificationH, cfg.JWTSecret)

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

func loadRedisConfig(log *zap.Logger) config.RedisConfig {
	c, err := config.LoadRedisConfig()
	if err != nil {
		log.Warn("redis config, using defaults", zap.Error(err))
	}
	return c
}
