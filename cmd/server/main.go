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

	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/slotbook/internal/api"
	"github.com/lalith-99/slotbook/internal/cache"
	"github.com/lalith-99/slotbook/internal/config"
	"github.com/lalith-99/slotbook/internal/db"
	"github.com/lalith-99/slotbook/internal/middleware"
	"github.com/lalith-99/slotbook/internal/observ"
	"github.com/lalith-99/slotbook/internal/rbac"
	"github.com/lalith-99/slotbook/internal/repository/postgres"
	"github.com/lalith-99/slotbook/internal/service"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Load config
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ---------------------------------------------------------------
	// 2. Create logger
	// ---------------------------------------------------------------
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// SIGINT/SIGTERM cancel ctx; the server drains and run() returns.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 3. Connect to Postgres
	// ---------------------------------------------------------------
	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	// ---------------------------------------------------------------
	// 4. Connect to Redis
	//
	// Both caches are best effort. Without Redis every search and
	// permission check goes to Postgres, which is slower but correct.
	// ---------------------------------------------------------------
	var store cache.Cache = cache.Noop{}
	var limits cache.Counter = cache.Noop{}
	redisCache, err := cache.NewRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		logger.Warn("redis unavailable, running without cache or rate limits", zap.Error(err))
	} else {
		defer redisCache.Close()
		store = redisCache
		if cfg.RateLimitEnabled {
			limits = redisCache
		}
	}

	// ---------------------------------------------------------------
	// 5. Create repositories
	// ---------------------------------------------------------------
	pool := database.Pool()
	tenantRepo := postgres.NewTenantStore(pool)
	userRepo := postgres.NewUserStore(pool)
	skillRepo := postgres.NewSkillStore(pool)
	calendarRepo := postgres.NewCalendarStore(pool)
	slotRepo := postgres.NewAvailabilityStore(pool)
	appointmentRepo := postgres.NewAppointmentStore(pool)
	groupRepo := postgres.NewGroupAppointmentStore(pool)
	waitlistRepo := postgres.NewWaitlistStore(pool)
	roleRepo := postgres.NewRoleStore(pool)
	userRoleRepo := postgres.NewUserRoleStore(pool)
	metricsRepo := postgres.NewMetricsStore(pool)
	tokenRepo := postgres.NewTokenStore(pool)

	// ---------------------------------------------------------------
	// 6. Create services
	// ---------------------------------------------------------------
	resolver := rbac.NewResolver(userRoleRepo, store, rbac.Options{
		CacheEnabled: cfg.RBACCacheEnabled,
		CacheTTL:     cfg.RBACCacheTTL,
	}, logger)

	roleSvc := service.NewRoleService(roleRepo, userRoleRepo, userRepo, resolver, cfg.RBACDefaultRole, logger)
	accountSvc := service.NewAccountService(tenantRepo, userRepo, roleSvc, logger)
	sessionSvc := service.NewSessionService(tokenRepo, userRepo, store, service.SessionConfig{
		AccessSecret:  cfg.JWTSecret,
		AccessTTL:     cfg.JWTTTL,
		RefreshSecret: cfg.JWTRefreshSecret,
		RefreshTTL:    cfg.JWTRefreshTTL,
	}, logger)
	skillSvc := service.NewSkillService(skillRepo, store, logger)
	calendarSvc := service.NewCalendarService(calendarRepo, userRepo, skillRepo, store, logger)
	availabilitySvc := service.NewAvailabilityService(calendarRepo, slotRepo, appointmentRepo, store, cfg.AvailabilityCacheTTL, logger)
	appointmentSvc := service.NewAppointmentService(calendarRepo, userRepo, appointmentRepo, store, logger)
	groupSvc := service.NewGroupService(groupRepo, calendarRepo, userRepo, appointmentRepo, logger)
	waitlistSvc := service.NewWaitlistService(waitlistRepo, userRepo, logger)
	metricsSvc := service.NewMetricsService(metricsRepo)

	// ---------------------------------------------------------------
	// 7. Set up HTTP server
	// ---------------------------------------------------------------
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := api.RegisterValidators(); err != nil {
		return fmt.Errorf("register validators: %w", err)
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(logger), gin.Recovery())

	// Health check is public so the load balancer can reach it.
	router.GET("/v1/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.Health(hctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.Register(router.Group("/v1"), api.Handlers{
		Auth:         api.NewAuthHandler(accountSvc, sessionSvc, logger),
		Users:        api.NewUserHandler(accountSvc, logger),
		Skills:       api.NewSkillHandler(skillSvc, logger),
		Calendars:    api.NewCalendarHandler(calendarSvc, logger),
		Availability: api.NewAvailabilityHandler(availabilitySvc, logger),
		Appointments: api.NewAppointmentHandler(appointmentSvc, logger),
		Groups:       api.NewGroupHandler(groupSvc, logger),
		Waitlist:     api.NewWaitlistHandler(waitlistSvc, logger),
		RBAC:         api.NewRBACHandler(roleSvc, resolver, logger),
		Metrics:      api.NewMetricsHandler(metricsSvc, logger),
	}, resolver, cfg.JWTSecret, limits, logger)

	go sessionSvc.RunPurge(ctx, time.Hour)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting slotbook",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ---------------------------------------------------------------
	// 8. Wait for shutdown
	// ---------------------------------------------------------------
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
