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

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/talladmin/internal/adapter/fsm"
	handler "github.com/neomorfeo/talladmin/internal/adapter/http"
	"github.com/neomorfeo/talladmin/internal/adapter/jwt"
	"github.com/neomorfeo/talladmin/internal/adapter/mail"
	"github.com/neomorfeo/talladmin/internal/adapter/otel"
	"github.com/neomorfeo/talladmin/internal/adapter/redis"
	"github.com/neomorfeo/talladmin/internal/adapter/river"
	"github.com/neomorfeo/talladmin/internal/adapter/sqlite"
	"github.com/neomorfeo/talladmin/internal/app"
	"github.com/neomorfeo/talladmin/internal/config"
	"github.com/neomorfeo/talladmin/internal/logging"
	"github.com/neomorfeo/talladmin/internal/metrics"
)

const (
	serviceName     = "talladmin"
	serviceVersion  = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("talladmin stopped")
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("otel shutdown")
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("database: %w", err)
	}
	defer repo.Close()

	accounts := sqlite.NewAccountStore(db)
	if cfg.AdminEmail != "" {
		if err := accounts.EnsureAccount(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seeding admin account: %w", err)
		}
	}

	riverClient, err := river.Setup(ctx, db, mail.NewLogMailer(logger))
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	dispatcher := river.NewDispatcher(riverClient)
	effects := otel.NewTracingSideEffects(dispatcher)
	publisher := otel.NewTracingPublisher(river.NewPublisher(riverClient))

	redisOpts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis url: %w", err)
	}
	rdb := goredis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	otpOpts := redis.DefaultOTPOptions()
	otpOpts.TTL = cfg.OTPTTL
	otpOpts.MaxAttempts = cfg.OTPMaxAttempts
	otp := otel.NewTracingOTP(redis.NewOTPService(rdb, dispatcher, otpOpts))

	issuer, err := jwt.NewIssuer(cfg.SessionKey, cfg.SessionIssuer, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("sessions: %w", err)
	}

	// --- Application ---
	tenantRepo := redis.NewCachingRepository(otel.NewTracingRepository(repo), rdb, cfg.TenantCacheTTL)
	tenants := app.NewTenantService(tenantRepo, publisher, fsm.New(),
		app.WithSideEffects(effects, effects, effects),
		app.WithTenantMetrics(m),
		app.WithPhoneRegion(cfg.PhoneRegion),
		app.WithRetention(cfg.Retention),
	)
	auth := app.NewAuthService(app.AuthDeps{
		Credentials: accounts,
		Sessions:    issuer,
		OTP:         otp,
		Steps:       fsm.NewSteps(),
		Metrics:     m,
	}, cfg.FlowTTL, nil)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))
	router.Use(logging.Requests(logger))
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	api := humachi.New(router, huma.DefaultConfig(serviceName, serviceVersion))
	handler.RegisterTenants(api, tenants, issuer)
	handler.RegisterAuth(api, auth)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Run ---
	janitor := river.NewCodeMailJanitor(riverClient)
	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("docs", "/docs").Msg("talladmin listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return auth.Run(gctx)
	})
	g.Go(func() error {
		return janitor.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := riverClient.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("river shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("stopped")
	return nil
}
