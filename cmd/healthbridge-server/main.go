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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthbridge/healthbridge/internal/config"
	"github.com/healthbridge/healthbridge/internal/domain/appointment"
	"github.com/healthbridge/healthbridge/internal/domain/assistant"
	"github.com/healthbridge/healthbridge/internal/domain/doctor"
	"github.com/healthbridge/healthbridge/internal/domain/hospital"
	"github.com/healthbridge/healthbridge/internal/domain/identity"
	"github.com/healthbridge/healthbridge/internal/domain/medicine"
	"github.com/healthbridge/healthbridge/internal/domain/order"
	"github.com/healthbridge/healthbridge/internal/domain/pharmacy"
	"github.com/healthbridge/healthbridge/internal/domain/prescription"
	"github.com/healthbridge/healthbridge/internal/jobs"
	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/auth"
	"github.com/healthbridge/healthbridge/internal/platform/cache"
	"github.com/healthbridge/healthbridge/internal/platform/db"
	"github.com/healthbridge/healthbridge/internal/platform/docstore"
	"github.com/healthbridge/healthbridge/internal/platform/middleware"
)

const version = "1.0.0"

// collections lists every collection the server uses, for index creation.
var collections = []docstore.Spec{
	identity.Collection,
	medicine.Collection,
	pharmacy.Collection,
	prescription.Collection,
	hospital.MarkerCollection,
	hospital.AccountCollection,
	appointment.Collection,
	doctor.ReviewCollection,
	order.Collection,
}

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "healthbridge-server",
		Short: "HealthBridge API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(indexesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Start the API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage PostgreSQL migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, db.Migrations()).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format(time.RFC3339)
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

func indexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the unique and geo indexes of every collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			store, _, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			if err := store.EnsureIndexes(ctx, collections...); err != nil {
				return err
			}
			fmt.Printf("Indexes ensured for %d collection(s) on %s.\n", len(collections), store.Backend())
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required for migrations")
	}
	return db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
}

// openStore connects the configured backend. The pool is returned only for
// the postgres backend.
func openStore(ctx context.Context, cfg *config.Config) (*docstore.Store, *pgxpool.Pool, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return nil, nil, err
		}
		return docstore.NewPostgresStore(pool), pool, nil
	case config.BackendMemory:
		return docstore.NewMemoryStore(), nil, nil
	default:
		database, err := docstore.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return docstore.NewMongoStore(database), nil, nil
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// deps are the connections a server is built from.
type deps struct {
	store   *docstore.Store
	pool    *pgxpool.Pool
	revoked auth.RevocationStore
	cache   cache.Store
	ai      assistant.Completer
}

// services exposes what the background jobs need from the built server.
type services struct {
	appointments *appointment.Service
	pharmacy     *pharmacy.Service
}

func newServer(cfg *config.Config, d deps, logger zerolog.Logger) (*echo.Echo, *services) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apierror.ErrorHandler(e)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID, auth.TokenHeader},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit("1M"))

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}

	tokens := auth.NewTokenIssuer(cfg.SigningKey(), cfg.TokenTTL)
	gate := auth.NewGate(tokens, d.revoked, logger)

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "API working")
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(d.store, d.pool))

	api := e.Group("/api")
	api.Use(middleware.RateLimit(rateLimitCfg))

	// Identity
	identitySvc := identity.NewService(identity.NewStoreRepo(d.store), tokens)
	identity.NewHandler(identitySvc, d.revoked).RegisterRoutes(api, gate)

	// Catalogue and stock
	medicineSvc := medicine.NewService(medicine.NewStoreRepo(d.store))
	medicine.NewHandler(medicineSvc).RegisterRoutes(api, gate)
	pharmacySvc := pharmacy.NewService(pharmacy.NewStoreRepo(d.store), identitySvc)
	pharmacy.NewHandler(pharmacySvc).RegisterRoutes(api, gate)

	// Care
	appointmentSvc := appointment.NewService(appointment.NewStoreRepo(d.store), identitySvc)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(api, gate)
	prescription.NewHandler(prescription.NewService(prescription.NewStoreRepo(d.store))).RegisterRoutes(api, gate)
	doctorSvc := doctor.NewService(identitySvc, doctor.NewReviewRepo(d.store), appointmentSvc)
	doctor.NewHandler(doctorSvc).RegisterRoutes(api, gate)
	order.NewHandler(order.NewService(order.NewStoreRepo(d.store), medicineSvc)).RegisterRoutes(api, gate)

	// Hospitals
	hospitalSvc := hospital.NewService(
		hospital.NewMarkerRepo(d.store),
		hospital.NewAccountRepo(d.store),
		tokens, d.cache, logger, cfg.HospitalTokenTTL,
	)
	hospital.NewHandler(hospitalSvc, d.revoked).RegisterRoutes(api, gate)

	assistant.NewHandler(d.ai, logger).RegisterRoutes(api, gate)

	return e, &services{appointments: appointmentSvc, pharmacy: pharmacySvc}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server failed")
		return err
	}
	return nil
}

// run serves until ctx is cancelled or the listener fails. Every failure is
// returned, so the connections opened so far are closed on the way out.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	store, pool, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to document store: %w", err)
	}
	defer store.Close(context.Background())
	logger.Info().Str("backend", store.Backend()).Msg("connected to document store")

	if err := store.EnsureIndexes(ctx, collections...); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	d := deps{
		store: store,
		pool:  pool,
		ai:    assistant.NewClient(cfg.AIAPIURL, cfg.AIAPIKey, cfg.AIModel, cfg.AITimeout),
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		d.revoked = auth.NewRedisRevocationStore(client)
		d.cache = cache.NewRedis(client, "healthbridge:")
		logger.Info().Msg("connected to redis")
	} else {
		revoked := auth.NewMemoryRevocationStore(time.Minute)
		defer revoked.Close()
		mem := cache.NewMemory()
		cleanupCtx, stopCleanup := context.WithCancel(ctx)
		defer stopCleanup()
		mem.StartCleanup(cleanupCtx, time.Minute)
		d.revoked = revoked
		d.cache = mem
	}
	if cfg.AIAPIKey == "" {
		logger.Warn().Msg("AI_API_KEY not set, /api/ai/query will answer 500")
	}

	e, svcs := newServer(cfg, d, logger)

	var runner *jobs.Runner
	if cfg.JobsEnabled {
		runner = jobs.New(svcs.appointments, svcs.pharmacy, cfg.StaleBookingAfter, logger)
		if err := runner.Start(); err != nil {
			return fmt.Errorf("start jobs: %w", err)
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		serveErr <- e.Start(addr)
	}()

	var failed error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			failed = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if runner != nil {
		runner.Stop(shutdownCtx)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		if failed == nil {
			failed = err
		}
	}
	if failed != nil {
		return failed
	}
	logger.Info().Msg("server stopped")
	return nil
}
