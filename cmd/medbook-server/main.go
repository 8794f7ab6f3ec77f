package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medbook/medbook/internal/config"
	"github.com/medbook/medbook/internal/domain/clinic"
	"github.com/medbook/medbook/internal/domain/identity"
	"github.com/medbook/medbook/internal/domain/scheduling"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/internal/platform/db"
	"github.com/medbook/medbook/internal/platform/events"
	"github.com/medbook/medbook/internal/platform/middleware"
	"github.com/medbook/medbook/internal/platform/notification"
	"github.com/medbook/medbook/internal/platform/respond"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medbook-server",
		Short: "Clinic appointment booking API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(remindersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "" || os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "apply pending migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator, logger zerolog.Logger) error {
				version, err := m.Up(ctx)
				if err != nil {
					return err
				}
				logger.Info().Int64("version", version).Msg("migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator, _ zerolog.Logger) error {
				return m.Down(ctx)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator, _ zerolog.Logger) error {
				return m.Status(ctx)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator, _ zerolog.Logger) error {
				version, err := m.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Println(version)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(fn func(ctx context.Context, m *db.Migrator, logger zerolog.Logger) error) error {
	logger := newLogger()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	m, err := db.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(ctx, m, logger)
}

func remindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Appointment reminder tasks",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Send reminders for upcoming appointments once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			app, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.close()

			sent, err := app.scheduling.SendReminders(ctx, cfg.ReminderLead)
			if err != nil {
				return err
			}
			logger.Info().Int("sent", sent).Msg("reminders sent")
			return nil
		},
	})
	return cmd
}

// app holds the services shared by serve and the one-shot commands.
type app struct {
	pool       *pgxpool.Pool
	publisher  events.Publisher
	clinics    *clinic.Service
	identity   *identity.Service
	scheduling *scheduling.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info().Msg("connected to database")

	var publisher events.Publisher
	if cfg.EventsEnabled() {
		amqpPub, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		publisher = amqpPub
		logger.Info().Str("exchange", cfg.RabbitMQExchange).Msg("publishing events to rabbitmq")
	} else {
		publisher = events.NewLogPublisher(logger)
	}

	notifier := notification.NewNotifier(notification.NewLogEmailSender(logger), notification.NewTemplateEngine())
	issuer := auth.NewIssuer(cfg.JWTIssuer, cfg.SigningKey(), cfg.JWTTTL)

	clinicSvc := clinic.NewService(clinic.NewClinicRepoPG(pool), clinic.NewDoctorRepoPG(pool), logger)
	identitySvc := identity.NewService(identity.NewUserRepoPG(pool), issuer, logger)
	schedulingSvc := scheduling.NewService(scheduling.NewAppointmentRepoPG(pool), clinicSvc, publisher, notifier, loc, logger)
	schedulingSvc.UseTx(func(ctx context.Context, fn func(context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	})

	return &app{
		pool:       pool,
		publisher:  publisher,
		clinics:    clinicSvc,
		identity:   identitySvc,
		scheduling: schedulingSvc,
	}, nil
}

func (a *app) close() {
	_ = a.publisher.Close()
	a.pool.Close()
}

func runServer(migrate bool) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise")
	}
	defer a.close()

	if migrate {
		m, err := db.NewMigrator(a.pool, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare migrations")
		}
		version, err := m.Up(ctx)
		_ = m.Close()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
		logger.Info().Int64("version", version).Msg("schema up to date")
	}

	if cfg.IsDev() {
		if err := a.identity.EnsureDevUser(ctx); err != nil {
			logger.Warn().Err(err).Msg("could not seed development user")
		}
	}

	e := newServer(cfg, a, logger)

	jobCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	go scheduling.NewReminders(a.scheduling, cfg.ReminderInterval, cfg.ReminderLead).Run(jobCtx)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stopJobs()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer builds the echo instance with global middleware and all routes.
func newServer(cfg *config.Config, a *app, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = respond.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.JWTIssuer,
		SigningKey: cfg.SigningKey(),
		Skipper:    auth.AuthSkipper,
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return respond.OK(c, http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(a.pool))

	api := e.Group("/api/v1")
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		MaxClients:        cfg.RateLimitMaxClients,
	}))

	identity.NewHandler(a.identity).RegisterRoutes(api)
	clinic.NewHandler(a.clinics).RegisterRoutes(api)
	scheduling.NewHandler(a.scheduling).RegisterRoutes(api)

	return e
}
