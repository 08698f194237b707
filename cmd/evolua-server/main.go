package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/matalvesdev/evolua-backend-sub004/internal/config"
	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/appointment"
	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/auditevent"
	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/document"
	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/medicalrecord"
	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/patient"
	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/antivirus"
	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/auth"
	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/blobstore"
	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/db"
	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "evolua-server",
		Short: "Evolua clinic management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(clinicCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			clinic, _ := cmd.Flags().GetString("clinic")
			all, _ := cmd.Flags().GetBool("all")

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

			migrator := db.NewMigrator(pool, cfg.MigrationsDir)

			schemas := []string{"clinic_" + clinic}
			if all {
				schemas, err = db.ListClinicSchemas(ctx, pool)
				if err != nil {
					return err
				}
			}

			for _, schema := range schemas {
				fmt.Printf("Running migrations on schema: %s\n", schema)
				count, err := migrator.Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migration failed on %s: %w", schema, err)
				}
				fmt.Printf("Applied %d migration(s).\n", count)
			}
			return nil
		},
	}
	upCmd.Flags().String("clinic", "default", "Target clinic for migrations")
	upCmd.Flags().Bool("all", false, "Migrate every clinic schema")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			clinic, _ := cmd.Flags().GetString("clinic")

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

			migrator := db.NewMigrator(pool, cfg.MigrationsDir)
			statuses, err := migrator.Status(ctx, "clinic_"+clinic)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for clinic: %s\n", clinic)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("clinic", "default", "Target clinic")
	cmd.AddCommand(statusCmd)

	return cmd
}

func clinicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinic",
		Short: "Manage clinic tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new clinic schema and run its migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

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

			fmt.Printf("Creating clinic schema: clinic_%s\n", name)
			if err := db.CreateClinicSchema(ctx, pool, name, cfg.MigrationsDir); err != nil {
				return err
			}
			fmt.Println("Clinic created.")
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Clinic identifier (alphanumeric)")
	cmd.AddCommand(createCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List clinic schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			schemas, err := db.ListClinicSchemas(ctx, pool)
			if err != nil {
				return err
			}
			for _, s := range schemas {
				fmt.Println(s)
			}
			return nil
		},
	}
	cmd.AddCommand(listCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	for _, w := range cfg.Warnings() {
		logger.Warn().Msg(w)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	blobs, err := blobstore.NewFileStore(cfg.BlobDir, cfg.MaxUploadBytes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize blob store")
	}

	// Repositories
	patientRepo := patient.NewRepo(pool)
	recordRepo := medicalrecord.NewRepo(pool)
	documentRepo := document.NewRepo(pool)
	appointmentRepo := appointment.NewRepo(pool)
	auditRepo := auditevent.NewRepo(pool)

	// Services
	registry := patient.NewRegistry(patientRepo, auditRepo, logger)
	recordManager := medicalrecord.NewManager(recordRepo, patientRepo, auditRepo, logger)
	documentManager := document.NewManager(
		documentRepo, blobs, antivirus.NewSignatureScanner(), documentAuthorizer(),
		patientRepo, auditRepo, logger)
	scheduler := appointment.NewScheduler(appointmentRepo, patientRepo, auditRepo, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Clinic-ID"},
	}))
	e.Use(middleware.BodyLimit(cfg.MaxUploadBytes))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	e.Use(db.ClinicMiddleware(pool, cfg.DefaultClinic))
	e.Use(middleware.Audit(logger, auditevent.NewAccessRecorder(auditRepo)))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Routes
	patient.NewHandler(registry).RegisterRoutes(apiV1)
	medicalrecord.NewHandler(recordManager).RegisterRoutes(apiV1)
	document.NewHandler(documentManager).RegisterRoutes(apiV1)
	appointment.NewHandler(scheduler).RegisterRoutes(apiV1)
	auditevent.NewHandler(auditRepo).RegisterRoutes(apiV1)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// documentAuthorizer grants document access to authenticated clinic staff.
// The clinic boundary itself is enforced earlier by the schema-per-clinic
// middleware, so a request can only ever see its own clinic's rows.
func documentAuthorizer() document.Authorizer {
	return document.AuthorizerFunc(func(ctx context.Context, userID string, _ uuid.UUID) (bool, error) {
		if userID == "" {
			return false, nil
		}
		roles := auth.RolesFromContext(ctx)
		return auth.HasRole(roles, auth.RoleAdmin) ||
			auth.HasRole(roles, auth.RoleTherapist) ||
			auth.HasRole(roles, auth.RoleReceptionist), nil
	})
}
