package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/dealbase-inc/dealbase-engine/pkg/auth"
	"github.com/dealbase-inc/dealbase-engine/pkg/config"
	"github.com/dealbase-inc/dealbase-engine/pkg/crypto"
	"github.com/dealbase-inc/dealbase-engine/pkg/database"
	"github.com/dealbase-inc/dealbase-engine/pkg/handlers"
	"github.com/dealbase-inc/dealbase-engine/pkg/logging"
	"github.com/dealbase-inc/dealbase-engine/pkg/middleware"
	"github.com/dealbase-inc/dealbase-engine/pkg/repositories"
	"github.com/dealbase-inc/dealbase-engine/pkg/services"
	"github.com/dealbase-inc/dealbase-engine/pkg/skiptrace"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", cfg.Database.Host),
		zap.String("redis", cfg.Redis.Host))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	cache, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	protector, err := crypto.NewPhoneProtector(cfg.ContactEncryptionKey, cfg.PhoneHashKey)
	if err != nil {
		logger.Fatal("failed to initialize phone protection", zap.Error(err))
	}

	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		logger.Fatal("failed to load qualification policy", zap.Error(err))
	}

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("failed to initialize JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()

	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)

	// Repositories
	propertyRepo := repositories.NewPropertyRepository(db)
	ruleRepo := repositories.NewRuleRepository(db)
	dealRepo := repositories.NewDealRepository(db)
	contactLogRepo := repositories.NewContactLogRepository(db)
	consentRepo := repositories.NewConsentRepository(db)
	dncRepo := repositories.NewDNCRepository(db)
	skipTraceRepo := repositories.NewSkipTraceRepository(db)

	// Services
	dealService := services.NewDealService(db, dealRepo, propertyRepo, ruleRepo, policy, logger)
	complianceService := services.NewComplianceService(db, contactLogRepo, consentRepo, dncRepo, protector, cache, logger)
	skipTraceService := services.NewSkipTraceService(skipTraceRepo, propertyRepo, logger)

	// HTTP surface
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewDealsHandler(dealService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewAnalysisHandler(logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewComplianceHandler(complianceService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewSkipTraceHandler(skipTraceService, logger).RegisterRoutes(mux, authMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	if cfg.SkipTrace.WorkerEnabled {
		provider := skiptrace.NewClient(cfg.SkipTrace.BaseURL, cfg.SkipTrace.APIKey)
		runner := skiptrace.NewRunner(skipTraceRepo, provider, protector, logger)
		go runner.Run(ctx)
		logger.Info("skip-trace runner started")
	}

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting dealbase-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown did not complete cleanly", zap.Error(err))
	}
}

// runMigrations applies pending schema migrations. golang-migrate needs a
// database/sql handle, so this opens its own short-lived connection.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	return database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger)
}
