package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/credittransfer/internal/app/controllers"
	"github.com/yigit/credittransfer/internal/app/matching"
	appMigrations "github.com/yigit/credittransfer/internal/app/migrations"
	appRepos "github.com/yigit/credittransfer/internal/app/repositories"
	appRoutes "github.com/yigit/credittransfer/internal/app/routes"
	appServices "github.com/yigit/credittransfer/internal/app/services"
	"github.com/yigit/credittransfer/internal/config"
	"github.com/yigit/credittransfer/internal/db"
	appMiddleware "github.com/yigit/credittransfer/internal/middleware"
	pkgAuth "github.com/yigit/credittransfer/internal/pkg/auth"
	"github.com/yigit/credittransfer/internal/pkg/embedding"
	"github.com/yigit/credittransfer/internal/pkg/filestorage"
	"github.com/yigit/credittransfer/internal/pkg/helpers"
	"github.com/yigit/credittransfer/internal/pkg/logger"
	"github.com/yigit/credittransfer/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos           *appRepos.Repositories
	Redis           *db.RedisDB // nil when the embedding cache is disabled
	JWTService      *pkgAuth.JWTService
	Embedder        embedding.Engine
	AuthService     *appServices.AuthService
	CatalogService  *appServices.CatalogService
	TransferService appServices.TransferService
	AuthMiddleware  *appMiddleware.AuthMiddleware
	Controllers     appRoutes.Controllers
	FileStorage     *filestorage.LocalStorage
	Logger          zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	lgr := logger.Configure(logger.Config{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Format == "text",
	})
	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase runs migrations and establishes the connection pool.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(cfg.GetPostgresConnectionString(), cfg.Database.MigrationsPath, lgr)
	if err := migrator.Up(); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return database, nil
}

// SetupEmbedding builds the configured embedding engine, optionally behind a
// Redis cache, and runs a warmup request when enabled.
func SetupEmbedding(cfg *config.Config, lgr zerolog.Logger) (embedding.Engine, *db.RedisDB, error) {
	timeout := helpers.ParseDuration(cfg.Embedding.Timeout, 30*time.Second)

	engine, err := embedding.NewEngine(embedding.Config{
		Provider:   cfg.Embedding.Provider,
		Endpoint:   cfg.Embedding.Endpoint,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		TaskType:   cfg.Embedding.TaskType,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedding engine: %w", err)
	}
	lgr.Info().Str("engine", engine.Name()).Int("dimensions", engine.Dimensions()).Msg("Embedding engine created")

	var rdb *db.RedisDB
	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		rdb, err = db.NewRedisDB(ctx, db.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			// Matching runs uncached while Redis is down
			lgr.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("Redis unavailable, embedding cache disabled")
			rdb = nil
		} else {
			ttl := helpers.ParseDuration(cfg.Redis.CacheTTL, 168*time.Hour)
			engine = embedding.NewCachedEngine(engine, rdb.Client, ttl, lgr)
			lgr.Info().Str("address", cfg.Redis.Address).Dur("ttl", ttl).Msg("Embedding cache enabled")
		}
	}

	if cfg.Embedding.Warmup {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		elapsed, err := embedding.Warmup(ctx, engine)
		if err != nil {
			lgr.Warn().Err(err).Msg("Embedding warmup failed, first match requests may be slow or fail")
		} else {
			lgr.Info().Dur("elapsed", elapsed).Msg("Embedding engine warmed up")
		}
	}

	return engine, rdb, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}
	deps.Repos = appRepos.NewRepositories(database)

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.Embedder, deps.Redis, err = SetupEmbedding(cfg, lgr)
	if err != nil {
		return nil, err
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	matcher := matching.NewEngine(deps.Embedder, helpers.ParseDuration(cfg.Embedding.Timeout, 30*time.Second), logger.WithComponent("matching"))

	deps.AuthService = appServices.NewAuthService(deps.Repos.UserRepository, deps.JWTService, logger.WithComponent("auth"))
	deps.CatalogService = appServices.NewCatalogService(deps.Repos.CatalogRepository)
	deps.TransferService = appServices.NewTransferService(
		deps.Repos.TransferRepository,
		deps.Repos.CatalogRepository,
		deps.Repos.UserRepository,
		matcher,
		appServices.NewStatusAggregator(logger.WithComponent("aggregator")),
		deps.FileStorage,
		cfg.Matching.Concurrency,
		logger.WithComponent("transfer"),
	)

	if cfg.Database.Seed {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := seed.CreateDefaultData(ctx, deps.Repos.UserRepository, deps.CatalogService, cfg.Database.SeedPassword, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.Controllers = appRoutes.Controllers{
		Auth:     controllers.NewAuthController(deps.AuthService, lgr),
		Catalog:  controllers.NewCatalogController(deps.CatalogService, lgr),
		Transfer: controllers.NewTransferController(deps.TransferService, lgr),
		Admin:    controllers.NewAdminController(deps.TransferService, lgr),
	}

	return deps, nil
}

// Close releases connections held outside the database pool
func (d *Dependencies) Close() error {
	var err error
	if d.Redis != nil {
		err = errors.Join(err, d.Redis.Close())
	}
	return err
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(appMiddleware.Recovery(lgr), appMiddleware.RequestLogger(logger.WithComponent("http")))
	router.MaxMultipartMemory = 8 << 20

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)
	return router, nil
}
