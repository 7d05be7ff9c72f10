package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"anoa.com/shuttleapi/internal/bootstrap"
	"anoa.com/shuttleapi/internal/config"
	userRepo "anoa.com/shuttleapi/internal/modules/user/repository"
	"anoa.com/shuttleapi/internal/server"
	"anoa.com/shuttleapi/internal/store"
	"anoa.com/shuttleapi/pkg/database"
	"anoa.com/shuttleapi/pkg/logger"
	"anoa.com/shuttleapi/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := server.Deps{
		Store:        openStore(cfg),
		Redis:        connectRedis(ctx, cfg),
		Meili:        connectMeilisearch(cfg),
		ImageStorage: connectImageStorage(cfg),
	}

	if !cfg.IsProduction() {
		if err := bootstrap.SeedDevUsers(ctx, userRepo.NewUserRepository(deps.Store)); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed dev users")
		}
	}

	srv, err := server.NewServer(cfg, deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}
	if err := srv.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start reactor")
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Run(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown finished with errors")
	}
	if deps.Redis != nil {
		_ = deps.Redis.Close()
	}
	logger.Info().Msg("server stopped")
}

func openStore(cfg *config.Config) store.Store {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return store.NewMemoryStore()
	}

	db, err := database.Connect(database.Config{
		Host:     cfg.DBHost,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		Port:     cfg.DBPort,
		SSLMode:  cfg.DBSSLMode,
		URL:      cfg.DatabaseURL,
		Debug:    !cfg.IsProduction() && cfg.LogLevel == "debug",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	if err := bootstrap.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	return store.NewGormStore(db)
}

func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info().Msg("REDIS_URL not set, cooldowns and realtime notifications disabled")
		return nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, continuing without it")
		_ = client.Close()
		return nil
	}
	return client
}

func connectMeilisearch(cfg *config.Config) meilisearch.ServiceManager {
	if cfg.MeiliSearchHost == "" {
		return nil
	}
	return meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
}

func connectImageStorage(cfg *config.Config) storage.ImageStorage {
	imageStorage, err := storage.NewCloudinaryStorage(storage.CloudinaryConfig{
		CloudName:  cfg.CloudinaryCloudName,
		APIKey:     cfg.CloudinaryAPIKey,
		APISecret:  cfg.CloudinaryAPISecret,
		RootFolder: cfg.CloudinaryUploadFolder,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("cloudinary not configured, image upload disabled")
		return nil
	}
	return imageStorage
}
