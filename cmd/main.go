package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gorm.io/gorm"

	configs "github.com/draftdesk/identity/config"
	"github.com/draftdesk/identity/internal/handler"
	"github.com/draftdesk/identity/internal/repository"
	"github.com/draftdesk/identity/internal/router"
	"github.com/draftdesk/identity/internal/service"
	"github.com/draftdesk/identity/pkg/database"
	"github.com/draftdesk/identity/pkg/logger"
	"github.com/draftdesk/identity/pkg/redis"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize Zap logger
	if err := logger.InitLogger(config.App.Environment); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
	)

	// Implicit provisioning is a development convenience only.
	if config.IsProduction() && config.Auth.AllowImplicitProvisioning {
		logger.GetLogger().Warn("Implicit provisioning disabled in production")
		config.Auth.AllowImplicitProvisioning = false
	}

	// User store: Postgres in deployments, in-memory for local runs.
	var db *gorm.DB
	var userRepo repository.UserRepository
	switch config.Database.Driver {
	case "postgres":
		db, err = database.NewPostgresDB(config)
		if err != nil {
			logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
		}
		defer database.CloseDB(db)

		if err := database.AutoMigrate(db); err != nil {
			logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
		}
		logger.GetLogger().Info("Database migrated successfully")

		userRepo = repository.NewGormUserRepository(db)
	default:
		logger.GetLogger().Info("Using in-memory user store")
		userRepo = repository.NewInMemoryUserRepository()
	}

	// Code store: Redis when configured, in-memory otherwise.
	var redisClient *redis.Client
	var codeStore repository.CodeStore
	switch config.Redis.Driver {
	case "redis":
		redisClient, err = redis.NewClient(config)
		if err != nil {
			logger.GetLogger().Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()

		codeStore = repository.NewRedisCodeStore(redisClient.Raw(), config.Otp.LockoutDuration)
	default:
		logger.GetLogger().Info("Using in-memory code store")
		codeStore = repository.NewInMemoryCodeStore()
	}

	// Services
	hasher := service.NewCredentialHasher()
	tokenService := service.NewTokenService(config.JWT.Secret, config.JWT.AccessTokenTTL)
	otpRegistry := service.NewOtpRegistry(codeStore, hasher, service.OtpRegistryConfig{
		CodeLength:        config.Otp.CodeLength,
		TTL:               config.Otp.TTL,
		MaxPerHour:        config.Otp.MaxPerHour,
		MaxVerifyAttempts: config.Otp.MaxVerifyAttempts,
		LockoutWindow:     config.Otp.LockoutDuration,
		Production:        config.IsProduction(),
	})
	resetRegistry := service.NewResetRegistry(codeStore, hasher, config.Reset.CodeLength, config.Reset.TTL)
	dispatcher := service.NewNotificationDispatcher(
		service.NewEmailProviderFromConfig(config.SMTP),
		service.NewSmsProviderFromConfig(config.SMS),
		config.Otp.TTL,
		config.Reset.TTL,
	)
	authService := service.NewAuthService(userRepo, hasher, tokenService, otpRegistry, resetRegistry, dispatcher, config.Auth)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, tokenService, config)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	r, err := router.NewRouter(
		authHandler,
		healthHandler,
		tokenService,
		userRepo,
		config,
	).SetupRoutes()
	if err != nil {
		logger.GetLogger().Fatal("Failed to set up routes", zap.Error(err))
	}

	go func() {
		logger.GetLogger().Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := r.Run(":" + config.App.Port); err != nil {
			logger.GetLogger().Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.GetLogger().Info("Shutting down server...")
}
