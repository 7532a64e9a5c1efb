package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/draftdesk/identity/config"
	"github.com/draftdesk/identity/internal/handler"
	"github.com/draftdesk/identity/internal/middleware"
	"github.com/draftdesk/identity/internal/repository"
	"github.com/draftdesk/identity/internal/service"
	"github.com/draftdesk/identity/pkg/validation"
)

type Router struct {
	authHandler   *handler.AuthHandler
	healthHandler *handler.HealthHandler

	tokens *service.TokenService
	users  repository.UserRepository
	Config *config.Config
}

func NewRouter(
	auth *handler.AuthHandler,
	health *handler.HealthHandler,
	tokens *service.TokenService,
	users repository.UserRepository,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:   auth,
		healthHandler: health,
		tokens:        tokens,
		users:         users,
		Config:        cfg,
	}
}

func (r *Router) SetupRoutes() (*gin.Engine, error) {
	if r.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// A rule that fails to register would panic on the first bind that
	// uses its tag, so refuse to start instead.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := validation.RegisterRules(v, r.Config.Otp.CodeLength); err != nil {
			return nil, fmt.Errorf("failed to register validation rules: %w", err)
		}
	}

	router := gin.New()

	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.SecurityLoggingMiddleware())
	router.Use(middleware.CORS(r.Config.App.Origin, r.Config.IsProduction()))

	router.GET("/health", r.healthHandler.HealthCheck)

	r.authRoutes(router, middleware.RateLimit(
		r.Config.RateLimit.Request,
		time.Duration(r.Config.RateLimit.Duration)*time.Second,
	))

	return router, nil
}
