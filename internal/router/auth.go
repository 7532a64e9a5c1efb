package router

import (
	"github.com/gin-gonic/gin"

	"github.com/draftdesk/identity/internal/middleware"
)

func (r *Router) authRoutes(engine *gin.Engine, rateLimit gin.HandlerFunc) {
	auth := engine.Group("/auth")
	auth.Use(rateLimit)
	{
		// Public routes (no authentication required)
		auth.POST("/signup", r.authHandler.Signup)
		auth.POST("/login", r.authHandler.Login)
		auth.POST("/request-otp", r.authHandler.RequestOtp)
		auth.POST("/verify-otp", r.authHandler.VerifyOtp)
		auth.POST("/forgot-password", r.authHandler.ForgotPassword)
		auth.POST("/reset-password", r.authHandler.ResetPassword)
		auth.POST("/logout", r.authHandler.Logout)

		// Protected routes (session cookie required)
		protected := auth.Group("")
		protected.Use(middleware.SessionGuard(r.tokens, r.users))
		{
			protected.GET("/me", r.authHandler.Me)
		}
	}
}
