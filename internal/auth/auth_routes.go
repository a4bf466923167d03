package auth

import (
	"github.com/Harshith-Raju/Leave-Management-System/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", middleware.RateLimitByIP(5, 10), handler.Login)
		authGroup.GET("/profile", middleware.AuthMiddleware(), handler.GetProfile)
	}
}
