package leave

import (
	"github.com/Harshith-Raju/Leave-Management-System/internal/middleware"
	"github.com/Harshith-Raju/Leave-Management-System/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
	rdb *redis.Client,
) {
	leaves := r.Group("/leaves")
	leaves.Use(middleware.AuthMiddleware())
	{
		leaves.POST("/apply",
			middleware.Authorize(rbacService, "leave", "apply"),
			middleware.RateLimitByEmployee(1, 5),
			middleware.Idempotency(rdb),
			handler.Apply,
		)
		leaves.GET("", middleware.Authorize(rbacService, "leave", "read_all"), handler.GetAll)
		leaves.GET("/my-leaves", middleware.Authorize(rbacService, "leave", "read_own"), handler.GetMine)
		leaves.GET("/:id", middleware.Authorize(rbacService, "leave", "read_all"), handler.GetByID)
		leaves.PATCH("/:id/status", middleware.Authorize(rbacService, "leave", "approve"), handler.UpdateStatus)
	}
}
