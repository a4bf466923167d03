package balance

import (
	"github.com/Harshith-Raju/Leave-Management-System/internal/middleware"
	"github.com/Harshith-Raju/Leave-Management-System/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
) {
	balances := r.Group("/balances")
	balances.Use(middleware.AuthMiddleware())
	{
		balances.GET("/me", middleware.Authorize(rbacService, "balance", "read_own"), handler.GetMine)
		balances.GET("/:id", middleware.Authorize(rbacService, "balance", "read"), handler.GetByEmployee)
	}
}
