package employee

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
	employees := r.Group("/employees")
	employees.Use(middleware.AuthMiddleware())
	{
		employees.POST("", middleware.Authorize(rbacService, "employee", "manage"), handler.Create)
		employees.GET("", middleware.Authorize(rbacService, "employee", "read"), handler.GetAll)
		employees.GET("/:id", middleware.Authorize(rbacService, "employee", "read"), handler.GetByID)
		employees.PATCH("/:id", middleware.Authorize(rbacService, "employee", "manage"), handler.Update)
		employees.DELETE("/:id", middleware.Authorize(rbacService, "employee", "manage"), handler.Delete)
	}
}
