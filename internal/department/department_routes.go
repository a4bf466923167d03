package department

import (
	"github.com/Harshith-Raju/Leave-Management-System/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	departments := r.Group("/departments")
	departments.Use(middleware.AuthMiddleware())
	{
		departments.GET("", handler.GetOptions)
		departments.GET("/:id", handler.GetById)
	}
}
