package middleware

import (
	"net/http"

	"github.com/Harshith-Raju/Leave-Management-System/internal/shared/response"

	"github.com/gin-gonic/gin"
)

// RBACService is a local interface so this package does not import the rbac
// package directly.
type RBACService interface {
	Enforce(role, resource, action string) (bool, error)
}

// Authorize allows the request through only when the authenticated role is
// permitted to perform action on resource.
func Authorize(service RBACService, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing auth context", nil)
			c.Abort()
			return
		}

		allowed, err := service.Enforce(role, resource, action)
		if err != nil {
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Authorization check failed", nil)
			c.Abort()
			return
		}

		if !allowed {
			response.Error(c, http.StatusForbidden, "FORBIDDEN",
				"You do not have permission to access this resource",
				resource+":"+action,
			)
			c.Abort()
			return
		}

		c.Next()
	}
}
