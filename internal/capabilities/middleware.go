package capabilities

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/server/respond"
)

// Require gates a route on the caller's role holding the capability.
func Require(resolver *Resolver, cap Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := middleware.UserRoleFromContext(c)
		if role == "" {
			respond.Error(c, http.StatusForbidden, "forbidden", "no role assigned", nil)
			return
		}
		set := resolver.Resolve(c.Request.Context(), role)
		if !set.Can(cap) {
			respond.Error(c, http.StatusForbidden, "forbidden", "missing capability: "+string(cap), nil)
			return
		}
		c.Next()
	}
}
