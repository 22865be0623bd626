package capabilities

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/server/respond"
)

// Handler exposes the caller's resolved permission matrix.
type Handler struct {
	Resolver *Resolver
}

// NewHandler constructs a Handler.
func NewHandler(resolver *Resolver) *Handler {
	return &Handler{Resolver: resolver}
}

// RegisterRoutes attaches the permissions route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/permissions", h.permissions)
}

func (h *Handler) permissions(c *gin.Context) {
	role := middleware.UserRoleFromContext(c)
	set := h.Resolver.Resolve(c.Request.Context(), role)

	caps := set.List()
	sort.Strings(caps)

	respond.JSON(c, http.StatusOK, gin.H{
		"role":         role,
		"capabilities": caps,
	})
}
