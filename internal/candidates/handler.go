package candidates

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/capabilities"
	"ats-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the candidates service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches candidate routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, caps *capabilities.Resolver) {
	read := capabilities.Require(caps, capabilities.CandidatesRead)
	rg.GET("/candidates", read, h.list)
	rg.GET("/candidates/:id", read, h.get)
}

func (h *Handler) get(c *gin.Context) {
	candidateID := c.Param("id")
	if candidateID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "candidate id is required", nil)
		return
	}

	cand, err := h.Svc.Get(c.Request.Context(), candidateID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "candidate not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch candidate", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toResponse(cand))
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 100 {
		limit = 100
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	cands, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list candidates", nil)
		return
	}

	resp := make([]gin.H, 0, len(cands))
	for _, cand := range cands {
		resp = append(resp, toResponse(cand))
	}

	respond.JSON(c, http.StatusOK, resp)
}

func toResponse(cand Candidate) gin.H {
	return gin.H{
		"candidateId": cand.ID,
		"fullName":    cand.FullName,
		"email":       cand.Email,
		"phone":       cand.Phone,
		"sourceFile":  cand.SourceFile,
		"createdAt":   cand.CreatedAt,
		"updatedAt":   cand.UpdatedAt,
	}
}
