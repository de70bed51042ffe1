package handler

import (
	"strconv"

	retentionapp "github.com/erp/ledger/internal/application/retention"
	"github.com/gin-gonic/gin"
)

// RetentionHandler manages data retention policies
type RetentionHandler struct {
	BaseHandler
	retention *retentionapp.Service
}

// NewRetentionHandler creates a new RetentionHandler
func NewRetentionHandler(retention *retentionapp.Service) *RetentionHandler {
	return &RetentionHandler{retention: retention}
}

// Create adds a policy. POST /retention-policies
func (h *RetentionHandler) Create(c *gin.Context) {
	var req retentionapp.CreatePolicyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.retention.CreatePolicy(c.Request.Context(), tenant(c), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List returns the tenant's policies. GET /retention-policies
func (h *RetentionHandler) List(c *gin.Context) {
	resp, err := h.retention.ListPolicies(c.Request.Context(), tenant(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Run executes a policy immediately. POST /retention-policies/:id/run
func (h *RetentionHandler) Run(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.retention.RunPolicy(c.Request.Context(), tenant(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Executions lists recent runs of a policy.
// GET /retention-policies/:id/executions?limit=20
func (h *RetentionHandler) Executions(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}
	resp, err := h.retention.ListExecutions(c.Request.Context(), tenant(c), id, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RegisterRoutes mounts the retention routes on rg
func (h *RetentionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/retention-policies")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.POST("/:id/run", h.Run)
	g.GET("/:id/executions", h.Executions)
}
