package handler

import (
	allocationapp "github.com/erp/ledger/internal/application/allocation"
	"github.com/gin-gonic/gin"
)

// AllocationHandler serves allocation rules and manual allocation runs
type AllocationHandler struct {
	BaseHandler
	rules  *allocationapp.RuleService
	engine *allocationapp.Engine
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(rules *allocationapp.RuleService, engine *allocationapp.Engine) *AllocationHandler {
	return &AllocationHandler{rules: rules, engine: engine}
}

// CreateRule adds an allocation rule. POST /allocation-rules
func (h *AllocationHandler) CreateRule(c *gin.Context) {
	var req allocationapp.CreateRuleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.rules.CreateRule(c.Request.Context(), tenant(c), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListRules returns rules by priority. GET /allocation-rules?status=ACTIVE
func (h *AllocationHandler) ListRules(c *gin.Context) {
	var filter allocationapp.RuleListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	resp, err := h.rules.ListRules(c.Request.Context(), tenant(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetRule returns one rule. GET /allocation-rules/:id
func (h *AllocationHandler) GetRule(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.rules.GetRule(c.Request.Context(), tenant(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SetRuleStatus activates or deactivates a rule. PUT /allocation-rules/:id/status
func (h *AllocationHandler) SetRuleStatus(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req allocationapp.SetRuleStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.rules.SetRuleStatus(c.Request.Context(), tenant(c), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ProcessEntry allocates a posted entry. POST /allocations/entries/:id
func (h *AllocationHandler) ProcessEntry(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.engine.Process(c.Request.Context(), tenant(c), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ProcessPeriod allocates every unallocated entry of a period.
// POST /allocations/periods/:id
func (h *AllocationHandler) ProcessPeriod(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.engine.ProcessPeriod(c.Request.Context(), tenant(c), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetAllocation returns one allocation. GET /allocations/:id
func (h *AllocationHandler) GetAllocation(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.rules.GetAllocation(c.Request.Context(), tenant(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetAllocationBySource returns the allocation of a source entry.
// GET /allocations/entries/:id
func (h *AllocationHandler) GetAllocationBySource(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.rules.GetAllocationBySource(c.Request.Context(), tenant(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RegisterRoutes mounts the allocation routes on rg
func (h *AllocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rules := rg.Group("/allocation-rules")
	rules.POST("", h.CreateRule)
	rules.GET("", h.ListRules)
	rules.GET("/:id", h.GetRule)
	rules.PUT("/:id/status", h.SetRuleStatus)

	allocations := rg.Group("/allocations")
	allocations.GET("/:id", h.GetAllocation)
	allocations.GET("/entries/:id", h.GetAllocationBySource)
	allocations.POST("/entries/:id", h.ProcessEntry)
	allocations.POST("/periods/:id", h.ProcessPeriod)
}
