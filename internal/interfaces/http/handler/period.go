package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// PeriodHandler serves accounting periods and the close workflow
type PeriodHandler struct {
	BaseHandler
	periods *ledgerapp.PeriodService
}

// NewPeriodHandler creates a new PeriodHandler
func NewPeriodHandler(periods *ledgerapp.PeriodService) *PeriodHandler {
	return &PeriodHandler{periods: periods}
}

// Create opens a period. POST /periods
func (h *PeriodHandler) Create(c *gin.Context) {
	var req ledgerapp.CreatePeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.periods.CreatePeriod(c.Request.Context(), tenant(c), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List returns periods by start date. GET /periods
func (h *PeriodHandler) List(c *gin.Context) {
	resp, err := h.periods.ListPeriods(c.Request.Context(), tenant(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get returns one period. GET /periods/:id
func (h *PeriodHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.periods.GetPeriod(c.Request.Context(), tenant(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// InitiateClose starts the close checklist. POST /periods/:id/close
func (h *PeriodHandler) InitiateClose(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.periods.InitiateClose(c.Request.Context(), tenant(c), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// CloseProcessForPeriod returns the close of a period. GET /periods/:id/close
func (h *PeriodHandler) CloseProcessForPeriod(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.periods.GetCloseProcessByPeriod(c.Request.Context(), tenant(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetCloseProcess returns a close with its tasks. GET /close-processes/:id
func (h *PeriodHandler) GetCloseProcess(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.periods.GetCloseProcess(c.Request.Context(), tenant(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CompleteClose posts the closing entry and closes the period.
// POST /close-processes/:id/complete
func (h *PeriodHandler) CompleteClose(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.periods.CompleteClose(c.Request.Context(), tenant(c), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ExecuteTask runs one close task. POST /close-tasks/:id/execute
func (h *PeriodHandler) ExecuteTask(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.periods.ExecuteTask(c.Request.Context(), tenant(c), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RegisterRoutes mounts the period and close routes on rg
func (h *PeriodHandler) RegisterRoutes(rg *gin.RouterGroup) {
	periods := rg.Group("/periods")
	periods.POST("", h.Create)
	periods.GET("", h.List)
	periods.GET("/:id", h.Get)
	periods.POST("/:id/close", h.InitiateClose)
	periods.GET("/:id/close", h.CloseProcessForPeriod)

	rg.GET("/close-processes/:id", h.GetCloseProcess)
	rg.POST("/close-processes/:id/complete", h.CompleteClose)
	rg.POST("/close-tasks/:id/execute", h.ExecuteTask)
}
