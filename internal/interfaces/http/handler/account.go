package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler serves the chart of accounts
type AccountHandler struct {
	BaseHandler
	accounts *ledgerapp.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts *ledgerapp.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Create adds an account. POST /accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var req ledgerapp.CreateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.accounts.Create(c.Request.Context(), tenant(c), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List returns accounts ordered by code. GET /accounts
func (h *AccountHandler) List(c *gin.Context) {
	filter := ledgerapp.AccountListFilter{
		Type:       c.Query("type"),
		ActiveOnly: c.Query("active_only") == "true",
		Search:     c.Query("search"),
	}
	if raw := c.Query("parent_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid parent_id: must be a UUID")
			return
		}
		filter.ParentID = &id
	}
	resp, err := h.accounts.List(c.Request.Context(), tenant(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get returns one account. GET /accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.accounts.Get(c.Request.Context(), tenant(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Update changes mutable account fields. PUT /accounts/:id
func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req ledgerapp.UpdateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.accounts.Update(c.Request.Context(), tenant(c), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Deactivate marks an account inactive. POST /accounts/:id/deactivate
func (h *AccountHandler) Deactivate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.accounts.Deactivate(c.Request.Context(), tenant(c), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete removes an account that never carried activity. DELETE /accounts/:id
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.accounts.Delete(c.Request.Context(), tenant(c), actor(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Balance returns the balance, optionally as of a date.
// GET /accounts/:id/balance?as_of=2026-01-31
func (h *AccountHandler) Balance(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	asOf, ok := h.queryDate(c, "as_of")
	if !ok {
		return
	}
	resp, err := h.accounts.GetBalance(c.Request.Context(), tenant(c), id, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Rebuild recomputes cached balances from posted lines.
// POST /accounts/rebuild-balances
func (h *AccountHandler) Rebuild(c *gin.Context) {
	resp, err := h.accounts.RebuildBalances(c.Request.Context(), tenant(c), actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RegisterRoutes mounts the account routes on rg
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/accounts")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.POST("/rebuild-balances", h.Rebuild)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/deactivate", h.Deactivate)
	g.GET("/:id/balance", h.Balance)
}
