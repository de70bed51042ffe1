package handler

import (
	"context"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// JournalHandler drives journal entries through draft, approval and posting
type JournalHandler struct {
	BaseHandler
	journal *ledgerapp.JournalService
}

// NewJournalHandler creates a new JournalHandler
func NewJournalHandler(journal *ledgerapp.JournalService) *JournalHandler {
	return &JournalHandler{journal: journal}
}

// Draft stores a new entry in DRAFT. POST /journal-entries
func (h *JournalHandler) Draft(c *gin.Context) {
	var req ledgerapp.DraftEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.journal.Draft(c.Request.Context(), tenant(c), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List pages through entries. GET /journal-entries
func (h *JournalHandler) List(c *gin.Context) {
	var filter ledgerapp.EntryListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.journal.List(c.Request.Context(), tenant(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get returns an entry with its lines. GET /journal-entries/:id
func (h *JournalHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.journal.Get(c.Request.Context(), tenant(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Submit moves a draft to PENDING_APPROVAL. POST /journal-entries/:id/submit
func (h *JournalHandler) Submit(c *gin.Context) {
	h.transition(c, h.journal.Submit)
}

// Approve moves a pending entry to APPROVED. POST /journal-entries/:id/approve
func (h *JournalHandler) Approve(c *gin.Context) {
	h.transition(c, h.journal.Approve)
}

// Post writes an approved entry to the ledger. POST /journal-entries/:id/post
func (h *JournalHandler) Post(c *gin.Context) {
	h.transition(c, h.journal.Post)
}

// Reverse posts the mirror of a posted entry. POST /journal-entries/:id/reverse
func (h *JournalHandler) Reverse(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req ledgerapp.ReverseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.journal.Reverse(c.Request.Context(), tenant(c), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Void cancels an unposted entry. POST /journal-entries/:id/void
func (h *JournalHandler) Void(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req ledgerapp.VoidRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.journal.Void(c.Request.Context(), tenant(c), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *JournalHandler) transition(c *gin.Context, fn func(ctx context.Context, tenantID, actorID, entryID uuid.UUID) (*ledgerapp.EntryResponse, error)) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), tenant(c), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RegisterRoutes mounts the journal routes on rg
func (h *JournalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/journal-entries")
	g.POST("", h.Draft)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/submit", h.Submit)
	g.POST("/:id/approve", h.Approve)
	g.POST("/:id/post", h.Post)
	g.POST("/:id/reverse", h.Reverse)
	g.POST("/:id/void", h.Void)
}
