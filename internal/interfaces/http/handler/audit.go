package handler

import (
	"strconv"
	"strings"
	"time"

	auditapp "github.com/erp/ledger/internal/application/audit"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxAuditLimit caps a single audit listing
const maxAuditLimit = 500

// AuditHandler serves the append-only audit trail
type AuditHandler struct {
	BaseHandler
	audit *auditapp.Service
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit *auditapp.Service) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List returns audit records newest first.
// GET /audit-logs?resource_type=JournalEntry&resource_id=...&action=POST&from=...&to=...&limit=100
func (h *AuditHandler) List(c *gin.Context) {
	filter := audit.Filter{
		ResourceType: c.Query("resource_type"),
		Action:       strings.ToUpper(c.Query("action")),
		Limit:        100,
	}
	if raw := c.Query("resource_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid resource_id: must be a UUID")
			return
		}
		filter.ResourceID = &id
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxAuditLimit {
			h.BadRequest(c, "limit must be between 1 and "+strconv.Itoa(maxAuditLimit))
			return
		}
		filter.Limit = limit
	}
	var ok bool
	if filter.From, ok = h.queryDate(c, "from"); !ok {
		return
	}
	if filter.To, ok = h.queryDate(c, "to"); !ok {
		return
	}
	if filter.To != nil {
		// to is inclusive of the whole day
		end := filter.To.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.To = &end
	}

	logs, err := h.audit.List(c.Request.Context(), tenant(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, logs)
}

// RegisterRoutes mounts the audit routes on rg
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/audit-logs", h.List)
}
