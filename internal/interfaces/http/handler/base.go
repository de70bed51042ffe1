package handler

import (
	"net/http"
	"time"

	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// dateLayout is the query parameter format for dates
const dateLayout = "2006-01-02"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// tenant returns the tenant resolved by the identity middleware
func tenant(c *gin.Context) uuid.UUID {
	return middleware.GetTenantID(c)
}

// actor returns the caller, uuid.Nil for system calls
func actor(c *gin.Context) uuid.UUID {
	return middleware.GetActorID(c)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	middleware.SetErrorCode(c, dto.ErrCodeBadRequest)
	c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(dto.ErrCodeBadRequest, message, middleware.GetRequestID(c)))
}

// HandleError converts err into an error response. Domain errors keep their
// code, lines and details; anything else is logged and reported as internal.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, info := dto.ErrorInfoFrom(err, middleware.GetRequestID(c))
	middleware.SetErrorCode(c, info.Code)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("Request failed",
			zap.String("code", info.Code),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.JSON(status, dto.NewErrorResponse(info))
}

// bindJSON binds the request body, writing the 400 response on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.SetErrorCode(c, dto.ErrCodeValidation)
		middleware.HandleBindError(c, err)
		return false
	}
	return true
}

// bindQuery binds query parameters, writing the 400 response on failure
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.SetErrorCode(c, dto.ErrCodeValidation)
		middleware.HandleBindError(c, err)
		return false
	}
	return true
}

// pathID parses a UUID path parameter
func (h *BaseHandler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryDate parses an optional YYYY-MM-DD query parameter
func (h *BaseHandler) queryDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		h.BadRequest(c, "Invalid "+name+": expected YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}

// requiredDate parses a mandatory YYYY-MM-DD query parameter
func (h *BaseHandler) requiredDate(c *gin.Context, name string) (time.Time, bool) {
	t, ok := h.queryDate(c, name)
	if !ok {
		return time.Time{}, false
	}
	if t == nil {
		h.BadRequest(c, name+" is required")
		return time.Time{}, false
	}
	return *t, true
}
