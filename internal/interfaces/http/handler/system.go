package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// healthCheckTimeout bounds each dependency probe
const healthCheckTimeout = 2 * time.Second

// DatabaseStatus is the part of the database the system endpoints probe
type DatabaseStatus interface {
	Ping() error
	Stats() (persistence.ConnectionStats, error)
}

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// SystemHandler serves liveness, readiness and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	db        DatabaseStatus
	checks    []namedCheck
}

type namedCheck struct {
	name  string
	check HealthCheck
}

// NewSystemHandler creates a new SystemHandler. db may be nil in tests.
func NewSystemHandler(name, version string, db DatabaseStatus) *SystemHandler {
	h := &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		db:        db,
	}
	if db != nil {
		h.AddCheck("database", func(context.Context) error { return db.Ping() })
	}
	return h
}

// AddCheck adds a readiness probe
func (h *SystemHandler) AddCheck(name string, check HealthCheck) *SystemHandler {
	h.checks = append(h.checks, namedCheck{name: name, check: check})
	return h
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string                       `json:"name"`
	Version   string                       `json:"version"`
	GoVersion string                       `json:"go_version"`
	Uptime    string                       `json:"uptime"`
	Database  *persistence.ConnectionStats `json:"database,omitempty"`
}

// HealthResponse reports each dependency as "ok" or its error
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// GetSystemInfo GET /system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.db != nil {
		if stats, err := h.db.Stats(); err == nil {
			info.Database = &stats
		}
	}
	h.Success(c, info)
}

// Live always answers 200 while the process serves requests. GET /healthz
func (h *SystemHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Checks: map[string]string{}})
}

// Ready runs every probe and answers 503 when one fails. GET /health
func (h *SystemHandler) Ready(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for _, nc := range h.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		err := nc.check(ctx)
		cancel()
		if err != nil {
			resp.Status = "unavailable"
			resp.Checks[nc.name] = err.Error()
			continue
		}
		resp.Checks[nc.name] = "ok"
	}
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// Ping GET /system/ping
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"message":   "pong",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}))
}

// RegisterProbes mounts the unauthenticated health routes on the engine root
func (h *SystemHandler) RegisterProbes(engine *gin.Engine) {
	engine.GET("/healthz", h.Live)
	engine.GET("/health", h.Ready)
	engine.GET("/ready", h.Ready)
}

// RegisterRoutes mounts the system routes on rg
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/system")
	g.GET("/info", h.GetSystemInfo)
	g.GET("/ping", h.Ping)
}
