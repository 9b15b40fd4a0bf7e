package api

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"holds-service/internal/models"
	"holds-service/internal/sweeper"
	syncsvc "holds-service/internal/sync"
)

// AdminHandler handles the expiration job lifecycle and snapshot refresh
// endpoints
type AdminHandler struct {
	job             *sweeper.Job
	syncer          *syncsvc.Service
	defaultInterval time.Duration
}

// NewAdminHandler creates a new admin API handler. defaultInterval is used
// when a start request omits the interval.
func NewAdminHandler(job *sweeper.Job, syncer *syncsvc.Service, defaultInterval time.Duration) *AdminHandler {
	return &AdminHandler{
		job:             job,
		syncer:          syncer,
		defaultInterval: defaultInterval,
	}
}

// RegisterRoutes attaches the admin routes to an API group
func (h *AdminHandler) RegisterRoutes(api *gin.RouterGroup) {
	admin := api.Group("/admin")
	{
		admin.POST("/expiration/run", h.runExpiration)
		admin.POST("/expiration/job/start", h.startExpirationJob)
		admin.POST("/expiration/job/stop", h.stopExpirationJob)
		admin.GET("/expiration/job", h.expirationJobStatus)

		admin.POST("/catalog/sync", h.syncCatalog)
		admin.POST("/catalog/sync-active", h.syncActiveHolds)
	}
}

// runExpiration triggers a single sweep immediately
func (h *AdminHandler) runExpiration(c *gin.Context) {
	result, err := h.job.RunOnce(c.Request.Context())
	if err != nil {
		Response.Error(c, err)
		return
	}
	Response.Success(c, result)
}

// startExpirationJob launches the recurring sweep. An empty body is a valid
// request and falls back to the configured default interval.
func (h *AdminHandler) startExpirationJob(c *gin.Context) {
	var req models.StartExpirationJobRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Debug().Err(err).Msg("Failed to bind start job request")
		Response.BindError(c, err)
		return
	}
	if req.IntervalMinutes < 0 {
		Response.ValidationError(c, "interval_minutes", "Interval must not be negative")
		return
	}

	interval := h.defaultInterval
	if req.IntervalMinutes > 0 {
		interval = time.Duration(req.IntervalMinutes) * time.Minute
	}

	if !h.job.Start(interval) {
		Response.BusinessError(c, 409, "Job Already Running",
			"The expiration job is already running", models.ErrorCodeJobAlreadyRunning)
		return
	}

	Response.Success(c, h.job.Status())
}

// stopExpirationJob halts the recurring sweep
func (h *AdminHandler) stopExpirationJob(c *gin.Context) {
	if !h.job.Stop() {
		Response.NotFound(c, "Running expiration job")
		return
	}
	Response.Success(c, h.job.Status())
}

// expirationJobStatus reports whether the job is running
func (h *AdminHandler) expirationJobStatus(c *gin.Context) {
	Response.Success(c, h.job.Status())
}

// syncCatalog refreshes every catalog snapshot from the remote source
func (h *AdminHandler) syncCatalog(c *gin.Context) {
	summary, err := h.syncer.SyncCatalog(c.Request.Context())
	if err != nil {
		Response.Error(c, err)
		return
	}
	Response.Success(c, summary)
}

// syncActiveHolds refreshes snapshots for every item with open holds
func (h *AdminHandler) syncActiveHolds(c *gin.Context) {
	summary, err := h.syncer.SyncActiveHolds(c.Request.Context())
	if err != nil {
		Response.Error(c, err)
		return
	}
	Response.Success(c, summary)
}
