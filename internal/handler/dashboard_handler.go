package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seedlinghq/seedling-api/internal/middleware"
	"github.com/seedlinghq/seedling-api/internal/service"
	appErrors "github.com/seedlinghq/seedling-api/pkg/errors"
	"github.com/seedlinghq/seedling-api/pkg/response"
)

// DashboardHandler wires dashboard snapshots and the live watch stream.
type DashboardHandler struct {
	dashboards *service.DashboardService
	metrics    *service.MetricsService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(dashboards *service.DashboardService, metrics *service.MetricsService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards, metrics: metrics}
}

// Admin godoc
// @Summary Admin dashboard summary
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	start := time.Now()
	summary, cacheHit, err := h.dashboards.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, start, summary, cacheHit)
}

// Teacher godoc
// @Summary Teacher dashboard summary
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/teacher [get]
func (h *DashboardHandler) Teacher(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.dashboards.Teacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, start, summary, cacheHit)
}

// Parent godoc
// @Summary Parent dashboard summary
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/parent [get]
func (h *DashboardHandler) Parent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.dashboards.Parent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, start, summary, cacheHit)
}

// Watch godoc
// @Summary Stream dashboard snapshots
// @Description Server-sent events; the stream ends when the client disconnects
// @Tags Dashboard
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200
// @Router /dashboard/watch [get]
func (h *DashboardHandler) Watch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	snapshots, err := h.dashboards.Watch(c.Request.Context(), claims.Role, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Stream(func(w io.Writer) bool {
		snap, ok := <-snapshots
		if !ok {
			return false
		}
		c.SSEvent("snapshot", gin.H{
			"data":   snap.Payload,
			"cached": snap.Cached,
			"at":     snap.At.Format(time.RFC3339),
		})
		return true
	})
}

func (h *DashboardHandler) respond(c *gin.Context, start time.Time, summary interface{}, cacheHit bool) {
	h.metrics.RecordCacheLookup(cacheHit)
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}
