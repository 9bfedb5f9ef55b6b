package notification

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FrancoVillarLaz/notifications-service/internal/common"
)

// Handler handles HTTP requests for the notification domain.
type Handler struct {
	service     *Service
	renderer    TemplateRenderer
	rateLimiter RecipientRateLimiter
}

// NewHandler creates a new notification handler.
func NewHandler(service *Service, renderer TemplateRenderer, rateLimiter RecipientRateLimiter) *Handler {
	return &Handler{
		service:     service,
		renderer:    renderer,
		rateLimiter: rateLimiter,
	}
}

// DispatchRequest is the payload for sending a pre-rendered notification.
type DispatchRequest struct {
	Title        string         `json:"title" binding:"required"`
	Message      string         `json:"message"`
	Recipients   []string       `json:"recipients" binding:"required,min=1"`
	Channel      string         `json:"channel" binding:"required"`
	Metadata     map[string]any `json:"metadata"`
	ScheduledFor *time.Time     `json:"scheduled_for"`
}

// TemplateDispatchRequest is the payload for sending via a stored template.
type TemplateDispatchRequest struct {
	TemplateCode string         `json:"template_code" binding:"required"`
	Channel      string         `json:"channel"`
	Recipients   []string       `json:"recipients" binding:"required,min=1"`
	Variables    map[string]any `json:"variables"`
}

// RenderRequest is the payload for a read-only template render.
type RenderRequest struct {
	TemplateCode string         `json:"template_code" binding:"required"`
	Variables    map[string]any `json:"variables"`
}

// RetryRequest is the payload for a manual retry sweep.
type RetryRequest struct {
	MaxAttempts int `json:"max_attempts"`
}

// Dispatch handles POST /api/v1/notifications. Immediate sends run
// synchronously on the request; notifications with a future scheduled_for
// are persisted SCHEDULED and left to the poller.
func (h *Handler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	n, err := New(Params{
		Title:        req.Title,
		Message:      req.Message,
		Recipients:   req.Recipients,
		Channel:      Channel(req.Channel),
		Metadata:     req.Metadata,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		common.HandleError(c, err)
		return
	}

	if !h.allowRecipients(c, n.Recipients) {
		return
	}

	if n.Status == StatusScheduled {
		scheduled, err := h.service.Schedule(c.Request.Context(), n)
		if err != nil {
			common.HandleError(c, err)
			return
		}
		common.Success(c, http.StatusAccepted, scheduled)
		return
	}

	sent, err := h.service.Dispatch(c.Request.Context(), n)
	if err != nil {
		slog.Error("dispatch failed",
			"id", n.ID,
			"channel", req.Channel,
			"error", err,
		)
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, sent)
}

// DispatchTemplate handles POST /api/v1/notifications/template.
func (h *Handler) DispatchTemplate(c *gin.Context) {
	var req TemplateDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	channel := Channel(req.Channel)
	if req.Channel == "" {
		channel = ChannelEmail
	}
	if !IsValidChannel(channel) {
		common.Error(c, http.StatusBadRequest, fmt.Sprintf("unknown channel: %s", req.Channel))
		return
	}

	if !h.allowRecipients(c, req.Recipients) {
		return
	}

	n, err := h.service.DispatchTemplate(
		c.Request.Context(), req.TemplateCode, req.Recipients, req.Variables, channel)
	if err != nil {
		slog.Error("template dispatch failed",
			"template", req.TemplateCode,
			"channel", channel,
			"error", err,
		)
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, n)
}

// Render handles POST /api/v1/templates/render. Read-only preview.
func (h *Handler) Render(c *gin.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rendered, err := h.renderer.Render(c.Request.Context(), req.TemplateCode, req.Variables)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, rendered)
}

// Retry handles POST /api/v1/notifications/retry.
func (h *Handler) Retry(c *gin.Context) {
	var req RetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.MaxAttempts < 1 {
		req.MaxAttempts = 3
	}

	retried, err := h.service.RetryFailed(c.Request.Context(), req.MaxAttempts)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, gin.H{"retried": retried})
}

// Get handles GET /api/v1/notifications/:id.
func (h *Handler) Get(c *gin.Context) {
	n, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Success(c, http.StatusOK, n)
}

// List handles GET /api/v1/notifications.
func (h *Handler) List(c *gin.Context) {
	var filter ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid query parameters: "+err.Error())
		return
	}

	resp, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Success(c, http.StatusOK, resp)
}

// Cancel handles POST /api/v1/notifications/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	n, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Success(c, http.StatusOK, n)
}

// Channels handles GET /api/v1/channels.
func (h *Handler) Channels(c *gin.Context) {
	common.Success(c, http.StatusOK, gin.H{"channels": h.service.SupportedChannels()})
}

// allowRecipients applies the per-recipient rate limit. Fails open when the
// limiter backend is unavailable.
func (h *Handler) allowRecipients(c *gin.Context, recipients []string) bool {
	if h.rateLimiter == nil {
		return true
	}
	for _, recipient := range recipients {
		allowed, err := h.rateLimiter.Allow(c.Request.Context(), recipient)
		if err != nil {
			slog.Error("rate limit check failed, proceeding without limit",
				"recipient", recipient,
				"error", err,
			)
			continue
		}
		if !allowed {
			common.Error(c, http.StatusTooManyRequests,
				fmt.Sprintf("rate limit exceeded for recipient: %s", recipient))
			return false
		}
	}
	return true
}

// RegisterRoutes registers notification routes to the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/notifications", h.Dispatch)
	rg.POST("/notifications/template", h.DispatchTemplate)
	rg.POST("/notifications/retry", h.Retry)
	rg.POST("/notifications/:id/cancel", h.Cancel)
	rg.GET("/notifications", h.List)
	rg.GET("/notifications/:id", h.Get)
	rg.POST("/templates/render", h.Render)
	rg.GET("/channels", h.Channels)
}
