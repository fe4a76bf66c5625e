package widget

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/policychat/internal/domain"
	"github.com/liliang-cn/policychat/internal/metrics"
	"github.com/liliang-cn/policychat/internal/session"
)

// ConfigResponse is the response for widget config
type ConfigResponse struct {
	SessionID string              `json:"session_id"`
	Config    domain.WidgetConfig `json:"config"`
}

// DraftRequest updates the unsent input
type DraftRequest struct {
	Text string `json:"text"`
}

// SubmitRequest submits a question; a missing question submits the current draft
type SubmitRequest struct {
	Question *string `json:"question"`
}

// SubmitResponse reports a settled round together with the resulting session view
type SubmitResponse struct {
	Outcome session.Outcome `json:"outcome"`
	Session domain.Snapshot `json:"session"`
}

// Handler handles widget API requests for the single active session
type Handler struct {
	session  *session.Controller
	widget   domain.WidgetConfig
	recorder *metrics.Recorder
}

// NewHandler creates a new widget handler. recorder may be nil.
func NewHandler(ctrl *session.Controller, widget domain.WidgetConfig, recorder *metrics.Recorder) *Handler {
	return &Handler{session: ctrl, widget: widget, recorder: recorder}
}

// RegisterRoutes registers widget routes; submit is wrapped with the given middleware
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, submitMiddleware ...gin.HandlerFunc) {
	r.GET("/widget/config", h.GetConfig)

	s := r.Group("/session")
	{
		s.GET("", h.GetSession)
		s.PUT("/draft", h.UpdateDraft)
		s.POST("/messages", append(submitMiddleware, h.Submit)...)
		s.POST("/reset", h.Reset)
		s.GET("/events", h.Events)
	}
}

// GetConfig returns the widget presentation settings
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, ConfigResponse{
		SessionID: h.session.Snapshot().SessionID,
		Config:    h.widget,
	})
}

// GetSession returns the current session view
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// UpdateDraft stores the unsent input
func (h *Handler) UpdateDraft(c *gin.Context) {
	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.session.SetDraft(req.Text)
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// Submit runs one question round and waits for it to settle
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question := h.session.Snapshot().PendingInput
	if req.Question != nil {
		question = *req.Question
	}

	// The round settles into the session even if this client goes away.
	ctx := context.WithoutCancel(c.Request.Context())
	out, err := h.session.Submit(ctx, question)
	if err != nil {
		h.reject(c, out, err)
		return
	}

	c.JSON(http.StatusOK, SubmitResponse{Outcome: out, Session: h.session.Snapshot()})
}

func (h *Handler) reject(c *gin.Context, out session.Outcome, err error) {
	switch {
	case domain.IsValidation(err):
		h.countRejection(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrBusy):
		h.countRejection(err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrStaleRound):
		if h.recorder != nil {
			h.recorder.Discarded()
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "outcome": out})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) countRejection(err error) {
	if h.recorder != nil {
		h.recorder.Rejected(err)
	}
}

// Reset starts a new session
func (h *Handler) Reset(c *gin.Context) {
	h.session.Reset()
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// Events streams a snapshot on connect and after every session change (SSE)
func (h *Handler) Events(c *gin.Context) {
	changed := make(chan struct{}, 1)
	unsubscribe := h.session.Subscribe(func(session.Event) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("snapshot", h.session.Snapshot())
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-changed:
			c.SSEvent("snapshot", h.session.Snapshot())
			return true
		}
	})
}
