package sessions

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cliptag/backend/internal/metrics"
	"github.com/cliptag/backend/pkg/response"
)

// CreateSessionRequest is the body for POST /api/sessions.
type CreateSessionRequest struct {
	UserID        string  `json:"user_id" binding:"required"`
	ClipStartTime string  `json:"clip_start_time"`
	StudyID       *string `json:"study_id"`
	ParticipantID *string `json:"participant_id"`
}

// AddEventRequest is the body for POST /api/sessions/:id/events. Zero is a valid offset.
type AddEventRequest struct {
	TimeSeconds *float64 `json:"time_seconds" binding:"required"`
}

// EventCreated is the 201 body for a stored event.
type EventCreated struct {
	ID          string  `json:"id"`
	TimeSeconds float64 `json:"time_seconds"`
}

// Handler serves the recording API.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a recording API handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Register mounts the session routes on an /api group.
func (h *Handler) Register(api *gin.RouterGroup) {
	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions", h.ListSessions)
	api.POST("/sessions/:id/events", h.AddEvent)
	api.GET("/sessions/:id/events", h.ListEvents)
}

// CreateSession handles POST /api/sessions.
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindMessage(err, "user_id"))
		return
	}
	id, err := h.store.CreateSession(c.Request.Context(), NewSession{
		UserID:        req.UserID,
		ClipStartTime: req.ClipStartTime,
		StudyID:       req.StudyID,
		ParticipantID: req.ParticipantID,
	})
	if err != nil {
		if IsValidation(err) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("create session failed", zap.Error(err), zap.String("user_id", req.UserID))
		response.Internal(c, "Failed to create session")
		return
	}
	metrics.SessionsCreated.Inc()
	response.Created(c, gin.H{"session_id": id})
}

// AddEvent handles POST /api/sessions/:id/events.
func (h *Handler) AddEvent(c *gin.Context) {
	sessionID := c.Param("id")
	var req AddEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindMessage(err, "time_seconds"))
		return
	}
	if !validSessionID(sessionID) {
		response.NotFound(c, "Session not found")
		return
	}
	ev, err := h.store.AddEvent(c.Request.Context(), sessionID, req.TimeSeconds)
	switch {
	case err == nil:
	case errors.Is(err, ErrSessionNotFound):
		response.NotFound(c, "Session not found")
		return
	case IsValidation(err):
		response.BadRequest(c, err.Error())
		return
	default:
		h.logger.Error("add event failed", zap.Error(err), zap.String("session_id", sessionID))
		response.Internal(c, "Failed to add event")
		return
	}
	metrics.EventsRecorded.Inc()
	response.Created(c, EventCreated{ID: ev.ID, TimeSeconds: ev.TimeSeconds})
}

// ListSessions handles GET /api/sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	list, err := h.store.ListSessions(c.Request.Context())
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		response.Internal(c, "Failed to list sessions")
		return
	}
	response.OK(c, list)
}

// ListEvents handles GET /api/sessions/:id/events.
func (h *Handler) ListEvents(c *gin.Context) {
	sessionID := c.Param("id")
	if !validSessionID(sessionID) {
		response.NotFound(c, "Session not found")
		return
	}
	list, err := h.store.ListEvents(c.Request.Context(), sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		response.NotFound(c, "Session not found")
		return
	}
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err), zap.String("session_id", sessionID))
		response.Internal(c, "Failed to list events")
		return
	}
	response.OK(c, list)
}

// ClearAll handles POST /api/clear. Irreversible.
func (h *Handler) ClearAll(c *gin.Context) {
	if err := h.store.ClearAll(c.Request.Context()); err != nil {
		h.logger.Error("clear all failed", zap.Error(err))
		response.Internal(c, "Failed to clear data")
		return
	}
	h.logger.Warn("all sessions and events deleted", zap.String("client_ip", c.ClientIP()))
	response.OK(c, gin.H{"ok": true, "message": "All sessions and events deleted"})
}

// bindMessage maps binding failures to a client message. An empty body counts as a missing field.
func bindMessage(err error, field string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) || errors.Is(err, io.EOF) {
		return field + " is required"
	}
	return "invalid request body"
}

// Session ids are server-generated UUIDs; anything else cannot exist.
func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
