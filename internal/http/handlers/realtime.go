package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/school-backend/internal/platform/logger"
	"github.com/yungbote/school-backend/internal/realtime"
	"github.com/yungbote/school-backend/internal/services/orchestrator"
)

type RealtimeHandler struct {
	log  *logger.Logger
	hub  *realtime.SSEHub
	orch *orchestrator.Service
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, orch *orchestrator.Service) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub, orch: orch}
}

// GET /api/courses/:id/events
//
// Streams the generation feed of one course until the client goes away.
func (h *RealtimeHandler) CourseEvents(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	if _, err := h.orch.Snapshot(c.Request.Context(), userID, id); err != nil {
		respondErr(c, err, "course_events_failed")
		return
	}
	h.serve(c, userID, realtime.CourseChannel(id))
}

// GET /api/events
//
// Streams job progress for every course of the caller.
func (h *RealtimeHandler) UserEvents(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	h.serve(c, userID, realtime.UserChannel(userID))
}

func (h *RealtimeHandler) serve(c *gin.Context, userID, channel string) {
	client := h.hub.NewSSEClient(userID)
	h.hub.AddChannel(client, channel)
	h.log.Debug("SSE stream open", "user_id", userID, "channel", channel, "client_id", client.ID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Debug("SSE stream closed", "client_id", client.ID)
}
