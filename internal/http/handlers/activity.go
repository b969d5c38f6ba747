package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/school-backend/internal/http/response"
	"github.com/yungbote/school-backend/internal/services/activity"
)

type ActivityHandler struct {
	activities *activity.Service
}

func NewActivityHandler(activities *activity.Service) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// GET /api/activities/:lessonId
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "lessonId", "invalid_lesson_id")
	if !ok {
		return
	}
	view, err := h.activities.View(c.Request.Context(), userID, id)
	if err != nil {
		respondErr(c, err, "get_activity_failed")
		return
	}
	response.RespondOK(c, gin.H{"activity": view})
}

// POST /api/activities/:lessonId/submit
//
// Body is one of {text}, {image_base64} or {answers}, by activity kind.
func (h *ActivityHandler) SubmitActivity(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "lessonId", "invalid_lesson_id")
	if !ok {
		return
	}
	var req activity.Submission
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err)
		return
	}
	res, err := h.activities.Submit(c.Request.Context(), userID, id, req)
	if err != nil {
		respondErr(c, err, "submit_activity_failed")
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}
