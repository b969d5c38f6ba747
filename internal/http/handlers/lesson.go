package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/school-backend/internal/http/response"
	"github.com/yungbote/school-backend/internal/services"
	"github.com/yungbote/school-backend/internal/services/orchestrator"
)

type LessonHandler struct {
	orch     *orchestrator.Service
	jobs     services.JobService
	validate *validator.Validate
}

func NewLessonHandler(orch *orchestrator.Service, jobs services.JobService) *LessonHandler {
	return &LessonHandler{orch: orch, jobs: jobs, validate: newValidator()}
}

// GET /api/lessons/:id
func (h *LessonHandler) GetLesson(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "invalid_lesson_id")
	if !ok {
		return
	}
	_, lesson, err := h.orch.Lesson(c.Request.Context(), userID, id)
	if err != nil {
		respondErr(c, err, "get_lesson_failed")
		return
	}
	response.RespondOK(c, gin.H{"lesson": lesson})
}

type completeLessonRequest struct {
	ComprehensionScore *int `json:"comprehension_score" validate:"required,min=0,max=100"`
}

// POST /api/lessons/:id/complete
func (h *LessonHandler) CompleteLesson(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "invalid_lesson_id")
	if !ok {
		return
	}
	var req completeLessonRequest
	if !bindJSON(c, h.validate, &req, false) {
		return
	}
	st, err := h.orch.CompleteLesson(c.Request.Context(), userID, id, *req.ComprehensionScore)
	if err != nil {
		respondErr(c, err, "complete_lesson_failed")
		return
	}
	response.RespondOK(c, snapshotView(st))
}

type retryLessonRequest struct {
	PreviousScore *int `json:"previous_score" validate:"required,min=0,max=100"`
}

// POST /api/lessons/:id/retry
//
// Queues a remedial activity; 409 while the lesson already has one queued.
func (h *LessonHandler) RetryLesson(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "invalid_lesson_id")
	if !ok {
		return
	}
	var req retryLessonRequest
	if !bindJSON(c, h.validate, &req, false) {
		return
	}
	ctx := c.Request.Context()
	st, lesson, err := h.orch.Lesson(ctx, userID, id)
	if err != nil {
		respondErr(c, err, "retry_lesson_failed")
		return
	}
	if st.Running() {
		respondErr(c, orchestrator.ErrGenerationInFlight, "generation_in_flight")
		return
	}
	job, created, err := h.jobs.EnqueueActivityRegeneration(ctx, userID, lesson.ID, *req.PreviousScore)
	if err != nil {
		respondErr(c, err, "retry_lesson_failed")
		return
	}
	if !created {
		response.RespondError(c, http.StatusConflict, "generation_in_flight", orchestrator.ErrGenerationInFlight)
		return
	}
	response.RespondAccepted(c, gin.H{"job_id": job.ID, "attempt": lesson.AttemptCount + 1})
}
