package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/school-backend/internal/domain/jobs"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/http/response"
	"github.com/yungbote/school-backend/internal/platform/apierr"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/services"
	"github.com/yungbote/school-backend/internal/services/orchestrator"
	"github.com/yungbote/school-backend/internal/services/progression"
)

const defaultLogLimit = 100

type CourseHandler struct {
	courses  services.CourseService
	orch     *orchestrator.Service
	jobs     services.JobService
	validate *validator.Validate
}

func NewCourseHandler(courses services.CourseService, orch *orchestrator.Service, jobs services.JobService) *CourseHandler {
	return &CourseHandler{courses: courses, orch: orch, jobs: jobs, validate: newValidator()}
}

type createCourseRequest struct {
	Description string   `json:"description" validate:"max=4000"`
	Objectives  []string `json:"objectives" validate:"required,min=1,max=20"`
}

// POST /api/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var req createCourseRequest
	if !bindJSON(c, h.validate, &req, false) {
		return
	}
	course, err := h.courses.CreateDraft(c.Request.Context(), userID, services.DraftInput{
		Description: req.Description,
		Objectives:  req.Objectives,
	})
	if err != nil {
		respondErr(c, err, "create_course_failed")
		return
	}
	response.RespondCreated(c, gin.H{"course": course})
}

// GET /api/courses?status=
func (h *CourseHandler) ListCourses(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	list, err := h.courses.List(c.Request.Context(), userID, learning.CourseStatus(c.Query("status")))
	if err != nil {
		respondErr(c, err, "list_courses_failed")
		return
	}
	response.RespondOK(c, gin.H{"courses": list})
}

// GET /api/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	st, err := h.orch.Snapshot(c.Request.Context(), userID, id)
	if err != nil {
		respondErr(c, err, "get_course_failed")
		return
	}
	response.RespondOK(c, snapshotView(st))
}

// DELETE /api/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	if err := h.courses.Delete(c.Request.Context(), userID, id); err != nil {
		respondErr(c, err, "delete_course_failed")
		return
	}
	c.Status(http.StatusNoContent)
}

type transitionRequest struct {
	TargetState learning.CourseStatus `json:"target_state" validate:"required"`
}

// PATCH /api/courses/:id/state
func (h *CourseHandler) TransitionCourse(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	var req transitionRequest
	if !bindJSON(c, h.validate, &req, false) {
		return
	}
	if !req.TargetState.Valid() {
		respondErr(c, services.ErrUnknownStatus, "invalid_status")
		return
	}
	st, err := h.orch.TransitionTo(c.Request.Context(), userID, id, req.TargetState)
	if err != nil {
		respondErr(c, err, "transition_failed")
		return
	}
	response.RespondOK(c, snapshotView(st))
}

// POST /api/courses/:id/generate
//
// Answers 202 with the job id, or 409 when a generation already runs.
func (h *CourseHandler) GenerateCourse(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	st, err := h.orch.Snapshot(ctx, userID, id)
	if err != nil {
		respondErr(c, err, "generate_course_failed")
		return
	}
	if st.Running() {
		respondErr(c, orchestrator.ErrGenerationInFlight, "generation_in_flight")
		return
	}
	if st.Course.Status != learning.StatusGenerating {
		if err := progression.Transition(st.Course.Status, learning.StatusGenerating, progression.FactsFor(&st.Course)); err != nil {
			respondErr(c, err, "generate_course_failed")
			return
		}
	}
	job, created, err := h.jobs.EnqueueCourseGeneration(ctx, userID, id)
	if err != nil {
		respondErr(c, err, "generate_course_failed")
		return
	}
	if !created {
		response.RespondError(c, http.StatusConflict, "generation_in_flight", orchestrator.ErrGenerationInFlight)
		return
	}
	response.RespondAccepted(c, gin.H{"job_id": job.ID})
}

type nextLessonRequest struct {
	ComprehensionScore *int `json:"comprehension_score" validate:"omitempty,min=0,max=100"`
}

// POST /api/courses/:id/lessons/next
func (h *CourseHandler) NextLesson(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	var req nextLessonRequest
	if !bindJSON(c, h.validate, &req, true) {
		return
	}
	score := 100
	if req.ComprehensionScore != nil {
		score = *req.ComprehensionScore
	}
	ctx := c.Request.Context()
	st, err := h.orch.Snapshot(ctx, userID, id)
	if err != nil {
		respondErr(c, err, "next_lesson_failed")
		return
	}
	switch st.Course.Status {
	case learning.StatusActive, learning.StatusInProgress:
	default:
		respondErr(c, orchestrator.ErrNotLearning, "next_lesson_failed")
		return
	}
	if st.Running() {
		respondErr(c, orchestrator.ErrGenerationInFlight, "generation_in_flight")
		return
	}
	if st.Course.NextLessonIndex() >= len(st.Course.Roadmap) {
		respondErr(c, orchestrator.ErrNothingToGenerate, "next_lesson_failed")
		return
	}
	job, created, err := h.jobs.EnqueueIfIdle(dbctx.Context{Ctx: ctx}, userID, jobs.TypeLessonGenerate, jobs.EntityCourse, id, map[string]any{
		"course_id":           id.String(),
		"comprehension_score": score,
	})
	if err != nil {
		respondErr(c, err, "next_lesson_failed")
		return
	}
	if !created {
		response.RespondError(c, http.StatusConflict, "generation_in_flight", orchestrator.ErrGenerationInFlight)
		return
	}
	response.RespondAccepted(c, gin.H{"job_id": job.ID, "objective_index": st.Course.NextLessonIndex()})
}

type navigationRequest struct {
	LessonIndex          *int `json:"lesson_index" validate:"omitempty,min=0"`
	PageIndex            *int `json:"page_index" validate:"omitempty,min=0"`
	PageActivityComplete *int `json:"page_activity_complete" validate:"omitempty,min=0"`
}

// PATCH /api/courses/:id/navigation
//
// Lesson index is applied before page index so a page refers to the new
// lesson.
func (h *CourseHandler) Navigate(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	var req navigationRequest
	if !bindJSON(c, h.validate, &req, false) {
		return
	}
	if req.LessonIndex == nil && req.PageIndex == nil && req.PageActivityComplete == nil {
		response.RespondAPIError(c, apierr.BadRequest("empty_navigation", errEmptyNavigation), "empty_navigation")
		return
	}
	ctx := c.Request.Context()
	var (
		st  orchestrator.State
		err error
	)
	if req.LessonIndex != nil {
		if st, err = h.orch.SetCurrentLessonIndex(ctx, userID, id, *req.LessonIndex); err != nil {
			respondErr(c, err, "navigation_failed")
			return
		}
	}
	if req.PageIndex != nil {
		if st, err = h.orch.SetCurrentPageIndex(ctx, userID, id, *req.PageIndex); err != nil {
			respondErr(c, err, "navigation_failed")
			return
		}
	}
	if req.PageActivityComplete != nil {
		if st, err = h.orch.MarkPageActivityComplete(ctx, userID, id, *req.PageActivityComplete); err != nil {
			respondErr(c, err, "navigation_failed")
			return
		}
	}
	response.RespondOK(c, snapshotView(st))
}

// GET /api/courses/:id/logs?limit=
func (h *CourseHandler) ListLogs(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "invalid_limit", errInvalidLimit)
			return
		}
		limit = n
	}
	logs, err := h.orch.Logs(c.Request.Context(), userID, id, limit)
	if err != nil {
		respondErr(c, err, "list_logs_failed")
		return
	}
	response.RespondOK(c, gin.H{"logs": logs})
}

// DELETE /api/courses/:id/logs
func (h *CourseHandler) ResetLogs(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	if err := h.orch.Reset(c.Request.Context(), userID, id); err != nil {
		respondErr(c, err, "reset_logs_failed")
		return
	}
	c.Status(http.StatusNoContent)
}
