package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/http/response"
	"github.com/yungbote/school-backend/internal/services"
	"github.com/yungbote/school-backend/internal/services/assessment"
	"github.com/yungbote/school-backend/internal/services/orchestrator"
)

type AssessmentHandler struct {
	assessments *assessment.Service
	orch        *orchestrator.Service
	jobs        services.JobService
	validate    *validator.Validate
}

func NewAssessmentHandler(assessments *assessment.Service, orch *orchestrator.Service, jobs services.JobService) *AssessmentHandler {
	return &AssessmentHandler{assessments: assessments, orch: orch, jobs: jobs, validate: newValidator()}
}

// POST /api/assessments/:id/generate
//
// The id is the course's; the route shares its wildcard with the
// assessment routes.
func (h *AssessmentHandler) GenerateAssessment(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	courseID, ok := paramID(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	st, err := h.orch.Snapshot(ctx, userID, courseID)
	if err != nil {
		respondErr(c, err, "generate_assessment_failed")
		return
	}
	switch st.Course.Status {
	case learning.StatusAwaitingAssessment:
	case learning.StatusAssessmentReady:
		if !h.assessments.Policy().RegenerateItems {
			respondErr(c, assessment.ErrNotReady, "generate_assessment_failed")
			return
		}
	default:
		respondErr(c, assessment.ErrNotReady, "generate_assessment_failed")
		return
	}
	job, created, err := h.jobs.EnqueueAssessment(ctx, userID, courseID)
	if err != nil {
		respondErr(c, err, "generate_assessment_failed")
		return
	}
	if !created {
		response.RespondError(c, http.StatusConflict, "generation_in_flight", orchestrator.ErrGenerationInFlight)
		return
	}
	response.RespondAccepted(c, gin.H{"job_id": job.ID})
}

// GET /api/courses/:id/assessments
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	courseID, ok := paramID(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	list, err := h.assessments.List(c.Request.Context(), userID, courseID)
	if err != nil {
		respondErr(c, err, "list_assessments_failed")
		return
	}
	response.RespondOK(c, gin.H{"assessments": list})
}

// GET /api/assessments/:id
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "invalid_assessment_id")
	if !ok {
		return
	}
	a, err := h.assessments.Get(c.Request.Context(), userID, id)
	if err != nil {
		respondErr(c, err, "get_assessment_failed")
		return
	}
	response.RespondOK(c, gin.H{"assessment": a})
}

type submitAssessmentRequest struct {
	Responses []learning.ItemResponse `json:"responses" validate:"required,min=1,max=6"`
}

// POST /api/assessments/:id/submit
func (h *AssessmentHandler) SubmitAssessment(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "invalid_assessment_id")
	if !ok {
		return
	}
	var req submitAssessmentRequest
	if !bindJSON(c, h.validate, &req, false) {
		return
	}
	out, err := h.assessments.Submit(c.Request.Context(), userID, id, req.Responses)
	if err != nil {
		respondErr(c, err, "submit_assessment_failed")
		return
	}
	response.RespondOK(c, out)
}
