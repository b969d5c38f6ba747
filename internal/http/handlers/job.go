package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/school-backend/internal/http/response"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := paramID(c, "id", "invalid_job_id")
	if !ok {
		return
	}
	job, err := h.jobs.GetByIDForRequestUser(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		respondErr(c, err, "job_not_found")
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// POST /api/jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID, ok := paramID(c, "id", "invalid_job_id")
	if !ok {
		return
	}
	job, err := h.jobs.CancelForRequestUser(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		respondErr(c, err, "cancel_job_failed")
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
