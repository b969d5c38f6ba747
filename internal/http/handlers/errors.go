package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/school-backend/internal/http/response"
	"github.com/yungbote/school-backend/internal/platform/apierr"
	"github.com/yungbote/school-backend/internal/services"
	"github.com/yungbote/school-backend/internal/services/activity"
	"github.com/yungbote/school-backend/internal/services/assessment"
	"github.com/yungbote/school-backend/internal/services/catalog"
	"github.com/yungbote/school-backend/internal/services/orchestrator"
	"github.com/yungbote/school-backend/internal/services/progression"
)

// classify maps service errors onto API errors. Unknown errors stay 500.
func classify(err error) *apierr.Error {
	var ae *apierr.Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, services.ErrCourseNotFound), errors.Is(err, orchestrator.ErrCourseNotFound):
		return apierr.NotFound("course_not_found", err)
	case errors.Is(err, orchestrator.ErrLessonNotFound):
		return apierr.NotFound("lesson_not_found", err)
	case errors.Is(err, assessment.ErrNotFound):
		return apierr.NotFound("assessment_not_found", err)
	case errors.Is(err, catalog.ErrNotFound):
		return apierr.NotFound("catalog_course_not_found", err)
	case errors.Is(err, services.ErrJobNotFound):
		return apierr.NotFound("job_not_found", err)
	case errors.Is(err, services.ErrNotAuthenticated):
		return apierr.New(http.StatusUnauthorized, "unauthorized", err)

	case errors.Is(err, orchestrator.ErrGenerationInFlight):
		return apierr.Conflict("generation_in_flight", err)
	case errors.Is(err, orchestrator.ErrSubmissionInFlight):
		return apierr.Conflict("submission_in_flight", err)
	case errors.Is(err, progression.ErrInvalidTransition):
		return apierr.Conflict("invalid_transition", err)
	case errors.Is(err, progression.ErrGuardFailed):
		return apierr.Conflict("transition_guard_failed", err)
	case errors.Is(err, orchestrator.ErrNotLearning):
		return apierr.Conflict("course_not_learning", err)
	case errors.Is(err, orchestrator.ErrNothingToGenerate):
		return apierr.Conflict("nothing_to_generate", err)
	case errors.Is(err, assessment.ErrNotReady):
		return apierr.Conflict("assessment_not_ready", err)
	case errors.Is(err, assessment.ErrAlreadyReviewed):
		return apierr.Conflict("assessment_already_reviewed", err)

	case errors.Is(err, services.ErrNoObjectives), errors.Is(err, services.ErrTooManyObjectives):
		return apierr.BadRequest("invalid_objectives", err)
	case errors.Is(err, services.ErrUnknownStatus):
		return apierr.BadRequest("invalid_status", err)
	case errors.Is(err, activity.ErrEmptySubmission), errors.Is(err, assessment.ErrEmptySubmission):
		return apierr.BadRequest("empty_submission", err)
	case errors.Is(err, activity.ErrInvalidImage):
		return apierr.BadRequest("invalid_image", err)
	case errors.Is(err, activity.ErrInvalidOption):
		return apierr.BadRequest("invalid_option", err)
	case errors.Is(err, activity.ErrUnsupportedActivity), errors.Is(err, activity.ErrNoActivity):
		return apierr.New(http.StatusUnprocessableEntity, "activity_unsupported", err)
	case errors.Is(err, activity.ErrMalformedActivity):
		return apierr.New(http.StatusUnprocessableEntity, "activity_malformed", err)

	case errors.Is(err, activity.ErrReviewFailed), errors.Is(err, assessment.ErrReviewFailed),
		errors.Is(err, assessment.ErrGenerationFailed), errors.Is(err, orchestrator.ErrGenerationFailed):
		return apierr.New(http.StatusBadGateway, "ai_unavailable", err)
	}
	return nil
}

func respondErr(c *gin.Context, err error, fallbackCode string) {
	if ae := classify(err); ae != nil {
		response.RespondAPIError(c, ae, fallbackCode)
		return
	}
	_ = c.Error(err)
	response.RespondError(c, http.StatusInternalServerError, fallbackCode, errors.New("internal error"))
}

func badRequest(c *gin.Context, code string, err error) {
	response.RespondError(c, http.StatusBadRequest, code, err)
}
