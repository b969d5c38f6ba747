package course_generate

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/school-backend/internal/jobs/runtime"
	"github.com/yungbote/school-backend/internal/services/orchestrator"
	"github.com/yungbote/school-backend/internal/services/progression"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	courseID, ok := jc.PayloadUUID("course_id")
	if !ok || courseID == uuid.Nil {
		jc.Fail("validate", jobrt.Permanent(fmt.Errorf("missing course_id")))
		return nil
	}

	jc.Progress("generate", 5, "Outlining course")
	err := p.gen.GenerateCourse(jc.Ctx, jc.Job.OwnerUserID, courseID)
	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrGenerationInFlight):
		jc.Succeed("done", map[string]any{"course_id": courseID.String(), "skipped": true})
		return nil
	case errors.Is(err, orchestrator.ErrGenerationFailed),
		errors.Is(err, orchestrator.ErrCourseNotFound),
		errors.Is(err, progression.ErrInvalidTransition),
		errors.Is(err, progression.ErrGuardFailed):
		// The course already carries the failure; retrying is the learner's call.
		p.log.Warn("Course generation failed", "course_id", courseID, "error", err)
		jc.Fail("generate", jobrt.Permanent(err))
		return nil
	default:
		jc.Fail("generate", err)
		return nil
	}

	jc.Succeed("done", map[string]any{"course_id": courseID.String()})
	return nil
}
