package assessment_generate

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/school-backend/internal/jobs/runtime"
	"github.com/yungbote/school-backend/internal/services/assessment"
	"github.com/yungbote/school-backend/internal/services/orchestrator"
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

	jc.Progress("generate", 10, "Writing final assessment")
	a, err := p.gen.Generate(jc.Ctx, jc.Job.OwnerUserID, courseID)
	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrGenerationInFlight):
		jc.Succeed("done", map[string]any{"course_id": courseID.String(), "skipped": true})
		return nil
	case errors.Is(err, assessment.ErrNotReady), errors.Is(err, orchestrator.ErrCourseNotFound):
		jc.Fail("validate", jobrt.Permanent(err))
		return nil
	default:
		// The course is back in awaiting_assessment, so the next attempt can
		// start over.
		p.log.Warn("Assessment generation failed", "course_id", courseID, "attempt", jc.Job.Attempts, "error", err)
		jc.Fail("generate", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"course_id":     courseID.String(),
		"assessment_id": a.ID.String(),
		"attempt":       a.Attempt,
		"items":         len(a.Items),
	})
	return nil
}
