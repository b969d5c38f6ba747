package lesson_generate

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/school-backend/internal/jobs/runtime"
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
	score := jc.PayloadInt("comprehension_score", 100)

	jc.Progress("generate", 5, "Writing next lesson")
	lesson, err := p.gen.GenerateNextLesson(jc.Ctx, jc.Job.OwnerUserID, courseID, score)
	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrNothingToGenerate),
		errors.Is(err, orchestrator.ErrGenerationInFlight),
		errors.Is(err, orchestrator.ErrNotLearning):
		jc.Succeed("done", map[string]any{"course_id": courseID.String(), "skipped": true, "reason": err.Error()})
		return nil
	case errors.Is(err, orchestrator.ErrCourseNotFound):
		jc.Fail("generate", jobrt.Permanent(err))
		return nil
	default:
		// Generation failures leave prior lessons intact, so another attempt
		// is safe.
		p.log.Warn("Lesson generation failed", "course_id", courseID, "attempt", jc.Job.Attempts, "error", err)
		jc.Fail("generate", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"course_id":       courseID.String(),
		"lesson_id":       lesson.ID.String(),
		"objective_index": lesson.ObjectiveIndex,
	})
	return nil
}
