package activity_regenerate

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
	lessonID, ok := jc.PayloadUUID("lesson_id")
	if !ok || lessonID == uuid.Nil {
		jc.Fail("validate", jobrt.Permanent(fmt.Errorf("missing lesson_id")))
		return nil
	}
	score := jc.PayloadInt("previous_score", 0)

	jc.Progress("regenerate", 10, "Creating a new activity")
	lesson, err := p.retry.RetryLesson(jc.Ctx, jc.Job.OwnerUserID, lessonID, score)
	if err != nil {
		if errors.Is(err, orchestrator.ErrLessonNotFound) || errors.Is(err, orchestrator.ErrCourseNotFound) {
			err = jobrt.Permanent(err)
		}
		p.log.Warn("Activity regeneration failed", "lesson_id", lessonID, "error", err)
		jc.Fail("regenerate", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"lesson_id":     lesson.ID.String(),
		"activity_id":   lesson.ActivityID.String(),
		"attempt_count": lesson.AttemptCount,
	})
	return nil
}
