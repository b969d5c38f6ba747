package course_cover

import (
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/school-backend/internal/jobs/runtime"
)

// Run never fails the job on a rendering problem; a course without a cover
// is still usable.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	courseID, ok := jc.PayloadUUID("course_id")
	if !ok || courseID == uuid.Nil {
		jc.Fail("validate", jobrt.Permanent(fmt.Errorf("missing course_id")))
		return nil
	}

	jc.Progress("course_cover", 10, "Illustrating course")
	url, err := p.cover.CreateCover(jc.Ctx, jc.Job.OwnerUserID, courseID)
	if err != nil {
		p.log.Warn("course_cover failed", "error", err, "course_id", courseID.String())
		jc.Succeed("done", map[string]any{
			"course_id": courseID.String(),
			"skipped":   true,
		})
		return nil
	}

	jc.Succeed("done", map[string]any{
		"course_id": courseID.String(),
		"generated": url != "",
	})
	return nil
}
