package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	jobrepo "github.com/yungbote/school-backend/internal/data/repos/jobs"
	learningrepo "github.com/yungbote/school-backend/internal/data/repos/learning"
	"github.com/yungbote/school-backend/internal/data/repos/testutil"
	"github.com/yungbote/school-backend/internal/domain/jobs"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
)

type abandoner struct {
	ids []uuid.UUID
}

func (a *abandoner) Abandon(_ context.Context, courseID uuid.UUID, _ string) (bool, error) {
	a.ids = append(a.ids, courseID)
	return true, nil
}

func setStatus(t *testing.T, db *gorm.DB, id uuid.UUID, status learning.CourseStatus, updated time.Time) {
	t.Helper()
	if err := db.Model(&learning.Course{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"status":     status,
		"updated_at": updated,
	}).Error; err != nil {
		t.Fatalf("set status: %v", err)
	}
}

func TestSweepReleasesOnlyStalledIdleCourses(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	log := testutil.Logger(t)
	old := time.Now().Add(-time.Hour)

	stalled := testutil.SeedCourse(t, ctx, db, "u1", "a")
	setStatus(t, db, stalled.ID, learning.StatusGenerating, old)

	assessing := testutil.SeedCourse(t, ctx, db, "u1", "a")
	setStatus(t, db, assessing.ID, learning.StatusGeneratingAssessment, old)

	fresh := testutil.SeedCourse(t, ctx, db, "u1", "a")
	setStatus(t, db, fresh.ID, learning.StatusGenerating, time.Now())

	studying := testutil.SeedCourse(t, ctx, db, "u1", "a")
	setStatus(t, db, studying.ID, learning.StatusInProgress, old)

	queued := testutil.SeedCourse(t, ctx, db, "u1", "a")
	setStatus(t, db, queued.ID, learning.StatusGenerating, old)
	jobRuns := jobrepo.NewJobRunRepo(db, log)
	qid := queued.ID
	if _, err := jobRuns.Create(dbctx.Context{Ctx: ctx}, []*jobs.JobRun{{
		ID:          uuid.New(),
		OwnerUserID: "u1",
		JobType:     jobs.TypeCourseGenerate,
		EntityType:  jobs.EntityCourse,
		EntityID:    &qid,
		Status:      jobs.StatusQueued,
		Stage:       "queued",
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
	}}); err != nil {
		t.Fatalf("create job: %v", err)
	}

	ab := &abandoner{}
	s := New(log, learningrepo.NewCourseRepo(db, log), jobRuns, ab, Config{Schedule: "@every 1m", Deadline: 15 * time.Minute})

	n, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 2 || len(ab.ids) != 2 {
		t.Fatalf("released %d, abandoned %v", n, ab.ids)
	}
	want := map[uuid.UUID]bool{stalled.ID: true, assessing.ID: true}
	for _, id := range ab.ids {
		if !want[id] {
			t.Fatalf("abandoned unexpected course %s", id)
		}
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	s := New(log, learningrepo.NewCourseRepo(db, log), jobrepo.NewJobRunRepo(db, log), &abandoner{}, Config{Schedule: "not a schedule"})
	if _, err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected schedule error")
	}
}
