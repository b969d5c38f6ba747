package learning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/school-backend/internal/data/repos/testutil"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
)

func TestCourseRepoAggregateRoundTrip(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewCourseRepo(db, testutil.Logger(t))

	seeded := testutil.SeedCourse(t, ctx, db, "u1", "loops", "functions")

	course, err := repo.GetByID(dbc, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(course.Roadmap) != 2 || course.Roadmap[1].Objective != "functions" {
		t.Fatalf("roadmap not persisted: %+v", course.Roadmap)
	}

	course.Lessons = append(course.Lessons,
		learning.Lesson{ObjectiveIndex: 1, Title: "second"},
		learning.Lesson{ObjectiveIndex: 0, Title: "first"},
	)
	course.Status = learning.StatusInProgress
	if err := repo.SaveAggregate(dbc, course); err != nil {
		t.Fatalf("SaveAggregate: %v", err)
	}

	got, err := repo.GetByID(dbc, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != learning.StatusInProgress {
		t.Fatalf("status: want %s got %s", learning.StatusInProgress, got.Status)
	}
	if len(got.Lessons) != 2 || got.Lessons[0].Title != "first" {
		t.Fatalf("lessons not ordered by objective index: %+v", got.Lessons)
	}

	// overwrite wins
	got.Lessons[0].Title = "rewritten"
	if err := repo.SaveAggregate(dbc, got); err != nil {
		t.Fatalf("SaveAggregate second: %v", err)
	}
	again, _ := repo.GetByID(dbc, seeded.ID)
	if again.Lessons[0].Title != "rewritten" || len(again.Lessons) != 2 {
		t.Fatalf("overwrite not applied: %+v", again.Lessons)
	}
}

func TestCourseRepoOwnershipAndDelete(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewCourseRepo(db, testutil.Logger(t))

	c := testutil.SeedCourse(t, ctx, db, "owner", "one")

	if _, err := repo.GetOwned(dbc, "someone-else", c.ID); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("GetOwned by stranger: want ErrCourseNotFound, got %v", err)
	}
	list, err := repo.ListByUser(dbc, "owner", learning.StatusDraft)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByUser: err=%v len=%d", err, len(list))
	}
	list, _ = repo.ListByUser(dbc, "owner", learning.StatusCompleted)
	if len(list) != 0 {
		t.Fatalf("ListByUser status filter: got %d", len(list))
	}

	if err := repo.SoftDelete(dbc, c.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if _, err := repo.GetByID(dbc, c.ID); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("deleted course still readable: %v", err)
	}
	if err := repo.SoftDelete(dbc, uuid.New()); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("SoftDelete missing: want ErrCourseNotFound, got %v", err)
	}
}

func TestCourseRepoListStuck(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewCourseRepo(db, testutil.Logger(t))

	c := testutil.SeedCourse(t, ctx, db, "u", "one")
	if err := repo.UpdateFields(dbc, c.ID, map[string]interface{}{
		"status":     learning.StatusGenerating,
		"updated_at": time.Now().Add(-2 * time.Hour),
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	stuck, err := repo.ListStuck(dbc, []learning.CourseStatus{learning.StatusGenerating}, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListStuck: %v", err)
	}
	if len(stuck) != 1 || stuck[0].ID != c.ID {
		t.Fatalf("ListStuck: got %+v", stuck)
	}
}
