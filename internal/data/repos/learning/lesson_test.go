package learning

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/school-backend/internal/data/repos/testutil"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
)

func TestLessonRepoLookups(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewLessonRepo(db, testutil.Logger(t))

	course := testutil.SeedCourse(t, ctx, db, "u1", "loops")
	seeded := testutil.SeedLesson(t, ctx, db, course.ID, 0)

	byID, err := repo.GetByID(dbc, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.ActivityKind != learning.KindShortResponse {
		t.Fatalf("activity kind = %s", byID.ActivityKind)
	}

	byActivity, err := repo.GetByActivityID(dbc, seeded.ActivityID)
	if err != nil {
		t.Fatalf("GetByActivityID: %v", err)
	}
	if byActivity.ID != seeded.ID {
		t.Fatalf("lookup by activity returned %s", byActivity.ID)
	}
}

func TestLessonRepoNotFound(t *testing.T) {
	db := testutil.DB(t)
	repo := NewLessonRepo(db, testutil.Logger(t))

	if _, err := repo.GetByID(dbctx.Context{Ctx: context.Background()}, uuid.New()); !errors.Is(err, ErrLessonNotFound) {
		t.Fatalf("want ErrLessonNotFound, got %v", err)
	}
}

func TestLessonRepoReadsInsideTx(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, ctx, db, "u1", "loops")

	tx := testutil.Tx(t, db)
	seeded := testutil.SeedLesson(t, ctx, tx, course.ID, 0)

	repo := NewLessonRepo(db, testutil.Logger(t))
	if _, err := repo.GetByID(dbctx.Context{Ctx: ctx, Tx: tx}, seeded.ID); err != nil {
		t.Fatalf("GetByID in tx: %v", err)
	}
}
