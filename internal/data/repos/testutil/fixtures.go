package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/domain/user"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, id string) *user.User {
	tb.Helper()
	u := &user.User{ID: id, DisplayName: "Learner"}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedCourse inserts a draft course whose roadmap has one entry per objective.
func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, userID string, objectives ...string) *learning.Course {
	tb.Helper()
	c := &learning.Course{
		ID:               uuid.New(),
		UserID:           userID,
		SourceType:       learning.SourceCustom,
		Title:            "course",
		InputDescription: "a course",
		InputObjectives:  datatypes.JSONSlice[string](objectives),
		Status:           learning.StatusDraft,
	}
	for i, o := range objectives {
		c.Roadmap = append(c.Roadmap, learning.RoadmapEntry{
			ID:        fmt.Sprintf("r%d", i),
			Title:     o,
			Position:  i,
			Objective: o,
		})
	}
	if err := tx.WithContext(ctx).Omit("Lessons").Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

// SeedLesson appends a generated lesson with a short-response activity.
func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, index int) *learning.Lesson {
	tb.Helper()
	l := &learning.Lesson{
		ID:             uuid.New(),
		CourseID:       courseID,
		ObjectiveIndex: index,
		Title:          fmt.Sprintf("lesson %d", index),
		Pages:          datatypes.JSONSlice[learning.Page]{{Title: "p1", Body: "body"}},
	}
	if err := l.SetActivity(learning.ShortResponse{Instructions: "answer", Prompt: "why?", Rubric: []string{"a", "b", "c"}}); err != nil {
		tb.Fatalf("seed lesson activity: %v", err)
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}
