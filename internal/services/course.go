package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	learningrepo "github.com/yungbote/school-backend/internal/data/repos/learning"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

const maxObjectives = 20

var (
	ErrCourseNotFound    = learningrepo.ErrCourseNotFound
	ErrNoObjectives      = errors.New("at least one learning objective is required")
	ErrTooManyObjectives = fmt.Errorf("at most %d learning objectives are allowed", maxObjectives)
	ErrUnknownStatus     = errors.New("unknown course status")
)

// DraftInput describes a course before anything has been generated for it.
type DraftInput struct {
	Description    string
	Objectives     []string
	SourceType     string
	SourceCourseID string
}

// CourseSummary is the list view of a course.
type CourseSummary struct {
	ID               uuid.UUID             `json:"id"`
	SourceType       string                `json:"source_type"`
	SourceCourseID   string                `json:"source_course_id,omitempty"`
	Title            string                `json:"title"`
	InputDescription string                `json:"input_description"`
	Status           learning.CourseStatus `json:"status"`
	CoverURL         string                `json:"cover_url,omitempty"`
	Progress         int                   `json:"progress"`
	LessonCount      int                   `json:"lesson_count"`
	LessonsCompleted int                   `json:"lessons_completed"`
}

// CourseEvictor drops any cached state for a deleted course.
type CourseEvictor interface {
	Evict(courseID uuid.UUID)
}

type CourseService interface {
	CreateDraft(ctx context.Context, userID string, in DraftInput) (*learning.Course, error)
	List(ctx context.Context, userID string, status learning.CourseStatus) ([]CourseSummary, error)
	Delete(ctx context.Context, userID string, courseID uuid.UUID) error
}

type courseService struct {
	log     *logger.Logger
	courses learningrepo.CourseRepo
	jobs    JobService
	evict   CourseEvictor
	notify  GenerationNotifier
}

func NewCourseService(baseLog *logger.Logger, courses learningrepo.CourseRepo, jobs JobService, evict CourseEvictor, notify GenerationNotifier) CourseService {
	return &courseService{
		log:     baseLog.With("service", "CourseService"),
		courses: courses,
		jobs:    jobs,
		evict:   evict,
		notify:  notify,
	}
}

// CreateDraft stores a draft course. Blank objectives are dropped; nothing
// is generated until the learner asks for it.
func (cs *courseService) CreateDraft(ctx context.Context, userID string, in DraftInput) (*learning.Course, error) {
	objectives := cleanObjectives(in.Objectives)
	if len(objectives) == 0 {
		return nil, ErrNoObjectives
	}
	if len(objectives) > maxObjectives {
		return nil, ErrTooManyObjectives
	}
	source := in.SourceType
	if source == "" {
		source = learning.SourceCustom
	}
	course := &learning.Course{
		ID:               uuid.New(),
		UserID:           userID,
		SourceType:       source,
		SourceCourseID:   in.SourceCourseID,
		InputDescription: strings.TrimSpace(in.Description),
		InputObjectives:  objectives,
		Status:           learning.StatusDraft,
	}
	if _, err := cs.courses.Create(dbctx.Context{Ctx: ctx}, []*learning.Course{course}); err != nil {
		cs.log.Error("CreateDraft failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("create course: %w", err)
	}
	cs.log.Info("Course created", "course_id", course.ID, "source_type", source, "objectives", len(objectives))
	if cs.notify != nil {
		cs.notify.CourseUpdated(course)
	}
	return course, nil
}

func (cs *courseService) List(ctx context.Context, userID string, status learning.CourseStatus) ([]CourseSummary, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	rows, err := cs.courses.ListByUser(dbctx.Context{Ctx: ctx}, userID, status)
	if err != nil {
		cs.log.Error("List courses failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("list courses: %w", err)
	}
	out := make([]CourseSummary, 0, len(rows))
	for _, c := range rows {
		done := 0
		for i := range c.Lessons {
			if c.Lessons[i].Completed {
				done++
			}
		}
		out = append(out, CourseSummary{
			ID:               c.ID,
			SourceType:       c.SourceType,
			SourceCourseID:   c.SourceCourseID,
			Title:            c.Title,
			InputDescription: c.InputDescription,
			Status:           c.Status,
			CoverURL:         c.CoverURL,
			Progress:         c.Progress,
			LessonCount:      len(c.Lessons),
			LessonsCompleted: done,
		})
	}
	return out, nil
}

// Delete soft-deletes the course, cancels its pending jobs and drops it
// from the in-memory store.
func (cs *courseService) Delete(ctx context.Context, userID string, courseID uuid.UUID) error {
	if _, err := cs.courses.GetOwned(dbctx.Context{Ctx: ctx}, userID, courseID); err != nil {
		return err
	}
	if err := cs.courses.SoftDelete(dbctx.Context{Ctx: ctx}, courseID); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if cs.jobs != nil {
		if err := cs.jobs.CancelForCourse(ctx, courseID); err != nil {
			cs.log.Warn("Canceling course jobs failed", "course_id", courseID, "error", err)
		}
	}
	if cs.evict != nil {
		cs.evict.Evict(courseID)
	}
	cs.log.Info("Course deleted", "course_id", courseID)
	return nil
}

func cleanObjectives(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
