package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/yungbote/school-backend/internal/agents"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/domain/user"
	"github.com/yungbote/school-backend/internal/services/progression"
)

// buildLesson runs plan, write and activity for one roadmap position,
// announcing each step on the course feed. Nothing is stored here.
func (s *Service) buildLesson(ctx context.Context, course *learning.Course, idx, score int, profile *user.LearnerProfile) (*learning.Lesson, error) {
	ctx, span := otel.Tracer("school/orchestrator").Start(ctx, "orchestrator.build_lesson")
	defer span.End()
	span.SetAttributes(attribute.Int("objective.index", idx))

	if idx < 0 || idx >= len(course.Roadmap) {
		return nil, ErrNothingToGenerate
	}
	objectives := make([]string, len(course.Roadmap))
	for i := range course.Roadmap {
		objectives[i] = course.Objective(i)
	}
	description := course.Description
	if description == "" {
		description = course.InputDescription
	}
	in := agents.LessonInput{
		CourseDescription:  description,
		Objective:          course.Objective(idx),
		ObjectiveIndex:     idx,
		AllObjectives:      objectives,
		Entry:              course.Roadmap[idx],
		Previous:           course.LessonAt(idx - 1),
		ComprehensionScore: learning.ClampScore(score),
		Profile:            profile,
	}

	plan, err := s.agents.PlanLesson(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("plan lesson %d: %w", idx, err)
	}
	s.notify.LessonPlanned(course.ID, idx, plan.LessonTitle)

	content, err := s.agents.WriteLesson(ctx, in, plan)
	if err != nil {
		return nil, fmt.Errorf("write lesson %d: %w", idx, err)
	}
	s.notify.LessonWritten(course.ID, idx)

	activity, err := s.agents.CreateActivity(ctx, in, plan)
	if err != nil {
		return nil, fmt.Errorf("create activity %d: %w", idx, err)
	}

	title := strings.TrimSpace(content.LessonTitle)
	if title == "" {
		title = plan.LessonTitle
	}
	lesson := &learning.Lesson{
		ID:                   uuid.New(),
		CourseID:             course.ID,
		ObjectiveIndex:       idx,
		Title:                title,
		Pages:                datatypes.JSONSlice[learning.Page](content.Pages()),
		KeyTakeaways:         datatypes.JSONSlice[string](content.KeyTakeaways),
		PageActivityComplete: datatypes.JSONSlice[int]{},
		Submissions:          datatypes.JSONSlice[learning.Submission]{},
	}
	if err := lesson.SetActivity(activity); err != nil {
		return nil, fmt.Errorf("store activity %d: %w", idx, err)
	}
	s.notify.ActivityCreated(course.ID, idx, lesson.ActivityID)
	return lesson, nil
}

// GenerateNextLesson writes the lesson after the last generated one, feeding
// the previous lesson's score into its prompts. Failures are logged and
// reported on the feed; lessons already written are not touched.
func (s *Service) GenerateNextLesson(ctx context.Context, userID string, courseID uuid.UUID, score int) (*learning.Lesson, error) {
	ctx, span := otel.Tracer("school/orchestrator").Start(ctx, "orchestrator.generate_next_lesson")
	defer span.End()

	st, err := s.Snapshot(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	idx := len(st.Course.Lessons)
	span.SetAttributes(attribute.String("course.id", courseID.String()), attribute.Int("objective.index", idx))

	st, err = s.store.TryBegin(ctx, courseID, idx, func(cur State) (State, error) {
		switch cur.Course.Status {
		case learning.StatusActive, learning.StatusInProgress:
		default:
			return cur, fmt.Errorf("%w: %s", ErrNotLearning, cur.Course.Status)
		}
		if len(cur.Course.Lessons) != idx || idx >= len(cur.Course.Roadmap) {
			return cur, ErrNothingToGenerate
		}
		return cur, nil
	})
	if err != nil {
		return nil, err
	}
	defer s.store.Finish(ctx, courseID)

	ctx, profile, _ := s.learnerContext(ctx, userID, courseID)
	lesson, err := s.buildLesson(ctx, &st.Course, idx, score, profile)
	if err == nil {
		st, err = s.store.Apply(ctx, courseID, func(cur State) (State, error) {
			return reduceActiveCleared(reduceLessonAppended(cur, *lesson)), nil
		})
	}
	if err != nil {
		ctx = context.WithoutCancel(ctx)
		s.log.Warn("Lesson generation failed", "course_id", courseID, "objective_index", idx, "error", err)
		s.recordFailure(ctx, courseID, "generate_next_lesson", err)
		s.notify.GenerationError(courseID, idx, err.Error())
		s.notify.GenerationComplete(courseID, st.Course.Status)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	s.notify.GenerationComplete(courseID, st.Course.Status)
	s.notify.CourseUpdated(&st.Course)
	return st.Course.LessonAt(idx), nil
}

// RetryLesson replaces a lesson's activity with a remedial one. The lesson
// content stays. Whether the new activity keeps the prior task follows the
// retry policy.
func (s *Service) RetryLesson(ctx context.Context, userID string, lessonID uuid.UUID, previousScore int) (*learning.Lesson, error) {
	ctx, span := otel.Tracer("school/orchestrator").Start(ctx, "orchestrator.retry_lesson")
	defer span.End()

	st, lesson, err := s.lessonState(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	courseID := st.Course.ID
	idx := lesson.ObjectiveIndex

	if _, err := s.store.TryBegin(ctx, courseID, idx, nil); err != nil {
		return nil, err
	}
	defer s.store.Finish(ctx, courseID)

	prior, err := lesson.Activity()
	if err != nil {
		s.log.Warn("Prior activity unreadable; generating fresh", "lesson_id", lessonID, "error", err)
		prior = nil
	}
	ctx, profile, _ := s.learnerContext(ctx, userID, courseID)
	activity, err := s.agents.CreateRemedialActivity(ctx, agents.RemedialInput{
		Lesson:        *lesson,
		Objective:     st.Course.Objective(idx),
		Prior:         prior,
		PreviousScore: learning.ClampScore(previousScore),
		Attempt:       lesson.AttemptCount + 1,
		Fresh:         s.policy.RegenerateItems || prior == nil,
		Profile:       profile,
	})
	if err == nil {
		st, err = s.store.Apply(ctx, courseID, func(cur State) (State, error) {
			return reduceActiveCleared(reduceActivityReplaced(cur, lessonID, activity)), nil
		})
	}
	if err != nil {
		ctx = context.WithoutCancel(ctx)
		s.log.Warn("Remedial activity failed", "lesson_id", lessonID, "error", err)
		s.recordFailure(ctx, courseID, "retry_lesson", err)
		s.notify.GenerationError(courseID, idx, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	out := st.Course.LessonByID(lessonID)
	s.notify.ActivityCreated(courseID, idx, out.ActivityID)
	return out, nil
}

// CompleteLesson marks a lesson done. Finishing the last roadmap lesson opens
// the assessment; otherwise the next lesson is queued when the learner has
// auto-advance on. Repeat calls are harmless.
func (s *Service) CompleteLesson(ctx context.Context, userID string, lessonID uuid.UUID, score int) (State, error) {
	st, lesson, err := s.lessonState(ctx, userID, lessonID)
	if err != nil {
		return State{}, err
	}
	courseID := st.Course.ID
	firstTime := !lesson.Completed

	st, err = s.store.Apply(ctx, courseID, func(cur State) (State, error) {
		next := reduceLessonCompleted(cur, lessonID, score)
		if next.Course.Status == learning.StatusActive {
			next = reduceStatus(next, learning.StatusInProgress, "")
		}
		if next.Course.Status == learning.StatusInProgress {
			facts := progression.FactsFor(&next.Course)
			if progression.Transition(learning.StatusInProgress, learning.StatusAwaitingAssessment, facts) == nil {
				next = reduceStatus(next, learning.StatusAwaitingAssessment, "")
			}
		}
		return next, nil
	})
	if err != nil {
		return State{}, err
	}
	s.notify.CourseUpdated(&st.Course)

	nextIdx := lesson.ObjectiveIndex + 1
	if !firstTime || st.Course.Status != learning.StatusInProgress ||
		nextIdx != len(st.Course.Lessons) || nextIdx >= len(st.Course.Roadmap) {
		return st, nil
	}
	_, _, settings := s.learnerContext(ctx, userID, courseID)
	if s.enqueue != nil && settings.AutoAdvance {
		if err := s.enqueue.EnqueueNextLesson(ctx, userID, courseID, learning.ClampScore(score)); err != nil {
			s.log.Warn("Queueing next lesson failed", "course_id", courseID, "error", err)
		}
	}
	return st, nil
}

// RecordReview stores a scored submission on the lesson.
func (s *Service) RecordReview(ctx context.Context, lessonID uuid.UUID, courseID uuid.UUID, review learning.ActivityReview, sub learning.Submission) (State, error) {
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}
	return s.store.Apply(ctx, courseID, func(cur State) (State, error) {
		return reduceReviewRecorded(cur, lessonID, review, sub), nil
	})
}
