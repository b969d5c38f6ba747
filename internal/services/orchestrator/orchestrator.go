// Package orchestrator sequences model calls for a course and owns its
// mutable state. Every change goes through a reducer in state.go and is
// written back as a whole aggregate by the Store.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/school-backend/internal/agents"
	agentlogrepo "github.com/yungbote/school-backend/internal/data/repos/agentlog"
	learningrepo "github.com/yungbote/school-backend/internal/data/repos/learning"
	"github.com/yungbote/school-backend/internal/domain/agentlog"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/domain/user"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/llm"
	"github.com/yungbote/school-backend/internal/platform/logger"
	"github.com/yungbote/school-backend/internal/services"
	"github.com/yungbote/school-backend/internal/services/progression"
)

var (
	// ErrGenerationFailed wraps any model or persistence failure inside a
	// generation run. The course state has already been updated to reflect it.
	ErrGenerationFailed  = errors.New("generation failed")
	ErrNothingToGenerate = errors.New("no lesson left to generate")
	ErrLessonNotFound    = errors.New("lesson not found")
	ErrNotLearning       = errors.New("course is not open for lessons")
)

// Generator is the set of agents the orchestrator drives.
type Generator interface {
	OutlineCourse(ctx context.Context, in agents.OutlineInput) (*agents.CourseOutline, error)
	PlanLesson(ctx context.Context, in agents.LessonInput) (*agents.LessonPlan, error)
	WriteLesson(ctx context.Context, in agents.LessonInput, plan *agents.LessonPlan) (*agents.LessonContent, error)
	CreateActivity(ctx context.Context, in agents.LessonInput, plan *agents.LessonPlan) (learning.Activity, error)
	CreateRemedialActivity(ctx context.Context, in agents.RemedialInput) (learning.Activity, error)
}

// Learners supplies the per-user inputs of every prompt.
type Learners interface {
	Profile(ctx context.Context, userID string) (*user.LearnerProfile, error)
	Settings(ctx context.Context, userID string) (*user.Settings, error)
}

// Enqueuer schedules follow-up work outside the current request.
type Enqueuer interface {
	EnqueueNextLesson(ctx context.Context, userID string, courseID uuid.UUID, score int) error
	EnqueueCover(ctx context.Context, userID string, courseID uuid.UUID) error
}

type Deps struct {
	Log         *logger.Logger
	Store       *Store
	Agents      Generator
	Learners    Learners
	Lessons     learningrepo.LessonRepo
	Assessments learningrepo.AssessmentRepo
	AgentLogs   agentlogrepo.AgentLogRepo
	Notify      services.GenerationNotifier
	Cover       services.CoverService
	// Enqueue is optional; without it no follow-up work is scheduled.
	Enqueue Enqueuer
	Policy  progression.RetryPolicy
}

type Service struct {
	log         *logger.Logger
	store       *Store
	agents      Generator
	learners    Learners
	lessons     learningrepo.LessonRepo
	assessments learningrepo.AssessmentRepo
	agentLogs   agentlogrepo.AgentLogRepo
	notify      services.GenerationNotifier
	cover       services.CoverService
	enqueue     Enqueuer
	policy      progression.RetryPolicy
}

func New(d Deps) *Service {
	return &Service{
		log:         d.Log.With("service", "Orchestrator"),
		store:       d.Store,
		agents:      d.Agents,
		learners:    d.Learners,
		lessons:     d.Lessons,
		assessments: d.Assessments,
		agentLogs:   d.AgentLogs,
		notify:      d.Notify,
		cover:       d.Cover,
		enqueue:     d.Enqueue,
		policy:      d.Policy,
	}
}

func (s *Service) Store() *Store { return s.store }

func (s *Service) Policy() progression.RetryPolicy { return s.policy }

// Snapshot returns the course state for its owner.
func (s *Service) Snapshot(ctx context.Context, userID string, courseID uuid.UUID) (State, error) {
	st, err := s.store.Get(ctx, courseID)
	if err != nil {
		return State{}, err
	}
	if st.Course.UserID != userID {
		return State{}, ErrCourseNotFound
	}
	return st, nil
}

// lessonState finds the lesson and its course, scoped to userID.
func (s *Service) lessonState(ctx context.Context, userID string, lessonID uuid.UUID) (State, *learning.Lesson, error) {
	row, err := s.lessons.GetByID(dbctx.Context{Ctx: ctx}, lessonID)
	if errors.Is(err, learningrepo.ErrLessonNotFound) {
		return State{}, nil, ErrLessonNotFound
	}
	if err != nil {
		return State{}, nil, err
	}
	st, err := s.Snapshot(ctx, userID, row.CourseID)
	if err != nil {
		return State{}, nil, err
	}
	l := st.Course.LessonByID(lessonID)
	if l == nil {
		return State{}, nil, ErrLessonNotFound
	}
	return st, l, nil
}

// Lesson returns a lesson with the state of its course.
func (s *Service) Lesson(ctx context.Context, userID string, lessonID uuid.UUID) (State, *learning.Lesson, error) {
	return s.lessonState(ctx, userID, lessonID)
}

// learnerContext loads profile and settings and labels ctx for the model
// calls that follow. Missing profile or settings fall back to defaults.
func (s *Service) learnerContext(ctx context.Context, userID string, courseID uuid.UUID) (context.Context, *user.LearnerProfile, *user.Settings) {
	var (
		profile  *user.LearnerProfile
		settings *user.Settings
	)
	if s.learners != nil {
		var err error
		if profile, err = s.learners.Profile(ctx, userID); err != nil {
			s.log.Warn("Loading learner profile failed", "user_id", userID, "error", err)
		}
		if settings, err = s.learners.Settings(ctx, userID); err != nil {
			s.log.Warn("Loading settings failed", "user_id", userID, "error", err)
		}
	}
	if settings == nil {
		settings = user.DefaultSettings(userID)
	}
	ctx = llm.WithModel(ctx, settings.Model)
	ctx = llm.WithCallInfo(ctx, llm.CallInfo{UserID: userID, CourseID: courseID})
	return ctx, profile, settings
}

// LearnerContext is learnerContext for the services that make their own
// model calls on a course.
func (s *Service) LearnerContext(ctx context.Context, userID string, courseID uuid.UUID) (context.Context, *user.LearnerProfile, *user.Settings) {
	return s.learnerContext(ctx, userID, courseID)
}

// =========================
// Course generation
// =========================

// GenerateCourse outlines the course and writes its first lesson. A second
// call while one runs returns ErrGenerationInFlight without touching state.
func (s *Service) GenerateCourse(ctx context.Context, userID string, courseID uuid.UUID) error {
	ctx, span := otel.Tracer("school/orchestrator").Start(ctx, "orchestrator.generate_course")
	defer span.End()
	span.SetAttributes(attribute.String("course.id", courseID.String()))

	if _, err := s.Snapshot(ctx, userID, courseID); err != nil {
		return err
	}
	st, err := s.store.TryBegin(ctx, courseID, -1, func(st State) (State, error) {
		if st.Course.Status == learning.StatusGenerating {
			// Resuming a run a previous worker did not finish.
			return st, nil
		}
		if err := progression.Transition(st.Course.Status, learning.StatusGenerating, progression.FactsFor(&st.Course)); err != nil {
			return st, err
		}
		return reduceStatus(st, learning.StatusGenerating, ""), nil
	})
	if err != nil {
		return err
	}
	defer s.store.Finish(ctx, courseID)
	s.notify.CourseUpdated(&st.Course)

	ctx, profile, settings := s.learnerContext(ctx, userID, courseID)
	objectiveIndex := -1

	if len(st.Course.Roadmap) == 0 {
		outline, err := s.agents.OutlineCourse(ctx, agents.OutlineInput{
			Description: st.Course.InputDescription,
			Objectives:  []string(st.Course.InputObjectives),
			Profile:     profile,
		})
		if err != nil {
			return s.failCourse(ctx, courseID, objectiveIndex, err)
		}
		st, err = s.store.Apply(ctx, courseID, func(cur State) (State, error) {
			return reduceOutlined(cur, outline.Title, outline.Description, outline.Roadmap(cur.Course.InputObjectives)), nil
		})
		if err != nil {
			return s.failCourse(ctx, courseID, objectiveIndex, err)
		}
		s.notify.CourseOutlined(&st.Course)
	}

	if st.Course.LessonAt(0) == nil {
		objectiveIndex = 0
		if st, err = s.setActiveObjective(ctx, courseID, 0); err != nil {
			return s.failCourse(ctx, courseID, objectiveIndex, err)
		}
		lesson, err := s.buildLesson(ctx, &st.Course, 0, 100, profile)
		if err != nil {
			return s.failCourse(ctx, courseID, objectiveIndex, err)
		}
		if st, err = s.store.Apply(ctx, courseID, func(cur State) (State, error) {
			return reduceLessonAppended(cur, *lesson), nil
		}); err != nil {
			return s.failCourse(ctx, courseID, objectiveIndex, err)
		}
	}

	st, err = s.store.Apply(ctx, courseID, func(cur State) (State, error) {
		facts := progression.FactsFor(&cur.Course)
		if err := progression.Transition(cur.Course.Status, learning.StatusActive, facts); err != nil {
			return cur, err
		}
		next := reduceStatus(cur, learning.StatusActive, "")
		if err := progression.Transition(learning.StatusActive, learning.StatusInProgress, facts); err != nil {
			return cur, err
		}
		return reduceActiveCleared(reduceStatus(next, learning.StatusInProgress, "")), nil
	})
	if err != nil {
		return s.failCourse(ctx, courseID, objectiveIndex, err)
	}

	s.log.Info("Course generated", "course_id", courseID, "lessons", len(st.Course.Roadmap))
	s.notify.GenerationComplete(courseID, st.Course.Status)
	s.notify.CourseUpdated(&st.Course)

	if s.enqueue != nil && settings.VisualsEnabled && st.Course.CoverURL == "" {
		if err := s.enqueue.EnqueueCover(ctx, userID, courseID); err != nil {
			s.log.Warn("Queueing cover failed", "course_id", courseID, "error", err)
		}
	}
	return nil
}

func (s *Service) setActiveObjective(ctx context.Context, courseID uuid.UUID, idx int) (State, error) {
	return s.store.Apply(ctx, courseID, func(cur State) (State, error) {
		return reduceGenerationStarted(cur, idx), nil
	})
}

// failCourse records a failed course generation: the error goes to the log
// and onto the course, which moves to generation_failed.
func (s *Service) failCourse(ctx context.Context, courseID uuid.UUID, objectiveIndex int, cause error) error {
	ctx = context.WithoutCancel(ctx)
	msg := cause.Error()
	s.log.Error("Course generation failed", "course_id", courseID, "objective_index", objectiveIndex, "error", msg)
	s.recordFailure(ctx, courseID, "generate_course", cause)

	st, err := s.store.Apply(ctx, courseID, func(cur State) (State, error) {
		if err := progression.Transition(cur.Course.Status, learning.StatusGenerationFailed, progression.FactsFor(&cur.Course)); err != nil {
			return cur, err
		}
		return reduceActiveCleared(reduceStatus(cur, learning.StatusGenerationFailed, msg)), nil
	})
	if err != nil {
		s.log.Warn("Recording generation failure failed", "course_id", courseID, "error", err)
	}
	s.notify.GenerationError(courseID, objectiveIndex, msg)
	s.notify.GenerationComplete(courseID, learning.StatusGenerationFailed)
	if err == nil {
		s.notify.CourseUpdated(&st.Course)
	}
	return fmt.Errorf("%w: %v", ErrGenerationFailed, cause)
}

// recordFailure writes an operation-level error entry to the agent log.
func (s *Service) recordFailure(ctx context.Context, courseID uuid.UUID, action string, cause error) {
	info := llm.CallInfoFrom(ctx)
	id := courseID
	entry := agentlog.AgentLog{
		UserID:   info.UserID,
		CourseID: &id,
		Action:   action,
		Status:   agentlog.StatusError,
		Error:    cause.Error(),
	}
	if err := s.AddLog(ctx, entry); err != nil {
		s.log.Warn("Writing agent log failed", "course_id", courseID, "error", err)
	}
}

// CreateCover renders or generates the course illustration. Failures fall
// back to the placeholder inside the cover service.
func (s *Service) CreateCover(ctx context.Context, userID string, courseID uuid.UUID) (string, error) {
	st, err := s.Snapshot(ctx, userID, courseID)
	if err != nil {
		return "", err
	}
	if s.cover == nil {
		return "", nil
	}
	ctx, _, settings := s.learnerContext(ctx, userID, courseID)
	url := s.cover.CreateCover(ctx, &st.Course, settings)
	if url == "" {
		return "", nil
	}
	st, err = s.store.Apply(ctx, courseID, func(cur State) (State, error) {
		return reduceCover(cur, url), nil
	})
	if err != nil {
		return "", err
	}
	s.notify.CourseUpdated(&st.Course)
	return url, nil
}

// =========================
// Lifecycle and navigation
// =========================

// TransitionTo moves the course to target when the lifecycle allows it.
func (s *Service) TransitionTo(ctx context.Context, userID string, courseID uuid.UUID, target learning.CourseStatus) (State, error) {
	if _, err := s.Snapshot(ctx, userID, courseID); err != nil {
		return State{}, err
	}
	facts, err := s.assessmentFacts(ctx, courseID)
	if err != nil {
		return State{}, err
	}
	st, err := s.Apply(ctx, courseID, target, facts)
	if err != nil {
		return State{}, err
	}
	s.notify.CourseUpdated(&st.Course)
	return st, nil
}

// Apply checks and applies a status change with caller-provided assessment
// facts merged over the course facts.
func (s *Service) Apply(ctx context.Context, courseID uuid.UUID, target learning.CourseStatus, extra progression.Facts) (State, error) {
	return s.store.Apply(ctx, courseID, func(cur State) (State, error) {
		facts := progression.FactsFor(&cur.Course).WithPolicy(s.policy)
		facts.HasAssessment = extra.HasAssessment
		facts.LatestPassed = extra.LatestPassed
		if err := progression.Transition(cur.Course.Status, target, facts); err != nil {
			return cur, err
		}
		return reduceStatus(cur, target, ""), nil
	})
}

func (s *Service) assessmentFacts(ctx context.Context, courseID uuid.UUID) (progression.Facts, error) {
	var f progression.Facts
	if s.assessments == nil {
		return f, nil
	}
	a, err := s.assessments.Latest(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil {
		return f, err
	}
	if a != nil {
		f.HasAssessment = true
		f.LatestPassed = a.Passed != nil && *a.Passed
	}
	return f, nil
}

func (s *Service) SetCurrentLessonIndex(ctx context.Context, userID string, courseID uuid.UUID, index int) (State, error) {
	if _, err := s.Snapshot(ctx, userID, courseID); err != nil {
		return State{}, err
	}
	return s.store.Apply(ctx, courseID, func(cur State) (State, error) {
		return reduceLessonIndex(cur, index), nil
	})
}

func (s *Service) SetCurrentPageIndex(ctx context.Context, userID string, courseID uuid.UUID, page int) (State, error) {
	if _, err := s.Snapshot(ctx, userID, courseID); err != nil {
		return State{}, err
	}
	return s.store.Apply(ctx, courseID, func(cur State) (State, error) {
		return reducePageIndex(cur, page), nil
	})
}

// MarkPageActivityComplete records an in-page check on the current lesson.
func (s *Service) MarkPageActivityComplete(ctx context.Context, userID string, courseID uuid.UUID, page int) (State, error) {
	if _, err := s.Snapshot(ctx, userID, courseID); err != nil {
		return State{}, err
	}
	return s.store.Apply(ctx, courseID, func(cur State) (State, error) {
		return reducePageActivityComplete(cur, page), nil
	})
}

// =========================
// Agent log
// =========================

// AddLog appends an entry to the course's in-process log and the agent_log
// table.
func (s *Service) AddLog(ctx context.Context, entry agentlog.AgentLog) error {
	return addLog(ctx, s.store, s.agentLogs, entry)
}

func addLog(ctx context.Context, store *Store, repo agentlogrepo.AgentLogRepo, entry agentlog.AgentLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = agentlog.StatusSuccess
	}
	if entry.CourseID != nil && *entry.CourseID != uuid.Nil && store != nil {
		if _, err := store.ApplyMemory(ctx, *entry.CourseID, func(st State) State {
			return reduceLogAppended(st, entry)
		}); err != nil && !errors.Is(err, ErrCourseNotFound) {
			return err
		}
	}
	if repo == nil {
		return nil
	}
	row := entry
	return repo.Create(dbctx.Context{Ctx: ctx}, []*agentlog.AgentLog{&row})
}

// Logs returns the process-lifetime log for the course. The table is read
// only when this process has neither entries nor a reset for the course.
func (s *Service) Logs(ctx context.Context, userID string, courseID uuid.UUID, limit int) ([]agentlog.AgentLog, error) {
	st, err := s.Snapshot(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if len(st.Logs) > 0 || st.LogsResetAt != nil {
		if st.Logs == nil {
			return []agentlog.AgentLog{}, nil
		}
		return st.Logs, nil
	}
	rows, err := s.agentLogs.ListByCourse(dbctx.Context{Ctx: ctx}, courseID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]agentlog.AgentLog, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out, nil
}

// Reset clears the in-process log of a course. Table rows are kept for
// audit but are no longer served by Logs in this process.
func (s *Service) Reset(ctx context.Context, userID string, courseID uuid.UUID) error {
	if _, err := s.Snapshot(ctx, userID, courseID); err != nil {
		return err
	}
	at := time.Now().UTC()
	_, err := s.store.ApplyMemory(ctx, courseID, func(st State) State {
		return reduceLogsCleared(st, at)
	})
	return err
}
