// Package assessment runs the end-of-course assessment: item generation,
// review of the learner's responses and the routing that follows a result.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/school-backend/internal/agents"
	learningrepo "github.com/yungbote/school-backend/internal/data/repos/learning"
	"github.com/yungbote/school-backend/internal/domain/agentlog"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/domain/user"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/envutil"
	"github.com/yungbote/school-backend/internal/platform/logger"
	"github.com/yungbote/school-backend/internal/services"
	"github.com/yungbote/school-backend/internal/services/orchestrator"
	"github.com/yungbote/school-backend/internal/services/progression"
)

var (
	ErrNotFound         = errors.New("assessment not found")
	ErrNotReady         = errors.New("course is not ready for an assessment")
	ErrAlreadyReviewed  = errors.New("assessment already reviewed")
	ErrEmptySubmission  = errors.New("every item needs a response")
	ErrGenerationFailed = errors.New("assessment generation failed")
	ErrReviewFailed     = errors.New("assessment review failed")
)

// RetryPolicy decides what follows a failed attempt.
type RetryPolicy = progression.RetryPolicy

// PolicyFromEnv reads ASSESSMENT_RETRY_ON_FAIL (loop|review) and
// ASSESSMENT_RETRY_REGENERATE.
func PolicyFromEnv(log *logger.Logger) (RetryPolicy, error) {
	def := progression.DefaultRetryPolicy()
	route, err := progression.ParseFailRoute(strings.ToLower(envutil.String("ASSESSMENT_RETRY_ON_FAIL", string(def.OnFail), log)))
	if err != nil {
		return RetryPolicy{}, err
	}
	return RetryPolicy{
		OnFail:          route,
		RegenerateItems: envutil.Bool("ASSESSMENT_RETRY_REGENERATE", def.RegenerateItems, log),
	}, nil
}

// Courses is the part of the orchestrator the assessment flow uses.
type Courses interface {
	Snapshot(ctx context.Context, userID string, courseID uuid.UUID) (orchestrator.State, error)
	Apply(ctx context.Context, courseID uuid.UUID, target learning.CourseStatus, extra progression.Facts) (orchestrator.State, error)
	LearnerContext(ctx context.Context, userID string, courseID uuid.UUID) (context.Context, *user.LearnerProfile, *user.Settings)
	AddLog(ctx context.Context, entry agentlog.AgentLog) error
	Store() *orchestrator.Store
	Policy() progression.RetryPolicy
}

type Agents interface {
	CreateAssessment(ctx context.Context, in agents.AssessmentInput) (*agents.AssessmentSpec, error)
	ReviewAssessment(ctx context.Context, a learning.Assessment, responses []learning.ItemResponse) (*agents.AssessmentReview, error)
}

type Service struct {
	log     *logger.Logger
	courses Courses
	agents  Agents
	repo    learningrepo.AssessmentRepo
	notify  services.GenerationNotifier
	policy  RetryPolicy
}

// New takes the retry policy from courses so the lifecycle guards and the
// routing below never disagree.
func New(baseLog *logger.Logger, courses Courses, ag Agents, repo learningrepo.AssessmentRepo, notify services.GenerationNotifier) *Service {
	return &Service{
		log:     baseLog.With("service", "AssessmentService"),
		courses: courses,
		agents:  ag,
		repo:    repo,
		notify:  notify,
		policy:  courses.Policy(),
	}
}

func (s *Service) Policy() RetryPolicy { return s.policy }

// Outcome is the result of one submitted attempt.
type Outcome struct {
	Assessment   *learning.Assessment  `json:"assessment"`
	Passed       bool                  `json:"passed"`
	Score        int                   `json:"score"`
	CourseStatus learning.CourseStatus `json:"course_status"`
	// Next is the pending retry when failed attempts reuse their items.
	Next *learning.Assessment `json:"next,omitempty"`
}

func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*learning.Assessment, error) {
	a, err := s.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
	if errors.Is(err, learningrepo.ErrAssessmentNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.courses.Snapshot(ctx, userID, a.CourseID); err != nil {
		if errors.Is(err, orchestrator.ErrCourseNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, userID string, courseID uuid.UUID) ([]*learning.Assessment, error) {
	if _, err := s.courses.Snapshot(ctx, userID, courseID); err != nil {
		return nil, err
	}
	return s.repo.ListByCourse(dbctx.Context{Ctx: ctx}, courseID)
}

// canGenerate reports whether status admits a new assessment under the policy.
func (s *Service) canGenerate(status learning.CourseStatus) bool {
	switch status {
	case learning.StatusAwaitingAssessment:
		return true
	case learning.StatusAssessmentReady:
		return s.policy.RegenerateItems
	}
	return false
}

// Generate writes a new attempt for the course. It holds the course's
// generation guard, so it never overlaps lesson generation.
func (s *Service) Generate(ctx context.Context, userID string, courseID uuid.UUID) (*learning.Assessment, error) {
	ctx, span := otel.Tracer("school/assessment").Start(ctx, "assessment.generate")
	defer span.End()
	span.SetAttributes(attribute.String("course.id", courseID.String()))

	if _, err := s.courses.Snapshot(ctx, userID, courseID); err != nil {
		return nil, err
	}
	store := s.courses.Store()
	st, err := store.TryBegin(ctx, courseID, -1, func(cur orchestrator.State) (orchestrator.State, error) {
		if !s.canGenerate(cur.Course.Status) {
			return cur, fmt.Errorf("%w: status %s", ErrNotReady, cur.Course.Status)
		}
		return cur, nil
	})
	if err != nil {
		return nil, err
	}
	defer store.Finish(ctx, courseID)

	if st, err = s.courses.Apply(ctx, courseID, learning.StatusGeneratingAssessment, progression.Facts{}); err != nil {
		return nil, err
	}
	if s.notify != nil {
		s.notify.CourseUpdated(&st.Course)
	}

	dbc := dbctx.Context{Ctx: ctx}
	prev, err := s.repo.Latest(dbc, courseID)
	if err != nil {
		return nil, s.fail(ctx, userID, courseID, err)
	}

	callCtx, profile, _ := s.courses.LearnerContext(ctx, userID, courseID)
	in := agents.AssessmentInput{
		CourseDescription: st.Course.Description,
		Profile:           profile,
	}
	for i, r := range st.Course.Roadmap {
		in.Objectives = append(in.Objectives, r.Objective)
		hint := agents.ObjectiveScoreHint{Objective: r.Objective}
		if l := st.Course.LessonAt(i); l != nil {
			hint.Score = l.ComprehensionScore
			hint.Attempts = l.AttemptCount + 1
		}
		in.ActivityScores = append(in.ActivityScores, hint)
	}
	if prev != nil && !s.policy.RegenerateItems {
		in.Previous = prev.Items
	}

	spec, err := s.agents.CreateAssessment(callCtx, in)
	if err != nil {
		return nil, s.fail(ctx, userID, courseID, err)
	}

	a := &learning.Assessment{
		CourseID: courseID,
		Attempt:  nextAttempt(prev),
		Title:    spec.AssessmentTitle,
		Status:   learning.AssessmentPending,
	}
	for _, it := range spec.Items {
		a.Items = append(a.Items, learning.AssessmentItem{Objective: it.Objective, Prompt: it.Prompt, Rubric: it.Rubric})
	}
	if err := s.repo.Create(dbc, a); err != nil {
		return nil, s.fail(ctx, userID, courseID, err)
	}

	st, err = s.courses.Apply(ctx, courseID, learning.StatusAssessmentReady, progression.Facts{HasAssessment: true})
	if err != nil {
		return nil, err
	}
	if s.notify != nil {
		s.notify.CourseUpdated(&st.Course)
	}
	s.log.Info("Assessment generated", "course_id", courseID, "attempt", a.Attempt, "items", len(a.Items))
	return a, nil
}

// fail returns the course to awaiting_assessment and records cause.
func (s *Service) fail(ctx context.Context, userID string, courseID uuid.UUID, cause error) error {
	ctx = context.WithoutCancel(ctx)
	s.log.Error("Assessment generation failed", "course_id", courseID, "error", cause)
	id := courseID
	if err := s.courses.AddLog(ctx, agentlog.AgentLog{
		UserID:   userID,
		CourseID: &id,
		Action:   "generate_assessment",
		Status:   agentlog.StatusError,
		Error:    cause.Error(),
	}); err != nil {
		s.log.Warn("Writing agent log failed", "course_id", courseID, "error", err)
	}
	st, err := s.courses.Apply(ctx, courseID, learning.StatusAwaitingAssessment, progression.Facts{})
	if err != nil {
		s.log.Warn("Reverting course status failed", "course_id", courseID, "error", err)
	} else if s.notify != nil {
		s.notify.CourseUpdated(&st.Course)
	}
	return fmt.Errorf("%w: %v", ErrGenerationFailed, cause)
}

func nextAttempt(prev *learning.Assessment) int {
	if prev == nil {
		return 1
	}
	return prev.Attempt + 1
}

// validateResponses requires one non-blank response per item, matched by
// objective when the learner sent them, by position otherwise.
func validateResponses(a *learning.Assessment, responses []learning.ItemResponse) ([]learning.ItemResponse, error) {
	if len(responses) == 0 {
		return nil, ErrEmptySubmission
	}
	byObjective := make(map[string]string, len(responses))
	for _, r := range responses {
		if r.Objective != "" {
			byObjective[r.Objective] = r.Text
		}
	}
	out := make([]learning.ItemResponse, len(a.Items))
	for i, it := range a.Items {
		text, ok := byObjective[it.Objective]
		if !ok && i < len(responses) && responses[i].Objective == "" {
			text = responses[i].Text
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("%w: %q", ErrEmptySubmission, it.Objective)
		}
		out[i] = learning.ItemResponse{Objective: it.Objective, Text: text}
	}
	return out, nil
}

// Submit reviews a pending attempt and routes the course by the result.
func (s *Service) Submit(ctx context.Context, userID string, assessmentID uuid.UUID, responses []learning.ItemResponse) (*Outcome, error) {
	ctx, span := otel.Tracer("school/assessment").Start(ctx, "assessment.submit")
	defer span.End()

	a, err := s.Get(ctx, userID, assessmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != learning.AssessmentPending {
		return nil, ErrAlreadyReviewed
	}
	clean, err := validateResponses(a, responses)
	if err != nil {
		return nil, err
	}
	st, err := s.courses.Snapshot(ctx, userID, a.CourseID)
	if err != nil {
		return nil, err
	}
	if st.Course.Status != learning.StatusAssessmentReady {
		return nil, fmt.Errorf("%w: status %s", ErrNotReady, st.Course.Status)
	}

	store := s.courses.Store()
	if err := store.TryBeginSubmit(ctx, a.CourseID); err != nil {
		return nil, err
	}
	defer store.FinishSubmit(ctx, a.CourseID)

	callCtx, _, _ := s.courses.LearnerContext(ctx, userID, a.CourseID)
	review, err := s.agents.ReviewAssessment(callCtx, *a, clean)
	if err != nil {
		s.log.Warn("Assessment review failed", "assessment_id", a.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrReviewFailed, err)
	}

	passed := review.Passed()
	score := review.OverallScore
	a.Responses = clean
	a.Score = &score
	a.Passed = &passed
	a.NextSteps = review.NextSteps
	a.ObjectiveScores = nil
	for _, o := range review.ObjectiveScores {
		a.ObjectiveScores = append(a.ObjectiveScores, learning.ObjectiveScore{Objective: o.Objective, Score: learning.ClampScore(o.Score), Feedback: o.Feedback})
	}
	a.Status = learning.AssessmentReviewed
	dbc := dbctx.Context{Ctx: ctx}
	if err := s.repo.Save(dbc, a); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}

	out := &Outcome{Assessment: a, Passed: passed, Score: score}
	target := learning.StatusCompleted
	if !passed {
		target = progression.AfterFailedAssessment(s.policy.OnFail)
	}
	st, err = s.courses.Apply(ctx, a.CourseID, target, progression.Facts{HasAssessment: true, LatestPassed: passed})
	if err != nil {
		return nil, err
	}
	out.CourseStatus = st.Course.Status

	if !passed && s.policy.OnFail == progression.RouteLoop && !s.policy.RegenerateItems {
		next := &learning.Assessment{
			CourseID: a.CourseID,
			Attempt:  a.Attempt + 1,
			Title:    a.Title,
			Items:    append(a.Items[:0:0], a.Items...),
			Status:   learning.AssessmentPending,
		}
		if err := s.repo.Create(dbc, next); err != nil {
			return nil, fmt.Errorf("create retry attempt: %w", err)
		}
		out.Next = next
	}
	if s.notify != nil {
		s.notify.CourseUpdated(&st.Course)
	}
	s.log.Info("Assessment reviewed", "assessment_id", a.ID, "score", score, "passed", passed, "course_status", st.Course.Status)
	return out, nil
}
