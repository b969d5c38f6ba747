// Package agents wraps every model call the course pipeline makes: outline,
// plan, write, activity design, reviews and assessments. Each call asks for a
// named JSON schema and re-checks the decoded output with struct rules.
package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/llm"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

const (
	ActionCourseOutline      = "course_outliner"
	ActionLessonPlanner      = "lesson_planner"
	ActionLessonWriter       = "lesson_writer"
	ActionActivityCreator    = "activity_creator"
	ActionRemedialActivity   = "remedial_activity"
	ActionActivityReviewer   = "activity_reviewer"
	ActionAssessmentCreator  = "assessment_creator"
	ActionAssessmentReviewer = "assessment_reviewer"
)

type Config struct {
	MaxTokens   int
	Temperature float64
}

func DefaultConfig() Config {
	return Config{MaxTokens: 8192, Temperature: 0.4}
}

type Service struct {
	provider llm.Provider
	validate *validator.Validate
	cfg      Config
	log      *logger.Logger
}

func New(provider llm.Provider, cfg Config, baseLog *logger.Logger) *Service {
	return &Service{
		provider: provider,
		validate: NewValidator(),
		cfg:      cfg,
		log:      baseLog.With("service", "Agents"),
	}
}

// NewValidator returns a validator with the notblank tag registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

func call[T any](ctx context.Context, s *Service, action, system, prompt string, schema *llm.Schema, images ...llm.Image) (*T, error) {
	info := llm.CallInfoFrom(ctx)
	info.Action = action
	ctx = llm.WithCallInfo(ctx, info)

	req := llm.UserText(system, prompt, schema, s.cfg.MaxTokens, images...)
	req.Temperature = s.cfg.Temperature
	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	var out T
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", action, &llm.ErrInvalidResponse{Content: resp.Content, Err: err})
	}
	if err := s.validate.Struct(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", action, &llm.ErrInvalidResponse{Content: resp.Content, Err: err})
	}
	return &out, nil
}

// OutlineCourse produces the course skeleton.
func (s *Service) OutlineCourse(ctx context.Context, in OutlineInput) (*CourseOutline, error) {
	if len(in.Objectives) == 0 {
		return nil, fmt.Errorf("%s: no objectives", ActionCourseOutline)
	}
	return call[CourseOutline](ctx, s, ActionCourseOutline, outlineSystemPrompt, buildOutlinePrompt(in), CourseOutlineSchema)
}

func (s *Service) PlanLesson(ctx context.Context, in LessonInput) (*LessonPlan, error) {
	return call[LessonPlan](ctx, s, ActionLessonPlanner, plannerSystemPrompt, buildPlannerPrompt(in), LessonPlanSchema)
}

func (s *Service) WriteLesson(ctx context.Context, in LessonInput, plan *LessonPlan) (*LessonContent, error) {
	return call[LessonContent](ctx, s, ActionLessonWriter, writerSystemPrompt, buildWriterPrompt(in, plan), LessonContentSchema)
}

func (s *Service) CreateActivity(ctx context.Context, in LessonInput, plan *LessonPlan) (learning.Activity, error) {
	spec, err := call[ActivitySpec](ctx, s, ActionActivityCreator, activitySystemPrompt, buildActivityPrompt(in, plan), ActivitySpecSchema)
	if err != nil {
		return nil, err
	}
	return spec.ToActivity(), nil
}

// CreateRemedialActivity designs the replacement activity for a retry.
func (s *Service) CreateRemedialActivity(ctx context.Context, in RemedialInput) (learning.Activity, error) {
	spec, err := call[ActivitySpec](ctx, s, ActionRemedialActivity, remedialSystemPrompt, buildRemedialPrompt(in), ActivitySpecSchema)
	if err != nil {
		return nil, err
	}
	a := spec.ToActivity()
	if !in.Fresh && in.Prior != nil {
		a = keepPriorMaterial(in.Prior, a)
	}
	return a, nil
}

// ReviewActivity scores a submission. Score and mastery are normalized so
// they always agree.
func (s *Service) ReviewActivity(ctx context.Context, in ReviewInput) (*ActivityReview, error) {
	out, err := call[ActivityReview](ctx, s, ActionActivityReviewer, reviewerSystemPrompt, buildReviewPrompt(in), ActivityReviewSchema, in.images()...)
	if err != nil {
		return nil, err
	}
	out.Score = learning.ClampScore(out.Score)
	out.MasteryDecision = learning.MasteryFor(out.Score)
	return out, nil
}

func (s *Service) CreateAssessment(ctx context.Context, in AssessmentInput) (*AssessmentSpec, error) {
	out, err := call[AssessmentSpec](ctx, s, ActionAssessmentCreator, assessmentSystemPrompt, buildAssessmentPrompt(in), AssessmentSpecSchema)
	if err != nil {
		return nil, err
	}
	if len(out.Items) > 6 {
		out.Items = out.Items[:6]
	}
	return out, nil
}

func (s *Service) ReviewAssessment(ctx context.Context, a learning.Assessment, responses []learning.ItemResponse) (*AssessmentReview, error) {
	out, err := call[AssessmentReview](ctx, s, ActionAssessmentReviewer, assessmentReviewSystemPrompt, buildAssessmentReviewPrompt(a, responses), AssessmentReviewSchema)
	if err != nil {
		return nil, err
	}
	out.OverallScore = learning.ClampScore(out.OverallScore)
	if out.Passed() {
		out.PassDecision = "pass"
	} else {
		out.PassDecision = "fail"
	}
	return out, nil
}
