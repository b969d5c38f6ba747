package activity

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/school-backend/internal/agents"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/domain/user"
	"github.com/yungbote/school-backend/internal/platform/logger"
	"github.com/yungbote/school-backend/internal/services/orchestrator"
)

const maxImageBytes = 8 << 20

var (
	ErrEmptySubmission     = errors.New("submission is empty")
	ErrInvalidImage        = errors.New("submission image is invalid")
	ErrUnsupportedActivity = errors.New("activity type cannot be submitted")
	ErrNoActivity          = errors.New("lesson has no activity")
	ErrReviewFailed        = errors.New("activity review failed")
)

// Submission is what a widget sends. Which field is read depends on the
// activity kind.
type Submission struct {
	Text        string `json:"text"`
	ImageBase64 string `json:"image_base64"`
	Answers     []int  `json:"answers"`
}

type Result struct {
	LessonID     uuid.UUID               `json:"lesson_id"`
	ActivityID   uuid.UUID               `json:"activity_id"`
	Score        int                     `json:"score"`
	Passed       bool                    `json:"passed"`
	Feedback     string                  `json:"feedback"`
	Review       learning.ActivityReview `json:"review"`
	Quiz         *QuizResult             `json:"quiz,omitempty"`
	Completed    bool                    `json:"completed"`
	CourseStatus learning.CourseStatus   `json:"course_status"`
}

// Lessons is the part of the orchestrator this service drives.
type Lessons interface {
	Lesson(ctx context.Context, userID string, lessonID uuid.UUID) (orchestrator.State, *learning.Lesson, error)
	LearnerContext(ctx context.Context, userID string, courseID uuid.UUID) (context.Context, *user.LearnerProfile, *user.Settings)
	RecordReview(ctx context.Context, lessonID, courseID uuid.UUID, review learning.ActivityReview, sub learning.Submission) (orchestrator.State, error)
	CompleteLesson(ctx context.Context, userID string, lessonID uuid.UUID, score int) (orchestrator.State, error)
	Store() *orchestrator.Store
}

type Reviewer interface {
	ReviewActivity(ctx context.Context, in agents.ReviewInput) (*agents.ActivityReview, error)
}

type Service struct {
	log      *logger.Logger
	lessons  Lessons
	reviewer Reviewer
}

func New(baseLog *logger.Logger, lessons Lessons, reviewer Reviewer) *Service {
	return &Service{
		log:      baseLog.With("service", "ActivityService"),
		lessons:  lessons,
		reviewer: reviewer,
	}
}

// View returns the render model for a lesson's activity.
func (s *Service) View(ctx context.Context, userID string, lessonID uuid.UUID) (View, error) {
	_, l, err := s.lessons.Lesson(ctx, userID, lessonID)
	if err != nil {
		return View{}, err
	}
	return ForLesson(l), nil
}

// reviewRequest is a validated non multiple-choice submission.
type reviewRequest struct {
	input agents.ReviewInput
	sub   learning.Submission
}

// Submit scores a submission and completes the lesson when it passes.
// Validation happens before any model call or guard.
func (s *Service) Submit(ctx context.Context, userID string, lessonID uuid.UUID, in Submission) (*Result, error) {
	ctx, span := otel.Tracer("school/activity").Start(ctx, "activity.submit")
	defer span.End()
	span.SetAttributes(attribute.String("lesson.id", lessonID.String()))

	st, l, err := s.lessons.Lesson(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	act, err := l.Activity()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedActivity, err)
	}
	if act == nil {
		return nil, ErrNoActivity
	}
	objective := st.Course.Objective(l.ObjectiveIndex)
	courseID := st.Course.ID

	var req reviewRequest
	switch v := act.(type) {
	case learning.MultipleChoice:
		return s.submitChoice(ctx, userID, l, courseID, v, in.Answers)
	case learning.ShortResponse:
		text, err := requireText(in.Text)
		if err != nil {
			return nil, err
		}
		req.input = agents.ReviewInput{ActivityPrompt: v.Prompt, Rubric: v.Rubric, Text: text}
		req.sub = learning.Submission{Kind: v.Kind(), Text: text}
	case learning.EmbeddedInteractive:
		text, err := requireText(in.Text)
		if err != nil {
			return nil, err
		}
		req.input = agents.ReviewInput{ActivityPrompt: v.Instructions, Rubric: v.Rubric, Text: text}
		req.sub = learning.Submission{Kind: v.Kind(), Text: text}
	case learning.Drawing:
		mime, raw, err := decodeImage(in.ImageBase64)
		if err != nil {
			return nil, err
		}
		req.input = agents.ReviewInput{ActivityPrompt: v.Prompt, Rubric: v.Rubric, Text: strings.TrimSpace(in.Text), ImageMIME: mime, Image: raw}
		req.sub = learning.Submission{Kind: v.Kind(), ImageBytes: len(raw)}
	case learning.FileUpload:
		mime, raw, err := decodeImage(in.ImageBase64)
		if err != nil {
			return nil, err
		}
		req.input = agents.ReviewInput{ActivityPrompt: v.Prompt, Rubric: v.Rubric, Text: strings.TrimSpace(in.Text), ImageMIME: mime, Image: raw}
		req.sub = learning.Submission{Kind: v.Kind(), ImageBytes: len(raw)}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedActivity, act.Kind())
	}
	req.input.Objective = objective

	store := s.lessons.Store()
	if err := store.TryBeginSubmit(ctx, courseID); err != nil {
		return nil, err
	}
	defer store.FinishSubmit(ctx, courseID)

	callCtx, _, _ := s.lessons.LearnerContext(ctx, userID, courseID)
	out, err := s.reviewer.ReviewActivity(callCtx, req.input)
	if err != nil {
		s.log.Warn("Activity review failed", "lesson_id", lessonID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrReviewFailed, err)
	}
	review := learning.ActivityReview{
		Score:           out.Score,
		MasteryDecision: out.MasteryDecision,
		Rationale:       out.Rationale,
		Strengths:       out.Strengths,
		Improvements:    out.Improvements,
		Tips:            out.Tips,
		Reviewed:        true,
	}
	req.sub.Score = review.Score
	return s.record(ctx, userID, l, courseID, act.Passing(), review, req.sub, nil)
}

func (s *Service) submitChoice(ctx context.Context, userID string, l *learning.Lesson, courseID uuid.UUID, mc learning.MultipleChoice, answers []int) (*Result, error) {
	if len(answers) == 0 {
		return nil, ErrEmptySubmission
	}
	res, err := ScoreAnswers(mc, answers)
	if err != nil {
		return nil, err
	}
	review := learning.ActivityReview{
		Score:           res.Score,
		MasteryDecision: learning.MasteryFor(res.Score),
		Rationale:       res.Feedback,
		Reviewed:        true,
	}
	for _, m := range res.Missed {
		review.Improvements = append(review.Improvements, m.Explanation)
	}
	sub := learning.Submission{Kind: mc.Kind(), Score: res.Score}
	return s.record(ctx, userID, l, courseID, mc.Passing(), review, sub, &res)
}

func (s *Service) record(ctx context.Context, userID string, l *learning.Lesson, courseID uuid.UUID, passing int, review learning.ActivityReview, sub learning.Submission, quiz *QuizResult) (*Result, error) {
	sub.SubmittedAt = time.Now().UTC()
	st, err := s.lessons.RecordReview(ctx, l.ID, courseID, review, sub)
	if err != nil {
		return nil, fmt.Errorf("record review: %w", err)
	}
	out := &Result{
		LessonID:     l.ID,
		ActivityID:   l.ActivityID,
		Score:        review.Score,
		Passed:       review.Score >= passing,
		Feedback:     review.Rationale,
		Review:       review,
		Quiz:         quiz,
		CourseStatus: st.Course.Status,
	}
	if out.Passed {
		st, err = s.lessons.CompleteLesson(ctx, userID, l.ID, review.Score)
		if err != nil {
			return nil, fmt.Errorf("complete lesson: %w", err)
		}
		out.Completed = true
		out.CourseStatus = st.Course.Status
	}
	s.log.Info("Activity scored", "lesson_id", l.ID, "kind", sub.Kind, "score", review.Score, "passed", out.Passed)
	return out, nil
}

func requireText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptySubmission
	}
	return text, nil
}

// decodeImage accepts raw base64 or a data URL and returns the sniffed
// content type and decoded bytes.
func decodeImage(payload string) (string, []byte, error) {
	payload = strings.TrimSpace(payload)
	if i := strings.Index(payload, ","); strings.HasPrefix(payload, "data:") && i > 0 {
		payload = payload[i+1:]
	}
	if payload == "" {
		return "", nil, ErrEmptySubmission
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(raw) == 0 {
		return "", nil, ErrEmptySubmission
	}
	if len(raw) > maxImageBytes {
		return "", nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidImage, len(raw), maxImageBytes)
	}
	mime := http.DetectContentType(raw)
	if !strings.HasPrefix(mime, "image/") {
		return "", nil, fmt.Errorf("%w: content type %s", ErrInvalidImage, mime)
	}
	return mime, raw, nil
}
