package agents

import (
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/domain/user"
	"github.com/yungbote/school-backend/internal/platform/llm"
)

type OutlineInput struct {
	Description string
	Objectives  []string
	Profile     *user.LearnerProfile
}

type OutlineEntry struct {
	Title       string `json:"title" validate:"notblank"`
	Description string `json:"description"`
	Objective   string `json:"objective"`
}

type CourseOutline struct {
	Title       string         `json:"title" validate:"notblank"`
	Description string         `json:"description" validate:"notblank"`
	Lessons     []OutlineEntry `json:"lessons" validate:"min=1,dive"`
	Reasoning   string         `json:"reasoning,omitempty"`
}

type LessonInput struct {
	CourseDescription string
	Objective         string
	ObjectiveIndex    int
	AllObjectives     []string
	Entry             learning.RoadmapEntry
	// Previous is nil for the first lesson.
	Previous           *learning.Lesson
	ComprehensionScore int
	Profile            *user.LearnerProfile
}

type ActivitySeed struct {
	ActivityType     string   `json:"activity_type" validate:"notblank"`
	Prompt           string   `json:"prompt" validate:"notblank"`
	ExpectedEvidence []string `json:"expected_evidence" validate:"min=2,max=5,dive,notblank"`
}

type LessonPlan struct {
	LessonTitle       string       `json:"lesson_title" validate:"notblank"`
	LearningObjective string       `json:"learning_objective" validate:"notblank"`
	KeyConcepts       []string     `json:"key_concepts" validate:"min=2,max=8,dive,notblank"`
	LessonOutline     []string     `json:"lesson_outline" validate:"min=3,max=10,dive,notblank"`
	SuggestedActivity ActivitySeed `json:"suggested_activity"`
	MasteryCriteria   []string     `json:"mastery_criteria" validate:"min=2,max=6,dive,notblank"`
	Reasoning         string       `json:"reasoning,omitempty"`
}

type LessonContent struct {
	LessonTitle  string   `json:"lesson_title" validate:"notblank"`
	LessonBody   string   `json:"lesson_body" validate:"min=200"`
	KeyTakeaways []string `json:"key_takeaways" validate:"min=3,max=6,dive,notblank"`
}

type QuestionSpec struct {
	Prompt       string   `json:"prompt" validate:"notblank"`
	Options      []string `json:"options" validate:"min=2,max=6"`
	CorrectIndex int      `json:"correct_index" validate:"min=0"`
	Explanation  string   `json:"explanation"`
}

type ActivitySpec struct {
	ActivityType  string         `json:"activity_type" validate:"oneof=multiple_choice short_response drawing embedded_interactive file_upload"`
	Instructions  string         `json:"instructions" validate:"min=50"`
	Prompt        string         `json:"prompt" validate:"min=20"`
	ScoringRubric []string       `json:"scoring_rubric" validate:"min=3,max=6,dive,notblank"`
	Hints         []string       `json:"hints" validate:"min=2,max=5,dive,notblank"`
	Questions     []QuestionSpec `json:"questions,omitempty" validate:"dive"`
	HTML          string         `json:"html,omitempty"`
	AcceptedTypes []string       `json:"accepted_types,omitempty"`
	PassingScore  int            `json:"passing_score,omitempty" validate:"min=0,max=100"`
	Reasoning     string         `json:"reasoning,omitempty"`
}

type RemedialInput struct {
	Lesson        learning.Lesson
	Objective     string
	Prior         learning.Activity
	PreviousScore int
	Attempt       int
	// Fresh asks for new material; otherwise the prior task is kept and only
	// the scaffolding changes.
	Fresh   bool
	Profile *user.LearnerProfile
}

// ReviewInput is one non multiple-choice submission. Image is attached to
// the review turn when set.
type ReviewInput struct {
	Objective      string
	ActivityPrompt string
	Rubric         []string
	Text           string
	ImageMIME      string
	Image          []byte
}

func (in ReviewInput) images() []llm.Image {
	if len(in.Image) == 0 {
		return nil
	}
	return []llm.Image{{MIME: in.ImageMIME, Data: in.Image}}
}

type ActivityReview struct {
	Score           int      `json:"score" validate:"min=0,max=100"`
	MasteryDecision string   `json:"mastery_decision" validate:"oneof=not_yet meets exceeds"`
	Rationale       string   `json:"rationale" validate:"min=50"`
	Strengths       []string `json:"strengths" validate:"min=2,max=5"`
	Improvements    []string `json:"improvements" validate:"min=2,max=5"`
	Tips            []string `json:"tips" validate:"min=2,max=6"`
}

type ObjectiveScoreHint struct {
	Objective string `json:"objective"`
	Score     *int   `json:"score"`
	Attempts  int    `json:"attempts"`
}

type AssessmentInput struct {
	CourseDescription string
	Objectives        []string
	ActivityScores    []ObjectiveScoreHint
	// Previous items are reused as a base when regeneration is off.
	Previous []learning.AssessmentItem
	Profile  *user.LearnerProfile
}

type AssessmentItemSpec struct {
	Objective string   `json:"objective" validate:"notblank"`
	Prompt    string   `json:"prompt" validate:"min=20"`
	Rubric    []string `json:"rubric" validate:"min=3,max=6,dive,notblank"`
}

type AssessmentSpec struct {
	AssessmentTitle string               `json:"assessment_title" validate:"notblank"`
	Items           []AssessmentItemSpec `json:"items" validate:"min=1,max=6,dive"`
	Reasoning       string               `json:"reasoning,omitempty"`
}

type ObjectiveScoreOutput struct {
	Objective string `json:"objective"`
	Score     int    `json:"score" validate:"min=0,max=100"`
	Feedback  string `json:"feedback"`
}

type AssessmentReview struct {
	OverallScore    int                    `json:"overall_score" validate:"min=0,max=100"`
	ObjectiveScores []ObjectiveScoreOutput `json:"objective_scores" validate:"min=1,dive"`
	PassDecision    string                 `json:"pass_decision" validate:"oneof=pass fail"`
	NextSteps       []string               `json:"next_steps" validate:"min=1"`
}

// Passed applies the pass threshold to the overall score; the model's own
// decision is advisory.
func (r AssessmentReview) Passed() bool {
	return learning.ClampScore(r.OverallScore) >= learning.PassingScore
}
