package learning

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Lesson struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID       uuid.UUID                   `gorm:"type:uuid;not null;index:idx_lesson_course_objective,unique" json:"course_id"`
	ObjectiveIndex int                         `gorm:"column:objective_index;not null;index:idx_lesson_course_objective,unique" json:"objective_index"`
	Title          string                      `gorm:"column:title" json:"title"`
	Pages          datatypes.JSONSlice[Page]   `gorm:"column:pages" json:"pages"`
	KeyTakeaways   datatypes.JSONSlice[string] `gorm:"column:key_takeaways" json:"key_takeaways"`

	// The activity belongs to the lesson; regenerating it mints a new ActivityID.
	ActivityID     uuid.UUID      `gorm:"type:uuid;column:activity_id;index" json:"activity_id"`
	ActivityKind   ActivityKind   `gorm:"column:activity_kind;size:40" json:"activity_kind,omitempty"`
	ActivityConfig datatypes.JSON `gorm:"column:activity_config" json:"activity_config,omitempty"`

	Completed            bool                                `gorm:"column:completed;not null;default:false" json:"completed"`
	ComprehensionScore   *int                                `gorm:"column:comprehension_score" json:"comprehension_score"`
	AttemptCount         int                                 `gorm:"column:attempt_count;not null;default:0" json:"attempt_count"`
	PageActivityComplete datatypes.JSONSlice[int]            `gorm:"column:page_activity_complete" json:"page_activity_complete"`
	Review               datatypes.JSONType[ActivityReview]  `gorm:"column:review" json:"review"`
	Submissions          datatypes.JSONSlice[Submission]     `gorm:"column:submissions" json:"submissions"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

type Page struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type ActivityReview struct {
	Score           int      `json:"score"`
	MasteryDecision string   `json:"mastery_decision,omitempty"`
	Rationale       string   `json:"rationale,omitempty"`
	Strengths       []string `json:"strengths,omitempty"`
	Improvements    []string `json:"improvements,omitempty"`
	Tips            []string `json:"tips,omitempty"`
	Reviewed        bool     `json:"reviewed"`
}

type Submission struct {
	Kind        ActivityKind `json:"kind"`
	Text        string       `json:"text,omitempty"`
	ImageBytes  int          `json:"image_bytes,omitempty"`
	Score       int          `json:"score"`
	SubmittedAt time.Time    `json:"submitted_at"`
}

// Activity decodes the stored activity configuration into its variant.
func (l *Lesson) Activity() (Activity, error) {
	if l.ActivityKind == "" {
		return nil, nil
	}
	return DecodeActivity(l.ActivityKind, json.RawMessage(l.ActivityConfig))
}

// SetActivity stores a variant and assigns it a fresh identity.
func (l *Lesson) SetActivity(a Activity) error {
	kind, raw, err := EncodeActivity(a)
	if err != nil {
		return err
	}
	l.ActivityID = uuid.New()
	l.ActivityKind = kind
	l.ActivityConfig = datatypes.JSON(raw)
	return nil
}

// HasContent reports whether the lesson body has been written.
func (l *Lesson) HasContent() bool {
	for _, p := range l.Pages {
		if p.Body != "" {
			return true
		}
	}
	return false
}

func (l *Lesson) HasActivity() bool {
	return l.ActivityKind != "" && l.ActivityID != uuid.Nil
}

func (l Lesson) Clone() Lesson {
	out := l
	out.Pages = append(datatypes.JSONSlice[Page](nil), l.Pages...)
	out.KeyTakeaways = append(datatypes.JSONSlice[string](nil), l.KeyTakeaways...)
	out.ActivityConfig = append(datatypes.JSON(nil), l.ActivityConfig...)
	out.PageActivityComplete = append(datatypes.JSONSlice[int](nil), l.PageActivityComplete...)
	out.Submissions = append(datatypes.JSONSlice[Submission](nil), l.Submissions...)
	if l.ComprehensionScore != nil {
		v := *l.ComprehensionScore
		out.ComprehensionScore = &v
	}
	return out
}
