package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AssessmentPending  = "pending"
	AssessmentReviewed = "reviewed"
)

type Assessment struct {
	ID              uuid.UUID                             `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID        uuid.UUID                             `gorm:"type:uuid;not null;index" json:"course_id"`
	Attempt         int                                   `gorm:"column:attempt;not null;default:1" json:"attempt"`
	Title           string                                `gorm:"column:title" json:"title"`
	Items           datatypes.JSONSlice[AssessmentItem]   `gorm:"column:items" json:"items"`
	Responses       datatypes.JSONSlice[ItemResponse]     `gorm:"column:responses" json:"responses"`
	Score           *int                                  `gorm:"column:score" json:"score"`
	Passed          *bool                                 `gorm:"column:passed" json:"passed"`
	ObjectiveScores datatypes.JSONSlice[ObjectiveScore]   `gorm:"column:objective_scores" json:"objective_scores"`
	NextSteps       datatypes.JSONSlice[string]           `gorm:"column:next_steps" json:"next_steps"`
	Status          string                                `gorm:"column:status;size:20;not null" json:"status"`
	CreatedAt       time.Time                             `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time                             `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Assessment) TableName() string { return "assessment" }

type AssessmentItem struct {
	Objective string   `json:"objective"`
	Prompt    string   `json:"prompt"`
	Rubric    []string `json:"rubric"`
}

type ItemResponse struct {
	Objective string `json:"objective"`
	Text      string `json:"text"`
}

type ObjectiveScore struct {
	Objective string `json:"objective"`
	Score     int    `json:"score"`
	Feedback  string `json:"feedback"`
}
