package user

import (
	"time"

	"gorm.io/datatypes"
)

type SkillSignals struct {
	Strengths []string `json:"strengths"`
	Gaps      []string `json:"gaps"`
}

// LearnerProfile is threaded into every generation prompt. Version grows by
// one on every update.
type LearnerProfile struct {
	UserID          string                           `gorm:"column:user_id;size:64;primaryKey" json:"user_id"`
	DisplayName     string                           `gorm:"column:display_name" json:"display_name"`
	ExperienceLevel string                           `gorm:"column:experience_level;size:30" json:"experience_level"`
	LearningGoals   datatypes.JSONSlice[string]      `gorm:"column:learning_goals" json:"learning_goals"`
	Interests       datatypes.JSONSlice[string]      `gorm:"column:interests" json:"interests"`
	LearningStyle   string                           `gorm:"column:learning_style;size:30" json:"learning_style"`
	TonePreference  string                           `gorm:"column:tone_preference;size:30" json:"tone_preference"`
	SkillSignals    datatypes.JSONType[SkillSignals] `gorm:"column:skill_signals" json:"skill_signals"`
	Version         int                              `gorm:"column:version;not null;default:1" json:"version"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LearnerProfile) TableName() string { return "learner_profile" }

func NewLearnerProfile(userID string) *LearnerProfile {
	return &LearnerProfile{
		UserID:          userID,
		ExperienceLevel: "beginner",
		LearningGoals:   datatypes.JSONSlice[string]{},
		Interests:       datatypes.JSONSlice[string]{},
		SkillSignals:    datatypes.NewJSONType(SkillSignals{Strengths: []string{}, Gaps: []string{}}),
		Version:         1,
	}
}
