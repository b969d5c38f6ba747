package user

import "time"

type Settings struct {
	UserID         string `gorm:"column:user_id;size:64;primaryKey" json:"user_id"`
	Model          string `gorm:"column:model" json:"model"`
	VisualsEnabled bool   `gorm:"column:visuals_enabled;not null" json:"visuals_enabled"`
	AspectRatio    string `gorm:"column:aspect_ratio;size:10" json:"aspect_ratio"`
	// AutoAdvance queues the next lesson as soon as one is completed.
	AutoAdvance bool `gorm:"column:auto_advance;not null" json:"auto_advance"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Settings) TableName() string { return "user_settings" }

func DefaultSettings(userID string) *Settings {
	return &Settings{
		UserID:         userID,
		VisualsEnabled: true,
		AspectRatio:    "16:9",
		AutoAdvance:    true,
	}
}
