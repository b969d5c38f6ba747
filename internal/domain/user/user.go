package user

import (
	"time"

	"gorm.io/gorm"
)

// DevUserID is the identity every request runs as when bearer auth is off.
const DevUserID = "dev-user-001"

type User struct {
	ID          string `gorm:"column:id;size:64;primaryKey" json:"id"`
	Email       string `gorm:"column:email;index" json:"email,omitempty"`
	DisplayName string `gorm:"column:display_name" json:"display_name"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
