package agentlog

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// AgentLog is one model call. Rows are only ever inserted.
type AgentLog struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string     `gorm:"column:user_id;size:64;index" json:"user_id"`
	CourseID     *uuid.UUID `gorm:"type:uuid;column:course_id;index" json:"course_id,omitempty"`
	Action       string     `gorm:"column:action;size:60;not null;index" json:"action"`
	Reasoning    string     `gorm:"column:reasoning;type:text" json:"reasoning,omitempty"`
	Prompt       string     `gorm:"column:prompt;type:text" json:"prompt"`
	Response     string     `gorm:"column:response;type:text" json:"response"`
	Status       string     `gorm:"column:status;size:20;not null" json:"status"`
	Error        string     `gorm:"column:error;type:text" json:"error,omitempty"`
	DurationMS   int64      `gorm:"column:duration_ms" json:"duration_ms"`
	InputTokens  int        `gorm:"column:input_tokens" json:"input_tokens"`
	OutputTokens int        `gorm:"column:output_tokens" json:"output_tokens"`
	Model        string     `gorm:"column:model" json:"model"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AgentLog) TableName() string { return "agent_log" }
