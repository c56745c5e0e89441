package model

import (
	"time"
)

const (
	JobStatusQueued     = "queued"
	JobStatusGenerating = "generating"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

type GenerationJob struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	ScriptID       int64      `gorm:"not null;index" json:"script_id"`
	UserID         int64      `gorm:"not null;index" json:"user_id"`
	ModelName      string     `gorm:"size:50;not null" json:"model_name"`
	Status         string     `gorm:"size:20;default:queued;index" json:"status"` // queued, generating, completed, failed
	CurrentStep    string     `gorm:"size:200" json:"current_step,omitempty"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ElapsedSeconds int        `json:"elapsed_seconds,omitempty"`
}

func (GenerationJob) TableName() string {
	return "generation_jobs"
}
