package model

import (
	"time"
)

const (
	ScriptStatusQueued     = "queued"
	ScriptStatusGenerating = "generating"
	ScriptStatusCompleted  = "completed"
	ScriptStatusFailed     = "failed"
)

type Script struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	UserID       int64     `gorm:"not null;index" json:"user_id"`
	Title        string    `gorm:"size:200;not null" json:"title"`
	Prompt       string    `gorm:"type:text;not null" json:"prompt"`
	ModelName    string    `gorm:"size:50" json:"model_name,omitempty"`
	Code         string    `gorm:"type:longtext" json:"code,omitempty"`
	ManifestJSON string    `gorm:"type:text" json:"manifest_json,omitempty"`
	ArtifactURL  string    `gorm:"size:500" json:"artifact_url,omitempty"`
	TokensUsed   int64     `json:"tokens_used,omitempty"`
	Status       string    `gorm:"size:20;default:queued;index" json:"status"` // queued, generating, completed, failed
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Script) TableName() string {
	return "scripts"
}
