package dto

// CreateScriptRequest 创建脚本生成请求
type CreateScriptRequest struct {
	Title     string `json:"title" binding:"required,max=200"`
	Prompt    string `json:"prompt" binding:"required,min=10,max=4000"`
	ModelName string `json:"model_name,omitempty" binding:"omitempty,max=50"`
}

// CreateScriptResponse 创建脚本生成响应
type CreateScriptResponse struct {
	ScriptID int64 `json:"script_id"`
	JobID    int64 `json:"job_id"`
}

// ScriptListItem 脚本列表项
type ScriptListItem struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	ModelName string `json:"model_name,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ScriptDetail 脚本详情
type ScriptDetail struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Prompt       string `json:"prompt"`
	ModelName    string `json:"model_name,omitempty"`
	Code         string `json:"code,omitempty"`
	ManifestJSON string `json:"manifest_json,omitempty"`
	ArtifactURL  string `json:"artifact_url,omitempty"`
	TokensUsed   int64  `json:"tokens_used,omitempty"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// JobStatusResponse 生成任务状态
type JobStatusResponse struct {
	JobID          int64  `json:"job_id"`
	ScriptID       int64  `json:"script_id"`
	Status         string `json:"status"`
	CurrentStep    string `json:"current_step,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	ElapsedSeconds int    `json:"elapsed_seconds,omitempty"`
}

// ModelInfo 生成模型信息
type ModelInfo struct {
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	RequiredPlan string `json:"required_plan"`
	Description  string `json:"description,omitempty"`
	Available    bool   `json:"available"`
}
