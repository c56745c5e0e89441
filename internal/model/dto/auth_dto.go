package dto

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=32"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	UserID int64  `json:"user_id"`
	UID    string `json:"uid"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// UserInfo 用户信息（返回给前端）
type UserInfo struct {
	ID        int64      `json:"id"`
	UID       string     `json:"uid"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	AvatarURL string     `json:"avatar_url"`
	Plan      string     `json:"plan"`
	QuotaInfo *QuotaInfo `json:"quota_info,omitempty"`
	CreatedAt string     `json:"created_at,omitempty"`
}

// QuotaInfo token 配额信息，账户页加载/聚焦时重新拉取
type QuotaInfo struct {
	Plan         string `json:"plan"`
	SubLimit     int64  `json:"sub_limit"`
	TokensUsed   int64  `json:"tokens_used"`
	TokenBalance int64  `json:"token_balance"`
	Remaining    int64  `json:"remaining"`
	ResetAt      string `json:"reset_at,omitempty"`
}

// UpdateProfileRequest 更新用户信息请求
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty" binding:"omitempty,min=3,max=50"`
	Avatar   *string `json:"avatar_url,omitempty" binding:"omitempty,max=500,url"`
}
