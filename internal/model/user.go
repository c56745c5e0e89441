package model

import (
	"time"
)

type User struct {
	ID               int64      `gorm:"primaryKey" json:"id"`
	UID              string     `gorm:"size:50;uniqueIndex;not null" json:"uid"`
	Username         string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email            *string    `gorm:"size:100;uniqueIndex" json:"email,omitempty"`
	PasswordHash     *string    `gorm:"size:255" json:"-"`
	AvatarURL        string     `gorm:"size:500" json:"avatar_url"`
	GithubID         *string    `gorm:"column:github_id;size:50;uniqueIndex" json:"-"`
	Plan             string     `gorm:"size:20;default:FREE" json:"plan"`
	SubLimit         int64      `gorm:"default:50000" json:"sub_limit"`
	BillingCycle     string     `gorm:"size:20" json:"billing_cycle,omitempty"`
	TokensUsed       int64      `gorm:"default:0" json:"tokens_used"`
	TokenBalance     int64      `gorm:"default:0" json:"token_balance"`
	StripeCustomerID *string    `gorm:"size:100;uniqueIndex" json:"-"`
	UsageResetAt     *time.Time `json:"usage_reset_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
