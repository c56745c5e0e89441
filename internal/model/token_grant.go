package model

import (
	"time"
)

// TokenGrant 记录一次性 token 包的发放。
// SessionID 唯一索引保证同一个 Checkout Session 不会重复入账。
type TokenGrant struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	SessionID string    `gorm:"size:100;uniqueIndex;not null" json:"session_id"`
	PriceID   string    `gorm:"size:100;not null" json:"price_id"`
	Tokens    int64     `gorm:"not null" json:"tokens"`
	CreatedAt time.Time `json:"created_at"`
}

func (TokenGrant) TableName() string {
	return "token_grants"
}
