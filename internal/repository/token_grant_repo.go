package repository

import (
	"gorm.io/gorm"

	"github.com/nexusrbx/nexusrbx-server/internal/model"
)

type TokenGrantRepository struct {
	db *gorm.DB
}

func NewTokenGrantRepository(db *gorm.DB) *TokenGrantRepository {
	return &TokenGrantRepository{db: db}
}

func (r *TokenGrantRepository) Create(grant *model.TokenGrant) error {
	return r.db.Create(grant).Error
}

func (r *TokenGrantRepository) GetBySessionID(sessionID string) (*model.TokenGrant, error) {
	var grant model.TokenGrant
	err := r.db.Where("session_id = ?", sessionID).First(&grant).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *TokenGrantRepository) ExistsBySessionID(sessionID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.TokenGrant{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count > 0, err
}

func (r *TokenGrantRepository) ListByUser(userID int64) ([]*model.TokenGrant, error) {
	var grants []*model.TokenGrant
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&grants).Error
	return grants, err
}
