package repository

import (
	"gorm.io/gorm"

	"github.com/nexusrbx/nexusrbx-server/internal/model"
)

type ScriptRepository struct {
	db *gorm.DB
}

func NewScriptRepository(db *gorm.DB) *ScriptRepository {
	return &ScriptRepository{db: db}
}

func (r *ScriptRepository) Create(script *model.Script) error {
	return r.db.Create(script).Error
}

func (r *ScriptRepository) GetByID(id int64) (*model.Script, error) {
	var script model.Script
	err := r.db.Where("id = ?", id).First(&script).Error
	if err != nil {
		return nil, err
	}
	return &script, nil
}

func (r *ScriptRepository) Update(script *model.Script) error {
	return r.db.Save(script).Error
}

func (r *ScriptRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Script{}).Where("id = ?", id).Updates(fields).Error
}

func (r *ScriptRepository) UpdateStatus(id int64, status string) error {
	return r.db.Model(&model.Script{}).Where("id = ?", id).Update("status", status).Error
}

// ListByUser 分页查询用户的脚本，按创建时间倒序
func (r *ScriptRepository) ListByUser(userID int64, page, pageSize int) ([]*model.Script, int64, error) {
	var scripts []*model.Script
	var total int64

	query := r.db.Model(&model.Script{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&scripts).Error
	return scripts, total, err
}

func (r *ScriptRepository) Delete(id int64) error {
	return r.db.Delete(&model.Script{}, id).Error
}

func (r *ScriptRepository) CountByUser(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Script{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
