package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/nexusrbx/nexusrbx-server/internal/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(job *model.GenerationJob) error {
	return r.db.Create(job).Error
}

func (r *JobRepository) GetByID(id int64) (*model.GenerationJob, error) {
	var job model.GenerationJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) GetByScriptID(scriptID int64) (*model.GenerationJob, error) {
	var job model.GenerationJob
	err := r.db.Where("script_id = ?", scriptID).Order("created_at DESC").First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) Update(job *model.GenerationJob) error {
	return r.db.Save(job).Error
}

func (r *JobRepository) UpdateStatus(id int64, status string) error {
	return r.db.Model(&model.GenerationJob{}).Where("id = ?", id).Update("status", status).Error
}

func (r *JobRepository) UpdateStep(id int64, step string) error {
	return r.db.Model(&model.GenerationJob{}).Where("id = ?", id).Update("current_step", step).Error
}

// GetPendingJobs 获取待处理的任务
func (r *JobRepository) GetPendingJobs(limit int) ([]*model.GenerationJob, error) {
	var jobs []*model.GenerationJob
	err := r.db.Where("status = ?", model.JobStatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// FailStaleJobs 把启动后长时间没有完成的任务标记为失败，返回受影响行数
func (r *JobRepository) FailStaleJobs(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := r.db.Model(&model.GenerationJob{}).
		Where("status = ? AND started_at < ?", model.JobStatusGenerating, cutoff).
		Updates(map[string]interface{}{
			"status":        model.JobStatusFailed,
			"error_message": "job timed out",
		})
	return res.RowsAffected, res.Error
}
