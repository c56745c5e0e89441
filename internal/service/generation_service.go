package service

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/nexusrbx/nexusrbx-server/config"
	"github.com/nexusrbx/nexusrbx-server/internal/model"
	"github.com/nexusrbx/nexusrbx-server/internal/model/dto"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/queue"
	"github.com/nexusrbx/nexusrbx-server/internal/repository"
)

var (
	ErrScriptNotFound   = errors.New("脚本不存在")
	ErrScriptPermission = errors.New("无权操作此脚本")
	ErrJobNotFound      = errors.New("生成任务不存在")
)

type GenerationService struct {
	scriptRepo   *repository.ScriptRepository
	jobRepo      *repository.JobRepository
	userRepo     *repository.UserRepository
	quotaService *QuotaService
	queue        *queue.Queue
	cfg          *config.Config
}

func NewGenerationService(
	scriptRepo *repository.ScriptRepository,
	jobRepo *repository.JobRepository,
	userRepo *repository.UserRepository,
	quotaService *QuotaService,
	q *queue.Queue,
	cfg *config.Config,
) *GenerationService {
	return &GenerationService{
		scriptRepo:   scriptRepo,
		jobRepo:      jobRepo,
		userRepo:     userRepo,
		quotaService: quotaService,
		queue:        q,
		cfg:          cfg,
	}
}

// Create 创建脚本生成请求：校验配额和模型权限，落库后入队
func (s *GenerationService) Create(userID int64, req *dto.CreateScriptRequest) (*dto.CreateScriptResponse, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	hasTokens, err := s.quotaService.CheckTokens(userID)
	if err != nil {
		return nil, err
	}
	if !hasTokens {
		return nil, ErrQuotaExceeded
	}

	modelName := req.ModelName
	if modelName == "" {
		modelName = s.defaultModelName()
	}
	if err := s.quotaService.CheckModelPermission(user.Plan, modelName); err != nil {
		return nil, err
	}

	script := &model.Script{
		UserID:    userID,
		Title:     req.Title,
		Prompt:    req.Prompt,
		ModelName: modelName,
		Status:    model.ScriptStatusQueued,
	}
	if err := s.scriptRepo.Create(script); err != nil {
		return nil, err
	}

	job := &model.GenerationJob{
		ScriptID:  script.ID,
		UserID:    userID,
		ModelName: modelName,
		Status:    model.JobStatusQueued,
	}
	if err := s.jobRepo.Create(job); err != nil {
		return nil, err
	}

	if s.queue != nil {
		msg := &queue.JobMessage{
			JobID:     job.ID,
			ScriptID:  script.ID,
			UserID:    userID,
			Prompt:    req.Prompt,
			ModelName: modelName,
		}
		if err := s.queue.Push(context.Background(), msg); err != nil {
			// 入队失败不回滚脚本，worker 的 GetPendingJobs 兜底扫描会捞起来
			log.Printf("Failed to enqueue job %d: %v", job.ID, err)
		}
	}

	return &dto.CreateScriptResponse{
		ScriptID: script.ID,
		JobID:    job.ID,
	}, nil
}

// GetByID 获取脚本详情
func (s *GenerationService) GetByID(userID, scriptID int64) (*dto.ScriptDetail, error) {
	script, err := s.scriptRepo.GetByID(scriptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScriptNotFound
		}
		return nil, err
	}
	if script.UserID != userID {
		return nil, ErrScriptPermission
	}

	detail := &dto.ScriptDetail{
		ID:           script.ID,
		Title:        script.Title,
		Prompt:       script.Prompt,
		ModelName:    script.ModelName,
		Code:         script.Code,
		ManifestJSON: script.ManifestJSON,
		ArtifactURL:  script.ArtifactURL,
		TokensUsed:   script.TokensUsed,
		Status:       script.Status,
		CreatedAt:    script.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    script.UpdatedAt.Format(time.RFC3339),
	}

	if script.Status == model.ScriptStatusFailed {
		if job, err := s.jobRepo.GetByScriptID(script.ID); err == nil {
			detail.ErrorMessage = job.ErrorMessage
		}
	}

	return detail, nil
}

// List 分页获取用户脚本
func (s *GenerationService) List(userID int64, page, pageSize int) ([]*dto.ScriptListItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	scripts, total, err := s.scriptRepo.ListByUser(userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.ScriptListItem, 0, len(scripts))
	for _, script := range scripts {
		items = append(items, &dto.ScriptListItem{
			ID:        script.ID,
			Title:     script.Title,
			ModelName: script.ModelName,
			Status:    script.Status,
			CreatedAt: script.CreatedAt.Format(time.RFC3339),
			UpdatedAt: script.UpdatedAt.Format(time.RFC3339),
		})
	}
	return items, total, nil
}

// Delete 删除脚本
func (s *GenerationService) Delete(userID, scriptID int64) error {
	script, err := s.scriptRepo.GetByID(scriptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScriptNotFound
		}
		return err
	}
	if script.UserID != userID {
		return ErrScriptPermission
	}

	return s.scriptRepo.Delete(scriptID)
}

// GetJobStatus 查询脚本最近一次生成任务的状态
func (s *GenerationService) GetJobStatus(userID, scriptID int64) (*dto.JobStatusResponse, error) {
	job, err := s.jobRepo.GetByScriptID(scriptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrScriptPermission
	}

	return &dto.JobStatusResponse{
		JobID:          job.ID,
		ScriptID:       job.ScriptID,
		Status:         job.Status,
		CurrentStep:    job.CurrentStep,
		ErrorMessage:   job.ErrorMessage,
		ElapsedSeconds: job.ElapsedSeconds,
	}, nil
}

func (s *GenerationService) defaultModelName() string {
	if len(s.cfg.Models) > 0 {
		return s.cfg.Models[0].Name
	}
	return "gemini-1.5-flash"
}
