package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nexusrbx/nexusrbx-server/internal/model"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/ai"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/luau"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/oss"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/pubsub"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/queue"
	"github.com/nexusrbx/nexusrbx-server/internal/repository"
	"github.com/nexusrbx/nexusrbx-server/internal/service"
)

// ScriptGenerator LLM 生成接口，测试时可替换为假实现
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, prompt, modelName string) (*ai.Result, error)
}

// Processor 生成任务处理器
type Processor struct {
	jobRepo      *repository.JobRepository
	scriptRepo   *repository.ScriptRepository
	generator    ScriptGenerator
	ossClient    *oss.Client
	publisher    *pubsub.Publisher
	quotaService *service.QuotaService
}

// NewProcessor 创建任务处理器
func NewProcessor(
	jobRepo *repository.JobRepository,
	scriptRepo *repository.ScriptRepository,
	generator ScriptGenerator,
	ossClient *oss.Client,
	publisher *pubsub.Publisher,
	quotaService *service.QuotaService,
) *Processor {
	return &Processor{
		jobRepo:      jobRepo,
		scriptRepo:   scriptRepo,
		generator:    generator,
		ossClient:    ossClient,
		publisher:    publisher,
		quotaService: quotaService,
	}
}

// Process 处理一条生成任务
func (p *Processor) Process(ctx context.Context, msg *queue.JobMessage) error {
	job, err := p.jobRepo.GetByID(msg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	// 已处理过的任务直接跳过（队列重复投递或兜底扫描重复捞起）
	if job.Status == model.JobStatusCompleted || job.Status == model.JobStatusFailed {
		log.Printf("Job %d: already %s, skipping", job.ID, job.Status)
		return nil
	}

	now := time.Now()
	job.Status = model.JobStatusGenerating
	job.StartedAt = &now
	p.jobRepo.Update(job)
	p.scriptRepo.UpdateStatus(job.ScriptID, model.ScriptStatusGenerating)

	publishProgress := func(step, status string, errMsg string) {
		if p.publisher == nil {
			return
		}
		p.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
			UserID:   msg.UserID,
			ScriptID: msg.ScriptID,
			JobID:    msg.JobID,
			Status:   status,
			Step:     step,
			Error:    errMsg,
		})
	}

	handleError := func(step string, err error) error {
		errMsg := err.Error()
		job.Status = model.JobStatusFailed
		job.ErrorMessage = errMsg
		job.CurrentStep = step
		completedAt := time.Now()
		job.CompletedAt = &completedAt
		job.ElapsedSeconds = int(completedAt.Sub(*job.StartedAt).Seconds())
		p.jobRepo.Update(job)
		p.scriptRepo.UpdateStatus(job.ScriptID, model.ScriptStatusFailed)
		publishProgress(step, "failed", errMsg)
		return err
	}

	// Step 1: LLM 生成
	log.Printf("Job %d: generating with model %s", job.ID, msg.ModelName)
	job.CurrentStep = pubsub.StepMessages[pubsub.StepGenerating]
	p.jobRepo.Update(job)
	publishProgress(pubsub.StepGenerating, "processing", "")

	result, err := p.generator.GenerateScript(ctx, msg.Prompt, msg.ModelName)
	if err != nil {
		return handleError(pubsub.StepGenerating, fmt.Errorf("generation failed: %w", err))
	}

	code := luau.StripCodeFence(result.Code)

	// Step 2: 提取 UI 清单。清单缺失不算失败，脚本可能不含 UI
	job.CurrentStep = pubsub.StepMessages[pubsub.StepExtracting]
	p.jobRepo.Update(job)
	publishProgress(pubsub.StepExtracting, "processing", "")

	manifestJSON, err := luau.ManifestJSON(code)
	if err != nil {
		log.Printf("Job %d: no UI manifest: %v", job.ID, err)
		manifestJSON = ""
	}

	// Step 3: 上传产物。OSS 未配置时脚本只存数据库
	job.CurrentStep = pubsub.StepMessages[pubsub.StepUploading]
	p.jobRepo.Update(job)
	publishProgress(pubsub.StepUploading, "processing", "")

	var artifactURL string
	if p.ossClient != nil {
		artifactURL, err = p.ossClient.UploadScript(job.ScriptID, []byte(code))
		if err != nil {
			return handleError(pubsub.StepUploading, fmt.Errorf("failed to upload script: %w", err))
		}
	}

	// Step 4: 落库
	script, err := p.scriptRepo.GetByID(job.ScriptID)
	if err != nil {
		return handleError(pubsub.StepDone, fmt.Errorf("failed to get script: %w", err))
	}

	script.Code = code
	script.ManifestJSON = manifestJSON
	script.ArtifactURL = artifactURL
	script.TokensUsed = result.TokensUsed
	script.Status = model.ScriptStatusCompleted
	if err := p.scriptRepo.Update(script); err != nil {
		return handleError(pubsub.StepDone, fmt.Errorf("failed to update script: %w", err))
	}

	// 扣减 token 用量。扣减失败只记日志，脚本已经生成完毕
	if err := p.quotaService.ConsumeTokens(msg.UserID, result.TokensUsed); err != nil {
		log.Printf("Job %d: failed to consume %d tokens for user %d: %v",
			job.ID, result.TokensUsed, msg.UserID, err)
	}

	job.Status = model.JobStatusCompleted
	job.CurrentStep = pubsub.StepMessages[pubsub.StepDone]
	completedAt := time.Now()
	job.CompletedAt = &completedAt
	job.ElapsedSeconds = int(completedAt.Sub(*job.StartedAt).Seconds())
	p.jobRepo.Update(job)

	publishProgress(pubsub.StepDone, "completed", "")

	log.Printf("Job %d: completed in %d seconds, %d tokens",
		job.ID, job.ElapsedSeconds, result.TokensUsed)

	return nil
}
