package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexusrbx/nexusrbx-server/config"
	"github.com/nexusrbx/nexusrbx-server/internal/database"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/ai"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/oss"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/pubsub"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/queue"
	"github.com/nexusrbx/nexusrbx-server/internal/repository"
	"github.com/nexusrbx/nexusrbx-server/internal/service"
	"github.com/nexusrbx/nexusrbx-server/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 OSS（可选）
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
		} else {
			log.Println("OSS client initialized")
		}
	}

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化 Gemini 客户端。所有模型共用第一份配置的 API Key
	apiKey := firstAPIKey(cfg)
	if apiKey == "" {
		log.Fatal("No model api_key configured")
	}
	generator, err := ai.NewClient(ctx, apiKey)
	if err != nil {
		log.Fatalf("Failed to init gemini client: %v", err)
	}
	defer generator.Close()

	// 初始化 Queue 和 Pub/Sub
	jobQueue := queue.NewQueue(rdb, cfg.Queue.GenerationQueue)
	publisher := pubsub.NewPublisher(rdb)

	// 初始化 Repository 和配额服务
	scriptRepo := repository.NewScriptRepository(db)
	jobRepo := repository.NewJobRepository(db)
	userRepo := repository.NewUserRepository(db)
	quotaService := service.NewQuotaService(userRepo, cfg)

	// 创建任务处理器
	processor := worker.NewProcessor(jobRepo, scriptRepo, generator, ossClient, publisher, quotaService)

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	log.Printf("Worker started, max workers: %d", cfg.Queue.MaxWorkers)

	// 兜底扫描：入队失败或队列消息丢失的 queued 任务重新投递
	go requeuePendingJobs(ctx, jobRepo, scriptRepo, jobQueue)

	// 启动 worker 循环
	for i := 0; i < cfg.Queue.MaxWorkers; i++ {
		go func(workerID int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("Worker %d shutting down", workerID)
					return
				default:
					msg, err := jobQueue.Pop(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						log.Printf("Worker %d: failed to pop job: %v", workerID, err)
						continue
					}

					if msg == nil {
						continue // 超时，继续等待
					}

					log.Printf("Worker %d: processing job %d", workerID, msg.JobID)
					if err := processor.Process(ctx, msg); err != nil {
						log.Printf("Worker %d: job %d failed: %v", workerID, msg.JobID, err)
					}
				}
			}
		}(i)
	}

	// 等待 context 取消
	<-ctx.Done()
	log.Println("Worker shutdown complete")
}

// requeuePendingJobs 定期把长时间停留在 queued 的任务重新入队。
// 正常情况下任务创建时就入队了，这里只兜底 server 入队失败的场景
func requeuePendingJobs(ctx context.Context, jobRepo *repository.JobRepository, scriptRepo *repository.ScriptRepository, jobQueue *queue.Queue) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jobs, err := jobRepo.GetPendingJobs(100)
			if err != nil {
				log.Printf("Failed to scan pending jobs: %v", err)
				continue
			}

			for _, job := range jobs {
				// 刚创建的任务大概率已经在队列里了，只捞旧的
				if time.Since(job.CreatedAt) < 10*time.Minute {
					continue
				}

				script, err := scriptRepo.GetByID(job.ScriptID)
				if err != nil {
					continue
				}

				msg := &queue.JobMessage{
					JobID:     job.ID,
					ScriptID:  job.ScriptID,
					UserID:    job.UserID,
					Prompt:    script.Prompt,
					ModelName: job.ModelName,
				}
				if err := jobQueue.Push(ctx, msg); err != nil {
					log.Printf("Failed to requeue job %d: %v", job.ID, err)
					continue
				}
				log.Printf("Requeued pending job %d", job.ID)
			}
		}
	}
}

func firstAPIKey(cfg *config.Config) string {
	for _, m := range cfg.Models {
		if m.APIKey != "" {
			return m.APIKey
		}
	}
	return ""
}
