package main

import (
	"context"
	"fmt"
	"log"

	"github.com/nexusrbx/nexusrbx-server/config"
	"github.com/nexusrbx/nexusrbx-server/internal/api"
	"github.com/nexusrbx/nexusrbx-server/internal/api/handler"
	"github.com/nexusrbx/nexusrbx-server/internal/database"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/billing"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/cron"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/oauth"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/oss"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/pubsub"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/queue"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/ws"
	"github.com/nexusrbx/nexusrbx-server/internal/repository"
	"github.com/nexusrbx/nexusrbx-server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 计费密钥缺失时启动直接失败，不等收到 webhook 才暴露
	if err := cfg.ValidateBilling(); err != nil {
		log.Fatalf("Invalid billing config: %v", err)
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

	// 初始化 OSS（可选，未配置时头像上传和脚本产物上传不可用）
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
		} else {
			log.Println("OSS client initialized")
		}
	}

	// 初始化 Stripe
	stripeClient, err := billing.NewClient(&cfg.Stripe)
	if err != nil {
		log.Fatalf("Failed to init stripe client: %v", err)
	}

	// 初始化 Queue
	jobQueue := queue.NewQueue(rdb, cfg.Queue.GenerationQueue)

	// 初始化 WebSocket Hub，并把 worker 的进度消息桥接到在线连接
	wsHub := ws.NewHub()
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(context.Background(), func(msg *pubsub.ProgressMessage) {
			wsHub.SendToUser(msg.UserID, &ws.Message{
				Type: "generation_progress",
				Data: msg,
			})
		})
		if err != nil {
			log.Printf("Progress subscriber stopped: %v", err)
		}
	}()
	log.Println("WebSocket hub started")

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	scriptRepo := repository.NewScriptRepository(db)
	jobRepo := repository.NewJobRepository(db)
	grantRepo := repository.NewTokenGrantRepository(db)

	// 初始化 Service
	authService := service.NewAuthService(userRepo, cfg)
	userService := service.NewUserService(userRepo, ossClient, cfg)
	quotaService := service.NewQuotaService(userRepo, cfg)
	generationService := service.NewGenerationService(scriptRepo, jobRepo, userRepo, quotaService, jobQueue, cfg)
	billingService := service.NewBillingService(userRepo, grantRepo, stripeClient, cfg)

	// 启动定时任务（每月额度重置 + 卡死任务清理）
	cronService := cron.NewService(quotaService, jobRepo)
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Handler
	stateStore := oauth.NewStateStore(rdb)
	authHandler := handler.NewAuthHandler(authService, stateStore)
	userHandler := handler.NewUserHandler(userService)
	scriptHandler := handler.NewScriptHandler(generationService)
	modelsHandler := handler.NewModelsHandler(userService, cfg)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins)
	quotaHandler := handler.NewQuotaHandler(quotaService)
	billingHandler := handler.NewBillingHandler(billingService)
	webhookHandler := handler.NewWebhookHandler(billingService, cfg.Stripe.WebhookSecret)

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		userHandler,
		scriptHandler,
		modelsHandler,
		websocketHandler,
		quotaHandler,
		billingHandler,
		webhookHandler,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
