package api

import (
	"github.com/gin-gonic/gin"

	"github.com/nexusrbx/nexusrbx-server/config"
	"github.com/nexusrbx/nexusrbx-server/internal/api/handler"
	"github.com/nexusrbx/nexusrbx-server/internal/api/middleware"
)

type Router struct {
	authHandler      *handler.AuthHandler
	userHandler      *handler.UserHandler
	scriptHandler    *handler.ScriptHandler
	modelsHandler    *handler.ModelsHandler
	websocketHandler *handler.WebSocketHandler
	quotaHandler     *handler.QuotaHandler
	billingHandler   *handler.BillingHandler
	webhookHandler   *handler.WebhookHandler
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	scriptHandler *handler.ScriptHandler,
	modelsHandler *handler.ModelsHandler,
	websocketHandler *handler.WebSocketHandler,
	quotaHandler *handler.QuotaHandler,
	billingHandler *handler.BillingHandler,
	webhookHandler *handler.WebhookHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		userHandler:      userHandler,
		scriptHandler:    scriptHandler,
		modelsHandler:    modelsHandler,
		websocketHandler: websocketHandler,
		quotaHandler:     quotaHandler,
		billingHandler:   billingHandler,
		webhookHandler:   webhookHandler,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	// Stripe webhook 挂在根路径，不走 /api/v1 和统一响应格式
	engine.POST("/webhook", r.webhookHandler.Handle)

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.GET("/github", r.authHandler.GithubAuth)
			auth.GET("/github/callback", r.authHandler.GithubCallback)
		}

		// 公开接口 - 模型（带可选认证，登录后返回按套餐的可用性）
		models := api.Group("/models")
		models.Use(middleware.OptionalAuth(r.cfg.JWT.Secret))
		{
			models.GET("", r.modelsHandler.List)
		}

		// 公开接口 - 价格表
		api.GET("/billing/prices", r.billingHandler.Prices)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 用户
			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.userHandler.GetProfile)
				user.PUT("/profile", r.userHandler.UpdateProfile)
				user.POST("/avatar", r.userHandler.UploadAvatar)
				user.GET("/quota", r.quotaHandler.GetQuota)
			}

			// 脚本生成
			scripts := authenticated.Group("/scripts")
			{
				scripts.POST("", r.scriptHandler.Create)
				scripts.GET("", r.scriptHandler.List)
				scripts.GET("/:id", r.scriptHandler.Get)
				scripts.GET("/:id/job-status", r.scriptHandler.GetJobStatus)
				scripts.DELETE("/:id", r.scriptHandler.Delete)
			}

			// 计费
			billing := authenticated.Group("/billing")
			{
				billing.POST("/checkout", r.billingHandler.CreateCheckout)
				billing.POST("/checkout/confirm", r.billingHandler.ConfirmCheckout)
				billing.POST("/portal", r.billingHandler.CreatePortal)
			}
		}
	}

	return engine
}
