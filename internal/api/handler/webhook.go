package handler

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/nexusrbx/nexusrbx-server/internal/service"
)

// 防御超大请求体，Stripe 事件远小于这个值
const webhookMaxBodyBytes = 65536

// WebhookHandler 接收 Stripe 的事件推送。
// 这个端点不走统一的 response 封装：消费方是 Stripe 而不是前端，
// 状态码本身就是协议——400 让 Stripe 丢弃坏签名的请求，
// 500 触发 Stripe 自己的重投。
type WebhookHandler struct {
	billingService *service.BillingService
	webhookSecret  string
}

func NewWebhookHandler(billingService *service.BillingService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		billingService: billingService,
		webhookSecret:  webhookSecret,
	}
}

// Handle 处理 webhook 推送
// POST /webhook
func (h *WebhookHandler) Handle(c *gin.Context) {
	// 必须读原始字节：签名覆盖的是逐字节的请求体，任何解析转换都会破坏校验
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookMaxBodyBytes))
	if err != nil {
		c.String(http.StatusBadRequest, "Webhook Error: %v", err)
		return
	}

	// 验签在任何内容解析之前，失败即拒绝，不产生任何副作用
	event, err := webhook.ConstructEventWithOptions(
		body,
		c.GetHeader("Stripe-Signature"),
		h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		c.String(http.StatusBadRequest, "Webhook Error: %v", err)
		return
	}

	if err := h.billingService.HandleEvent(&event); err != nil {
		log.Printf("Webhook %s handling failed: %v", event.Type, err)
		c.String(http.StatusInternalServerError, "Webhook handler error")
		return
	}

	// 无事可做的事件也回 200，Stripe 才不会重投
	c.JSON(http.StatusOK, gin.H{"received": true})
}
