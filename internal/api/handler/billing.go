package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/nexusrbx/nexusrbx-server/internal/api/middleware"
	"github.com/nexusrbx/nexusrbx-server/internal/model/dto"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/response"
	"github.com/nexusrbx/nexusrbx-server/internal/service"
)

type BillingHandler struct {
	billingService *service.BillingService
}

func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
	}
}

// Prices 获取价目表
// GET /api/v1/billing/prices
func (h *BillingHandler) Prices(c *gin.Context) {
	response.Success(c, gin.H{"prices": h.billingService.Prices()})
}

// CreateCheckout 创建 Stripe Checkout 托管支付页
// POST /api/v1/billing/checkout
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.billingService.CreateCheckoutSession(userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrUnknownPrice) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "创建支付会话失败")
		return
	}

	response.Success(c, resp)
}

// ConfirmCheckout token 包入账
// POST /api/v1/billing/checkout/confirm
func (h *BillingHandler) ConfirmCheckout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.ConfirmCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.billingService.ConfirmCheckout(userID, req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotPaid),
			errors.Is(err, service.ErrNotTokenPack),
			errors.Is(err, service.ErrSessionOwnership):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, resp)
}

// CreatePortal 创建 Stripe 客户自助门户
// POST /api/v1/billing/portal
func (h *BillingHandler) CreatePortal(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	resp, err := h.billingService.CreatePortalSession(userID)
	if err != nil {
		if errors.Is(err, service.ErrNoStripeCustomer) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}
