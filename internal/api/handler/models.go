package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nexusrbx/nexusrbx-server/config"
	"github.com/nexusrbx/nexusrbx-server/internal/api/middleware"
	"github.com/nexusrbx/nexusrbx-server/internal/model"
	"github.com/nexusrbx/nexusrbx-server/internal/model/dto"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/response"
	"github.com/nexusrbx/nexusrbx-server/internal/service"
)

type ModelsHandler struct {
	userService *service.UserService
	cfg         *config.Config
}

func NewModelsHandler(userService *service.UserService, cfg *config.Config) *ModelsHandler {
	return &ModelsHandler{
		userService: userService,
		cfg:         cfg,
	}
}

// List 获取模型列表。登录用户按套餐标记可用性，匿名按 FREE 处理
// GET /api/v1/models
func (h *ModelsHandler) List(c *gin.Context) {
	if userID, ok := middleware.GetUserID(c); ok {
		models, err := h.userService.ListModels(userID)
		if err == nil {
			response.Success(c, gin.H{"models": models})
			return
		}
	}

	models := make([]*dto.ModelInfo, 0, len(h.cfg.Models))
	for i := range h.cfg.Models {
		m := &h.cfg.Models[i]
		models = append(models, &dto.ModelInfo{
			Name:         m.Name,
			DisplayName:  m.DisplayName,
			RequiredPlan: m.RequiredPlan,
			Description:  m.Description,
			Available:    m.RequiredPlan == model.PlanFree,
		})
	}

	response.Success(c, gin.H{"models": models})
}
