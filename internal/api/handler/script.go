package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nexusrbx/nexusrbx-server/internal/api/middleware"
	"github.com/nexusrbx/nexusrbx-server/internal/model/dto"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/response"
	"github.com/nexusrbx/nexusrbx-server/internal/service"
)

type ScriptHandler struct {
	generationService *service.GenerationService
}

func NewScriptHandler(generationService *service.GenerationService) *ScriptHandler {
	return &ScriptHandler{
		generationService: generationService,
	}
}

// Create 创建脚本生成请求
// POST /api/v1/scripts
func (h *ScriptHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.generationService.Create(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuotaExceeded):
			response.QuotaError(c, err.Error())
		case errors.Is(err, service.ErrModelDenied):
			response.PermissionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "已加入生成队列", resp)
}

// List 获取脚本列表
// GET /api/v1/scripts
func (h *ScriptHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	items, total, err := h.generationService.List(userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Get 获取脚本详情
// GET /api/v1/scripts/:id
func (h *ScriptHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	scriptID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的脚本 ID")
		return
	}

	detail, err := h.generationService.GetByID(userID, scriptID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrScriptNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrScriptPermission):
			response.PermissionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, detail)
}

// Delete 删除脚本
// DELETE /api/v1/scripts/:id
func (h *ScriptHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	scriptID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的脚本 ID")
		return
	}

	if err := h.generationService.Delete(userID, scriptID); err != nil {
		switch {
		case errors.Is(err, service.ErrScriptNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrScriptPermission):
			response.PermissionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// GetJobStatus 查询脚本的生成任务状态
// GET /api/v1/scripts/:id/job-status
func (h *ScriptHandler) GetJobStatus(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	scriptID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的脚本 ID")
		return
	}

	status, err := h.generationService.GetJobStatus(userID, scriptID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJobNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrScriptPermission):
			response.PermissionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, status)
}
