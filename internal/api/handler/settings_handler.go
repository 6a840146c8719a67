package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"unisync/backend/internal/dto"
	"unisync/backend/internal/service"
	"unisync/backend/pkg/response"
)

// SettingsHandler 网格设置 HTTP 处理器
type SettingsHandler struct {
	svc service.SettingsService
}

// NewSettingsHandler 创建 SettingsHandler
func NewSettingsHandler(svc service.SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// GetSettings 获取网格设置
// GET /api/v1/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	resp, err := h.svc.Get(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, resp)
}

// UpdateSettings 更新网格设置，已有安排按新网格迁移
// PUT /api/v1/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSettings) {
			badRequestWithCause(c, 40001, "网格设置无效", err)
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, resp)
}
