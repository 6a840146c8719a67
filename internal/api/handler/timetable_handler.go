package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"unisync/backend/internal/dto"
	"unisync/backend/internal/service"
	"unisync/backend/pkg/response"
)

// TimetableHandler 课表模块 Handler
type TimetableHandler struct {
	svc service.TimetableService
}

// NewTimetableHandler 创建 TimetableHandler 实例
func NewTimetableHandler(svc service.TimetableService) *TimetableHandler {
	return &TimetableHandler{svc: svc}
}

// GetTimetable 获取课表视图
// GET /api/v1/timetable
func (h *TimetableHandler) GetTimetable(c *gin.Context) {
	resp, err := h.svc.Get(c.Request.Context())
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, resp)
}

// GetSlots 获取当前网格的时间格
// GET /api/v1/timetable/slots
func (h *TimetableHandler) GetSlots(c *gin.Context) {
	cols, err := h.svc.Slots(c.Request.Context())
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, gin.H{"list": cols})
}

// GetCredits 学分统计
// GET /api/v1/timetable/credits
func (h *TimetableHandler) GetCredits(c *gin.Context) {
	resp, err := h.svc.Credits(c.Request.Context())
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, resp)
}

// AssignCourse 将课程安排到时间格
// PUT /api/v1/timetable/slots/:key
func (h *TimetableHandler) AssignCourse(c *gin.Context) {
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.svc.Assign(c.Request.Context(), c.Param("key"), &req)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, resp)
}

// UnassignCourse 从时间格移除课程
// DELETE /api/v1/timetable/slots/:key/:course_id
func (h *TimetableHandler) UnassignCourse(c *gin.Context) {
	resp, err := h.svc.Unassign(c.Request.Context(), c.Param("key"), c.Param("course_id"))
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, resp)
}

// UnassignEverywhere 从所有时间格移除课程
// DELETE /api/v1/timetable/courses/:course_id
func (h *TimetableHandler) UnassignEverywhere(c *gin.Context) {
	resp, err := h.svc.UnassignEverywhere(c.Request.Context(), c.Param("course_id"))
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, resp)
}

// MoveCourse 拖拽移动
// POST /api/v1/timetable/move
func (h *TimetableHandler) MoveCourse(c *gin.Context) {
	var req dto.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.svc.Move(c.Request.Context(), &req)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, resp)
}

// ClearTimetable 清空课表（保留课程）
// DELETE /api/v1/timetable
func (h *TimetableHandler) ClearTimetable(c *gin.Context) {
	resp, err := h.svc.Clear(c.Request.Context())
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, resp)
}

// ImportTimetable 批量导入课表（全有或全无）
// POST /api/v1/timetable/import
func (h *TimetableHandler) ImportTimetable(c *gin.Context) {
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.svc.Import(c.Request.Context(), req.ImportText(), req.ClearExisting)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.Created(c, resp)
}

// ImportICS 导入 ICS 课表
// POST /api/v1/timetable/import/ics
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"，可附 clear_existing=true
//   - URL 导入: application/json, body={"url": "...", "clear_existing": true}
func (h *TimetableHandler) ImportICS(c *gin.Context) {
	// 尝试文件上传方式
	file, _, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		clearExisting, _ := strconv.ParseBool(c.PostForm("clear_existing"))
		resp, err := h.svc.ImportICS(c.Request.Context(), file, clearExisting)
		if err != nil {
			handleTimetableError(c, err)
			return
		}
		response.Created(c, resp)
		return
	}

	// 尝试 URL 方式
	var req dto.ImportICSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 30000, "请上传 ICS 文件或提供 ICS URL")
		return
	}

	body, err := service.FetchICSContent(c.Request.Context(), req.URL)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	defer body.Close()

	resp, err := h.svc.ImportICS(c.Request.Context(), body, req.ClearExisting)
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.Created(c, resp)
}

// handleTimetableError 统一课表模块错误映射
func handleTimetableError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSlotKey):
		response.BadRequest(c, 30001, err.Error())
	case errors.Is(err, service.ErrSlotOffGrid):
		response.BadRequest(c, 30002, err.Error())
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 20001, err.Error())
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 30003, err.Error())
	case errors.Is(err, service.ErrImportRejected):
		if !writeDetailError(c, err, 30004) {
			response.BadRequest(c, 30004, err.Error())
		}
	case errors.Is(err, service.ErrICSParseFailed):
		response.ErrorWithDetails(c, http.StatusBadRequest, 30005, "ICS 文件解析失败", err.Error())
	case errors.Is(err, service.ErrICSEmpty):
		response.BadRequest(c, 30006, err.Error())
	case errors.Is(err, service.ErrICSFetchFailed):
		response.ErrorWithDetails(c, http.StatusBadRequest, 30007, "ICS URL 获取失败", err.Error())
	default:
		response.InternalError(c)
	}
}
