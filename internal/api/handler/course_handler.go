package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"unisync/backend/internal/dto"
	"unisync/backend/internal/service"
	"unisync/backend/pkg/response"
)

// CourseHandler 课程模块 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// ListCourses 获取课程列表（支持搜索）
// GET /api/v1/courses?q=xxx
func (h *CourseHandler) ListCourses(c *gin.Context) {
	var req dto.CourseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.courseSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, resp)
}

// GetCourse 获取课程详情
// GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	resp, err := h.courseSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, resp)
}

// CreateCourse 新增课程
// POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.courseSvc.Add(c.Request.Context(), &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.Created(c, resp)
}

// DeleteCourse 删除课程，同时移除其全部安排
// DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	resp, err := h.courseSvc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, resp)
}

// ClearCourses 清空课程与课表
// DELETE /api/v1/courses
func (h *CourseHandler) ClearCourses(c *gin.Context) {
	resp, err := h.courseSvc.Clear(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, resp)
}

// ImportCourses 批量导入课程
// POST /api/v1/courses/import
// body={"data": [...]} 或 {"data": "<JSON 文本>"}
func (h *CourseHandler) ImportCourses(c *gin.Context) {
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.courseSvc.Import(c.Request.Context(), req.ImportText())
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, resp)
}

// handleCourseError 统一课程模块错误映射
func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 20001, err.Error())
	case errors.Is(err, service.ErrCourseDuplicate):
		response.Conflict(c, 20002, err.Error())
	case errors.Is(err, service.ErrCourseInvalid):
		if !writeDetailError(c, err, 20003) {
			response.BadRequest(c, 20003, err.Error())
		}
	case errors.Is(err, service.ErrCourseImportInvalid):
		if !writeDetailError(c, err, 20004) {
			response.BadRequest(c, 20004, err.Error())
		}
	default:
		response.InternalError(c)
	}
}
