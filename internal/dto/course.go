package dto

import (
	"encoding/json"

	"unisync/backend/internal/model"
)

// ── 课程模块 DTO ──

// CreateCourseRequest 新增课程请求
// Credits 接受数字或数字字符串，由业务层统一校验
type CreateCourseRequest struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Section   string `json:"class"`
	Credits   any    `json:"credits"`
	Faculty   string `json:"faculty"`
	Classroom string `json:"classroom"`
}

// CourseListRequest 课程列表查询参数
type CourseListRequest struct {
	Query string `form:"q" binding:"omitempty,max=100"`
}

// ImportRequest 批量导入请求
// Data 可以直接是 JSON 数组，也可以是包含 JSON 文本的字符串（粘贴导入）
type ImportRequest struct {
	Data          json.RawMessage `json:"data"           binding:"required"`
	ClearExisting bool            `json:"clear_existing"` // 仅课表导入使用
}

// ImportText 取出待解析的 JSON 文本
func (r *ImportRequest) ImportText() string {
	var text string
	if err := json.Unmarshal(r.Data, &text); err == nil {
		return text
	}
	return string(r.Data)
}

// CourseResponse 课程信息响应
type CourseResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Section   string `json:"class"`
	Credits   int    `json:"credits"`
	Faculty   string `json:"faculty,omitempty"`
	Classroom string `json:"classroom,omitempty"`
	Scheduled bool   `json:"scheduled"` // 是否已安排到至少一个时间格
}

// CourseListResponse 课程列表响应
type CourseListResponse struct {
	List             []CourseResponse `json:"list"`
	Total            int              `json:"total"`
	TotalCredits     int              `json:"total_credits"`
	ScheduledCredits int              `json:"scheduled_credits"`
}

// DeleteCourseResponse 删除课程响应
type DeleteCourseResponse struct {
	ID                 string `json:"id"`
	RemovedAssignments int    `json:"removed_assignments"`
	Persisted          bool   `json:"persisted"`
}

// ClearResponse 清空操作响应
type ClearResponse struct {
	RemovedCourses     int  `json:"removed_courses"`
	RemovedAssignments int  `json:"removed_assignments"`
	Persisted          bool `json:"persisted"`
}

// ImportCoursesResponse 课程批量导入响应（允许部分成功）
type ImportCoursesResponse struct {
	Added        []CourseResponse `json:"added"`
	AddedCount   int              `json:"added_count"`
	Errors       []string         `json:"errors"`
	ErrorSummary string           `json:"error_summary,omitempty"`
	Persisted    bool             `json:"persisted"`
}

// ToCourseResponse model → 响应
func ToCourseResponse(c model.Course, scheduled bool) CourseResponse {
	return CourseResponse{
		ID:        c.ID,
		Code:      c.Code,
		Name:      c.Name,
		Section:   c.Section,
		Credits:   c.Credits,
		Faculty:   c.Faculty,
		Classroom: c.Classroom,
		Scheduled: scheduled,
	}
}
