package dto

import "unisync/backend/internal/timetable"

// ── 课表模块 DTO ──

// AssignRequest 安排课程到时间格
type AssignRequest struct {
	CourseID  string `json:"course_id" binding:"required"`
	Classroom string `json:"classroom" binding:"omitempty,max=100"`
}

// MoveRequest 拖拽移动课程
type MoveRequest struct {
	From     string `json:"from"      binding:"required"`
	To       string `json:"to"        binding:"required"`
	CourseID string `json:"course_id" binding:"required"`
}

// ImportICSRequest 通过 URL 导入 ICS
type ImportICSRequest struct {
	URL           string `json:"url"            binding:"required,max=2048"`
	ClearExisting bool   `json:"clear_existing"`
}

// SlotColumn 网格列（一个开始时间）
type SlotColumn struct {
	Time       string `json:"time"`
	Label      string `json:"label"`       // "8:00 AM - 9:00 AM"
	ShortLabel string `json:"short_label"` // "8:00 - 9:00 AM"
}

// CellEntry 格子中的一条课程安排（已解析展示信息）
type CellEntry struct {
	CourseID  string `json:"course_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Section   string `json:"class"`
	Credits   int    `json:"credits"`
	Classroom string `json:"classroom"` // 条目教室 → 课程教室 → "No Room"
}

// CellResponse 一个时间格
type CellResponse struct {
	Key     string      `json:"key"`
	Day     string      `json:"day"`
	Time    string      `json:"time"`
	OnGrid  bool        `json:"on_grid"` // 时间是否在当前网格设置内
	Clash   bool        `json:"clash"`
	Entries []CellEntry `json:"entries"`
}

// TimetableResponse 课表视图
type TimetableResponse struct {
	Settings SettingsResponse        `json:"settings"`
	Days     []string                `json:"days"`
	Slots    []SlotColumn            `json:"slots"`
	Cells    []CellResponse          `json:"cells"`
	Credits  timetable.CreditSummary `json:"credits"`
	Clashes  int                     `json:"clashes"`
}

// SlotMutationResponse 单格修改结果
type SlotMutationResponse struct {
	Cell      CellResponse `json:"cell"`
	Persisted bool         `json:"persisted"`
}

// MoveResponse 移动结果
type MoveResponse struct {
	Moved     bool `json:"moved"`
	Persisted bool `json:"persisted"`
}

// UnassignEverywhereResponse 从所有格子移除课程的结果
type UnassignEverywhereResponse struct {
	CourseID  string `json:"course_id"`
	Removed   int    `json:"removed"`
	Persisted bool   `json:"persisted"`
}

// ImportTimetableResponse 课表导入结果（全部成功才会应用）
type ImportTimetableResponse struct {
	Applied        int              `json:"applied"`
	CreatedCourses []CourseResponse `json:"created_courses"`
	Skipped        int              `json:"skipped,omitempty"` // ICS 中非工作日等被忽略的事件
	Persisted      bool             `json:"persisted"`
}

// ImportRejectedData 导入被拒绝时随错误返回的诊断信息
type ImportRejectedData struct {
	Errors       []string `json:"errors"`
	ErrorSummary string   `json:"error_summary"`
}

// ExportICSRequest ICS 导出参数
type ExportICSRequest struct {
	WeekOf string `form:"week_of" binding:"omitempty,datetime=2006-01-02"` // 第一周中的任意一天，默认本周
	Weeks  int    `form:"weeks" binding:"omitempty,min=1,max=52"`          // 重复周数，默认 16
}

// ExportRecord 导出为 JSON 的单条记录，与课表导入格式一致
type ExportRecord struct {
	Day        string `json:"day"`
	Time       string `json:"time"`
	CourseCode string `json:"courseCode"`
	Section    string `json:"section,omitempty"`
	Classroom  string `json:"classroom,omitempty"`
	CourseName string `json:"courseName,omitempty"`
}
