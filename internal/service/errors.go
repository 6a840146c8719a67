package service

import (
	"errors"
	"strings"

	"unisync/backend/internal/timetable"
)

// ── 课程模块业务错误 ──

var (
	ErrCourseNotFound      = errors.New("课程不存在")
	ErrCourseDuplicate     = errors.New("该课程代码与班级的组合已存在")
	ErrCourseInvalid       = errors.New("课程信息校验失败")
	ErrCourseImportInvalid = errors.New("课程导入数据格式无效")
)

// ── 课表模块业务错误 ──

var (
	ErrInvalidSlotKey     = errors.New("时间格键无效")
	ErrSlotOffGrid        = errors.New("时间格不在当前网格设置内")
	ErrAssignmentNotFound = errors.New("该时间格中没有这门课程")
	ErrImportRejected     = errors.New("导入数据存在错误，未做任何修改")
	ErrICSParseFailed     = errors.New("ICS 文件解析失败")
	ErrICSEmpty           = errors.New("ICS 文件中未发现工作日课程事件")
	ErrICSFetchFailed     = errors.New("ICS URL 获取失败")
)

// ── 设置模块业务错误 ──

// ErrInvalidSettings 与 timetable 包共用，错误文本中带有具体原因
var ErrInvalidSettings = timetable.ErrInvalidSettings

// ── 导出模块业务错误 ──

var (
	ErrExportEmpty        = errors.New("课表为空，无可导出内容")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// DetailError 携带逐条错误明细的业务错误
// errors.Is 可匹配 Kind，Details 供 Handler 原样返回，Summary 为截断后的展示文本
type DetailError struct {
	Kind    error
	Details []string
	Summary string
}

func (e *DetailError) Error() string {
	if len(e.Details) == 0 {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + strings.Join(e.Details, "; ")
}

func (e *DetailError) Unwrap() error {
	return e.Kind
}

func detailError(kind error, details ...string) error {
	return &DetailError{Kind: kind, Details: details, Summary: strings.Join(details, "\n")}
}

// rejectBatch 批量错误只展示前 limit 条
func rejectBatch(kind error, details []string, limit int) error {
	return &DetailError{Kind: kind, Details: details, Summary: timetable.SummarizeErrors(details, limit)}
}
