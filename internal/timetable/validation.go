package timetable

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"unisync/backend/internal/model"
)

// 课程字段约束
const (
	NameMinLength = 3
	NameMaxLength = 100
	MinCredits    = 0
	MaxCredits    = 12
)

var (
	codePattern    = regexp.MustCompile(`^[A-Z0-9\s\-_]{1,20}$`)
	sectionPattern = regexp.MustCompile(`^[A-Z0-9-]{1,20}$`)
)

// Result 字段校验结果
// Error 为完整自描述句子，可原样放入批量错误列表
type Result struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

func valid() Result { return Result{IsValid: true} }

func invalid(format string, args ...any) Result {
	return Result{IsValid: false, Error: fmt.Sprintf(format, args...)}
}

// ValidateCourseCode 课程代码：去空格、转大写后 1-20 位，允许字母数字、空格、连字符、下划线
func ValidateCourseCode(code string) Result {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return invalid("课程代码不能为空")
	}
	if !codePattern.MatchString(trimmed) {
		return invalid("课程代码必须为 1-20 位字母或数字（允许空格、连字符和下划线）")
	}
	return valid()
}

// ValidateCourseName 课程名称：去空格后长度在 [3,100]
func ValidateCourseName(name string) Result {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return invalid("课程名称不能为空")
	}
	if n := utf8.RuneCountInString(trimmed); n < NameMinLength || n > NameMaxLength {
		return invalid("课程名称长度必须在 %d 到 %d 个字符之间", NameMinLength, NameMaxLength)
	}
	return valid()
}

// ValidateSection 班级：去空格、转大写后 1-20 位，允许字母数字和连字符
func ValidateSection(section string) Result {
	trimmed := strings.ToUpper(strings.TrimSpace(section))
	if trimmed == "" {
		return invalid("班级不能为空")
	}
	if !sectionPattern.MatchString(trimmed) {
		return invalid("班级必须为 1-20 位字母或数字（允许连字符）")
	}
	return valid()
}

// ParseCredits 将任意输入解析为学分
// 整数与整数值浮点数直接接受；字符串按前导十进制整数解析（"3学分" → 3）
func ParseCredits(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case string:
		return parseLeadingInt(x)
	default:
		return 0, false
	}
}

// parseLeadingInt 前导整数解析：跳过前导空白，可选符号，至少一位数字
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
		if n > 1_000_000 {
			break
		}
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

// ValidateCredits 学分：[0,12] 的整数
func ValidateCredits(v any) Result {
	n, ok := ParseCredits(v)
	if !ok || n < MinCredits || n > MaxCredits {
		return invalid("学分必须是 %d 到 %d 之间的数字", MinCredits, MaxCredits)
	}
	return valid()
}

// ValidateTimeFormat 时间：严格 24 小时制 HH:MM
func ValidateTimeFormat(t string) Result {
	if !timePattern.MatchString(strings.TrimSpace(t)) {
		return invalid("时间格式无效 '%s'，请使用 24 小时制 HH:MM（如 \"08:00\"、\"14:30\"）", t)
	}
	return valid()
}

// ValidateDay 星期：必须是五个工作日之一
func ValidateDay(day string) Result {
	if !model.DayOfWeek(day).IsValid() {
		names := make([]string, len(model.Days))
		for i, d := range model.Days {
			names[i] = string(d)
		}
		return invalid("星期无效 '%s'，必须是以下之一: %s", day, strings.Join(names, ", "))
	}
	return valid()
}
