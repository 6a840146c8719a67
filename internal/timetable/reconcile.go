package timetable

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"unisync/backend/internal/model"
)

// 占位课程默认值
const (
	defaultSectionKey       = "DEFAULT"
	PlaceholderSection      = "A"
	PlaceholderCredits      = 3
	syntheticCourseIDPrefix = "temp-"
)

// ErrImportHasErrors 导入结果存在硬错误时拒绝物化
var ErrImportHasErrors = errors.New("导入数据存在错误，整批未应用")

// ── CourseRef：已解析 | 待创建 ──

// CourseRef 导入条目引用的课程
type CourseRef interface {
	isCourseRef()
}

// ResolvedRef 已匹配到现有课程
type ResolvedRef struct {
	CourseID string
}

// PendingRef 课程尚不存在，等待物化
// Section 为空表示导入记录未指定班级
type PendingRef struct {
	Code    string
	Section string
}

func (ResolvedRef) isCourseRef() {}
func (PendingRef) isCourseRef()  {}

// Key 去重键 "<code>-<section|DEFAULT>"
func (p PendingRef) Key() string {
	section := p.Section
	if section == "" {
		section = defaultSectionKey
	}
	return p.Code + "-" + section
}

// SyntheticID 兼容旧格式的临时 ID "temp-<code>-<section|DEFAULT>"，仅用于展示
func (p PendingRef) SyntheticID() string {
	return syntheticCourseIDPrefix + p.Key()
}

// ImportedAssignment 解析后的一条导入安排
type ImportedAssignment struct {
	SlotKey   string
	Ref       CourseRef
	Classroom string
}

// RefID 已解析时返回真实 ID，待创建时返回临时 ID
func (a ImportedAssignment) RefID() string {
	switch ref := a.Ref.(type) {
	case ResolvedRef:
		return ref.CourseID
	case PendingRef:
		return ref.SyntheticID()
	default:
		return ""
	}
}

// MissingCourse 需要自动创建的占位课程
type MissingCourse struct {
	Code    string `json:"code"`
	Section string `json:"section,omitempty"`
	Name    string `json:"name"`
}

// ReconcileResult 导入对账结果
type ReconcileResult struct {
	Assignments    []ImportedAssignment
	MissingCourses []MissingCourse
	Errors         []string
}

// OK 无硬错误
func (r ReconcileResult) OK() bool {
	return len(r.Errors) == 0
}

// Reconcile 解析课表导入 JSON 并与现有课程对账
//
// 输入必须是对象数组，否则整体失败并只返回一条错误。逐条记录：
//   - day / time / courseCode 缺失或 day、time 非法：记录错误并跳过，不中断整批
//   - courseCode 非法，或指定了非法 section：同样记为错误
//   - 指定 section：按 (code, section) 精确匹配；未指定：按 code 匹配，
//     多于一门时记录歧义错误并跳过
//   - 没有匹配：不报错，登记占位课程（按 (code, section|DEFAULT) 去重），
//     条目引用 PendingRef
//
// 存在任何错误时调用方必须拒绝整批。
func Reconcile(jsonText string, courses []model.Course) ReconcileResult {
	var parsed any
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return ReconcileResult{Errors: []string{"JSON 格式无效: " + err.Error()}}
	}
	items, ok := parsed.([]any)
	if !ok {
		return ReconcileResult{Errors: []string{"JSON 必须是课程安排对象的数组"}}
	}

	records := make([]map[string]any, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			// 记为空对象，交给 ReconcileRecords 报告缺失字段
			rec = map[string]any{}
		}
		records[i] = rec
	}
	return ReconcileRecords(records, courses)
}

// ReconcileRecords 对已解码的记录进行对账（ICS 导入复用此入口）
func ReconcileRecords(records []map[string]any, courses []model.Course) ReconcileResult {
	result := ReconcileResult{
		Assignments:    []ImportedAssignment{},
		MissingCourses: []MissingCourse{},
		Errors:         []string{},
	}
	missingSeen := make(map[string]bool)

	for i, rec := range records {
		label := fmt.Sprintf("第 %d 条", i+1)

		day, okDay := stringField(rec, "day")
		timeStr, okTime := stringField(rec, "time")
		code, okCode := stringField(rec, "courseCode")
		if !okDay || !okTime || !okCode {
			result.Errors = append(result.Errors, label+": 缺少 day、time 或 courseCode")
			continue
		}

		if r := ValidateDay(day); !r.IsValid {
			result.Errors = append(result.Errors, label+": "+r.Error)
			continue
		}
		if r := ValidateTimeFormat(timeStr); !r.IsValid {
			result.Errors = append(result.Errors, label+": "+r.Error)
			continue
		}

		code = strings.ToUpper(code)
		if r := ValidateCourseCode(code); !r.IsValid {
			result.Errors = append(result.Errors, label+": "+r.Error)
			continue
		}
		section, _ := stringField(rec, "section")
		section = strings.ToUpper(section)
		if section != "" {
			if r := ValidateSection(section); !r.IsValid {
				result.Errors = append(result.Errors, label+": "+r.Error)
				continue
			}
		}
		classroom := classroomField(rec)
		slotKey := MakeKey(model.DayOfWeek(day), timeStr)

		course, ambiguous := resolveCourse(courses, code, section)
		if ambiguous {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: 课程代码 '%s' 匹配到多门课程，请指定 section", label, code))
			continue
		}

		if course != nil {
			result.Assignments = append(result.Assignments, ImportedAssignment{
				SlotKey:   slotKey,
				Ref:       ResolvedRef{CourseID: course.ID},
				Classroom: classroom,
			})
			continue
		}

		ref := PendingRef{Code: code, Section: section}
		if !missingSeen[ref.Key()] {
			missingSeen[ref.Key()] = true
			name, ok := stringField(rec, "courseName")
			if !ok {
				name = code
			}
			result.MissingCourses = append(result.MissingCourses, MissingCourse{
				Code:    code,
				Section: section,
				Name:    name,
			})
		}
		result.Assignments = append(result.Assignments, ImportedAssignment{
			SlotKey:   slotKey,
			Ref:       ref,
			Classroom: classroom,
		})
	}
	return result
}

// resolveCourse 指定班级时精确匹配；否则仅按代码匹配，多于一门为歧义
func resolveCourse(courses []model.Course, code, section string) (*model.Course, bool) {
	if section != "" {
		for i := range courses {
			if courses[i].SameIdentity(code, section) {
				return &courses[i], false
			}
		}
		return nil, false
	}

	var found *model.Course
	for i := range courses {
		if strings.EqualFold(courses[i].Code, code) {
			if found != nil {
				return nil, true
			}
			found = &courses[i]
		}
	}
	return found, false
}

// stringField 读取记录字段并转为去空格的字符串；缺失、null、空串视为未提供
func stringField(rec map[string]any, name string) (string, bool) {
	v, ok := rec[name]
	if !ok || v == nil {
		return "", false
	}
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if !x {
			return "", false
		}
		s = "true"
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// classroomField 教室只接受字符串
func classroomField(rec map[string]any) string {
	if s, ok := rec["classroom"].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// ── 物化 ──

// Assignment 可直接写入 Store 的安排
type Assignment struct {
	SlotKey string
	Entry   model.TimetableEntry
}

// CourseCreator 创建课程并返回带 ID 的课程
type CourseCreator func(course model.Course) (model.Course, error)

// PlaceholderCourse 占位课程：学分 3，未指定班级时为 "A"
// 名称总是满足 ValidateCourseName
func PlaceholderCourse(mc MissingCourse) model.Course {
	section := mc.Section
	if section == "" {
		section = PlaceholderSection
	}
	return model.Course{
		Code:    mc.Code,
		Name:    placeholderName(mc),
		Section: section,
		Credits: PlaceholderCredits,
	}
}

// placeholderName 超长截断；过短时退回 "<code> 课程"
func placeholderName(mc MissingCourse) string {
	name := strings.TrimSpace(mc.Name)
	if name == "" {
		name = mc.Code
	}
	if runes := []rune(name); len(runes) > NameMaxLength {
		name = strings.TrimSpace(string(runes[:NameMaxLength]))
	}
	if len([]rune(name)) < NameMinLength {
		name = mc.Code + " 课程"
	}
	return name
}

// Materialize 为每门占位课程创建真实课程，并把 PendingRef 改写为真实 ID
//
// 仅在结果无错误时执行。"未指定班级" 与 "班级 A" 物化后是同一门课程，只创建一次。
func Materialize(result ReconcileResult, create CourseCreator) ([]Assignment, []model.Course, error) {
	if !result.OK() {
		return nil, nil, ErrImportHasErrors
	}

	idsByPending := make(map[string]string, len(result.MissingCourses))
	idsByIdentity := make(map[string]string, len(result.MissingCourses))
	created := make([]model.Course, 0, len(result.MissingCourses))

	for _, mc := range result.MissingCourses {
		placeholder := PlaceholderCourse(mc)
		identity := strings.ToUpper(placeholder.Code) + "\x00" + strings.ToUpper(placeholder.Section)
		pendingKey := PendingRef{Code: mc.Code, Section: mc.Section}.Key()

		if id, ok := idsByIdentity[identity]; ok {
			idsByPending[pendingKey] = id
			continue
		}
		course, err := create(placeholder)
		if err != nil {
			return nil, nil, fmt.Errorf("创建占位课程 %s 失败: %w", mc.Code, err)
		}
		idsByIdentity[identity] = course.ID
		idsByPending[pendingKey] = course.ID
		created = append(created, course)
	}

	assignments := make([]Assignment, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		var courseID string
		switch ref := a.Ref.(type) {
		case ResolvedRef:
			courseID = ref.CourseID
		case PendingRef:
			id, ok := idsByPending[ref.Key()]
			if !ok {
				return nil, nil, fmt.Errorf("占位课程 %s 未登记", ref.Key())
			}
			courseID = id
		default:
			return nil, nil, fmt.Errorf("未知的课程引用类型 %T", a.Ref)
		}
		assignments = append(assignments, Assignment{
			SlotKey: a.SlotKey,
			Entry:   model.TimetableEntry{CourseID: courseID, Classroom: a.Classroom},
		})
	}
	return assignments, created, nil
}
