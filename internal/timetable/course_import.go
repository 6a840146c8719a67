package timetable

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CourseInput 新增课程的输入（已规范化：代码、班级大写，去空格）
type CourseInput struct {
	Code      string
	Name      string
	Section   string
	Credits   int
	Faculty   string
	Classroom string
}

// CourseRecord 批量导入中通过校验的一条记录
type CourseRecord struct {
	Index int // 从 1 开始，用于错误提示
	Input CourseInput
}

// RecordError 批量导入中某条记录的错误
type RecordError struct {
	Index   int
	Message string
}

func (e RecordError) String() string {
	return fmt.Sprintf("第 %d 条: %s", e.Index, e.Message)
}

// FormatRecordErrors 按记录序号排序后转为文本
func FormatRecordErrors(errs []RecordError) []string {
	sorted := append([]RecordError(nil), errs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	out := make([]string, len(sorted))
	for i, e := range sorted {
		out[i] = e.String()
	}
	return out
}

// CourseImportBatch 课程批量导入解析结果
// 与课表导入不同，课程导入允许部分成功：有效记录照常添加，无效记录只进入 Errors
type CourseImportBatch struct {
	Records []CourseRecord
	Errors  []RecordError
}

// ValidateCourse 校验代码、名称、班级、学分，返回全部错误
func ValidateCourse(code, name, section string, credits any) []string {
	var errs []string
	for _, r := range []Result{
		ValidateCourseCode(code),
		ValidateCourseName(name),
		ValidateSection(section),
		ValidateCredits(credits),
	} {
		if !r.IsValid {
			errs = append(errs, r.Error)
		}
	}
	return errs
}

// NormalizeCourseInput 去空格、代码与班级转大写
func NormalizeCourseInput(in CourseInput) CourseInput {
	return CourseInput{
		Code:      strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:      strings.TrimSpace(in.Name),
		Section:   strings.ToUpper(strings.TrimSpace(in.Section)),
		Credits:   in.Credits,
		Faculty:   strings.TrimSpace(in.Faculty),
		Classroom: strings.TrimSpace(in.Classroom),
	}
}

// ParseCourseImport 解析课程批量导入 JSON
// 记录格式 {code, name, class, credits, faculty?, classroom?}；输入不是数组时返回 error
func ParseCourseImport(jsonText string) (CourseImportBatch, error) {
	var items []any
	if err := json.Unmarshal([]byte(jsonText), &items); err != nil {
		return CourseImportBatch{}, fmt.Errorf("JSON 必须是课程对象的数组: %w", err)
	}

	batch := CourseImportBatch{Records: []CourseRecord{}, Errors: []RecordError{}}
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			batch.Errors = append(batch.Errors, RecordError{Index: i + 1, Message: "记录必须是对象"})
			continue
		}

		code, _ := stringField(rec, "code")
		name, _ := stringField(rec, "name")
		section, _ := stringField(rec, "class")
		credits := rec["credits"]

		if errs := ValidateCourse(code, name, section, credits); len(errs) > 0 {
			batch.Errors = append(batch.Errors, RecordError{Index: i + 1, Message: strings.Join(errs, ", ")})
			continue
		}

		n, _ := ParseCredits(credits)
		faculty, _ := stringField(rec, "faculty")
		classroom, _ := stringField(rec, "classroom")
		batch.Records = append(batch.Records, CourseRecord{
			Index: i + 1,
			Input: NormalizeCourseInput(CourseInput{
				Code:      code,
				Name:      name,
				Section:   section,
				Credits:   n,
				Faculty:   faculty,
				Classroom: classroom,
			}),
		})
	}
	return batch, nil
}

// SummarizeErrors 只展示前 limit 条错误，其余以 "...以及其余 K 条" 汇总
func SummarizeErrors(errs []string, limit int) string {
	if len(errs) == 0 {
		return ""
	}
	if limit <= 0 || len(errs) <= limit {
		return strings.Join(errs, "\n")
	}
	return strings.Join(errs[:limit], "\n") + fmt.Sprintf("\n...以及其余 %d 条", len(errs)-limit)
}
