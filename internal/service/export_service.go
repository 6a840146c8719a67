package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"unisync/backend/config"
	"unisync/backend/internal/dto"
	"unisync/backend/internal/model"
	"unisync/backend/internal/timetable"
)

const defaultICSWeeks = 16

// dayLabels 表头
var dayLabels = map[model.DayOfWeek]string{
	model.Monday:    "周一",
	model.Tuesday:   "周二",
	model.Wednesday: "周三",
	model.Thursday:  "周四",
	model.Friday:    "周五",
}

// ExportService 导出业务接口
//
// 设计说明：
//   - XLSX：星期为列、时间格为行的周视图，冲突格子标红；另附课程清单
//   - ICS：每条安排一个每周重复的 VEVENT，可被本服务重新导入
//   - JSON：与课表导入格式一致，导出后可直接重新导入
//   - 文件内容以内存缓冲返回，由 Handler 层设置响应头后写入
type ExportService interface {
	ExportXLSX(ctx context.Context) (*bytes.Buffer, string, error)
	ExportICS(ctx context.Context, req *dto.ExportICSRequest) ([]byte, string, error)
	ExportJSON(ctx context.Context) ([]dto.ExportRecord, error)
}

type exportService struct {
	ws     *Workspace
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.Config, ws *Workspace, logger *zap.Logger) ExportService {
	return &exportService{
		ws:     ws,
		loc:    cfg.Schedule.Location(),
		now:    time.Now,
		logger: logger,
	}
}

// exportView 导出所需的一致快照
type exportView struct {
	courses  []model.Course
	index    map[string]*model.Course
	data     model.TimetableData
	settings model.TimetableSettings
}

func (s *exportService) view() exportView {
	var v exportView
	s.ws.View(func(st *State) {
		v.courses = append([]model.Course(nil), st.Courses...)
		v.data = st.Store.Snapshot()
		v.settings = st.Settings
	})
	v.index = make(map[string]*model.Course, len(v.courses))
	for i := range v.courses {
		v.index[v.courses[i].ID] = &v.courses[i]
	}
	return v
}

// ═══════════════════════════════════════════════════════════
// ExportXLSX — 周视图 Excel
// ═══════════════════════════════════════════════════════════
//
// Sheet "课表"：
//   - 第 1 行：标题（网格设置）
//   - 第 2 行：时间 | 周一 ~ 周五
//   - 之后每个时间格一行，单元格为 "代码 (班级)\n名称\n教室"，冲突时多条以空行分隔
//
// Sheet "课程"：课程清单 + 学分合计

func (s *exportService) ExportXLSX(_ context.Context) (*bytes.Buffer, string, error) {
	v := s.view()

	f := excelize.NewFile()
	defer f.Close()

	const gridSheet = "课表"
	idx, err := f.NewSheet(gridSheet)
	if err != nil {
		s.logger.Error("创建 Excel Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	clashStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#F8CBAD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	lastCol := colName(len(model.Days))
	f.SetColWidth(gridSheet, "A", "A", 22)
	f.SetColWidth(gridSheet, "B", lastCol, 24)

	// 标题行
	f.SetCellValue(gridSheet, "A1", fmt.Sprintf("课表 %s - %s，每格 %d 分钟",
		v.settings.StartTime, v.settings.EndTime, v.settings.IntervalMinutes))
	f.MergeCell(gridSheet, "A1", lastCol+"1")
	f.SetCellStyle(gridSheet, "A1", "A1", headerStyle)

	// 表头
	f.SetCellValue(gridSheet, cell("A", 2), "时间")
	for i, d := range model.Days {
		f.SetCellValue(gridSheet, cell(colName(i+1), 2), dayLabels[d])
	}
	f.SetCellStyle(gridSheet, cell("A", 2), cell(lastCol, 2), headerStyle)

	// 数据行
	row := 3
	onGrid := 0
	for _, t := range timetable.GenerateSlots(v.settings) {
		f.SetCellValue(gridSheet, cell("A", row), timetable.FormatRange(t, v.settings.IntervalMinutes))
		for i, d := range model.Days {
			entries := v.data[timetable.MakeKey(d, t)]
			ref := cell(colName(i+1), row)
			if len(entries) == 0 {
				continue
			}
			onGrid += len(entries)
			f.SetCellValue(gridSheet, ref, cellText(entries, v.index))
			style := cellStyle
			if len(entries) > 1 {
				style = clashStyle
			}
			f.SetCellStyle(gridSheet, ref, ref, style)
		}
		row++
	}
	if offGrid := v.data.EntryCount() - onGrid; offGrid > 0 {
		f.SetCellValue(gridSheet, cell("A", row+1), fmt.Sprintf("另有 %d 条安排不在当前网格内", offGrid))
	}

	if err := s.writeCourseSheet(f, v, headerStyle); err != nil {
		s.logger.Error("写入课程清单失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, "课表.xlsx", nil
}

func (s *exportService) writeCourseSheet(f *excelize.File, v exportView, headerStyle int) error {
	const sheet = "课程"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	headers := []string{"课程代码", "课程名称", "班级", "学分", "教师", "教室", "已安排"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetColWidth(sheet, "B", "B", 30)

	scheduled := timetable.ScheduledCourseIDs(v.data)
	row := 2
	for _, c := range v.courses {
		_, ok := scheduled[c.ID]
		values := []any{c.Code, c.Name, c.Section, c.Credits, c.Faculty, c.Classroom, yesNo(ok)}
		for i, val := range values {
			f.SetCellValue(sheet, cell(colName(i), row), val)
		}
		row++
	}

	summary := timetable.AggregateCredits(v.courses, v.data)
	f.SetCellValue(sheet, cell("A", row+1), "总学分")
	f.SetCellValue(sheet, cell("D", row+1), summary.Total)
	f.SetCellValue(sheet, cell("A", row+2), "已安排学分")
	f.SetCellValue(sheet, cell("D", row+2), summary.Scheduled)
	return nil
}

func cellText(entries []model.TimetableEntry, index map[string]*model.Course) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		course := index[e.CourseID]
		if course == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)\n%s\n%s",
			course.Code, course.Section, course.Name, e.DisplayRoom(course)))
	}
	return strings.Join(parts, "\n\n")
}

func yesNo(ok bool) string {
	if ok {
		return "是"
	}
	return "否"
}

// ═══════════════════════════════════════════════════════════
// ExportICS — 每周重复的日历
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportICS(_ context.Context, req *dto.ExportICSRequest) ([]byte, string, error) {
	v := s.view()
	if len(v.data) == 0 {
		return nil, "", ErrExportEmpty
	}

	anchor := s.now().In(s.loc)
	if req.WeekOf != "" {
		t, err := time.ParseInLocation("2006-01-02", req.WeekOf, s.loc)
		if err != nil {
			return nil, "", fmt.Errorf("%w: week_of 格式无效", ErrExportGenerateFail)
		}
		anchor = t
	}
	weeks := req.Weeks
	if weeks <= 0 {
		weeks = defaultICSWeeks
	}
	monday := mondayOf(anchor)
	interval := v.settings.IntervalMinutes
	if interval <= 0 {
		interval = 60
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//unisync//timetable//CN")
	cal.SetXWRCalName("课表")

	stamp := s.now().UTC()
	events := 0
	for _, key := range timetable.SortedKeys(v.data) {
		ref, ok := timetable.ParseKey(key)
		if !ok {
			continue
		}
		minutes, _ := timetable.ParseClock(ref.Time)
		day := monday.AddDate(0, 0, ref.Day.Index())
		start := time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, s.loc)

		for _, e := range v.data[key] {
			course := v.index[e.CourseID]
			if course == nil {
				continue
			}
			evt := cal.AddEvent(fmt.Sprintf("%s-%s@unisync", e.CourseID, key))
			evt.SetDtStampTime(stamp)
			evt.SetStartAt(start)
			evt.SetEndAt(start.Add(time.Duration(interval) * time.Minute))
			evt.SetSummary(course.Code + " " + course.Name)
			evt.SetLocation(e.DisplayRoom(course))
			evt.SetDescription(fmt.Sprintf("班级 %s，学分 %d", course.Section, course.Credits))
			evt.SetProperty(propertySection, course.Section)
			evt.AddRrule(fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", weeks))
			events++
		}
	}
	if events == 0 {
		return nil, "", ErrExportEmpty
	}

	return []byte(cal.Serialize()), "课表.ics", nil
}

// mondayOf 所在周的周一零点
func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// ═══════════════════════════════════════════════════════════
// ExportJSON — 课表导入格式
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportJSON(_ context.Context) ([]dto.ExportRecord, error) {
	v := s.view()

	records := make([]dto.ExportRecord, 0, v.data.EntryCount())
	for _, key := range timetable.SortedKeys(v.data) {
		ref, ok := timetable.ParseKey(key)
		if !ok {
			continue
		}
		for _, e := range v.data[key] {
			course := v.index[e.CourseID]
			if course == nil {
				continue
			}
			records = append(records, dto.ExportRecord{
				Day:        string(ref.Day),
				Time:       ref.Time,
				CourseCode: course.Code,
				Section:    course.Section,
				Classroom:  e.Classroom,
				CourseName: course.Name,
			})
		}
	}
	return records, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
