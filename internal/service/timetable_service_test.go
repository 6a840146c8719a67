package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"unisync/backend/internal/dto"
	"unisync/backend/internal/model"
	"unisync/backend/internal/timetable"
)

// ── Assign / Unassign 测试 ──

func TestTimetableService_Assign(t *testing.T) {
	svc, _ := setupTestService(t, newMockStateRepo())
	ctx := context.Background()
	a := mustAddCourse(t, svc, "CS101", "A", 3)
	b := mustAddCourse(t, svc, "MA201", "A", 4)

	resp, err := svc.Timetable.Assign(ctx, "Monday-08:00", &dto.AssignRequest{CourseID: a, Classroom: "LT1"})
	if err != nil {
		t.Fatalf("Assign 应成功: %v", err)
	}
	if resp.Cell.Clash || resp.Cell.Entries[0].Classroom != "LT1" {
		t.Errorf("单条安排结果错误: %+v", resp.Cell)
	}

	resp, _ = svc.Timetable.Assign(ctx, "Monday-08:00", &dto.AssignRequest{CourseID: b})
	if !resp.Cell.Clash || len(resp.Cell.Entries) != 2 {
		t.Errorf("同格两门课程应标记冲突: %+v", resp.Cell)
	}
	if resp.Cell.Entries[1].Classroom != model.NoRoom {
		t.Errorf("未指定教室应显示 %s，实际 %s", model.NoRoom, resp.Cell.Entries[1].Classroom)
	}

	// 重复安排只更新教室
	resp, _ = svc.Timetable.Assign(ctx, "Monday-08:00", &dto.AssignRequest{CourseID: a, Classroom: "LT2"})
	if len(resp.Cell.Entries) != 2 || resp.Cell.Entries[0].Classroom != "LT2" {
		t.Errorf("重复安排应原位更新教室: %+v", resp.Cell)
	}
}

func TestTimetableService_Assign_Errors(t *testing.T) {
	svc, _ := setupTestService(t, newMockStateRepo())
	ctx := context.Background()
	id := mustAddCourse(t, svc, "CS101", "A", 3)

	tests := []struct {
		name string
		key  string
		id   string
		want error
	}{
		{"键格式无效", "Someday-08:00", id, ErrInvalidSlotKey},
		{"不在网格内", "Monday-08:30", id, ErrSlotOffGrid},
		{"超出结束时间", "Monday-17:00", id, ErrSlotOffGrid},
		{"课程不存在", "Monday-08:00", "missing", ErrCourseNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Timetable.Assign(ctx, tt.key, &dto.AssignRequest{CourseID: tt.id})
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}
}

func TestTimetableService_Unassign(t *testing.T) {
	svc, ws := setupTestService(t, newMockStateRepo())
	ctx := context.Background()
	id := mustAddCourse(t, svc, "CS101", "A", 3)
	_, _ = svc.Timetable.Assign(ctx, "Monday-08:00", &dto.AssignRequest{CourseID: id})

	if _, err := svc.Timetable.Unassign(ctx, "Monday-08:00", "other"); !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("期望 ErrAssignmentNotFound，实际: %v", err)
	}
	resp, err := svc.Timetable.Unassign(ctx, "Monday-08:00", id)
	if err != nil {
		t.Fatalf("Unassign 应成功: %v", err)
	}
	if len(resp.Cell.Entries) != 0 {
		t.Errorf("格子应为空: %+v", resp.Cell)
	}
	ws.View(func(st *State) {
		if st.Store.Len() != 0 {
			t.Error("空格子的键应被删除")
		}
	})
}

func TestTimetableService_UnassignEverywhere(t *testing.T) {
	svc, _ := setupTestService(t, newMockStateRepo())
	ctx := context.Background()
	id := mustAddCourse(t, svc, "CS101", "A", 3)
	for _, key := range []string{"Monday-08:00", "Wednesday-10:00", "Friday-16:00"} {
		_, _ = svc.Timetable.Assign(ctx, key, &dto.AssignRequest{CourseID: id})
	}

	resp, _ := svc.Timetable.UnassignEverywhere(ctx, id)
	if resp.Removed != 3 {
		t.Errorf("期望移除 3 条，实际 %d", resp.Removed)
	}
	view, _ := svc.Timetable.Get(ctx)
	if len(view.Cells) != 0 {
		t.Errorf("课表应为空: %+v", view.Cells)
	}
}

// ── Move 测试 ──

func TestTimetableService_Move(t *testing.T) {
	svc, ws := setupTestService(t, newMockStateRepo())
	ctx := context.Background()
	id := mustAddCourse(t, svc, "CS101", "A", 3)
	_, _ = svc.Timetable.Assign(ctx, "Monday-08:00", &dto.AssignRequest{CourseID: id, Classroom: "LT1"})

	resp, err := svc.Timetable.Move(ctx, &dto.MoveRequest{From: "Monday-08:00", To: "Monday-08:00", CourseID: id})
	if err != nil || resp.Moved {
		t.Errorf("原地移动应为空操作: %+v, %v", resp, err)
	}

	if _, err := svc.Timetable.Move(ctx, &dto.MoveRequest{From: "Tuesday-08:00", To: "Monday-09:00", CourseID: id}); !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("源格子没有该课程，期望 ErrAssignmentNotFound，实际: %v", err)
	}
	if _, err := svc.Timetable.Move(ctx, &dto.MoveRequest{From: "Monday-08:00", To: "Monday-08:15", CourseID: id}); !errors.Is(err, ErrSlotOffGrid) {
		t.Errorf("目标不在网格内，期望 ErrSlotOffGrid，实际: %v", err)
	}

	resp, err = svc.Timetable.Move(ctx, &dto.MoveRequest{From: "Monday-08:00", To: "Thursday-13:00", CourseID: id})
	if err != nil || !resp.Moved {
		t.Fatalf("Move 应成功: %+v, %v", resp, err)
	}
	ws.View(func(st *State) {
		if st.Store.Len() != 1 {
			t.Errorf("移动后应只有 1 个格子，实际 %d", st.Store.Len())
		}
		if got := st.Store.Entries("Thursday-13:00"); len(got) != 1 || got[0].Classroom != "LT1" {
			t.Errorf("移动应保留教室覆盖值: %+v", got)
		}
	})
}

// ── Import 测试 ──

func TestTimetableService_Import_AllOrNothing(t *testing.T) {
	state := newMockStateRepo()
	svc, ws := setupTestService(t, state)
	ctx := context.Background()
	mustAddCourse(t, svc, "CS101", "A", 3)
	savesBefore := state.saveCount("timetable")

	input := `[
		{"day": "Monday", "time": "08:00", "courseCode": "CS101"},
		{"day": "Monday", "time": "09:00", "courseCode": "NEW1"},
		{"day": "Tuesday", "time": "25:00", "courseCode": "CS101"}
	]`
	_, err := svc.Timetable.Import(ctx, input, false)
	if !errors.Is(err, ErrImportRejected) {
		t.Fatalf("期望 ErrImportRejected，实际: %v", err)
	}
	var de *DetailError
	if !errors.As(err, &de) || len(de.Details) != 1 || !strings.HasPrefix(de.Details[0], "第 3 条") {
		t.Errorf("应返回逐条错误，实际 %+v", de)
	}

	ws.View(func(st *State) {
		if st.Store.Len() != 0 || len(st.Courses) != 1 {
			t.Error("导入被拒绝时不应修改课表或课程")
		}
	})
	if state.saveCount("timetable") != savesBefore {
		t.Error("导入被拒绝时不应写入")
	}
}

func TestTimetableService_Import_CreatesPlaceholders(t *testing.T) {
	svc, ws := setupTestService(t, newMockStateRepo())
	ctx := context.Background()
	cs := mustAddCourse(t, svc, "CS101", "A", 3)
	old := mustAddCourse(t, svc, "OLD1", "A", 2)
	_, _ = svc.Timetable.Assign(ctx, "Friday-16:00", &dto.AssignRequest{CourseID: old})

	input := `[
		{"day": "Monday", "time": "08:00", "courseCode": "cs101", "classroom": "LT1"},
		{"day": "Monday", "time": "10:30", "courseCode": "MA201", "courseName": "Calculus"},
		{"day": "Wednesday", "time": "10:00", "courseCode": "MA201"}
	]`
	resp, err := svc.Timetable.Import(ctx, input, true)
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}
	if resp.Applied != 3 || len(resp.CreatedCourses) != 1 {
		t.Fatalf("期望应用 3 条并创建 1 门占位课程，实际 %+v", resp)
	}
	created := resp.CreatedCourses[0]
	if created.Code != "MA201" || created.Section != "A" || created.Credits != 3 || created.Name != "Calculus" {
		t.Errorf("占位课程错误: %+v", created)
	}

	ws.View(func(st *State) {
		data := st.Store.Snapshot()
		if _, ok := data["Friday-16:00"]; ok {
			t.Error("clearExisting 应清空原有安排")
		}
		if got := data["Monday-08:00"]; len(got) != 1 || got[0].CourseID != cs || got[0].Classroom != "LT1" {
			t.Errorf("已有课程应直接引用: %+v", got)
		}
		// 导入允许非整格时间
		if got := data["Monday-10:30"]; len(got) != 1 || got[0].CourseID != created.ID {
			t.Errorf("占位课程应被引用: %+v", got)
		}
		if len(st.Courses) != 3 {
			t.Errorf("期望 3 门课程，实际 %d", len(st.Courses))
		}
	})

	view, _ := svc.Timetable.Get(ctx)
	for _, cell := range view.Cells {
		if cell.Key == "Monday-10:30" && cell.OnGrid {
			t.Error("10:30 不在默认网格内，OnGrid 应为 false")
		}
	}
}

func TestTimetableService_Import_RejectsInvalidPlaceholder(t *testing.T) {
	state := newMockStateRepo()
	svc, ws := setupTestService(t, state)
	ctx := context.Background()

	input := `[
		{"day": "Monday", "time": "08:00", "courseCode": "C$ !! 1234567890123456789012345"},
		{"day": "Monday", "time": "09:00", "courseCode": "MA201", "section": "a b"}
	]`
	_, err := svc.Timetable.Import(ctx, input, false)
	if !errors.Is(err, ErrImportRejected) {
		t.Fatalf("期望 ErrImportRejected，实际: %v", err)
	}
	var de *DetailError
	if !errors.As(err, &de) || len(de.Details) != 2 {
		t.Errorf("非法代码与班级应各报一条错误，实际 %+v", de)
	}
	ws.View(func(st *State) {
		if len(st.Courses) != 0 || st.Store.Len() != 0 {
			t.Error("导入被拒绝时不应创建课程或安排")
		}
	})

	// 短代码生成的占位课程名仍合法
	resp, err := svc.Timetable.Import(ctx, `[{"day": "Monday", "time": "08:00", "courseCode": "MA"}]`, false)
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}
	if len(resp.CreatedCourses) != 1 {
		t.Fatalf("期望创建 1 门占位课程，实际 %+v", resp)
	}
	if r := timetable.ValidateCourseName(resp.CreatedCourses[0].Name); !r.IsValid {
		t.Errorf("占位课程名 %q 非法: %s", resp.CreatedCourses[0].Name, r.Error)
	}
}

func TestTimetableService_Import_Empty(t *testing.T) {
	svc, _ := setupTestService(t, newMockStateRepo())
	if _, err := svc.Timetable.Import(context.Background(), `[]`, true); !errors.Is(err, ErrImportRejected) {
		t.Errorf("空数组期望 ErrImportRejected，实际: %v", err)
	}
}

// ── ImportICS 测试 ──

const testICSContent = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//Test//EN
BEGIN:VEVENT
UID:evt-1
SUMMARY:CS101 Intro to CS
DTSTART:20260907T090000
DTEND:20260907T100000
LOCATION:LT1
RRULE:FREQ=WEEKLY;COUNT=16
END:VEVENT
BEGIN:VEVENT
UID:evt-2
SUMMARY:CS101 Intro to CS
DTSTART:20260914T090000
DTEND:20260914T100000
END:VEVENT
BEGIN:VEVENT
UID:evt-3
SUMMARY:PH100 - Physics
DTSTART:20260909T140000Z
DTEND:20260909T160000Z
X-UNISYNC-SECTION:b
END:VEVENT
BEGIN:VEVENT
UID:evt-4
SUMMARY:Weekend Club
DTSTART:20260912T100000
DTEND:20260912T110000
END:VEVENT
END:VCALENDAR`

func TestParseICS(t *testing.T) {
	result, err := ParseICS(strings.NewReader(testICSContent), testConfig().Schedule.Location())
	if err != nil {
		t.Fatalf("ParseICS 失败: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("重复实例应合并，期望 2 条记录，实际 %d: %v", len(result.Records), result.Records)
	}
	if result.Skipped != 1 {
		t.Errorf("周末事件应被跳过，实际 Skipped=%d", result.Skipped)
	}

	first := result.Records[0]
	if first["day"] != "Monday" || first["time"] != "09:00" || first["courseCode"] != "CS101" ||
		first["courseName"] != "Intro to CS" || first["classroom"] != "LT1" {
		t.Errorf("第一条记录错误: %v", first)
	}
	second := result.Records[1]
	if second["day"] != "Wednesday" || second["time"] != "14:00" || second["section"] != "B" ||
		second["courseName"] != "Physics" {
		t.Errorf("第二条记录错误: %v", second)
	}
}

func TestTimetableService_ImportICS(t *testing.T) {
	svc, _ := setupTestService(t, newMockStateRepo())
	ctx := context.Background()
	mustAddCourse(t, svc, "CS101", "A", 3)

	resp, err := svc.Timetable.ImportICS(ctx, strings.NewReader(testICSContent), false)
	if err != nil {
		t.Fatalf("ImportICS 应成功: %v", err)
	}
	if resp.Applied != 2 || resp.Skipped != 1 || len(resp.CreatedCourses) != 1 {
		t.Errorf("ICS 导入结果错误: %+v", resp)
	}
	if resp.CreatedCourses[0].Code != "PH100" || resp.CreatedCourses[0].Section != "B" {
		t.Errorf("占位课程应沿用 ICS 中的班级: %+v", resp.CreatedCourses[0])
	}
}

func TestTimetableService_ImportICS_Errors(t *testing.T) {
	svc, _ := setupTestService(t, newMockStateRepo())
	ctx := context.Background()

	weekendOnly := `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//Test//EN
BEGIN:VEVENT
SUMMARY:Weekend Club
DTSTART:20260912T100000
END:VEVENT
END:VCALENDAR`
	if _, err := svc.Timetable.ImportICS(ctx, strings.NewReader(weekendOnly), false); !errors.Is(err, ErrICSEmpty) {
		t.Errorf("期望 ErrICSEmpty，实际: %v", err)
	}
}

// ── 视图测试 ──

func TestTimetableService_Get(t *testing.T) {
	svc, _ := setupTestService(t, newMockStateRepo())
	ctx := context.Background()
	a := mustAddCourse(t, svc, "CS101", "A", 3)
	b := mustAddCourse(t, svc, "MA201", "A", 4)
	_, _ = svc.Timetable.Assign(ctx, "Tuesday-09:00", &dto.AssignRequest{CourseID: a})
	_, _ = svc.Timetable.Assign(ctx, "Monday-08:00", &dto.AssignRequest{CourseID: a})
	_, _ = svc.Timetable.Assign(ctx, "Monday-08:00", &dto.AssignRequest{CourseID: b})

	view, err := svc.Timetable.Get(ctx)
	if err != nil {
		t.Fatalf("Get 应成功: %v", err)
	}
	if len(view.Slots) != 9 || view.Slots[0].Label != "8:00 AM - 9:00 AM" {
		t.Errorf("网格列错误: %+v", view.Slots)
	}
	if len(view.Cells) != 2 || view.Cells[0].Key != "Monday-08:00" {
		t.Errorf("格子应按星期与时间排序: %+v", view.Cells)
	}
	if view.Clashes != 1 {
		t.Errorf("期望 1 个冲突格子，实际 %d", view.Clashes)
	}
	if view.Credits.Total != 7 || view.Credits.Scheduled != 7 {
		t.Errorf("学分统计错误: %+v", view.Credits)
	}

	credits, _ := svc.Timetable.Credits(ctx)
	if *credits != view.Credits {
		t.Error("Credits 应与视图中的统计一致")
	}
}
