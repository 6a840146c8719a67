package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"unisync/backend/internal/dto"
)

// ── Add 测试 ──

func TestCourseService_Add_Success(t *testing.T) {
	state := newMockStateRepo()
	svc, _ := setupTestService(t, state)

	resp, err := svc.Course.Add(context.Background(), &dto.CreateCourseRequest{
		Code:    " cs101 ",
		Name:    "Intro to CS",
		Section: "a",
		Credits: "3",
		Faculty: "Dr. Lee",
	})
	if err != nil {
		t.Fatalf("Add 应成功: %v", err)
	}
	if resp.ID == "" || resp.Code != "CS101" || resp.Section != "A" || resp.Credits != 3 {
		t.Errorf("课程应被规范化，实际 %+v", resp)
	}
	if len(state.LoadCourses(context.Background())) != 1 {
		t.Error("课程应已写入")
	}
}

func TestCourseService_Add_Invalid(t *testing.T) {
	svc, _ := setupTestService(t, newMockStateRepo())

	_, err := svc.Course.Add(context.Background(), &dto.CreateCourseRequest{
		Code:    "",
		Name:    "Intro",
		Section: "A",
		Credits: 20,
	})
	if !errors.Is(err, ErrCourseInvalid) {
		t.Fatalf("期望 ErrCourseInvalid，实际: %v", err)
	}
	var de *DetailError
	if !errors.As(err, &de) || len(de.Details) != 2 {
		t.Errorf("期望 2 条字段错误，实际 %+v", de)
	}
}

func TestCourseService_Add_Duplicate(t *testing.T) {
	svc, _ := setupTestService(t, newMockStateRepo())
	mustAddCourse(t, svc, "CS101", "A", 3)

	_, err := svc.Course.Add(context.Background(), &dto.CreateCourseRequest{
		Code:    "cs101",
		Name:    "Another",
		Section: "a",
		Credits: 3,
	})
	if !errors.Is(err, ErrCourseDuplicate) {
		t.Errorf("代码与班级忽略大小写重复，期望 ErrCourseDuplicate，实际: %v", err)
	}

	// 同代码不同班级允许
	mustAddCourse(t, svc, "CS101", "B", 3)
}

// ── Delete 测试 ──

func TestCourseService_Delete_Cascade(t *testing.T) {
	svc, ws := setupTestService(t, newMockStateRepo())
	ctx := context.Background()
	id := mustAddCourse(t, svc, "CS101", "A", 3)
	other := mustAddCourse(t, svc, "MA201", "A", 4)

	for _, key := range []string{"Monday-08:00", "Tuesday-09:00"} {
		if _, err := svc.Timetable.Assign(ctx, key, &dto.AssignRequest{CourseID: id}); err != nil {
			t.Fatalf("Assign 应成功: %v", err)
		}
	}
	if _, err := svc.Timetable.Assign(ctx, "Monday-08:00", &dto.AssignRequest{CourseID: other}); err != nil {
		t.Fatalf("Assign 应成功: %v", err)
	}

	resp, err := svc.Course.Delete(ctx, id)
	if err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if resp.RemovedAssignments != 2 {
		t.Errorf("期望移除 2 条安排，实际 %d", resp.RemovedAssignments)
	}
	ws.View(func(st *State) {
		data := st.Store.Snapshot()
		if len(data) != 1 || data["Monday-08:00"][0].CourseID != other {
			t.Errorf("删除后只应保留其他课程的安排，实际 %v", data)
		}
	})

	if _, err := svc.Course.Delete(ctx, id); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("重复删除期望 ErrCourseNotFound，实际: %v", err)
	}
}

// ── List 测试 ──

func TestCourseService_List(t *testing.T) {
	svc, _ := setupTestService(t, newMockStateRepo())
	ctx := context.Background()
	id := mustAddCourse(t, svc, "CS101", "A", 3)
	mustAddCourse(t, svc, "MA201", "A", 4)
	_, _ = svc.Timetable.Assign(ctx, "Monday-08:00", &dto.AssignRequest{CourseID: id})

	all, _ := svc.Course.List(ctx, &dto.CourseListRequest{})
	if all.Total != 2 || all.TotalCredits != 7 || all.ScheduledCredits != 3 {
		t.Errorf("列表统计错误: %+v", all)
	}

	filtered, _ := svc.Course.List(ctx, &dto.CourseListRequest{Query: "cs"})
	if filtered.Total != 1 || !filtered.List[0].Scheduled {
		t.Errorf("搜索结果错误: %+v", filtered)
	}
	if filtered.TotalCredits != 7 {
		t.Error("学分统计不应受搜索条件影响")
	}
}

// ── Clear 测试 ──

func TestCourseService_Clear_AlsoClearsTimetable(t *testing.T) {
	svc, ws := setupTestService(t, newMockStateRepo())
	ctx := context.Background()
	id := mustAddCourse(t, svc, "CS101", "A", 3)
	_, _ = svc.Timetable.Assign(ctx, "Monday-08:00", &dto.AssignRequest{CourseID: id})

	resp, _ := svc.Course.Clear(ctx)
	if resp.RemovedCourses != 1 || resp.RemovedAssignments != 1 {
		t.Errorf("清空统计错误: %+v", resp)
	}
	ws.View(func(st *State) {
		if len(st.Courses) != 0 || st.Store.Len() != 0 {
			t.Error("课程与课表都应被清空")
		}
	})
}

// ── Import 测试 ──

func TestCourseService_Import_PartialSuccess(t *testing.T) {
	svc, _ := setupTestService(t, newMockStateRepo())
	mustAddCourse(t, svc, "CS101", "A", 3)

	input := `[
		{"code": "CS101", "name": "Intro again", "class": "a", "credits": 3},
		{"code": "MA201", "name": "Calculus", "class": "A", "credits": 4},
		{"code": "", "name": "x", "class": "A", "credits": 3},
		{"code": "PH100", "name": "Physics", "class": "A", "credits": 99},
		{"code": "MA201", "name": "Calculus", "class": "A", "credits": 4},
		{"code": "EN100", "name": "English", "class": "B", "credits": 2}
	]`
	resp, err := svc.Course.Import(context.Background(), input)
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}
	if resp.AddedCount != 2 {
		t.Errorf("期望添加 2 门课程，实际 %d", resp.AddedCount)
	}
	if len(resp.Errors) != 4 {
		t.Fatalf("期望 4 条错误，实际 %v", resp.Errors)
	}
	for i, prefix := range []string{"第 1 条", "第 3 条", "第 4 条", "第 5 条"} {
		if !strings.HasPrefix(resp.Errors[i], prefix) {
			t.Errorf("错误应按记录顺序排列，第 %d 条为 %s", i, resp.Errors[i])
		}
	}
	if !strings.HasSuffix(resp.ErrorSummary, "...以及其余 1 条") {
		t.Errorf("摘要应截断为前 3 条，实际 %q", resp.ErrorSummary)
	}
}

func TestCourseService_Import_Invalid(t *testing.T) {
	svc, _ := setupTestService(t, newMockStateRepo())

	for _, input := range []string{`{"code": "CS101"}`, `not json`, `[]`} {
		if _, err := svc.Course.Import(context.Background(), input); !errors.Is(err, ErrCourseImportInvalid) {
			t.Errorf("%s 期望 ErrCourseImportInvalid，实际: %v", input, err)
		}
	}
}
