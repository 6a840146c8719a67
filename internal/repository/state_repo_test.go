package repository

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"unisync/backend/internal/model"
)

// failingBlobRepo 模拟存储不可用
type failingBlobRepo struct{}

func (failingBlobRepo) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingBlobRepo) Put(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func setupTestStateRepo() (StateRepository, BlobRepository) {
	blobs := NewMemoryBlobRepo()
	repo := NewStateRepository(blobs, "test:", model.DefaultSettings(), 48, zap.NewNop())
	return repo, blobs
}

func TestStateRepo_MissingKeysUseDefaults(t *testing.T) {
	repo, _ := setupTestStateRepo()
	ctx := context.Background()

	if got := repo.LoadCourses(ctx); got == nil || len(got) != 0 {
		t.Errorf("期望空课程列表，实际 %v", got)
	}
	if got := repo.LoadTimetable(ctx); got == nil || len(got) != 0 {
		t.Errorf("期望空课表，实际 %v", got)
	}
	if got := repo.LoadSettings(ctx); got != model.DefaultSettings() {
		t.Errorf("期望默认设置，实际 %+v", got)
	}
}

func TestStateRepo_RoundTrip(t *testing.T) {
	repo, blobs := setupTestStateRepo()
	ctx := context.Background()

	courses := []model.Course{{ID: "c1", Code: "CS101", Name: "Intro", Section: "A", Credits: 3}}
	data := model.TimetableData{"Monday-08:00": {{CourseID: "c1", Classroom: "R1"}}}
	settings := model.TimetableSettings{StartTime: "09:00", EndTime: "12:00", IntervalMinutes: 30}

	if !repo.SaveCourses(ctx, courses) || !repo.SaveTimetable(ctx, data) || !repo.SaveSettings(ctx, settings) {
		t.Fatal("写入应成功")
	}
	if _, err := blobs.Get(ctx, "test:"+KeyCourses); err != nil {
		t.Errorf("键应带前缀写入: %v", err)
	}

	if got := repo.LoadCourses(ctx); len(got) != 1 || got[0].Section != "A" {
		t.Errorf("课程读回错误: %+v", got)
	}
	if got := repo.LoadTimetable(ctx); got["Monday-08:00"][0].Classroom != "R1" {
		t.Errorf("课表读回错误: %+v", got)
	}
	if got := repo.LoadSettings(ctx); got != settings {
		t.Errorf("设置读回错误: %+v", got)
	}
}

func TestStateRepo_MalformedValues(t *testing.T) {
	repo, blobs := setupTestStateRepo()
	ctx := context.Background()

	_ = blobs.Put(ctx, "test:"+KeyCourses, []byte(`[{"id":"c1","code":"CS101"}, 5, {"code":"NOID"}]`))
	_ = blobs.Put(ctx, "test:"+KeyTimetable, []byte(`{"Monday-08:00":"c1","Sunday-08:00":"c1"}`))
	_ = blobs.Put(ctx, "test:"+KeySettings, []byte(`{"startTime":"17:00","endTime":"08:00","intervalMinutes":60}`))

	if got := repo.LoadCourses(ctx); len(got) != 1 || got[0].ID != "c1" {
		t.Errorf("损坏的课程记录应被跳过，实际 %+v", got)
	}
	if got := repo.LoadTimetable(ctx); len(got) != 1 {
		t.Errorf("旧形态应被规范化，实际 %+v", got)
	}
	if got := repo.LoadSettings(ctx); got != model.DefaultSettings() {
		t.Errorf("无效设置应回退默认值，实际 %+v", got)
	}

	_ = blobs.Put(ctx, "test:"+KeyTimetable, []byte(`not json`))
	if got := repo.LoadTimetable(ctx); len(got) != 0 {
		t.Errorf("无法解析的课表应回退为空，实际 %+v", got)
	}
}

func TestStateRepo_LoadCoursesDropsInvalid(t *testing.T) {
	repo, blobs := setupTestStateRepo()
	ctx := context.Background()

	_ = blobs.Put(ctx, "test:"+KeyCourses, []byte(`[
		{"id":"c1","code":"CS101","section":"A","credits":3},
		{"id":"c2","code":"cs101","section":"a","credits":4},
		{"id":"c3","code":"MA201","section":"A","credits":13},
		{"id":"c4","code":"PH100","section":"A","credits":-1},
		{"id":"c5","code":"CS101","section":"B","credits":3}
	]`))

	got := repo.LoadCourses(ctx)
	if len(got) != 2 || got[0].ID != "c1" || got[1].ID != "c5" {
		t.Errorf("重复与学分越界的课程应被跳过，实际 %+v", got)
	}
}

func TestStateRepo_StorageUnavailable(t *testing.T) {
	repo := NewStateRepository(failingBlobRepo{}, "", model.DefaultSettings(), 48, zap.NewNop())
	ctx := context.Background()

	if repo.SaveCourses(ctx, nil) {
		t.Error("存储不可用时 Save 应返回 false")
	}
	if got := repo.LoadSettings(ctx); got != model.DefaultSettings() {
		t.Errorf("读取失败应回退默认值，实际 %+v", got)
	}
}

func TestMemoryBlobRepo_CopiesValues(t *testing.T) {
	blobs := NewMemoryBlobRepo()
	ctx := context.Background()

	value := []byte("abc")
	_ = blobs.Put(ctx, "k", value)
	value[0] = 'x'

	got, err := blobs.Get(ctx, "k")
	if err != nil || string(got) != "abc" {
		t.Errorf("存储的值不应受调用方修改影响，实际 %q, %v", got, err)
	}
}
