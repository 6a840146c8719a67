package service

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"unisync/backend/config"
	"unisync/backend/internal/dto"
	"unisync/backend/internal/model"
)

// ── Mock StateRepository ──

type mockStateRepo struct {
	mu        sync.Mutex
	courses   []model.Course
	timetable model.TimetableData
	settings  model.TimetableSettings
	saves     map[string]int
	fail      bool
}

func newMockStateRepo() *mockStateRepo {
	return &mockStateRepo{
		courses:   []model.Course{},
		timetable: model.TimetableData{},
		settings:  model.DefaultSettings(),
		saves:     make(map[string]int),
	}
}

func (m *mockStateRepo) LoadCourses(_ context.Context) []model.Course {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Course(nil), m.courses...)
}

func (m *mockStateRepo) LoadTimetable(_ context.Context) model.TimetableData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timetable.Clone()
}

func (m *mockStateRepo) LoadSettings(_ context.Context) model.TimetableSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

func (m *mockStateRepo) SaveCourses(_ context.Context, courses []model.Course) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves["courses"]++
	if m.fail {
		return false
	}
	m.courses = append([]model.Course(nil), courses...)
	return true
}

func (m *mockStateRepo) SaveTimetable(_ context.Context, data model.TimetableData) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves["timetable"]++
	if m.fail {
		return false
	}
	m.timetable = data.Clone()
	return true
}

func (m *mockStateRepo) SaveSettings(_ context.Context, settings model.TimetableSettings) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves["settings"]++
	if m.fail {
		return false
	}
	m.settings = settings
	return true
}

func (m *mockStateRepo) saveCount(part string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[part]
}

func (m *mockStateRepo) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// ── 测试辅助 ──

func testConfig() *config.Config {
	return &config.Config{
		Schedule: config.ScheduleConfig{
			StartTime:       "08:00",
			EndTime:         "17:00",
			IntervalMinutes: 60,
			MaxSlots:        48,
			Timezone:        "UTC",
		},
		Import: config.ImportConfig{ErrorPreviewLimit: 3},
	}
}

// setupTestService 同步写入（无防抖）的完整服务
func setupTestService(t *testing.T, state *mockStateRepo) (*Service, *Workspace) {
	t.Helper()
	logger := zap.NewNop()
	persister := NewPersister(state, 0, logger)
	ws := LoadWorkspace(context.Background(), state, persister, logger)
	return NewService(testConfig(), ws, logger), ws
}

// mustAddCourse 添加课程，失败即终止测试
func mustAddCourse(t *testing.T, svc *Service, code, section string, credits int) string {
	t.Helper()
	resp, err := svc.Course.Add(context.Background(), &dto.CreateCourseRequest{
		Code:    code,
		Name:    "Course " + code,
		Section: section,
		Credits: credits,
	})
	if err != nil {
		t.Fatalf("Add %s 应成功: %v", code, err)
	}
	return resp.ID
}
