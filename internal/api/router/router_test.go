package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"unisync/backend/config"
	"unisync/backend/internal/api/handler"
	"unisync/backend/internal/dto"
	"unisync/backend/internal/model"
	"unisync/backend/internal/repository"
	"unisync/backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           8080,
			BodyLimitBytes: 1 << 10,
			CORS:           config.CORSConfig{AllowOrigins: []string{"http://localhost:5173"}},
		},
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

// newEngine 基于内存 Blob 仓储组装完整的服务栈
func newEngine(t *testing.T, blobs repository.BlobRepository) *gin.Engine {
	t.Helper()
	cfg := testConfig()
	logger := zap.NewNop()
	repo := repository.NewRepository(blobs, repository.Options{
		DefaultSettings: model.DefaultSettings(),
		MaxSlots:        cfg.Schedule.MaxSlots,
	}, logger)
	persister := service.NewPersister(repo.State, 0, logger)
	ws := service.LoadWorkspace(context.Background(), repo.State, persister, logger)
	svc := service.NewService(cfg, ws, logger)
	return Setup(cfg, handler.NewHandler(svc), nil, logger)
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

// decode 解析统一响应中的 data 字段
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("响应不是合法 JSON: %v\n%s", err, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("data 解析失败: %v", err)
		}
	}
}

func TestHealthAndHeaders(t *testing.T) {
	r := newEngine(t, repository.NewMemoryBlobRepo())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("应生成 X-Request-ID")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("缺少安全响应头")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("允许的来源应返回 CORS 头")
	}
}

func TestBodyLimit(t *testing.T) {
	r := newEngine(t, repository.NewMemoryBlobRepo())
	big := map[string]string{"data": strings.Repeat("x", 2<<10)}

	w := do(t, r, "POST", "/api/v1/courses/import", big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}

func TestCourseAndTimetableFlow(t *testing.T) {
	blobs := repository.NewMemoryBlobRepo()
	r := newEngine(t, blobs)

	w := do(t, r, "POST", "/api/v1/courses", map[string]any{
		"code": "cs101", "name": "Intro to CS", "class": "a", "credits": "3",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("创建课程失败: %d %s", w.Code, w.Body.String())
	}
	var course dto.CourseResponse
	decode(t, w, &course)
	if course.Code != "CS101" || course.Section != "A" || course.Credits != 3 {
		t.Errorf("课程应被规范化: %+v", course)
	}

	w = do(t, r, "PUT", "/api/v1/timetable/slots/Monday-08:00", map[string]string{"course_id": course.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("安排失败: %d %s", w.Code, w.Body.String())
	}
	w = do(t, r, "PUT", "/api/v1/timetable/slots/Monday-08:30", map[string]string{"course_id": course.ID})
	if w.Code != http.StatusBadRequest {
		t.Errorf("不在网格内应返回 400，实际 %d", w.Code)
	}

	// 重新加载工作区：状态应已写入 Blob 仓储
	reloaded := newEngine(t, blobs)
	var view dto.TimetableResponse
	decode(t, do(t, reloaded, "GET", "/api/v1/timetable", nil), &view)
	if len(view.Cells) != 1 || view.Cells[0].Entries[0].Code != "CS101" {
		t.Fatalf("重新加载后课表应保留: %+v", view.Cells)
	}
	if view.Cells[0].Entries[0].Classroom != model.NoRoom {
		t.Errorf("期望 %s，实际 %s", model.NoRoom, view.Cells[0].Entries[0].Classroom)
	}

	var deleted dto.DeleteCourseResponse
	decode(t, do(t, reloaded, "DELETE", "/api/v1/courses/"+course.ID, nil), &deleted)
	if deleted.RemovedAssignments != 1 {
		t.Errorf("删除课程应级联移除 1 条安排，实际 %d", deleted.RemovedAssignments)
	}
	decode(t, do(t, reloaded, "GET", "/api/v1/timetable", nil), &view)
	if len(view.Cells) != 0 {
		t.Errorf("课表应为空: %+v", view.Cells)
	}
}

func TestTimetableImportRejected(t *testing.T) {
	r := newEngine(t, repository.NewMemoryBlobRepo())

	w := do(t, r, "POST", "/api/v1/timetable/import", map[string]any{
		"data": []map[string]string{
			{"day": "Monday", "time": "08:00", "courseCode": "CS101"},
			{"day": "Sunday", "time": "08:00", "courseCode": "CS101"},
		},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	var rejected dto.ImportRejectedData
	decode(t, w, &rejected)
	if len(rejected.Errors) != 1 || !strings.HasPrefix(rejected.Errors[0], "第 2 条") {
		t.Errorf("逐条错误错误: %+v", rejected)
	}

	var courses dto.CourseListResponse
	decode(t, do(t, r, "GET", "/api/v1/courses", nil), &courses)
	if courses.Total != 0 {
		t.Error("被拒绝的导入不应创建占位课程")
	}
}

func TestSettingsMigrationFlow(t *testing.T) {
	r := newEngine(t, repository.NewMemoryBlobRepo())

	var course dto.CourseResponse
	decode(t, do(t, r, "POST", "/api/v1/courses", map[string]any{
		"code": "C1", "name": "Course One", "class": "A", "credits": 3,
	}), &course)
	do(t, r, "PUT", "/api/v1/timetable/slots/Monday-16:00", map[string]string{"course_id": course.ID})

	var updated dto.UpdateSettingsResponse
	w := do(t, r, "PUT", "/api/v1/settings", dto.UpdateSettingsRequest{StartTime: "08:00", EndTime: "12:00", IntervalMinutes: 60})
	decode(t, w, &updated)
	if !updated.Changed || updated.Migration.Dropped != 1 {
		t.Errorf("迁移结果错误: %+v", updated)
	}

	var credits struct {
		Total     int `json:"totalCredits"`
		Scheduled int `json:"scheduledCredits"`
	}
	decode(t, do(t, r, "GET", "/api/v1/timetable/credits", nil), &credits)
	if credits.Total != 3 || credits.Scheduled != 0 {
		t.Errorf("学分统计错误: %+v", credits)
	}
}
