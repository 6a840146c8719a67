package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"unisync/backend/internal/model"
	"unisync/backend/internal/repository"
	"unisync/backend/internal/timetable"
)

// State 工作区状态，只在 Workspace 锁内可见
type State struct {
	Courses  []model.Course
	Store    *timetable.Store
	Settings model.TimetableSettings
}

// FindCourse 按 ID 查找课程
func (st *State) FindCourse(id string) (model.Course, bool) {
	for _, c := range st.Courses {
		if c.ID == id {
			return c, true
		}
	}
	return model.Course{}, false
}

// CourseIndex ID → 课程
func (st *State) CourseIndex() map[string]*model.Course {
	idx := make(map[string]*model.Course, len(st.Courses))
	for i := range st.Courses {
		idx[st.Courses[i].ID] = &st.Courses[i]
	}
	return idx
}

// Workspace 单一工作区（课程 + 课表 + 网格设置）
//
// 所有读写经过同一把锁串行执行；修改完成后把快照交给 Persister 防抖写入。
type Workspace struct {
	mu        sync.Mutex
	state     State
	persister *Persister
	logger    *zap.Logger
}

// LoadWorkspace 从持久化端口加载工作区，并清理一次孤儿条目
func LoadWorkspace(ctx context.Context, repo repository.StateRepository, persister *Persister, logger *zap.Logger) *Workspace {
	w := &Workspace{
		state: State{
			Courses:  repo.LoadCourses(ctx),
			Store:    timetable.NewStore(repo.LoadTimetable(ctx)),
			Settings: repo.LoadSettings(ctx),
		},
		persister: persister,
		logger:    logger,
	}

	if n := w.state.Store.PurgeOrphans(timetable.CourseIDSet(w.state.Courses)); n > 0 {
		logger.Info("已清理引用不存在课程的课表条目", zap.Int("count", n))
		w.persister.Schedule(ChangeTimetable, w.snapshotLocked(ChangeTimetable))
	}

	logger.Info("工作区已加载",
		zap.Int("courses", len(w.state.Courses)),
		zap.Int("slots", w.state.Store.Len()),
		zap.String("start_time", w.state.Settings.StartTime),
		zap.String("end_time", w.state.Settings.EndTime),
		zap.Int("interval_minutes", w.state.Settings.IntervalMinutes),
	)
	return w
}

// View 只读访问
func (w *Workspace) View(fn func(st *State)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.state)
}

// Update 修改工作区
//
// fn 必须先完成全部校验再修改状态：返回错误时已做的修改不会回滚。
// 课程列表变更后自动清理孤儿条目，随后登记写入。
func (w *Workspace) Update(fn func(st *State) (Change, error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	change, err := fn(&w.state)
	if err != nil {
		return err
	}

	if change&ChangeCourses != 0 {
		if n := w.state.Store.PurgeOrphans(timetable.CourseIDSet(w.state.Courses)); n > 0 {
			w.logger.Info("已清理孤儿课表条目", zap.Int("count", n))
			change |= ChangeTimetable
		}
	}
	w.persister.Schedule(change, w.snapshotLocked(change))
	return nil
}

// Persisted 最近一次写入是否成功
func (w *Workspace) Persisted() bool {
	return w.persister.Healthy()
}

// Flush 立即写入（进程退出前调用）
func (w *Workspace) Flush(ctx context.Context) bool {
	return w.persister.Flush(ctx)
}

func (w *Workspace) snapshotLocked(change Change) snapshot {
	var snap snapshot
	if change&ChangeCourses != 0 {
		snap.courses = append([]model.Course(nil), w.state.Courses...)
		if snap.courses == nil {
			snap.courses = []model.Course{}
		}
	}
	if change&ChangeTimetable != 0 {
		snap.timetable = w.state.Store.Snapshot()
	}
	if change&ChangeSettings != 0 {
		snap.settings = w.state.Settings
	}
	return snap
}
