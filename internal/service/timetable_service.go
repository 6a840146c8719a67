package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"unisync/backend/config"
	"unisync/backend/internal/dto"
	"unisync/backend/internal/model"
	"unisync/backend/internal/timetable"
)

// TimetableService 课表业务接口
//
// 设计说明：
//   - 手动安排与移动只允许落在当前网格内的时间格；导入允许任意合法时间
//   - 导入采用全有或全无策略：任一记录出错即整批拒绝，状态不变
//   - 导入中未找到的课程自动创建占位课程（学分 3，班级缺省为 A）
type TimetableService interface {
	Get(ctx context.Context) (*dto.TimetableResponse, error)
	Slots(ctx context.Context) ([]dto.SlotColumn, error)
	Credits(ctx context.Context) (*timetable.CreditSummary, error)
	Assign(ctx context.Context, key string, req *dto.AssignRequest) (*dto.SlotMutationResponse, error)
	Unassign(ctx context.Context, key, courseID string) (*dto.SlotMutationResponse, error)
	UnassignEverywhere(ctx context.Context, courseID string) (*dto.UnassignEverywhereResponse, error)
	Move(ctx context.Context, req *dto.MoveRequest) (*dto.MoveResponse, error)
	Clear(ctx context.Context) (*dto.ClearResponse, error)
	Import(ctx context.Context, jsonText string, clearExisting bool) (*dto.ImportTimetableResponse, error)
	ImportICS(ctx context.Context, reader io.Reader, clearExisting bool) (*dto.ImportTimetableResponse, error)
}

type timetableService struct {
	ws           *Workspace
	previewLimit int
	loc          *time.Location
	logger       *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(cfg *config.Config, ws *Workspace, logger *zap.Logger) TimetableService {
	return &timetableService{
		ws:           ws,
		previewLimit: cfg.Import.ErrorPreviewLimit,
		loc:          cfg.Schedule.Location(),
		logger:       logger,
	}
}

// ────────────────────── 视图 ──────────────────────

func slotColumns(settings model.TimetableSettings) []dto.SlotColumn {
	slots := timetable.GenerateSlots(settings)
	cols := make([]dto.SlotColumn, 0, len(slots))
	for _, t := range slots {
		cols = append(cols, dto.SlotColumn{
			Time:       t,
			Label:      timetable.FormatRange(t, settings.IntervalMinutes),
			ShortLabel: timetable.FormatRangeShort(t, settings.IntervalMinutes),
		})
	}
	return cols
}

func gridTimes(settings model.TimetableSettings) map[string]bool {
	set := make(map[string]bool)
	for _, t := range timetable.GenerateSlots(settings) {
		set[t] = true
	}
	return set
}

// buildCell 解析格子中每条安排的展示信息
func buildCell(st *State, key string, grid map[string]bool, index map[string]*model.Course) dto.CellResponse {
	ref, _ := timetable.ParseKey(key)
	entries := st.Store.Entries(key)

	cell := dto.CellResponse{
		Key:     key,
		Day:     string(ref.Day),
		Time:    ref.Time,
		OnGrid:  grid[ref.Time],
		Clash:   len(entries) > 1,
		Entries: make([]dto.CellEntry, 0, len(entries)),
	}
	for _, e := range entries {
		course := index[e.CourseID]
		ce := dto.CellEntry{CourseID: e.CourseID, Classroom: e.DisplayRoom(course)}
		if course != nil {
			ce.Code = course.Code
			ce.Name = course.Name
			ce.Section = course.Section
			ce.Credits = course.Credits
		}
		cell.Entries = append(cell.Entries, ce)
	}
	return cell
}

func (s *timetableService) Get(_ context.Context) (*dto.TimetableResponse, error) {
	var resp dto.TimetableResponse
	s.ws.View(func(st *State) {
		data := st.Store.Snapshot()
		grid := gridTimes(st.Settings)
		index := st.CourseIndex()

		resp.Settings = dto.ToSettingsResponse(st.Settings)
		resp.Days = make([]string, len(model.Days))
		for i, d := range model.Days {
			resp.Days[i] = string(d)
		}
		resp.Slots = slotColumns(st.Settings)
		resp.Cells = make([]dto.CellResponse, 0, len(data))
		for _, key := range timetable.SortedKeys(data) {
			cell := buildCell(st, key, grid, index)
			if cell.Clash {
				resp.Clashes++
			}
			resp.Cells = append(resp.Cells, cell)
		}
		resp.Credits = timetable.AggregateCredits(st.Courses, data)
	})
	return &resp, nil
}

func (s *timetableService) Slots(_ context.Context) ([]dto.SlotColumn, error) {
	var cols []dto.SlotColumn
	s.ws.View(func(st *State) {
		cols = slotColumns(st.Settings)
	})
	return cols, nil
}

func (s *timetableService) Credits(_ context.Context) (*timetable.CreditSummary, error) {
	var summary timetable.CreditSummary
	s.ws.View(func(st *State) {
		summary = timetable.AggregateCredits(st.Courses, st.Store.Snapshot())
	})
	return &summary, nil
}

// ────────────────────── 单格修改 ──────────────────────

// checkGridSlot 键合法且时间在当前网格内
func checkGridSlot(st *State, key string) error {
	ref, ok := timetable.ParseKey(key)
	if !ok {
		return ErrInvalidSlotKey
	}
	if !gridTimes(st.Settings)[ref.Time] {
		return ErrSlotOffGrid
	}
	return nil
}

func (s *timetableService) Assign(_ context.Context, key string, req *dto.AssignRequest) (*dto.SlotMutationResponse, error) {
	var cell dto.CellResponse
	err := s.ws.Update(func(st *State) (Change, error) {
		if err := checkGridSlot(st, key); err != nil {
			return ChangeNone, err
		}
		if _, ok := st.FindCourse(req.CourseID); !ok {
			return ChangeNone, ErrCourseNotFound
		}
		st.Store.Assign(key, model.TimetableEntry{CourseID: req.CourseID, Classroom: req.Classroom})
		cell = buildCell(st, key, gridTimes(st.Settings), st.CourseIndex())
		return ChangeTimetable, nil
	})
	if err != nil {
		return nil, err
	}

	if cell.Clash {
		s.logger.Info("时间格存在冲突", zap.String("key", key), zap.Int("entries", len(cell.Entries)))
	}
	return &dto.SlotMutationResponse{Cell: cell, Persisted: s.ws.Persisted()}, nil
}

func (s *timetableService) Unassign(_ context.Context, key, courseID string) (*dto.SlotMutationResponse, error) {
	var cell dto.CellResponse
	err := s.ws.Update(func(st *State) (Change, error) {
		if _, ok := timetable.ParseKey(key); !ok {
			return ChangeNone, ErrInvalidSlotKey
		}
		if !st.Store.Unassign(key, courseID) {
			return ChangeNone, ErrAssignmentNotFound
		}
		cell = buildCell(st, key, gridTimes(st.Settings), st.CourseIndex())
		return ChangeTimetable, nil
	})
	if err != nil {
		return nil, err
	}
	return &dto.SlotMutationResponse{Cell: cell, Persisted: s.ws.Persisted()}, nil
}

func (s *timetableService) UnassignEverywhere(_ context.Context, courseID string) (*dto.UnassignEverywhereResponse, error) {
	removed := 0
	_ = s.ws.Update(func(st *State) (Change, error) {
		removed = st.Store.UnassignEverywhere(courseID)
		if removed == 0 {
			return ChangeNone, nil
		}
		return ChangeTimetable, nil
	})
	return &dto.UnassignEverywhereResponse{
		CourseID:  courseID,
		Removed:   removed,
		Persisted: s.ws.Persisted(),
	}, nil
}

func (s *timetableService) Move(_ context.Context, req *dto.MoveRequest) (*dto.MoveResponse, error) {
	moved := false
	err := s.ws.Update(func(st *State) (Change, error) {
		if _, ok := timetable.ParseKey(req.From); !ok {
			return ChangeNone, ErrInvalidSlotKey
		}
		if err := checkGridSlot(st, req.To); err != nil {
			return ChangeNone, err
		}
		if !containsEntry(st.Store.Entries(req.From), req.CourseID) {
			return ChangeNone, ErrAssignmentNotFound
		}
		moved = st.Store.Move(req.From, req.To, req.CourseID)
		if !moved {
			return ChangeNone, nil
		}
		return ChangeTimetable, nil
	})
	if err != nil {
		return nil, err
	}
	return &dto.MoveResponse{Moved: moved, Persisted: s.ws.Persisted()}, nil
}

func containsEntry(entries []model.TimetableEntry, courseID string) bool {
	for _, e := range entries {
		if e.CourseID == courseID {
			return true
		}
	}
	return false
}

func (s *timetableService) Clear(_ context.Context) (*dto.ClearResponse, error) {
	var resp dto.ClearResponse
	_ = s.ws.Update(func(st *State) (Change, error) {
		resp.RemovedAssignments = st.Store.Snapshot().EntryCount()
		st.Store.Clear()
		return ChangeTimetable, nil
	})
	s.logger.Info("课表已清空", zap.Int("assignments", resp.RemovedAssignments))
	resp.Persisted = s.ws.Persisted()
	return &resp, nil
}

// ═══════════════════════════════════════════════════════════
// Import — 课表批量导入（JSON / ICS）
// ═══════════════════════════════════════════════════════════
//
// 流程：
//   1. 与当前课程对账，得到已解析 / 待创建的安排
//   2. 有任何错误 → 整批拒绝（ErrImportRejected，附逐条错误）
//   3. 物化占位课程，可选清空现有课表，逐条写入

func (s *timetableService) Import(_ context.Context, jsonText string, clearExisting bool) (*dto.ImportTimetableResponse, error) {
	var resp *dto.ImportTimetableResponse
	err := s.ws.Update(func(st *State) (Change, error) {
		result := timetable.Reconcile(jsonText, st.Courses)
		r, change, err := s.apply(st, result, clearExisting)
		resp = r
		return change, err
	})
	if err != nil {
		s.logger.Info("课表导入被拒绝", zap.Error(err))
		return nil, err
	}

	s.logger.Info("课表导入完成",
		zap.Int("applied", resp.Applied),
		zap.Int("created_courses", len(resp.CreatedCourses)),
		zap.Bool("clear_existing", clearExisting),
	)
	resp.Persisted = s.ws.Persisted()
	return resp, nil
}

func (s *timetableService) ImportICS(_ context.Context, reader io.Reader, clearExisting bool) (*dto.ImportTimetableResponse, error) {
	parsed, err := ParseICS(reader, s.loc)
	if err != nil {
		s.logger.Error("ICS 解析失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrICSParseFailed, err)
	}
	if len(parsed.Records) == 0 {
		return nil, ErrICSEmpty
	}

	var resp *dto.ImportTimetableResponse
	err = s.ws.Update(func(st *State) (Change, error) {
		result := timetable.ReconcileRecords(parsed.Records, st.Courses)
		r, change, err := s.apply(st, result, clearExisting)
		resp = r
		return change, err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ICS 课表导入完成",
		zap.Int("applied", resp.Applied),
		zap.Int("skipped_events", parsed.Skipped),
		zap.Int("created_courses", len(resp.CreatedCourses)),
	)
	resp.Skipped = parsed.Skipped
	resp.Persisted = s.ws.Persisted()
	return resp, nil
}

// apply 在工作区锁内提交对账结果
func (s *timetableService) apply(st *State, result timetable.ReconcileResult, clearExisting bool) (*dto.ImportTimetableResponse, Change, error) {
	if !result.OK() {
		return nil, ChangeNone, rejectBatch(ErrImportRejected, result.Errors, s.previewLimit)
	}
	if len(result.Assignments) == 0 {
		return nil, ChangeNone, detailError(ErrImportRejected, "未找到有效的课程安排")
	}

	// 占位课程在全部物化成功后才并入课程列表
	assignments, created, err := timetable.Materialize(result, func(c model.Course) (model.Course, error) {
		return newCourse(timetable.CourseInput{
			Code:    c.Code,
			Name:    c.Name,
			Section: c.Section,
			Credits: c.Credits,
		}), nil
	})
	if err != nil {
		if errors.Is(err, timetable.ErrImportHasErrors) {
			return nil, ChangeNone, detailError(ErrImportRejected, result.Errors...)
		}
		return nil, ChangeNone, err
	}

	st.Courses = append(st.Courses, created...)
	if clearExisting {
		st.Store.Clear()
	}
	for _, a := range assignments {
		st.Store.Assign(a.SlotKey, a.Entry)
	}

	resp := &dto.ImportTimetableResponse{
		Applied:        len(assignments),
		CreatedCourses: make([]dto.CourseResponse, 0, len(created)),
	}
	for _, c := range created {
		resp.CreatedCourses = append(resp.CreatedCourses, dto.ToCourseResponse(c, true))
	}

	change := ChangeTimetable
	if len(created) > 0 {
		change |= ChangeCourses
	}
	return resp, change, nil
}
