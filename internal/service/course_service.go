package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"unisync/backend/config"
	"unisync/backend/internal/dto"
	"unisync/backend/internal/model"
	"unisync/backend/internal/timetable"
)

// CourseService 课程业务接口
type CourseService interface {
	Add(ctx context.Context, req *dto.CreateCourseRequest) (*dto.CourseResponse, error)
	Get(ctx context.Context, id string) (*dto.CourseResponse, error)
	List(ctx context.Context, req *dto.CourseListRequest) (*dto.CourseListResponse, error)
	// Delete 先从所有时间格移除该课程，再删除课程本身
	Delete(ctx context.Context, id string) (*dto.DeleteCourseResponse, error)
	// Clear 清空课程列表，同时清空课表
	Clear(ctx context.Context) (*dto.ClearResponse, error)
	// Import 批量导入课程：逐条校验，有效记录照常添加
	Import(ctx context.Context, jsonText string) (*dto.ImportCoursesResponse, error)
}

type courseService struct {
	ws           *Workspace
	previewLimit int
	logger       *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(cfg *config.Config, ws *Workspace, logger *zap.Logger) CourseService {
	return &courseService{
		ws:           ws,
		previewLimit: cfg.Import.ErrorPreviewLimit,
		logger:       logger,
	}
}

// newCourse 分配 ID
func newCourse(in timetable.CourseInput) model.Course {
	return model.Course{
		ID:        uuid.New().String(),
		Code:      in.Code,
		Name:      in.Name,
		Section:   in.Section,
		Credits:   in.Credits,
		Faculty:   in.Faculty,
		Classroom: in.Classroom,
	}
}

func hasIdentity(courses []model.Course, code, section string) bool {
	for _, c := range courses {
		if c.SameIdentity(code, section) {
			return true
		}
	}
	return false
}

// ────────────────────── Add ──────────────────────

func (s *courseService) Add(_ context.Context, req *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	if errs := timetable.ValidateCourse(req.Code, req.Name, req.Section, req.Credits); len(errs) > 0 {
		return nil, detailError(ErrCourseInvalid, errs...)
	}
	credits, _ := timetable.ParseCredits(req.Credits)
	in := timetable.NormalizeCourseInput(timetable.CourseInput{
		Code:      req.Code,
		Name:      req.Name,
		Section:   req.Section,
		Credits:   credits,
		Faculty:   req.Faculty,
		Classroom: req.Classroom,
	})

	var created model.Course
	err := s.ws.Update(func(st *State) (Change, error) {
		if hasIdentity(st.Courses, in.Code, in.Section) {
			return ChangeNone, ErrCourseDuplicate
		}
		created = newCourse(in)
		st.Courses = append(st.Courses, created)
		return ChangeCourses, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("课程已添加",
		zap.String("id", created.ID),
		zap.String("code", created.Code),
		zap.String("class", created.Section),
	)
	resp := dto.ToCourseResponse(created, false)
	return &resp, nil
}

// ────────────────────── Get ──────────────────────

func (s *courseService) Get(_ context.Context, id string) (*dto.CourseResponse, error) {
	var (
		resp  dto.CourseResponse
		found bool
	)
	s.ws.View(func(st *State) {
		c, ok := st.FindCourse(id)
		if !ok {
			return
		}
		found = true
		_, scheduled := st.Store.ScheduledCourseIDs()[c.ID]
		resp = dto.ToCourseResponse(c, scheduled)
	})
	if !found {
		return nil, ErrCourseNotFound
	}
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *courseService) List(_ context.Context, req *dto.CourseListRequest) (*dto.CourseListResponse, error) {
	var resp dto.CourseListResponse
	s.ws.View(func(st *State) {
		scheduled := st.Store.ScheduledCourseIDs()
		matched := timetable.FilterCourses(st.Courses, req.Query)

		resp.List = make([]dto.CourseResponse, 0, len(matched))
		for _, c := range matched {
			_, ok := scheduled[c.ID]
			resp.List = append(resp.List, dto.ToCourseResponse(c, ok))
		}
		resp.Total = len(resp.List)

		// 学分统计始终基于全部课程，不受搜索条件影响
		summary := timetable.AggregateCredits(st.Courses, st.Store.Snapshot())
		resp.TotalCredits = summary.Total
		resp.ScheduledCredits = summary.Scheduled
	})
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *courseService) Delete(_ context.Context, id string) (*dto.DeleteCourseResponse, error) {
	removed := 0
	err := s.ws.Update(func(st *State) (Change, error) {
		if _, ok := st.FindCourse(id); !ok {
			return ChangeNone, ErrCourseNotFound
		}
		removed = st.Store.UnassignEverywhere(id)

		kept := make([]model.Course, 0, len(st.Courses)-1)
		for _, c := range st.Courses {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		st.Courses = kept
		return ChangeCourses | ChangeTimetable, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("课程已删除", zap.String("id", id), zap.Int("removed_assignments", removed))
	return &dto.DeleteCourseResponse{
		ID:                 id,
		RemovedAssignments: removed,
		Persisted:          s.ws.Persisted(),
	}, nil
}

// ────────────────────── Clear ──────────────────────

func (s *courseService) Clear(_ context.Context) (*dto.ClearResponse, error) {
	var resp dto.ClearResponse
	_ = s.ws.Update(func(st *State) (Change, error) {
		resp.RemovedCourses = len(st.Courses)
		resp.RemovedAssignments = st.Store.Snapshot().EntryCount()
		st.Courses = []model.Course{}
		st.Store.Clear()
		return ChangeCourses | ChangeTimetable, nil
	})

	s.logger.Info("课程与课表已清空",
		zap.Int("courses", resp.RemovedCourses),
		zap.Int("assignments", resp.RemovedAssignments),
	)
	resp.Persisted = s.ws.Persisted()
	return &resp, nil
}

// ────────────────────── Import ──────────────────────

func (s *courseService) Import(_ context.Context, jsonText string) (*dto.ImportCoursesResponse, error) {
	batch, err := timetable.ParseCourseImport(jsonText)
	if err != nil {
		return nil, detailError(ErrCourseImportInvalid, err.Error())
	}
	if len(batch.Records) == 0 && len(batch.Errors) == 0 {
		return nil, detailError(ErrCourseImportInvalid, "未找到可导入的课程")
	}

	recordErrs := batch.Errors
	added := make([]model.Course, 0, len(batch.Records))
	_ = s.ws.Update(func(st *State) (Change, error) {
		for _, rec := range batch.Records {
			if hasIdentity(st.Courses, rec.Input.Code, rec.Input.Section) {
				recordErrs = append(recordErrs, timetable.RecordError{
					Index:   rec.Index,
					Message: fmt.Sprintf("添加失败: 课程 %s 班级 %s 已存在", rec.Input.Code, rec.Input.Section),
				})
				continue
			}
			c := newCourse(rec.Input)
			st.Courses = append(st.Courses, c)
			added = append(added, c)
		}
		if len(added) == 0 {
			return ChangeNone, nil
		}
		return ChangeCourses, nil
	})

	errs := timetable.FormatRecordErrors(recordErrs)
	s.logger.Info("课程批量导入完成", zap.Int("added", len(added)), zap.Int("errors", len(errs)))

	resp := &dto.ImportCoursesResponse{
		Added:        make([]dto.CourseResponse, 0, len(added)),
		AddedCount:   len(added),
		Errors:       errs,
		ErrorSummary: timetable.SummarizeErrors(errs, s.previewLimit),
		Persisted:    s.ws.Persisted(),
	}
	for _, c := range added {
		resp.Added = append(resp.Added, dto.ToCourseResponse(c, false))
	}
	return resp, nil
}
