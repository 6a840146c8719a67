package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"unisync/backend/internal/model"
	"unisync/backend/internal/timetable"
	pkgerrors "unisync/backend/pkg/errors"
)

// 持久化键（固定，可通过 storage.key_prefix 加命名空间）
const (
	KeyCourses   = "timetable_courses"
	KeyTimetable = "timetable_data"
	KeySettings  = "timetable_settings"
)

// StateRepository 工作区状态的类型化读写端口
//
// Load 系列从不返回错误：键不存在使用默认值，数据损坏使用默认值并记录日志。
// Save 系列返回是否写入成功，失败时已记录日志，调用方只需决定是否提示。
type StateRepository interface {
	LoadCourses(ctx context.Context) []model.Course
	LoadTimetable(ctx context.Context) model.TimetableData
	LoadSettings(ctx context.Context) model.TimetableSettings
	SaveCourses(ctx context.Context, courses []model.Course) bool
	SaveTimetable(ctx context.Context, data model.TimetableData) bool
	SaveSettings(ctx context.Context, settings model.TimetableSettings) bool
}

type stateRepo struct {
	blobs    BlobRepository
	prefix   string
	defaults model.TimetableSettings
	maxSlots int
	logger   *zap.Logger
}

// NewStateRepository 创建状态仓储
// defaults 为设置缺失或损坏时的回退值
func NewStateRepository(blobs BlobRepository, prefix string, defaults model.TimetableSettings, maxSlots int, logger *zap.Logger) StateRepository {
	return &stateRepo{
		blobs:    blobs,
		prefix:   prefix,
		defaults: defaults,
		maxSlots: maxSlots,
		logger:   logger,
	}
}

func (r *stateRepo) key(name string) string {
	return r.prefix + name
}

// read 读取原始 Blob；不存在返回 nil, false
func (r *stateRepo) read(ctx context.Context, name string) ([]byte, bool) {
	raw, err := r.blobs.Get(ctx, r.key(name))
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrBlobNotFound) {
			r.logger.Error("读取持久化数据失败，使用默认值", zap.String("key", r.key(name)), zap.Error(err))
		}
		return nil, false
	}
	return raw, true
}

func (r *stateRepo) write(ctx context.Context, name string, value any) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		r.logger.Error("序列化持久化数据失败", zap.String("key", r.key(name)), zap.Error(err))
		return false
	}
	if err := r.blobs.Put(ctx, r.key(name), raw); err != nil {
		r.logger.Error("写入持久化数据失败", zap.String("key", r.key(name)), zap.Error(err))
		return false
	}
	return true
}

// ────── Courses ──────

func (r *stateRepo) LoadCourses(ctx context.Context) []model.Course {
	raw, ok := r.read(ctx, KeyCourses)
	if !ok {
		return []model.Course{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		r.logger.Warn("课程数据损坏，使用空列表", zap.Error(err))
		return []model.Course{}
	}

	courses := make([]model.Course, 0, len(items))
	seen := make(map[string]bool, len(items))
	skipped := 0
	for _, item := range items {
		var c model.Course
		if err := json.Unmarshal(item, &c); err != nil || c.ID == "" {
			skipped++
			continue
		}
		if c.Credits < timetable.MinCredits || c.Credits > timetable.MaxCredits {
			r.logger.Warn("跳过学分越界的课程", zap.String("id", c.ID), zap.Int("credits", c.Credits))
			skipped++
			continue
		}
		// (code, section) 重复时保留先出现的一条
		identity := strings.ToUpper(strings.TrimSpace(c.Code)) + "\x00" + strings.ToUpper(strings.TrimSpace(c.Section))
		if seen[identity] {
			r.logger.Warn("跳过重复的课程",
				zap.String("id", c.ID), zap.String("code", c.Code), zap.String("section", c.Section))
			skipped++
			continue
		}
		seen[identity] = true
		courses = append(courses, c)
	}
	if skipped > 0 {
		r.logger.Warn("跳过损坏的课程记录", zap.Int("skipped", skipped))
	}
	return courses
}

func (r *stateRepo) SaveCourses(ctx context.Context, courses []model.Course) bool {
	if courses == nil {
		courses = []model.Course{}
	}
	return r.write(ctx, KeyCourses, courses)
}

// ────── Timetable ──────

func (r *stateRepo) LoadTimetable(ctx context.Context) model.TimetableData {
	raw, ok := r.read(ctx, KeyTimetable)
	if !ok {
		return model.TimetableData{}
	}
	data, report, err := timetable.NormalizeTimetable(raw)
	if err != nil {
		r.logger.Warn("课表数据损坏，使用空课表", zap.Error(err))
		return model.TimetableData{}
	}
	if report.DroppedKeys > 0 || report.DroppedEntries > 0 {
		r.logger.Warn("课表数据已规范化",
			zap.Int("dropped_keys", report.DroppedKeys),
			zap.Int("dropped_entries", report.DroppedEntries),
		)
	}
	return data
}

func (r *stateRepo) SaveTimetable(ctx context.Context, data model.TimetableData) bool {
	if data == nil {
		data = model.TimetableData{}
	}
	return r.write(ctx, KeyTimetable, data)
}

// ────── Settings ──────

func (r *stateRepo) LoadSettings(ctx context.Context) model.TimetableSettings {
	raw, ok := r.read(ctx, KeySettings)
	if !ok {
		return r.defaults
	}
	var settings model.TimetableSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		r.logger.Warn("课表设置损坏，使用默认设置", zap.Error(err))
		return r.defaults
	}
	if err := timetable.ValidateSettings(settings, r.maxSlots); err != nil {
		r.logger.Warn("课表设置无效，使用默认设置", zap.Error(err))
		return r.defaults
	}
	return settings
}

func (r *stateRepo) SaveSettings(ctx context.Context, settings model.TimetableSettings) bool {
	return r.write(ctx, KeySettings, settings)
}
