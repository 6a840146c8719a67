package service

import (
	"context"

	"go.uber.org/zap"

	"unisync/backend/config"
	"unisync/backend/internal/dto"
	"unisync/backend/internal/model"
	"unisync/backend/internal/timetable"
)

// SettingsService 网格设置业务接口
type SettingsService interface {
	Get(ctx context.Context) (*dto.SettingsResponse, error)
	// Update 校验 → 迁移课表 → 提交；网格不变时不做任何修改
	Update(ctx context.Context, req *dto.UpdateSettingsRequest) (*dto.UpdateSettingsResponse, error)
}

type settingsService struct {
	ws       *Workspace
	maxSlots int
	logger   *zap.Logger
}

// NewSettingsService 创建 SettingsService 实例
func NewSettingsService(cfg *config.Config, ws *Workspace, logger *zap.Logger) SettingsService {
	return &settingsService{
		ws:       ws,
		maxSlots: cfg.Schedule.MaxSlots,
		logger:   logger,
	}
}

func (s *settingsService) Get(_ context.Context) (*dto.SettingsResponse, error) {
	var resp dto.SettingsResponse
	s.ws.View(func(st *State) {
		resp = dto.ToSettingsResponse(st.Settings)
	})
	return &resp, nil
}

func (s *settingsService) Update(_ context.Context, req *dto.UpdateSettingsRequest) (*dto.UpdateSettingsResponse, error) {
	next := model.TimetableSettings{
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		IntervalMinutes: req.IntervalMinutes,
	}
	if err := timetable.ValidateSettings(next, s.maxSlots); err != nil {
		return nil, err
	}

	resp := &dto.UpdateSettingsResponse{Settings: dto.ToSettingsResponse(next)}
	var previous model.TimetableSettings
	_ = s.ws.Update(func(st *State) (Change, error) {
		previous = st.Settings
		if st.Settings.SameGrid(next) {
			return ChangeNone, nil
		}

		migrated, report := timetable.Migrate(st.Store.Snapshot(), st.Settings, next)
		st.Store.Replace(migrated)
		st.Settings = next
		resp.Changed = true
		resp.Migration = report
		return ChangeSettings | ChangeTimetable, nil
	})

	if resp.Changed {
		s.logger.Info("网格设置已更新，课表已迁移",
			zap.String("from", previous.StartTime+"-"+previous.EndTime),
			zap.String("to", next.StartTime+"-"+next.EndTime),
			zap.Int("interval_minutes", next.IntervalMinutes),
			zap.Int("kept", resp.Migration.Kept),
			zap.Int("merged", resp.Migration.Merged),
			zap.Int("dropped", resp.Migration.Dropped),
		)
	}
	resp.Persisted = s.ws.Persisted()
	return resp, nil
}
