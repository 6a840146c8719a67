package dto

import (
	"unisync/backend/internal/model"
	"unisync/backend/internal/timetable"
)

// ── 网格设置 DTO ──

// UpdateSettingsRequest 更新网格设置请求
type UpdateSettingsRequest struct {
	StartTime       string `json:"start_time"       binding:"required"`
	EndTime         string `json:"end_time"         binding:"required"`
	IntervalMinutes int    `json:"interval_minutes" binding:"required"`
}

// SettingsResponse 网格设置响应
type SettingsResponse struct {
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	IntervalMinutes int    `json:"interval_minutes"`
	SlotCount       int    `json:"slot_count"`
}

// UpdateSettingsResponse 更新设置结果，含课表迁移统计
type UpdateSettingsResponse struct {
	Settings  SettingsResponse          `json:"settings"`
	Changed   bool                      `json:"changed"`
	Migration timetable.MigrationReport `json:"migration"`
	Persisted bool                      `json:"persisted"`
}

// ToSettingsResponse model → 响应
func ToSettingsResponse(s model.TimetableSettings) SettingsResponse {
	return SettingsResponse{
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		IntervalMinutes: s.IntervalMinutes,
		SlotCount:       timetable.SlotCount(s),
	}
}
