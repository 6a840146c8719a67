package timetable

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"unisync/backend/internal/model"
)

const minutesPerDay = 24 * 60

// timePattern 24 小时制 HH:MM
var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// ErrInvalidSettings 网格设置不合法
var ErrInvalidSettings = errors.New("课表设置无效")

// ParseClock "HH:MM" → 当日分钟偏移
func ParseClock(s string) (int, bool) {
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return h*60 + mm, true
}

// FormatClock 当日分钟偏移 → "HH:MM"（超过 24h 时取模）
func FormatClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// effectiveInterval 步长最小为 1 分钟
func effectiveInterval(interval int) int {
	if interval < 1 {
		return 1
	}
	return interval
}

// GenerateSlots 生成一天内各时间格的开始时间
// 从 StartTime（含）到 EndTime（不含），步长 IntervalMinutes；时间非法时返回空序列
func GenerateSlots(settings model.TimetableSettings) []string {
	start, okStart := ParseClock(settings.StartTime)
	end, okEnd := ParseClock(settings.EndTime)
	if !okStart || !okEnd || start >= end {
		return []string{}
	}

	step := effectiveInterval(settings.IntervalMinutes)
	slots := make([]string, 0, (end-start+step-1)/step)
	for m := start; m < end; m += step {
		slots = append(slots, FormatClock(m))
	}
	return slots
}

// SlotCount 网格列数（与 GenerateSlots 的长度一致）
func SlotCount(settings model.TimetableSettings) int {
	return len(GenerateSlots(settings))
}

// ValidateSettings 校验网格设置：时间格式、起止顺序、列数上限
func ValidateSettings(settings model.TimetableSettings, maxSlots int) error {
	start, ok := ParseClock(settings.StartTime)
	if !ok {
		return fmt.Errorf("%w: 开始时间 '%s' 不是 HH:MM 格式", ErrInvalidSettings, settings.StartTime)
	}
	end, ok := ParseClock(settings.EndTime)
	if !ok {
		return fmt.Errorf("%w: 结束时间 '%s' 不是 HH:MM 格式", ErrInvalidSettings, settings.EndTime)
	}
	if start >= end {
		return fmt.Errorf("%w: 开始时间必须早于结束时间", ErrInvalidSettings)
	}
	if settings.IntervalMinutes < 1 {
		return fmt.Errorf("%w: 时间格长度必须为正整数分钟", ErrInvalidSettings)
	}
	if n := SlotCount(settings); maxSlots > 0 && n > maxSlots {
		return fmt.Errorf("%w: 每天 %d 个时间格超过上限 %d", ErrInvalidSettings, n, maxSlots)
	}
	return nil
}

// ── 展示格式 ──

type clockLabel struct {
	text   string // "8:00"
	period string // "AM" | "PM"
}

func labelOf(minutes int) clockLabel {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	h, m := minutes/60, minutes%60
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	display := h % 12
	if display == 0 {
		display = 12
	}
	return clockLabel{text: fmt.Sprintf("%d:%02d", display, m), period: period}
}

func slotBounds(time string, interval int) (clockLabel, clockLabel, bool) {
	start, ok := ParseClock(time)
	if !ok {
		return clockLabel{}, clockLabel{}, false
	}
	if interval <= 0 {
		interval = 60
	}
	return labelOf(start), labelOf(start + interval), true
}

// FormatRange "8:00 AM - 9:00 AM"
func FormatRange(time string, interval int) string {
	s, e, ok := slotBounds(time, interval)
	if !ok {
		return time
	}
	return fmt.Sprintf("%s %s - %s %s", s.text, s.period, e.text, e.period)
}

// FormatRangeShort 上下午相同："8:00 - 9:00 AM"；跨上下午："11:30 AM - 12:30 PM"
func FormatRangeShort(time string, interval int) string {
	s, e, ok := slotBounds(time, interval)
	if !ok {
		return time
	}
	if s.period == e.period {
		return fmt.Sprintf("%s - %s %s", s.text, e.text, s.period)
	}
	return fmt.Sprintf("%s %s - %s %s", s.text, s.period, e.text, e.period)
}
