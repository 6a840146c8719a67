package timetable

import (
	"sort"

	"unisync/backend/internal/model"
)

// MigrationReport 设置迁移结果统计（按条目计）
type MigrationReport struct {
	Kept    int `json:"kept"`    // 迁移到新格子的条目
	Merged  int `json:"merged"`  // 多个旧格子落到同一新格子时被去重的条目
	Dropped int `json:"dropped"` // 找不到 1 个新时间格以内的落点而丢弃的条目
}

// BuildTimeMapping 旧时间 → 新时间（与星期无关）
//
// 对 oldTimes 中的每个时间，取分钟差最小的新时间格；差值相同时取生成顺序中
// 最早的那个。最小差值超过新时间格长度时，该旧时间没有落点（不出现在结果中）。
func BuildTimeMapping(oldTimes []string, newSettings model.TimetableSettings) map[string]string {
	newSlots := GenerateSlots(newSettings)
	limit := effectiveInterval(newSettings.IntervalMinutes)

	mapping := make(map[string]string, len(oldTimes))
	for _, oldTime := range oldTimes {
		om, ok := ParseClock(oldTime)
		if !ok {
			continue
		}
		best, bestDiff := "", -1
		for _, candidate := range newSlots {
			nm, _ := ParseClock(candidate)
			diff := om - nm
			if diff < 0 {
				diff = -diff
			}
			if bestDiff < 0 || diff < bestDiff {
				best, bestDiff = candidate, diff
			}
		}
		if bestDiff >= 0 && bestDiff <= limit {
			mapping[oldTime] = best
		}
	}
	return mapping
}

// Migrate 网格设置变更时重新计算课表
//
// 旧时间序列取 oldSettings 生成的时间格；课表中不在旧网格上的时间（例如导入时写入的
// 非整格时间）同样参与就近映射。旧格子按 星期 → 时间 的顺序合并到新格子，同一课程
// 只保留最先到达的条目。返回全新的数据，不修改 old。
func Migrate(old model.TimetableData, oldSettings, newSettings model.TimetableSettings) (model.TimetableData, MigrationReport) {
	var report MigrationReport

	oldTimes := GenerateSlots(oldSettings)
	known := make(map[string]bool, len(oldTimes))
	for _, t := range oldTimes {
		known[t] = true
	}
	var offGrid []string
	for key := range old {
		if ref, ok := ParseKey(key); ok && !known[ref.Time] {
			known[ref.Time] = true
			offGrid = append(offGrid, ref.Time)
		}
	}
	sort.Strings(offGrid)
	mapping := BuildTimeMapping(append(oldTimes, offGrid...), newSettings)

	migrated := make(model.TimetableData)
	for _, key := range SortedKeys(old) {
		entries := old[key]
		ref, ok := ParseKey(key)
		if !ok {
			report.Dropped += len(entries)
			continue
		}
		if ref.Time, ok = mapping[ref.Time]; !ok {
			report.Dropped += len(entries)
			continue
		}

		newKey := ref.Key()
		dest := migrated[newKey]
		for _, e := range entries {
			if containsCourse(dest, e.CourseID) {
				report.Merged++
				continue
			}
			dest = append(dest, e)
			report.Kept++
		}
		if len(dest) > 0 {
			migrated[newKey] = dest
		}
	}
	return migrated, report
}

func containsCourse(entries []model.TimetableEntry, courseID string) bool {
	for _, e := range entries {
		if e.CourseID == courseID {
			return true
		}
	}
	return false
}
