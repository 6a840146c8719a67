package timetable

import (
	"sort"
	"strings"

	"unisync/backend/internal/model"
)

// keyDelimiter Day 取值中不含 "-"，HH:MM 中也不含，因此无需转义
const keyDelimiter = "-"

// SlotRef 解析后的时间格坐标
type SlotRef struct {
	Day  model.DayOfWeek `json:"day"`
	Time string          `json:"time"`
}

// Key 还原为 SlotKey
func (r SlotRef) Key() string {
	return MakeKey(r.Day, r.Time)
}

// MakeKey 生成时间格键 "<Day>-<HH:MM>"
func MakeKey(day model.DayOfWeek, time string) string {
	return string(day) + keyDelimiter + time
}

// ParseKey 解析时间格键
//
// 在第一个分隔符处切分，其余部分整体作为时间；星期必须属于五个工作日，
// 时间必须匹配 24 小时制 HH:MM。任何不匹配都返回 ok=false，不会 panic，
// 读取可能已损坏的持久化数据时调用方应直接跳过该键。
func ParseKey(key string) (SlotRef, bool) {
	day, rest, found := strings.Cut(key, keyDelimiter)
	if !found {
		return SlotRef{}, false
	}
	d := model.DayOfWeek(day)
	if !d.IsValid() || !timePattern.MatchString(rest) {
		return SlotRef{}, false
	}
	return SlotRef{Day: d, Time: rest}, true
}

// SortKeys 按 星期 → 时间 排序；无法解析的键排在最后并保持字典序
func SortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		ri, okI := ParseKey(keys[i])
		rj, okJ := ParseKey(keys[j])
		switch {
		case okI && okJ:
			if ri.Day != rj.Day {
				return ri.Day.Index() < rj.Day.Index()
			}
			return ri.Time < rj.Time
		case okI != okJ:
			return okI
		default:
			return keys[i] < keys[j]
		}
	})
}

// SortedKeys 返回 data 中所有键的有序副本
func SortedKeys(data model.TimetableData) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	SortKeys(keys)
	return keys
}
