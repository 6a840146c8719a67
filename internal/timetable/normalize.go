package timetable

import (
	"bytes"
	"encoding/json"
	"fmt"

	"unisync/backend/internal/model"
)

// NormalizeReport 规范化过程中丢弃的数据统计
type NormalizeReport struct {
	DroppedKeys    int `json:"droppedKeys"`
	DroppedEntries int `json:"droppedEntries"`
}

// entryShape 持久化数据中每个格子的历史形态
type entryShape int

const (
	shapeUnknown entryShape = iota
	shapeBareID             // "course-id"
	shapeObject             // {"courseId": "..."}
	shapeArray              // [{"courseId": "..."}, ...]
)

func shapeOf(raw json.RawMessage) entryShape {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return shapeUnknown
	}
	switch trimmed[0] {
	case '"':
		return shapeBareID
	case '{':
		return shapeObject
	case '[':
		return shapeArray
	default:
		return shapeUnknown
	}
}

// NormalizeTimetable 将持久化的课表 Blob 规范化为 TimetableData
//
// 每个格子的值可能是三种历史形态之一：裸课程 ID 字符串、单个条目对象、条目数组。
// 不满足最小形态（courseId 存在且为字符串）的条目被丢弃；无法解析的键被丢弃；
// 同一格子内重复的 courseId 只保留第一条。整体不是 JSON 对象时返回错误，调用方应回退为空课表。
func NormalizeTimetable(raw []byte) (model.TimetableData, NormalizeReport, error) {
	var report NormalizeReport
	var slots map[string]json.RawMessage
	if err := json.Unmarshal(raw, &slots); err != nil {
		return model.TimetableData{}, report, fmt.Errorf("课表数据不是 JSON 对象: %w", err)
	}

	data := make(model.TimetableData, len(slots))
	for key, val := range slots {
		if _, ok := ParseKey(key); !ok {
			report.DroppedKeys++
			continue
		}

		entries, dropped := decodeSlot(val)
		report.DroppedEntries += dropped
		if len(entries) > 0 {
			data[key] = entries
		}
	}
	return data, report, nil
}

func decodeSlot(raw json.RawMessage) ([]model.TimetableEntry, int) {
	switch shapeOf(raw) {
	case shapeBareID:
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return nil, 1
		}
		return []model.TimetableEntry{{CourseID: id}}, 0
	case shapeObject:
		if e, ok := decodeEntry(raw); ok {
			return []model.TimetableEntry{e}, 0
		}
		return nil, 1
	case shapeArray:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, 1
		}
		entries := make([]model.TimetableEntry, 0, len(items))
		seen := make(map[string]bool, len(items))
		dropped := 0
		for _, item := range items {
			e, ok := decodeEntry(item)
			if !ok || seen[e.CourseID] {
				dropped++
				continue
			}
			seen[e.CourseID] = true
			entries = append(entries, e)
		}
		return entries, dropped
	default:
		// null、数字等
		return nil, 1
	}
}

// decodeEntry 最小形态检查：必须是对象且 courseId 为字符串；非字符串 classroom 被忽略
func decodeEntry(raw json.RawMessage) (model.TimetableEntry, bool) {
	if shapeOf(raw) != shapeObject {
		return model.TimetableEntry{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return model.TimetableEntry{}, false
	}
	idRaw, ok := fields["courseId"]
	if !ok || shapeOf(idRaw) != shapeBareID {
		return model.TimetableEntry{}, false
	}
	var e model.TimetableEntry
	if err := json.Unmarshal(idRaw, &e.CourseID); err != nil {
		return model.TimetableEntry{}, false
	}
	if roomRaw, ok := fields["classroom"]; ok && shapeOf(roomRaw) == shapeBareID {
		_ = json.Unmarshal(roomRaw, &e.Classroom)
	}
	return e, true
}
