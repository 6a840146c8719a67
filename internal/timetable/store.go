package timetable

import "unisync/backend/internal/model"

// Store 课表状态：SlotKey → 课程安排列表
//
// 不变式：
//   - 格子无课时键被删除，不保留空列表
//   - 同一格子内 CourseID 唯一；列表长度 > 1 表示有意保留的冲突
//
// Store 不检查 CourseID 是否存在，导入时允许延迟解析；孤儿条目由 PurgeOrphans 清理。
type Store struct {
	data model.TimetableData
}

// NewStore 以已有数据创建 Store（数据所有权转移给 Store）
func NewStore(data model.TimetableData) *Store {
	if data == nil {
		data = make(model.TimetableData)
	}
	return &Store{data: data}
}

// Snapshot 当前状态的深拷贝
func (s *Store) Snapshot() model.TimetableData {
	return s.data.Clone()
}

// Replace 整体替换状态（设置迁移、导入提交时使用）
func (s *Store) Replace(data model.TimetableData) {
	if data == nil {
		data = make(model.TimetableData)
	}
	s.data = data
}

// Len 已占用的格子数
func (s *Store) Len() int {
	return len(s.data)
}

// Entries 某格子的条目副本
func (s *Store) Entries(key string) []model.TimetableEntry {
	entries := s.data[key]
	out := make([]model.TimetableEntry, len(entries))
	copy(out, entries)
	return out
}

// Assign 安排课程到格子
// 该格已有同一课程时原位更新教室（保持列表位置），否则追加
func (s *Store) Assign(key string, entry model.TimetableEntry) {
	entries := s.data[key]
	for i := range entries {
		if entries[i].CourseID == entry.CourseID {
			entries[i].Classroom = entry.Classroom
			return
		}
	}
	s.data[key] = append(entries, entry)
}

// Unassign 从格子移除课程；列表变空时删除该键
func (s *Store) Unassign(key, courseID string) bool {
	entries, ok := s.data[key]
	if !ok {
		return false
	}
	filtered, removed := without(entries, courseID)
	if removed == 0 {
		return false
	}
	s.set(key, filtered)
	return true
}

// UnassignEverywhere 从所有格子移除课程，返回移除的条目数
func (s *Store) UnassignEverywhere(courseID string) int {
	total := 0
	for key, entries := range s.data {
		filtered, removed := without(entries, courseID)
		if removed > 0 {
			total += removed
			s.set(key, filtered)
		}
	}
	return total
}

// Move 将课程从 from 格移到 to 格，沿用原条目的教室覆盖值
// from == to 或 from 格中没有该课程时不做任何修改
func (s *Store) Move(from, to, courseID string) bool {
	if from == to {
		return false
	}
	var moving *model.TimetableEntry
	for _, e := range s.data[from] {
		if e.CourseID == courseID {
			e := e
			moving = &e
			break
		}
	}
	if moving == nil {
		return false
	}
	s.Assign(to, *moving)
	s.Unassign(from, courseID)
	return true
}

// Clear 清空课表
func (s *Store) Clear() {
	s.data = make(model.TimetableData)
}

// PurgeOrphans 移除引用不存在课程的条目，返回清理的条目数
// 对同一个 live 集合重复执行结果不变
func (s *Store) PurgeOrphans(live map[string]struct{}) int {
	total := 0
	for key, entries := range s.data {
		kept := entries[:0:0]
		for _, e := range entries {
			if _, ok := live[e.CourseID]; ok {
				kept = append(kept, e)
			}
		}
		if removed := len(entries) - len(kept); removed > 0 {
			total += removed
			s.set(key, kept)
		}
	}
	return total
}

// ScheduledCourseIDs 至少出现在一个格子中的课程 ID 集合
func (s *Store) ScheduledCourseIDs() map[string]struct{} {
	return ScheduledCourseIDs(s.data)
}

func (s *Store) set(key string, entries []model.TimetableEntry) {
	if len(entries) == 0 {
		delete(s.data, key)
		return
	}
	s.data[key] = entries
}

func without(entries []model.TimetableEntry, courseID string) ([]model.TimetableEntry, int) {
	out := make([]model.TimetableEntry, 0, len(entries))
	for _, e := range entries {
		if e.CourseID != courseID {
			out = append(out, e)
		}
	}
	return out, len(entries) - len(out)
}

// CourseIDSet 课程列表 → ID 集合
func CourseIDSet(courses []model.Course) map[string]struct{} {
	set := make(map[string]struct{}, len(courses))
	for _, c := range courses {
		set[c.ID] = struct{}{}
	}
	return set
}

// ScheduledCourseIDs 课表中出现过的课程 ID 集合
func ScheduledCourseIDs(data model.TimetableData) map[string]struct{} {
	set := make(map[string]struct{})
	for _, entries := range data {
		for _, e := range entries {
			set[e.CourseID] = struct{}{}
		}
	}
	return set
}
