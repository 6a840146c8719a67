package timetable

import (
	"strings"

	"unisync/backend/internal/model"
)

// FilterCourses 按代码、名称、班级、教师模糊搜索（忽略大小写）；空查询返回全部
func FilterCourses(courses []model.Course, query string) []model.Course {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return courses
	}
	out := make([]model.Course, 0, len(courses))
	for _, c := range courses {
		if strings.Contains(strings.ToLower(c.Code), q) ||
			strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Section), q) ||
			strings.Contains(strings.ToLower(c.Faculty), q) {
			out = append(out, c)
		}
	}
	return out
}
