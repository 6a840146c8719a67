package timetable

import "unisync/backend/internal/model"

// CreditSummary 学分统计
type CreditSummary struct {
	Total     int `json:"totalCredits"`
	Scheduled int `json:"scheduledCredits"`
}

// AggregateCredits Total 为全部课程学分之和；Scheduled 为至少出现在一个格子中的
// 课程学分之和，每门课程只计一次
func AggregateCredits(courses []model.Course, data model.TimetableData) CreditSummary {
	scheduled := ScheduledCourseIDs(data)

	var summary CreditSummary
	for _, c := range courses {
		summary.Total += c.Credits
		if _, ok := scheduled[c.ID]; ok {
			summary.Scheduled += c.Credits
		}
	}
	return summary
}
