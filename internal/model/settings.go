package model

// TimetableSettings 网格设置：起止时间与时间格长度
type TimetableSettings struct {
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	IntervalMinutes int    `json:"intervalMinutes"`
}

// DefaultSettings 出厂默认设置
func DefaultSettings() TimetableSettings {
	return TimetableSettings{
		StartTime:       "08:00",
		EndTime:         "17:00",
		IntervalMinutes: 60,
	}
}

// SameGrid 两份设置是否产生相同的时间格
func (s TimetableSettings) SameGrid(other TimetableSettings) bool {
	return s.StartTime == other.StartTime &&
		s.EndTime == other.EndTime &&
		s.IntervalMinutes == other.IntervalMinutes
}
