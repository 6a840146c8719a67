package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"unisync/backend/internal/model"
	"unisync/backend/internal/repository"
)

// Change 一次修改涉及的状态部分
type Change uint8

const (
	ChangeCourses Change = 1 << iota
	ChangeTimetable
	ChangeSettings

	ChangeNone Change = 0
)

// snapshot 待写入的状态副本
type snapshot struct {
	courses   []model.Course
	timetable model.TimetableData
	settings  model.TimetableSettings
}

// Persister 防抖写入：最后一次修改后 delay 才写入，期间的修改合并为一次
//
// delay 为 0 时同步写入。写入失败的部分保留待写入状态，随下一次写入重试，
// 工作区继续在内存中运行。Healthy 反映最近一次写入是否全部成功。
type Persister struct {
	state  repository.StateRepository
	delay  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	dirty   Change
	pending snapshot
	healthy bool

	// flushMu 串行化写入，保证后提交的快照不会被先提交的覆盖
	flushMu sync.Mutex
}

// NewPersister 创建 Persister
func NewPersister(state repository.StateRepository, delay time.Duration, logger *zap.Logger) *Persister {
	return &Persister{
		state:   state,
		delay:   delay,
		logger:  logger,
		healthy: true,
	}
}

// Schedule 登记待写入的快照并重置防抖计时
func (p *Persister) Schedule(change Change, snap snapshot) {
	if change == ChangeNone {
		return
	}

	p.mu.Lock()
	p.dirty |= change
	if change&ChangeCourses != 0 {
		p.pending.courses = snap.courses
	}
	if change&ChangeTimetable != 0 {
		p.pending.timetable = snap.timetable
	}
	if change&ChangeSettings != 0 {
		p.pending.settings = snap.settings
	}

	if p.delay <= 0 {
		p.mu.Unlock()
		p.Flush(context.Background())
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.delay, func() {
		p.Flush(context.Background())
	})
	p.mu.Unlock()
}

// Flush 立即写入所有待写入的部分，返回是否全部成功
func (p *Persister) Flush(ctx context.Context) bool {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	dirty, pending := p.dirty, p.pending
	p.dirty = ChangeNone
	p.pending = snapshot{}
	p.mu.Unlock()

	if dirty == ChangeNone {
		return p.Healthy()
	}

	failed := ChangeNone
	if dirty&ChangeCourses != 0 && !p.state.SaveCourses(ctx, pending.courses) {
		failed |= ChangeCourses
	}
	if dirty&ChangeTimetable != 0 && !p.state.SaveTimetable(ctx, pending.timetable) {
		failed |= ChangeTimetable
	}
	if dirty&ChangeSettings != 0 && !p.state.SaveSettings(ctx, pending.settings) {
		failed |= ChangeSettings
	}
	ok := failed == ChangeNone

	p.mu.Lock()
	p.requeueLocked(failed, pending)
	p.healthy = ok
	p.mu.Unlock()

	if !ok {
		p.logger.Warn("状态写入失败，修改仅保留在内存中")
	}
	return ok
}

// requeueLocked 写入失败的部分重新登记，下一次 Flush 重试
// 期间已登记更新快照的部分以新快照为准
func (p *Persister) requeueLocked(failed Change, snap snapshot) {
	if failed&ChangeCourses != 0 && p.dirty&ChangeCourses == 0 {
		p.pending.courses = snap.courses
		p.dirty |= ChangeCourses
	}
	if failed&ChangeTimetable != 0 && p.dirty&ChangeTimetable == 0 {
		p.pending.timetable = snap.timetable
		p.dirty |= ChangeTimetable
	}
	if failed&ChangeSettings != 0 && p.dirty&ChangeSettings == 0 {
		p.pending.settings = snap.settings
		p.dirty |= ChangeSettings
	}
}

// Healthy 最近一次写入是否成功
func (p *Persister) Healthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy
}
