package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"unisync/backend/internal/model"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：将标准 iCalendar (RFC 5545) 内容解析为课表导入记录，交给同一个对账器。
//
//   - DTSTART 确定星期与开始时间；周末事件计入 Skipped
//   - SUMMARY 首个词为课程代码，其余为课程名称
//   - LOCATION → classroom；X-UNISYNC-SECTION → section（本服务导出的日历带有该属性）
//   - 同一课程在同一星期同一时间的多个事件（重复实例）只保留一条
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
)

// propertySection 导出时写入的班级属性
const propertySection = ics.ComponentProperty("X-UNISYNC-SECTION")

// ICSParseResult ICS 解析结果
type ICSParseResult struct {
	Records []map[string]any
	Skipped int
}

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return nil, fmt.Errorf("%w: 仅支持 http、https 与 webcal 协议", ErrICSFetchFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrICSFetchFailed, err)
	}
	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrICSFetchFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d", ErrICSFetchFailed, resp.StatusCode)
	}
	// 限制响应体大小，防止恶意 URL 返回超大内容导致 OOM
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseICS 解析 ICS 内容为课表导入记录
// loc 为浮动时间（无 Z 后缀且无 TZID）所用的时区，UTC 时间也会转换到该时区
func ParseICS(reader io.Reader, loc *time.Location) (ICSParseResult, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return ICSParseResult{}, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	result := ICSParseResult{Records: []map[string]any{}}
	seen := make(map[string]bool)
	for _, evt := range cal.Events() {
		rec, key, ok := parseVEvent(evt, loc)
		if !ok {
			result.Skipped++
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

// parseVEvent 解析单个 VEVENT，返回导入记录与去重键
func parseVEvent(evt *ics.VEvent, loc *time.Location) (map[string]any, string, bool) {
	summary := propertyValue(evt, ics.ComponentPropertySummary)
	if summary == "" {
		return nil, "", false
	}
	code, name := splitSummary(summary)

	dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return nil, "", false
	}
	day, ok := weekdayOf(dtStart.Weekday())
	if !ok {
		return nil, "", false
	}
	startTime := dtStart.Format("15:04")
	section := strings.ToUpper(propertyValue(evt, propertySection))

	rec := map[string]any{
		"day":        string(day),
		"time":       startTime,
		"courseCode": code,
	}
	if name != "" {
		rec["courseName"] = name
	}
	if section != "" {
		rec["section"] = section
	}
	if room := propertyValue(evt, ics.ComponentPropertyLocation); room != "" {
		rec["classroom"] = room
	}

	key := strings.Join([]string{string(day), startTime, strings.ToUpper(code), section}, "|")
	return rec, key, true
}

func propertyValue(evt *ics.VEvent, prop ics.ComponentProperty) string {
	p := evt.GetProperty(prop)
	if p == nil {
		return ""
	}
	return strings.TrimSpace(unescapeText(p.Value))
}

// unescapeText 还原 RFC 5545 TEXT 转义
func unescapeText(s string) string {
	return strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`).Replace(s)
}

// splitSummary "CS101 Intro to CS" → ("CS101", "Intro to CS")；允许 "CS101 - Intro" 形式
func splitSummary(summary string) (string, string) {
	code, rest, _ := strings.Cut(strings.TrimSpace(summary), " ")
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "-"))
	return strings.ToUpper(code), rest
}

// weekdayOf time.Weekday → 工作日；周末返回 false
func weekdayOf(wd time.Weekday) (model.DayOfWeek, bool) {
	if wd < time.Monday || wd > time.Friday {
		return "", false
	}
	return model.Days[int(wd)-1], true
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("缺少属性 %s", propName)
	}
	val := prop.Value

	// 全天事件没有开始时间，不能落到时间格
	layouts := []string{
		"20060102T150405Z",
		"20060102T150405",
	}

	// 检查 TZID 参数
	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range layouts {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}
