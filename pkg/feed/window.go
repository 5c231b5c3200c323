package feed

import (
	"sort"
	"time"

	"github.com/iWorld-y/paper_radar/pkg/model"
)

// HarvestResult 窗口选择结果：报告日期、取材范围与该日期的候选集
type HarvestResult struct {
	ReportDate       string // YYYY-MM-DD
	SourceRangeStart string // ISO
	SourceRangeEnd   string // ISO
	Candidates       []model.PaperCandidate
}

// WindowPolicy 窗口选择策略
type WindowPolicy struct {
	Mode            string // latest_update_day | fixed_window
	TimeWindowHours int
	LookbackDays    int
	DateOverride    string // 为空时自动选择
}

// SelectWindow 把一批乱序候选确定性地归到一个报告日期和取材范围。
// 同一批输入加同一个 now 必然得到同一结果。
func SelectWindow(now time.Time, batch []model.PaperCandidate, loc *time.Location, policy WindowPolicy) HarvestResult {
	now = now.In(loc)

	if len(batch) == 0 {
		return HarvestResult{
			ReportDate:       now.Format(time.DateOnly),
			SourceRangeStart: now.Format(time.RFC3339),
			SourceRangeEnd:   now.Format(time.RFC3339),
			Candidates:       nil,
		}
	}

	if policy.Mode == "fixed_window" {
		start := now.Add(-time.Duration(policy.TimeWindowHours) * time.Hour)
		var kept []model.PaperCandidate
		for _, c := range batch {
			t, ok := parsePublishDate(c.PublishDate)
			if !ok {
				continue
			}
			if !t.Before(start) {
				kept = append(kept, c)
			}
		}
		return HarvestResult{
			ReportDate:       now.Format(time.DateOnly),
			SourceRangeStart: start.Format(time.RFC3339),
			SourceRangeEnd:   now.Format(time.RFC3339),
			Candidates:       kept,
		}
	}

	// latest_update_day：按本地日历日分桶
	buckets := make(map[string][]model.PaperCandidate)
	var dates []string
	for _, c := range batch {
		t, ok := parsePublishDate(c.PublishDate)
		if !ok {
			continue
		}
		day := t.In(loc).Format(time.DateOnly)
		if _, seen := buckets[day]; !seen {
			dates = append(dates, day)
		}
		buckets[day] = append(buckets[day], c)
	}

	if len(buckets) == 0 {
		return HarvestResult{
			ReportDate:       now.Format(time.DateOnly),
			SourceRangeStart: now.Format(time.RFC3339),
			SourceRangeEnd:   now.Format(time.RFC3339),
			Candidates:       nil,
		}
	}

	sortDatesDesc(dates)

	if policy.DateOverride != "" {
		// 显式指定日期直接短路分桶选择；当天无数据也不报错，返回空候选集
		return dayResult(policy.DateOverride, buckets[policy.DateOverride], loc)
	}

	newest, _ := time.ParseInLocation(time.DateOnly, dates[0], loc)
	chosen := ""
	for _, d := range dates {
		dt, err := time.ParseInLocation(time.DateOnly, d, loc)
		if err != nil {
			continue
		}
		if int(newest.Sub(dt).Hours()/24) <= policy.LookbackDays {
			chosen = d
			break
		}
	}
	if chosen == "" {
		chosen = dates[0]
	}
	return dayResult(chosen, buckets[chosen], loc)
}

// dayResult 构造指定日期的整日范围结果
func dayResult(day string, candidates []model.PaperCandidate, loc *time.Location) HarvestResult {
	start, _ := time.ParseInLocation(time.DateOnly, day, loc)
	end := start.Add(24*time.Hour - time.Second)
	return HarvestResult{
		ReportDate:       day,
		SourceRangeStart: start.Format(time.RFC3339),
		SourceRangeEnd:   end.Format(time.RFC3339),
		Candidates:       candidates,
	}
}

// parsePublishDate 解析 ISO-8601 时间戳，缺时区按 UTC 处理
func parsePublishDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// sortDatesDesc 日期字符串倒序（YYYY-MM-DD 字典序即时间序）
func sortDatesDesc(dates []string) {
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
}
