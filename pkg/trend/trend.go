package trend

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/iWorld-y/paper_radar/pkg/llm"
	"github.com/iWorld-y/paper_radar/pkg/model"
)

// 英文词模式：字母开头、长度 >=3，允许内部连字符/加号/下划线/斜杠
var wordRe = regexp.MustCompile(`[A-Za-z][A-Za-z0-9\-\+_/]{2,}`)

// BuildBarKeywords 对解读集合做确定性的关键词频次聚合。
// 取 method/paradigm_relation 的英文词加相关性命中词，
// 频次除以最高频次归一化，榜首权重恒为 1.0。
func BuildBarKeywords(items []model.PaperAnalysis, topK int) []model.KeywordWeight {
	counter := make(map[string]int)
	var order []string
	for _, a := range items {
		text := a.Method + "\n" + a.ParadigmRelation + "\n" + strings.Join(a.Relevance.MatchedTerms, " ")
		for _, w := range wordRe.FindAllString(text, -1) {
			key := strings.ToLower(strings.TrimSpace(w))
			if len(key) < 3 {
				continue
			}
			if _, seen := counter[key]; !seen {
				order = append(order, key)
			}
			counter[key]++
		}
	}

	if len(counter) == 0 {
		return nil
	}

	// 频次相同按首次出现序，保证聚合结果确定
	sort.SliceStable(order, func(i, j int) bool {
		return counter[order[i]] > counter[order[j]]
	})
	if len(order) > topK {
		order = order[:topK]
	}

	maxV := float64(counter[order[0]])
	out := make([]model.KeywordWeight, 0, len(order))
	for _, k := range order {
		out = append(out, model.KeywordWeight{Keyword: k, Weight: float64(counter[k]) / maxV})
	}
	return out
}

// PeriodSummary 周期趋势的叙述部分
type PeriodSummary struct {
	StartDate string
	EndDate   string
	SummaryCN string
}

// SummarizePeriod 生成周期叙述。日期范围固定为 [今日-(7|30-1), 今日]，
// 与数据实际覆盖范围无关；无历史数据时直接返回占位文案，不调用后端。
func SummarizePeriod(client *llm.Client, period string, items []model.PaperAnalysis, loc *time.Location) (*PeriodSummary, error) {
	now := time.Now().In(loc)
	end := now.Format(time.DateOnly)
	days := 29
	if period == "week" {
		days = 6
	}
	start := now.AddDate(0, 0, -days).Format(time.DateOnly)

	if len(items) == 0 {
		return &PeriodSummary{
			StartDate: start,
			EndDate:   end,
			SummaryCN: "（该时间范围内暂无历史入选论文）",
		}, nil
	}

	bullets := make([]string, 0, len(items))
	for _, a := range items {
		bullets = append(bullets, fmt.Sprintf("%s: %s / %s", a.TitleEN, a.Method, a.ParadigmRelation))
	}
	summary, err := client.SummarizePeriodTrend(period, bullets, start, end)
	if err != nil {
		return nil, err
	}
	return &PeriodSummary{StartDate: start, EndDate: end, SummaryCN: summary}, nil
}
