package model

import "fmt"

// PaperCandidate 一篇待判定的候选论文，抓取后不再修改
type PaperCandidate struct {
	ID              string   `json:"id"`
	TitleEN         string   `json:"title_en"`
	Authors         []string `json:"authors"`
	URL             string   `json:"url"`
	PublishDate     string   `json:"publish_date"` // ISO-8601
	Categories      []string `json:"categories"`
	PrimaryCategory string   `json:"primary_category"`
	Abstract        string   `json:"abstract"`
}

// RelevanceJudgement 单篇论文的相关性判定结果
type RelevanceJudgement struct {
	IsRelevant     bool     `json:"is_relevant"`
	RelevanceScore int      `json:"relevance_score"`
	MatchedTerms   []string `json:"matched_terms"`
	ReasonCN       string   `json:"reason_cn"`
}

// Validate 校验判定结果字段范围
func (j *RelevanceJudgement) Validate() error {
	if j.RelevanceScore < 0 || j.RelevanceScore > 100 {
		return fmt.Errorf("relevance_score 越界: %d (应在 0-100)", j.RelevanceScore)
	}
	return nil
}

// PaperAnalysis 入选论文的结构化解读
type PaperAnalysis struct {
	ID              string   `json:"id"`
	TitleEN         string   `json:"title_en"`
	TitleCN         string   `json:"title_cn"`
	Authors         []string `json:"authors"`
	URL             string   `json:"url"`
	PublishDate     string   `json:"publish_date"`
	PrimaryCategory string   `json:"primary_category"`

	Motivation       string `json:"motivation"`
	Method           string `json:"method"`
	ParadigmRelation string `json:"paradigm_relation"`
	Score            int    `json:"score"`

	Relevance RelevanceJudgement `json:"relevance"`
}

// Validate 校验解读结果字段范围
func (a *PaperAnalysis) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("id 不能为空")
	}
	if a.Score < 1 || a.Score > 5 {
		return fmt.Errorf("score 越界: %d (应在 1-5)", a.Score)
	}
	return a.Relevance.Validate()
}

// KeywordWeight 归一化后的关键词权重，权重最高者恒为 1.0
type KeywordWeight struct {
	Keyword string  `json:"keyword"`
	Weight  float64 `json:"weight"`
}

// PeriodTrend 周期趋势（周/月）
type PeriodTrend struct {
	Period    string          `json:"period"` // week | month
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	SummaryCN string          `json:"summary_cn"`
	Keywords  []KeywordWeight `json:"keywords"`
	ChartPath string          `json:"chart_path,omitempty"`
}

// AttentionSignal 论文热度信号（预留）
type AttentionSignal struct {
	Source    string  `json:"source"` // e.g. semantic_scholar
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	FetchedAt string  `json:"fetched_at"`
}

// SpotlightItem 高热度论文条目（预留，当前报告中恒为空）
type SpotlightItem struct {
	PaperID        string            `json:"paper_id"`
	AttentionScore int               `json:"attention_score"`
	Signals        []AttentionSignal `json:"signals"`
	IntroCN        string            `json:"intro_cn"`
}

// DailyReport 每日完整报告
type DailyReport struct {
	Date             string `json:"date"`
	GeneratedAt      string `json:"generated_at"`
	SourceRangeStart string `json:"source_range_start"`
	SourceRangeEnd   string `json:"source_range_end"`

	Domain     string   `json:"domain"`
	Categories []string `json:"categories"`
	Keywords   []string `json:"keywords"`

	GlobalTrend string          `json:"global_trend"`
	Papers      []PaperAnalysis `json:"papers"`

	WeeklyTrend  *PeriodTrend    `json:"weekly_trend,omitempty"`
	MonthlyTrend *PeriodTrend    `json:"monthly_trend,omitempty"`
	Spotlight    []SpotlightItem `json:"spotlight"`
}
