package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/paper_radar/pkg/archive"
	"github.com/iWorld-y/paper_radar/pkg/config"
	"github.com/iWorld-y/paper_radar/pkg/feed"
	"github.com/iWorld-y/paper_radar/pkg/llm"
	"github.com/iWorld-y/paper_radar/pkg/logger"
	"github.com/iWorld-y/paper_radar/pkg/model"
	"github.com/iWorld-y/paper_radar/pkg/render"
	"github.com/iWorld-y/paper_radar/pkg/trend"
)

// Event 管线进度事件。阶段按执行顺序观察，同阶段 Done 单调不减。
type Event struct {
	Stage   string
	Message string
	Done    int
	Total   int
}

// Options 单次运行选项
type Options struct {
	OutRoot     string
	DBPath      string
	DateArg     string // auto 或 YYYY-MM-DD
	MaxResults  int    // 0 表示取配置值
	MaxSelected int
	DryRun      bool
	HTMLOnly    bool
	PDFOnly     bool
	OnProgress  func(Event)
}

// Result 单次运行产物
type Result struct {
	ReportDate string
	OutDir     string
	HTMLPath   string
	PDFPath    string
	DBPath     string
	RunID      string
}

// Pipeline 串联 抓取 → 预筛 → 判定 → 解读 → 归档 → 趋势 → 渲染 的编排器。
// 各阶段顺序执行，阶段内逐条发起 LLM 调用，同一时刻至多一个在途请求。
type Pipeline struct {
	cfg     *config.Config
	fetcher feed.Fetcher
}

// New 创建管线
func New(cfg *config.Config, fetcher feed.Fetcher) *Pipeline {
	return &Pipeline{cfg: cfg, fetcher: fetcher}
}

// debugPayload 预判定候选快照，判定完成后补写判定结果与入选 ID
type debugPayload struct {
	ReportDate       string                     `json:"report_date"`
	GeneratedAt      string                     `json:"generated_at"`
	SourceRangeStart string                     `json:"source_range_start"`
	SourceRangeEnd   string                     `json:"source_range_end"`
	Candidates       []model.PaperCandidate     `json:"candidates"`
	Judgements       []model.RelevanceJudgement `json:"judgements,omitempty"`
	SelectedIDs      []string                   `json:"selected_ids,omitempty"`
}

// Run 执行一次完整的日报生成。
// 任一阶段失败整体中止不出报告；失败前已提交的归档行保留（幂等重跑自愈）。
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := p.cfg

	loc, err := time.LoadLocation(cfg.Search.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无效时区 %q: %w", cfg.Search.Timezone, err)
	}
	now := time.Now().In(loc)
	generatedAt := now.Format(time.RFC3339)

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = cfg.Search.MaxResults
	}
	maxSelected := opts.MaxSelected
	if maxSelected <= 0 {
		maxSelected = cfg.Filter.MaxSelected
	}

	emit := func(stage, message string) {
		if opts.OnProgress != nil {
			opts.OnProgress(Event{Stage: stage, Message: message})
		}
	}
	itemProgress := func(stage, message string, done, total int) {
		if opts.OnProgress != nil {
			opts.OnProgress(Event{Stage: stage, Message: message, Done: done, Total: total})
		}
	}

	// 1. 抓取 + 窗口选择
	emit("harvest", "抓取候选论文")
	logger.Log.Infof("开始抓取，分区=%v max_results=%d", cfg.Search.Categories, maxResults)
	batch, err := p.fetcher.Fetch(ctx, cfg.Search.Categories, maxResults)
	if err != nil {
		return nil, fmt.Errorf("抓取失败: %w", err)
	}

	dateOverride := ""
	if opts.DateArg != "" && opts.DateArg != "auto" {
		dateOverride = opts.DateArg
	}
	harvest := feed.SelectWindow(now, batch, loc, feed.WindowPolicy{
		Mode:            cfg.Search.Mode,
		TimeWindowHours: cfg.Search.TimeWindowHours,
		LookbackDays:    cfg.Search.LookbackDays,
		DateOverride:    dateOverride,
	})
	reportDate := harvest.ReportDate
	logger.Log.Infof("报告日期 %s，范围 [%s, %s]，候选 %d 篇",
		reportDate, harvest.SourceRangeStart, harvest.SourceRangeEnd, len(harvest.Candidates))

	outDir := filepath.Join(opts.OutRoot, reportDate)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = "paper_radar.sqlite"
	}
	arch, err := archive.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer arch.Close()

	// 2. 关键词预筛
	emit("prefilter", "关键词预筛")
	candidates := feed.ApplyKeywordFilter(harvest.Candidates,
		cfg.Search.KeywordsInclude, cfg.Search.KeywordsExclude)
	logger.Log.Infof("预筛后剩余 %d 篇", len(candidates))

	debug := debugPayload{
		ReportDate:       reportDate,
		GeneratedAt:      generatedAt,
		SourceRangeStart: harvest.SourceRangeStart,
		SourceRangeEnd:   harvest.SourceRangeEnd,
		Candidates:       candidates,
	}
	debugPath := filepath.Join(outDir, "debug_candidates.json")

	if opts.DryRun {
		emit("debug-only", "dry-run 仅落候选快照")
		if err := writeJSON(debugPath, debug); err != nil {
			return nil, err
		}
		return &Result{ReportDate: reportDate, OutDir: outDir, DBPath: dbPath}, nil
	}

	// 3. LLM 客户端，缺配置在任何网络调用前失败
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.Concurrency.RPM)/60.0), cfg.Concurrency.QPS)
	client, err := llm.NewClient(cfg.LLM, limiter)
	if err != nil {
		return nil, err
	}

	// 4. 相关性判定与入选
	emit("judge", "逐篇判定相关性")
	judgements, err := client.JudgeRelevance(ctx, candidates,
		cfg.Search.KeywordsInclude, cfg.Filter.RelevanceThreshold, maxSelected, itemProgress)
	if err != nil {
		return nil, err
	}
	emit("select", fmt.Sprintf("入选 %d 篇", len(judgements.Selected)))

	debug.Judgements = judgements.AllJudgements
	for _, c := range judgements.Selected {
		debug.SelectedIDs = append(debug.SelectedIDs, c.ID)
	}
	if err := writeJSON(debugPath, debug); err != nil {
		return nil, err
	}

	// 5. 逐篇解读
	emit("analyze", "逐篇解读")
	analyses, err := client.AnalyzePapers(ctx, judgements.Selected, judgements.ByID, itemProgress)
	if err != nil {
		return nil, err
	}

	// 6. 当日趋势
	emit("summarize-daily", "汇总当日趋势")
	globalTrend, err := client.SummarizeDailyTrend(analyses)
	if err != nil {
		return nil, err
	}

	// 7. 归档本次运行
	emit("archive-run", "归档运行快照")
	runID, err := arch.BeginRun(reportDate, generatedAt,
		harvest.SourceRangeStart, harvest.SourceRangeEnd,
		cfg.Search.Categories, cfg.Search.KeywordsInclude,
		map[string]int{"candidates": len(candidates), "selected": len(analyses)})
	if err != nil {
		return nil, err
	}
	if err := arch.WriteCandidates(runID, candidates); err != nil {
		return nil, err
	}
	if err := arch.WriteJudgements(runID, judgements.ByID); err != nil {
		return nil, err
	}
	if err := arch.WriteAnalyses(runID, analyses); err != nil {
		return nil, err
	}

	// 8. 周期趋势（可选）
	var weeklyTrend, monthlyTrend *model.PeriodTrend
	if cfg.Trend.EnableWeekly {
		emit("trend-weekly", "汇总周趋势")
		weeklyTrend, err = p.buildPeriodTrend(arch, client, "week", cfg.Trend.WeeklyDays, loc)
		if err != nil {
			return nil, err
		}
		if err := arch.WriteTrend(runID, *weeklyTrend); err != nil {
			return nil, err
		}
	}
	if cfg.Trend.EnableMonthly {
		emit("trend-monthly", "汇总月趋势")
		monthlyTrend, err = p.buildPeriodTrend(arch, client, "month", cfg.Trend.MonthlyDays, loc)
		if err != nil {
			return nil, err
		}
		if err := arch.WriteTrend(runID, *monthlyTrend); err != nil {
			return nil, err
		}
	}

	// 9. 组装日报并落盘
	emit("assemble-report", "组装日报")
	report := &model.DailyReport{
		Date:             reportDate,
		GeneratedAt:      generatedAt,
		SourceRangeStart: harvest.SourceRangeStart,
		SourceRangeEnd:   harvest.SourceRangeEnd,
		Domain:           "Computer Science",
		Categories:       cfg.Search.Categories,
		Keywords:         cfg.Search.KeywordsInclude,
		GlobalTrend:      globalTrend,
		Papers:           analyses,
		WeeklyTrend:      weeklyTrend,
		MonthlyTrend:     monthlyTrend,
		Spotlight:        []model.SpotlightItem{},
	}

	emit("persist-report", "写入日报")
	reportPath := filepath.Join(outDir, "daily_report.json")
	if err := writeJSON(reportPath, report); err != nil {
		return nil, err
	}
	if err := arch.WriteDailyReport(runID, report); err != nil {
		return nil, err
	}

	// 10. 渲染（尽力而为的 PDF）
	htmlPath := filepath.Join(outDir, "report.html")
	pdfPath := filepath.Join(outDir, "report.pdf")
	if !opts.PDFOnly {
		emit("render", "渲染 HTML")
		if err := render.RenderReportHTML(report, htmlPath, cfg.Output.HTMLTemplate); err != nil {
			return nil, err
		}
	}
	if !opts.HTMLOnly && cfg.Output.WritePDF {
		render.HTMLToPDFIfAvailable(htmlPath, pdfPath)
	}

	emit("done", "完成")
	logger.Log.Infof("✅ 日报生成完毕: %s (run_id=%s)", outDir, runID)

	result := &Result{
		ReportDate: reportDate,
		OutDir:     outDir,
		DBPath:     dbPath,
		RunID:      runID,
	}
	if fileExists(htmlPath) {
		result.HTMLPath = htmlPath
	}
	if fileExists(pdfPath) {
		result.PDFPath = pdfPath
	}
	return result, nil
}

// buildPeriodTrend 读取历史解读（每日去重）并生成周期趋势
func (p *Pipeline) buildPeriodTrend(arch *archive.Archive, client *llm.Client, period string, days int, loc *time.Location) (*model.PeriodTrend, error) {
	items, err := arch.AnalysesBetween(days, loc)
	if err != nil {
		return nil, err
	}
	keywords := trend.BuildBarKeywords(items, p.cfg.Trend.TopKKeywords)
	summary, err := trend.SummarizePeriod(client, period, items, loc)
	if err != nil {
		return nil, err
	}
	return &model.PeriodTrend{
		Period:    period,
		StartDate: summary.StartDate,
		EndDate:   summary.EndDate,
		SummaryCN: summary.SummaryCN,
		Keywords:  keywords,
	}, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
