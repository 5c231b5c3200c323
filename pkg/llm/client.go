package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/paper_radar/pkg/config"
	"github.com/iWorld-y/paper_radar/pkg/model"
)

// ErrCancelled 协作式取消信号，调用方据此区分“已取消”与“失败”
var ErrCancelled = errors.New("cancelled")

// ProgressFunc 逐条进度通知 (阶段, 消息, 已完成, 总数)
type ProgressFunc func(stage, message string, done, total int)

// 各结构化类型的静态 schema 提示，随任务一起发给模型
const (
	judgementSchemaHint = `{"type":"object","properties":{"is_relevant":{"type":"boolean"},"relevance_score":{"type":"integer","minimum":0,"maximum":100},"matched_terms":{"type":"array","items":{"type":"string"}},"reason_cn":{"type":"string"}},"required":["is_relevant","relevance_score","matched_terms","reason_cn"]}`
	analysisSchemaHint  = `{"type":"object","properties":{"id":{"type":"string"},"title_en":{"type":"string"},"title_cn":{"type":"string"},"authors":{"type":"array","items":{"type":"string"}},"url":{"type":"string"},"publish_date":{"type":"string"},"primary_category":{"type":"string"},"motivation":{"type":"string"},"method":{"type":"string"},"paradigm_relation":{"type":"string"},"score":{"type":"integer","minimum":1,"maximum":5},"relevance":{"type":"object"}},"required":["id","title_cn","motivation","method","paradigm_relation","score"]}`
)

// Client 结构化抽取客户端：负责 schema 校验、一次修复、逐条取消检查。
// 提供方在构造时按配置标签确定，此后完全后端无关。
type Client struct {
	chat       chatter
	limiter    *rate.Limiter
	modelFast  string
	modelSmart string
}

// NewClient 创建客户端，缺少所选提供方必需的配置时立即失败
func NewClient(cfg config.LLMConfig, limiter *rate.Limiter) (*Client, error) {
	ch, err := newChatter(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		chat:       ch,
		limiter:    limiter,
		modelFast:  cfg.ModelFast,
		modelSmart: cfg.ModelSmart,
	}, nil
}

// completeJSON 发起一次补全并返回原始文本。
// 网络调用不挂运行期 ctx：取消只在条目之间轮询，从不打断在途请求。
func (c *Client) completeJSON(modelName, system, user, schemaHint string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(context.Background()); err != nil {
			return "", err
		}
	}
	prompt := user + "\n\nReturn ONLY valid JSON.\nJSON schema hint:\n" + schemaHint
	return c.chat.Chat(context.Background(), modelName, system, prompt)
}

// validated 结构化类型的校验契约
type validated interface {
	Validate() error
}

// decodeInto 去壳、解析并校验模型输出
func decodeInto[T any, PT interface {
	*T
	validated
}](text string) (*T, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if err := PT(v).Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// parseOrRepair 一次请求 + 至多一次修复。修复请求携带原任务与校验错误文本，
// 修复仍失败则视为致命错误上抛。传输层错误不走修复。
func parseOrRepair[T any, PT interface {
	*T
	validated
}](c *Client, modelName, system, user, schemaHint string) (*T, error) {
	text, err := c.completeJSON(modelName, system, user, schemaHint)
	if err != nil {
		return nil, err
	}
	v, perr := decodeInto[T, PT](text)
	if perr == nil {
		return v, nil
	}

	repairUser := fmt.Sprintf(
		"Your previous output was invalid.\nError: %v\n\n"+
			"Re-output ONLY valid JSON matching the schema exactly. No markdown.\n\n"+
			"Original task:\n%s", perr, user)
	text2, err := c.completeJSON(modelName, system, repairUser, schemaHint)
	if err != nil {
		return nil, err
	}
	v2, perr2 := decodeInto[T, PT](text2)
	if perr2 != nil {
		return nil, fmt.Errorf("模型输出修复后仍不合法: %w", perr2)
	}
	return v2, nil
}

// extractJSON 去掉可能的代码围栏；解析失败时回退到首个 {...} 片段
func extractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.Trim(s, "`")
		s = strings.Replace(s, "json\n", "", 1)
		s = strings.TrimSpace(s)
	}
	if json.Valid([]byte(s)) {
		return s, nil
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		frag := s[start : end+1]
		if json.Valid([]byte(frag)) {
			return frag, nil
		}
	}
	return "", fmt.Errorf("输出不是合法 JSON: %.200s", s)
}

// checkCancelled 每条候选处理前轮询一次取消信号
func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ErrCancelled
	default:
		return nil
	}
}

// JudgeResult 相关性判定的完整输出
type JudgeResult struct {
	ByID          map[string]model.RelevanceJudgement
	AllJudgements []model.RelevanceJudgement
	Selected      []model.PaperCandidate
}

// JudgeRelevance 逐篇判定候选与关键词的相关性并选出入选集。
// 关键词为空时走确定性捷径：全部视为相关 (score=50)，按发布时间取前 N，
// 全程不发网络请求，但仍遵守取消与进度契约。
func (c *Client) JudgeRelevance(
	ctx context.Context,
	candidates []model.PaperCandidate,
	keywords []string,
	threshold int,
	maxSelected int,
	progress ProgressFunc,
) (*JudgeResult, error) {
	total := len(candidates)

	effective := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if strings.TrimSpace(k) != "" {
			effective = append(effective, k)
		}
	}

	if len(effective) == 0 {
		byID := make(map[string]model.RelevanceJudgement, total)
		all := make([]model.RelevanceJudgement, 0, total)
		for i, cand := range candidates {
			if err := checkCancelled(ctx); err != nil {
				return nil, err
			}
			j := model.RelevanceJudgement{
				IsRelevant:     true,
				RelevanceScore: 50,
				MatchedTerms:   []string{},
				ReasonCN:       "未设置关键词，默认按分区与时间纳入候选。",
			}
			byID[cand.ID] = j
			all = append(all, j)
			if progress != nil {
				progress("filter", "Judged "+cand.ID, i+1, total)
			}
		}
		selected := append([]model.PaperCandidate(nil), candidates...)
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].PublishDate > selected[j].PublishDate
		})
		if len(selected) > maxSelected {
			selected = selected[:maxSelected]
		}
		return &JudgeResult{ByID: byID, AllJudgements: all, Selected: selected}, nil
	}

	system := "You are a senior AI researcher. " +
		"Judge whether a paper is relevant to user's interests based ONLY on the abstract and title. " +
		"Be strict and concise."

	byID := make(map[string]model.RelevanceJudgement, total)
	all := make([]model.RelevanceJudgement, 0, total)
	for i, cand := range candidates {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		if progress != nil {
			progress("filter", "Judging "+cand.ID, i+1, total)
		}
		user := fmt.Sprintf(
			"User keywords: %v\n\nPaper title: %s\nPaper abstract: %s\n\n"+
				"Decide relevance to the user keywords. "+
				"Return is_relevant, relevance_score (0-100), matched_terms, and a short Chinese reason (<=80 chars).",
			effective, cand.TitleEN, cand.Abstract)
		j, err := parseOrRepair[model.RelevanceJudgement](c, c.modelFast, system, user, judgementSchemaHint)
		if err != nil {
			return nil, fmt.Errorf("判定论文 %s 失败: %w", cand.ID, err)
		}
		byID[cand.ID] = *j
		all = append(all, *j)
	}

	var selected []model.PaperCandidate
	for _, cand := range candidates {
		j := byID[cand.ID]
		if j.IsRelevant && j.RelevanceScore >= threshold {
			selected = append(selected, cand)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		si, sj := byID[selected[i].ID].RelevanceScore, byID[selected[j].ID].RelevanceScore
		if si != sj {
			return si > sj
		}
		return selected[i].PublishDate > selected[j].PublishDate
	})
	if len(selected) > maxSelected {
		selected = selected[:maxSelected]
	}

	return &JudgeResult{ByID: byID, AllJudgements: all, Selected: selected}, nil
}

// AnalyzePapers 对入选论文逐篇生成结构化解读。
// 返回的 relevance 一律以先前判定覆盖，不信任模型回显。
func (c *Client) AnalyzePapers(
	ctx context.Context,
	selected []model.PaperCandidate,
	relevanceByID map[string]model.RelevanceJudgement,
	progress ProgressFunc,
) ([]model.PaperAnalysis, error) {
	system := "You are a senior AI researcher and editor. " +
		"Read the abstract and produce a structured Chinese analysis. " +
		"Be specific, avoid fluff, and keep each field short as requested."

	out := make([]model.PaperAnalysis, 0, len(selected))
	total := len(selected)
	for i, cand := range selected {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		if progress != nil {
			progress("analyze", "Analyzing "+cand.ID, i+1, total)
		}
		j := relevanceByID[cand.ID]
		prior, _ := json.Marshal(j)
		user := fmt.Sprintf(
			"Fill the fields for PaperAnalysis. Constraints:\n"+
				"- title_cn: Chinese translation of title\n"+
				"- motivation/method: <50 Chinese chars each\n"+
				"- paradigm_relation: describe relation to SOTA (Chinese)\n"+
				"- score: 1-5 based on novelty AND relevance\n\n"+
				"Paper metadata:\nid=%s\ntitle_en=%s\nauthors=%v\nurl=%s\npublish_date=%s\nprimary_category=%s\n\n"+
				"Abstract:\n%s\n\nRelevance prior:\n%s\n",
			cand.ID, cand.TitleEN, cand.Authors, cand.URL, cand.PublishDate, cand.PrimaryCategory,
			cand.Abstract, string(prior))
		analysis, err := parseOrRepair[model.PaperAnalysis](c, c.modelSmart, system, user, analysisSchemaHint)
		if err != nil {
			return nil, fmt.Errorf("解读论文 %s 失败: %w", cand.ID, err)
		}
		analysis.Relevance = j
		out = append(out, *analysis)
	}
	return out, nil
}

// SummarizeDailyTrend 汇总当日入选论文为一段趋势综述
func (c *Client) SummarizeDailyTrend(analyses []model.PaperAnalysis) (string, error) {
	if len(analyses) == 0 {
		return "今日无入选论文。", nil
	}
	system := "You are an editor-in-chief. Summarize today's selected papers into one concise Chinese paragraph (~200 chars)."
	var sb strings.Builder
	sb.WriteString("Papers:\n")
	for _, a := range analyses {
		fmt.Fprintf(&sb, "- %s: %s / %s\n", a.TitleEN, a.Method, a.ParadigmRelation)
	}

	text, err := c.completeJSON(c.modelSmart, system, sb.String(), `{"global_trend":"string"}`)
	if err != nil {
		return "", err
	}
	raw, err := extractJSON(text)
	if err != nil {
		return "", err
	}
	var payload struct {
		GlobalTrend string `json:"global_trend"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("json unmarshal: %w", err)
	}
	trend := strings.TrimSpace(payload.GlobalTrend)
	if trend == "" {
		return "（趋势总结生成失败）", nil
	}
	return trend, nil
}

// SummarizePeriodTrend 汇总一个周期（周/月）的宏观趋势
func (c *Client) SummarizePeriodTrend(period string, bullets []string, startDate, endDate string) (string, error) {
	system := "You are an editor-in-chief. Summarize the macro trend for the given period in one Chinese paragraph (150-250 chars)."
	if len(bullets) > 120 {
		bullets = bullets[:120]
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Period: %s\nRange: %s to %s\n\n", period, startDate, endDate)
	sb.WriteString("Bullets (methods/paradigm notes):\n")
	for _, b := range bullets {
		fmt.Fprintf(&sb, "- %s\n", b)
	}

	text, err := c.completeJSON(c.modelSmart, system, sb.String(), `{"summary_cn":"string"}`)
	if err != nil {
		return "", err
	}
	raw, err := extractJSON(text)
	if err != nil {
		return "", err
	}
	var payload struct {
		SummaryCN string `json:"summary_cn"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("json unmarshal: %w", err)
	}
	summary := strings.TrimSpace(payload.SummaryCN)
	if summary == "" {
		return "（趋势总结生成失败）", nil
	}
	return summary, nil
}
