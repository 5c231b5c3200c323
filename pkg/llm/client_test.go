package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/paper_radar/pkg/config"
	"github.com/iWorld-y/paper_radar/pkg/model"
)

// fakeChatter 按脚本逐次返回应答，记录每次收到的提示词
type fakeChatter struct {
	responses []string
	calls     []string
	err       error
}

func (f *fakeChatter) Chat(_ context.Context, _, _, user string) (string, error) {
	f.calls = append(f.calls, user)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("fakeChatter: no scripted response")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func testClient(f *fakeChatter) *Client {
	return &Client{chat: f, modelFast: "fast", modelSmart: "smart"}
}

func configWith(provider, baseURL, apiKey string) config.LLMConfig {
	return config.LLMConfig{
		Provider:   provider,
		BaseURL:    baseURL,
		APIKey:     apiKey,
		ModelFast:  "fast",
		ModelSmart: "smart",
	}
}

func cand(id, publishDate string) model.PaperCandidate {
	return model.PaperCandidate{ID: id, TitleEN: "Paper " + id, Abstract: "abs", PublishDate: publishDate}
}

func TestJudgeRelevanceKeywordlessFastPath(t *testing.T) {
	f := &fakeChatter{}
	c := testClient(f)

	candidates := []model.PaperCandidate{
		cand("a", "2026-02-18T01:00:00Z"),
		cand("b", "2026-02-18T05:00:00Z"),
		cand("c", "2026-02-18T03:00:00Z"),
	}

	got, err := c.JudgeRelevance(context.Background(), candidates, nil, 60, 2, nil)
	require.NoError(t, err)

	assert.Empty(t, f.calls, "无关键词时不应发起网络调用")
	assert.Len(t, got.AllJudgements, 3)
	for _, j := range got.AllJudgements {
		assert.True(t, j.IsRelevant)
		assert.Equal(t, 50, j.RelevanceScore)
	}
	// 入选按发布时间倒序截断
	require.Len(t, got.Selected, 2)
	assert.Equal(t, "b", got.Selected[0].ID)
	assert.Equal(t, "c", got.Selected[1].ID)
}

func TestJudgeRelevanceFastPathCancelled(t *testing.T) {
	f := &fakeChatter{}
	c := testClient(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := c.JudgeRelevance(ctx, []model.PaperCandidate{cand("a", "2026-02-18T01:00:00Z")},
		nil, 60, 5, nil)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrCancelled), "err = %v", err)
	assert.Empty(t, f.calls, "取消后不应发起任何调用")
}

func TestJudgeRelevanceCancelledWithKeywords(t *testing.T) {
	f := &fakeChatter{}
	c := testClient(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := c.JudgeRelevance(ctx, []model.PaperCandidate{cand("a", "2026-02-18T01:00:00Z")},
		[]string{"rag"}, 60, 5, nil)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.Empty(t, f.calls)
}

func TestJudgeRelevanceSelectionOrdering(t *testing.T) {
	f := &fakeChatter{responses: []string{
		`{"is_relevant": true, "relevance_score": 80, "matched_terms": ["rag"], "reason_cn": "相关"}`,
		`{"is_relevant": true, "relevance_score": 80, "matched_terms": ["rag"], "reason_cn": "相关"}`,
		`{"is_relevant": true, "relevance_score": 95, "matched_terms": ["rag"], "reason_cn": "高度相关"}`,
		`{"is_relevant": false, "relevance_score": 10, "matched_terms": [], "reason_cn": "无关"}`,
	}}
	c := testClient(f)

	candidates := []model.PaperCandidate{
		cand("early80", "2026-02-18T01:00:00Z"),
		cand("late80", "2026-02-18T09:00:00Z"),
		cand("top", "2026-02-18T02:00:00Z"),
		cand("irrelevant", "2026-02-18T23:00:00Z"),
	}

	got, err := c.JudgeRelevance(context.Background(), candidates, []string{"rag"}, 60, 10, nil)
	require.NoError(t, err)

	// 分数优先，同分按发布时间倒序
	require.Len(t, got.Selected, 3)
	assert.Equal(t, "top", got.Selected[0].ID)
	assert.Equal(t, "late80", got.Selected[1].ID)
	assert.Equal(t, "early80", got.Selected[2].ID)
}

func TestJudgeRelevanceThreshold(t *testing.T) {
	f := &fakeChatter{responses: []string{
		`{"is_relevant": true, "relevance_score": 59, "matched_terms": [], "reason_cn": "略相关"}`,
		`{"is_relevant": true, "relevance_score": 60, "matched_terms": [], "reason_cn": "相关"}`,
	}}
	c := testClient(f)

	got, err := c.JudgeRelevance(context.Background(), []model.PaperCandidate{
		cand("below", "2026-02-18T01:00:00Z"),
		cand("at", "2026-02-18T02:00:00Z"),
	}, []string{"rag"}, 60, 10, nil)
	require.NoError(t, err)
	require.Len(t, got.Selected, 1)
	assert.Equal(t, "at", got.Selected[0].ID)
}

func TestParseOrRepairFixesInvalidOutput(t *testing.T) {
	f := &fakeChatter{responses: []string{
		"here is your json: not really",
		`{"is_relevant": true, "relevance_score": 70, "matched_terms": [], "reason_cn": "修复后"}`,
	}}
	c := testClient(f)

	j, err := parseOrRepair[model.RelevanceJudgement](c, "fast", "sys", "task", judgementSchemaHint)
	require.NoError(t, err)
	assert.Equal(t, 70, j.RelevanceScore)

	require.Len(t, f.calls, 2)
	assert.Contains(t, f.calls[1], "Your previous output was invalid.")
	assert.Contains(t, f.calls[1], "Original task:\ntask")
}

func TestParseOrRepairSecondFailureFatal(t *testing.T) {
	f := &fakeChatter{responses: []string{
		"garbage",
		"still garbage",
	}}
	c := testClient(f)

	_, err := parseOrRepair[model.RelevanceJudgement](c, "fast", "sys", "task", judgementSchemaHint)
	require.Error(t, err)
	assert.Len(t, f.calls, 2, "修复只允许一轮")
}

func TestParseOrRepairSchemaViolationTriggersRepair(t *testing.T) {
	f := &fakeChatter{responses: []string{
		`{"is_relevant": true, "relevance_score": 200, "matched_terms": [], "reason_cn": "越界"}`,
		`{"is_relevant": true, "relevance_score": 90, "matched_terms": [], "reason_cn": "合法"}`,
	}}
	c := testClient(f)

	j, err := parseOrRepair[model.RelevanceJudgement](c, "fast", "sys", "task", judgementSchemaHint)
	require.NoError(t, err)
	assert.Equal(t, 90, j.RelevanceScore)
}

func TestAnalyzePapersOverwritesRelevance(t *testing.T) {
	f := &fakeChatter{responses: []string{
		`{"id": "p1", "title_cn": "标题", "motivation": "动机", "method": "方法",
		  "paradigm_relation": "关系", "score": 4,
		  "relevance": {"is_relevant": false, "relevance_score": 1, "matched_terms": [], "reason_cn": "模型瞎编"}}`,
	}}
	c := testClient(f)

	prior := model.RelevanceJudgement{IsRelevant: true, RelevanceScore: 88, ReasonCN: "先前判定"}
	out, err := c.AnalyzePapers(context.Background(),
		[]model.PaperCandidate{cand("p1", "2026-02-18T01:00:00Z")},
		map[string]model.RelevanceJudgement{"p1": prior}, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)

	// 模型回显的 relevance 必须被先前判定覆盖
	assert.Equal(t, prior, out[0].Relevance)
}

func TestSummarizeDailyTrendEmptyInput(t *testing.T) {
	f := &fakeChatter{}
	c := testClient(f)

	got, err := c.SummarizeDailyTrend(nil)
	require.NoError(t, err)
	assert.Equal(t, "今日无入选论文。", got)
	assert.Empty(t, f.calls)
}

func TestSummarizeDailyTrendCodeFencedOutput(t *testing.T) {
	f := &fakeChatter{responses: []string{
		"```json\n{\"global_trend\": \"今日以 RAG 为主。\"}\n```",
	}}
	c := testClient(f)

	got, err := c.SummarizeDailyTrend([]model.PaperAnalysis{{TitleEN: "T", Method: "m"}})
	require.NoError(t, err)
	assert.Equal(t, "今日以 RAG 为主。", got)
}

func TestExtractJSONFirstObjectRescue(t *testing.T) {
	raw, err := extractJSON(`Sure! {"a": 1} hope that helps`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, raw)
}

func TestJudgeRelevanceProgressReported(t *testing.T) {
	f := &fakeChatter{}
	c := testClient(f)

	var events []int
	progress := func(stage, message string, done, total int) {
		assert.Equal(t, "filter", stage)
		assert.Equal(t, 2, total)
		events = append(events, done)
	}

	_, err := c.JudgeRelevance(context.Background(), []model.PaperCandidate{
		cand("a", "2026-02-18T01:00:00Z"),
		cand("b", "2026-02-18T02:00:00Z"),
	}, nil, 60, 5, progress)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, events, "done 计数应单调递增")
}

func TestNewChatterUnknownProvider(t *testing.T) {
	_, err := NewClient(configWith("mystery", "http://x", "k"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未知的 LLM 提供方")
}

func TestNewChatterGeminiMissingKey(t *testing.T) {
	_, err := NewClient(configWith(ProviderGemini, "http://x", ""), nil)
	require.Error(t, err)
}

func TestNewChatterGeminiMissingBaseURL(t *testing.T) {
	_, err := NewClient(configWith(ProviderGemini, "", "k"), nil)
	require.Error(t, err)
}
