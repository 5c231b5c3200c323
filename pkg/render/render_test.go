package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/paper_radar/pkg/model"
)

func sampleReport() *model.DailyReport {
	return &model.DailyReport{
		Date:             "2026-02-18",
		GeneratedAt:      "2026-02-18T08:00:00Z",
		SourceRangeStart: "2026-02-18T00:00:00Z",
		SourceRangeEnd:   "2026-02-18T23:59:59Z",
		Domain:           "Computer Science",
		Categories:       []string{"cs.AI"},
		Keywords:         []string{"rag"},
		GlobalTrend:      "今日以检索增强为主。",
		Papers: []model.PaperAnalysis{
			{
				ID:               "2602.01234",
				TitleEN:          "Retrieval With <Benefits>",
				TitleCN:          "带好处的检索",
				Motivation:       "动机",
				Method:           "方法",
				ParadigmRelation: "范式",
				Score:            4,
				URL:              "https://arxiv.org/abs/2602.01234",
			},
		},
		WeeklyTrend: &model.PeriodTrend{
			Period:    "week",
			StartDate: "2026-02-12",
			EndDate:   "2026-02-18",
			SummaryCN: "周度总结。",
			Keywords:  []model.KeywordWeight{{Keyword: "rag", Weight: 1.0}, {Keyword: "agent", Weight: 0.5}},
		},
		Spotlight: []model.SpotlightItem{},
	}
}

func TestRenderReportHTMLBuiltinTemplates(t *testing.T) {
	for _, name := range []string{"baseline", "editorial", "modern", "compact"} {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "report.html")
			require.NoError(t, RenderReportHTML(sampleReport(), out, name))

			data, err := os.ReadFile(out)
			require.NoError(t, err)
			html := string(data)
			assert.Contains(t, html, "2026-02-18")
			assert.Contains(t, html, "带好处的检索")
			// html/template 必须转义标题里的尖括号
			assert.NotContains(t, html, "With <Benefits>")
		})
	}
}

func TestRenderReportHTMLDefaultTemplate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, RenderReportHTML(sampleReport(), out, ""))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "今日以检索增强为主。")
}

func TestRenderReportHTMLCustomTemplateFile(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "mine.tmpl")
	require.NoError(t, os.WriteFile(tpl, []byte("<p>{{ .Date }} / {{ .GlobalTrend }}</p>"), 0o644))

	out := filepath.Join(dir, "report.html")
	require.NoError(t, RenderReportHTML(sampleReport(), out, tpl))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "<p>2026-02-18 / 今日以检索增强为主。</p>", string(data))
}

func TestRenderReportHTMLUnknownTemplate(t *testing.T) {
	err := RenderReportHTML(sampleReport(), filepath.Join(t.TempDir(), "x.html"), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未知模板")
	assert.Contains(t, err.Error(), "editorial")
}

func TestRenderReportHTMLMissingTemplateFile(t *testing.T) {
	err := RenderReportHTML(sampleReport(), filepath.Join(t.TempDir(), "x.html"), "missing.tmpl")
	require.Error(t, err)
}

func TestRenderReportHTMLEmptyDay(t *testing.T) {
	r := sampleReport()
	r.Papers = nil
	r.WeeklyTrend = nil
	r.GlobalTrend = "今日无入选论文。"

	out := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, RenderReportHTML(r, out, "editorial"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "今日无入选论文。"))
}
