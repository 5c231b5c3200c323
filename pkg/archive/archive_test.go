package archive

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/paper_radar/pkg/model"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func analysis(id, publishDate, method string) model.PaperAnalysis {
	return model.PaperAnalysis{
		ID:          id,
		TitleEN:     "Paper " + id,
		PublishDate: publishDate,
		Method:      method,
		Score:       3,
	}
}

func TestIdempotentUpsert(t *testing.T) {
	a := openTestArchive(t)

	runID, err := a.BeginRun("2026-02-18", "2026-02-18T10:00:00Z", "s", "e", nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, a.WriteAnalyses(runID, []model.PaperAnalysis{
		analysis("p1", "2026-02-18T01:00:00Z", "first version"),
	}))
	require.NoError(t, a.WriteAnalyses(runID, []model.PaperAnalysis{
		analysis("p1", "2026-02-18T01:00:00Z", "second version"),
	}))

	var count int
	require.NoError(t, a.db.QueryRow(
		"SELECT COUNT(*) FROM analyses WHERE run_id = ? AND paper_id = ?", runID, "p1").Scan(&count))
	assert.Equal(t, 1, count, "同键重写应只留一行")

	var payload string
	require.NoError(t, a.db.QueryRow(
		"SELECT payload_json FROM analyses WHERE run_id = ? AND paper_id = ?", runID, "p1").Scan(&payload))
	assert.Contains(t, payload, "second version", "保留的应是最新负载")
}

func TestBeginRunReplacesSameRunID(t *testing.T) {
	a := openTestArchive(t)

	_, err := a.BeginRun("2026-02-18", "2026-02-18T10:00:00Z", "s", "e", nil, nil,
		map[string]int{"candidates": 1})
	require.NoError(t, err)
	_, err = a.BeginRun("2026-02-18", "2026-02-18T10:00:00Z", "s", "e", nil, nil,
		map[string]int{"candidates": 9})
	require.NoError(t, err)

	var count int
	require.NoError(t, a.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestAnalysesBetweenDailyDedup(t *testing.T) {
	a := openTestArchive(t)
	today := time.Now().UTC().Format(time.DateOnly)

	// 同一天两次运行，只应取 generated_at 较新的一次
	early, err := a.BeginRun(today, today+"T08:00:00Z", "s", "e", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, a.WriteAnalyses(early, []model.PaperAnalysis{
		analysis("old", today+"T01:00:00Z", "stale"),
	}))

	late, err := a.BeginRun(today, today+"T20:00:00Z", "s", "e", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, a.WriteAnalyses(late, []model.PaperAnalysis{
		analysis("new1", today+"T02:00:00Z", "fresh"),
		analysis("new2", today+"T03:00:00Z", "fresh"),
	}))

	got, err := a.AnalysesBetween(7, time.UTC)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, an := range got {
		assert.NotEqual(t, "old", an.ID)
	}
}

func TestAnalysesBetweenExcludesOldRuns(t *testing.T) {
	a := openTestArchive(t)

	old := time.Now().UTC().AddDate(0, 0, -30).Format(time.DateOnly)
	runID, err := a.BeginRun(old, old+"T10:00:00Z", "s", "e", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, a.WriteAnalyses(runID, []model.PaperAnalysis{
		analysis("ancient", old+"T01:00:00Z", "m"),
	}))

	got, err := a.AnalysesBetween(7, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExportReportNotFound(t *testing.T) {
	a := openTestArchive(t)

	_, err := a.ExportReport("1999-01-01")
	assert.True(t, errors.Is(err, ErrNotFound), "err = %v", err)
}

func TestExportReportLatestRunWins(t *testing.T) {
	a := openTestArchive(t)

	r1, err := a.BeginRun("2026-02-18", "2026-02-18T08:00:00Z", "s", "e", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, a.WriteDailyReport(r1, &model.DailyReport{Date: "2026-02-18", GlobalTrend: "early"}))

	r2, err := a.BeginRun("2026-02-18", "2026-02-18T20:00:00Z", "s", "e", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, a.WriteDailyReport(r2, &model.DailyReport{Date: "2026-02-18", GlobalTrend: "late"}))

	report, err := a.ExportReport("2026-02-18")
	require.NoError(t, err)
	assert.Equal(t, "late", report.GlobalTrend)
}

func TestStatsMostRecentFirst(t *testing.T) {
	a := openTestArchive(t)

	for _, d := range []string{"2026-02-16", "2026-02-18", "2026-02-17"} {
		_, err := a.BeginRun(d, d+"T10:00:00Z", "s", "e", nil, nil,
			map[string]int{"candidates": 5, "selected": 2})
		require.NoError(t, err)
	}

	runs, err := a.Stats(30)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "2026-02-18", runs[0].ReportDate)
	assert.Equal(t, "2026-02-16", runs[2].ReportDate)
	assert.Equal(t, 5, runs[0].Counts["candidates"])
}

func TestWriteJudgementsAndCandidates(t *testing.T) {
	a := openTestArchive(t)

	runID, err := a.BeginRun("2026-02-18", "2026-02-18T10:00:00Z", "s", "e",
		[]string{"cs.CL"}, []string{"rag"}, nil)
	require.NoError(t, err)

	require.NoError(t, a.WriteCandidates(runID, []model.PaperCandidate{
		{ID: "p1", TitleEN: "T", PublishDate: "2026-02-18T01:00:00Z"},
	}))
	require.NoError(t, a.WriteJudgements(runID, map[string]model.RelevanceJudgement{
		"p1": {IsRelevant: true, RelevanceScore: 88, ReasonCN: "相关"},
	}))

	var count int
	require.NoError(t, a.db.QueryRow("SELECT COUNT(*) FROM candidates").Scan(&count))
	assert.Equal(t, 1, count)
	require.NoError(t, a.db.QueryRow("SELECT COUNT(*) FROM judgements").Scan(&count))
	assert.Equal(t, 1, count)
}
