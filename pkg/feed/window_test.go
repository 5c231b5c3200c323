package feed

import (
	"testing"
	"time"

	"github.com/iWorld-y/paper_radar/pkg/model"
)

func candidateAt(id string, t time.Time) model.PaperCandidate {
	return model.PaperCandidate{
		ID:          id,
		TitleEN:     "Paper " + id,
		PublishDate: t.Format(time.RFC3339),
	}
}

func TestSelectWindowLatestUpdateDay(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 2, 20, 10, 0, 0, 0, loc)
	d := time.Date(2026, 2, 18, 12, 0, 0, 0, loc)

	batch := []model.PaperCandidate{
		candidateAt("a", d),
		candidateAt("b", d.AddDate(0, 0, -1)),
		candidateAt("c", d.AddDate(0, 0, -9)),
	}

	got := SelectWindow(now, batch, loc, WindowPolicy{Mode: "latest_update_day", LookbackDays: 7})
	if got.ReportDate != "2026-02-18" {
		t.Errorf("ReportDate = %s, want 2026-02-18", got.ReportDate)
	}
	if len(got.Candidates) != 1 || got.Candidates[0].ID != "a" {
		t.Errorf("Candidates = %v, want [a]", got.Candidates)
	}
	if got.SourceRangeStart != "2026-02-18T00:00:00Z" {
		t.Errorf("SourceRangeStart = %s", got.SourceRangeStart)
	}
	if got.SourceRangeEnd != "2026-02-18T23:59:59Z" {
		t.Errorf("SourceRangeEnd = %s", got.SourceRangeEnd)
	}
}

func TestSelectWindowFixedWindow(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 2, 20, 10, 0, 0, 0, loc)

	batch := []model.PaperCandidate{
		candidateAt("old", now.Add(-30*time.Hour)),
		candidateAt("fresh", now.Add(-1*time.Hour)),
	}

	got := SelectWindow(now, batch, loc, WindowPolicy{Mode: "fixed_window", TimeWindowHours: 24})
	if got.ReportDate != "2026-02-20" {
		t.Errorf("ReportDate = %s, want 2026-02-20", got.ReportDate)
	}
	if len(got.Candidates) != 1 || got.Candidates[0].ID != "fresh" {
		t.Errorf("Candidates = %v, want [fresh]", got.Candidates)
	}
}

func TestSelectWindowEmptyBatch(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 2, 20, 10, 0, 0, 0, loc)

	got := SelectWindow(now, nil, loc, WindowPolicy{Mode: "latest_update_day", LookbackDays: 7})
	if got.ReportDate != "2026-02-20" {
		t.Errorf("ReportDate = %s", got.ReportDate)
	}
	if len(got.Candidates) != 0 {
		t.Errorf("Candidates = %v, want empty", got.Candidates)
	}
	if got.SourceRangeStart != got.SourceRangeEnd {
		t.Errorf("empty batch should have zero-width range, got [%s, %s]",
			got.SourceRangeStart, got.SourceRangeEnd)
	}
}

func TestSelectWindowDateOverrideMissingDay(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 2, 20, 10, 0, 0, 0, loc)
	batch := []model.PaperCandidate{
		candidateAt("a", time.Date(2026, 2, 18, 12, 0, 0, 0, loc)),
	}

	// 指定日期无数据：返回空候选集和整日范围，而非报错
	got := SelectWindow(now, batch, loc, WindowPolicy{
		Mode: "latest_update_day", LookbackDays: 7, DateOverride: "2026-02-10",
	})
	if got.ReportDate != "2026-02-10" {
		t.Errorf("ReportDate = %s, want 2026-02-10", got.ReportDate)
	}
	if len(got.Candidates) != 0 {
		t.Errorf("Candidates = %v, want empty", got.Candidates)
	}
	if got.SourceRangeStart != "2026-02-10T00:00:00Z" || got.SourceRangeEnd != "2026-02-10T23:59:59Z" {
		t.Errorf("range = [%s, %s]", got.SourceRangeStart, got.SourceRangeEnd)
	}
}

func TestSelectWindowDateOverrideHit(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 2, 20, 10, 0, 0, 0, loc)
	batch := []model.PaperCandidate{
		candidateAt("a", time.Date(2026, 2, 18, 12, 0, 0, 0, loc)),
		candidateAt("b", time.Date(2026, 2, 17, 12, 0, 0, 0, loc)),
	}

	got := SelectWindow(now, batch, loc, WindowPolicy{
		Mode: "latest_update_day", LookbackDays: 7, DateOverride: "2026-02-17",
	})
	if got.ReportDate != "2026-02-17" {
		t.Errorf("ReportDate = %s", got.ReportDate)
	}
	if len(got.Candidates) != 1 || got.Candidates[0].ID != "b" {
		t.Errorf("Candidates = %v, want [b]", got.Candidates)
	}
}

func TestSelectWindowTimezoneBucketing(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	now := time.Date(2026, 2, 20, 10, 0, 0, 0, loc)
	// UTC 2026-02-18 22:00 在 UTC+8 已是 2026-02-19
	batch := []model.PaperCandidate{
		candidateAt("a", time.Date(2026, 2, 18, 22, 0, 0, 0, time.UTC)),
	}

	got := SelectWindow(now, batch, loc, WindowPolicy{Mode: "latest_update_day", LookbackDays: 7})
	if got.ReportDate != "2026-02-19" {
		t.Errorf("ReportDate = %s, want 2026-02-19", got.ReportDate)
	}
}
