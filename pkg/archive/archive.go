package archive

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/iWorld-y/paper_radar/pkg/model"
)

// ErrNotFound 指定日期没有归档运行记录
var ErrNotFound = errors.New("report not found")

// Archive 运行快照归档。六类记录各自独立 upsert 事务，
// 同一 run_id 重跑即整体覆盖，不做跨表原子性。
type Archive struct {
	db   *sql.DB
	path string
}

// Open 打开或创建归档文件，WAL 模式保证写入时读查询不被阻塞
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &Archive{db: db, path: path}
	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return a, nil
}

// Close 关闭数据库连接
func (a *Archive) Close() error {
	return a.db.Close()
}

// Path 返回归档文件路径
func (a *Archive) Path() string {
	return a.path
}

func (a *Archive) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		report_date TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		source_range_start TEXT NOT NULL,
		source_range_end TEXT NOT NULL,
		categories_json TEXT NOT NULL,
		keywords_json TEXT NOT NULL,
		counts_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS candidates (
		run_id TEXT NOT NULL,
		paper_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		PRIMARY KEY (run_id, paper_id)
	);

	CREATE TABLE IF NOT EXISTS judgements (
		run_id TEXT NOT NULL,
		paper_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		PRIMARY KEY (run_id, paper_id)
	);

	CREATE TABLE IF NOT EXISTS analyses (
		run_id TEXT NOT NULL,
		paper_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		publish_date TEXT NOT NULL,
		PRIMARY KEY (run_id, paper_id)
	);

	CREATE TABLE IF NOT EXISTS trends (
		run_id TEXT NOT NULL,
		period TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		PRIMARY KEY (run_id, period)
	);

	CREATE TABLE IF NOT EXISTS reports (
		run_id TEXT PRIMARY KEY,
		payload_json TEXT NOT NULL
	);
	`
	_, err := a.db.Exec(schema)
	return err
}

// withTx 单次写入的事务辅助：任一退出路径要么提交要么回滚
func (a *Archive) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := a.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: %v", err, rerr)
		}
		return err
	}
	return tx.Commit()
}

// BeginRun 落一条运行记录并返回派生的 run_id。
// run_id = 报告日期 + 生成时刻，相同 run_id 即覆盖（幂等重跑）。
func (a *Archive) BeginRun(
	reportDate, generatedAt, sourceRangeStart, sourceRangeEnd string,
	categories, keywords []string,
	counts map[string]int,
) (string, error) {
	runID := reportDate + "-" + generatedAt

	categoriesJSON, _ := json.Marshal(categories)
	keywordsJSON, _ := json.Marshal(keywords)
	countsJSON, _ := json.Marshal(counts)

	err := a.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO runs
			(run_id, report_date, generated_at, source_range_start, source_range_end, categories_json, keywords_json, counts_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, reportDate, generatedAt, sourceRangeStart, sourceRangeEnd,
			string(categoriesJSON), string(keywordsJSON), string(countsJSON))
		return err
	})
	if err != nil {
		return "", err
	}
	return runID, nil
}

// WriteCandidates 批量 upsert 候选行
func (a *Archive) WriteCandidates(runID string, candidates []model.PaperCandidate) error {
	return a.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare("INSERT OR REPLACE INTO candidates (run_id, paper_id, payload_json) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range candidates {
			payload, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if _, err := stmt.Exec(runID, c.ID, string(payload)); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteJudgements 批量 upsert 判定行
func (a *Archive) WriteJudgements(runID string, byID map[string]model.RelevanceJudgement) error {
	return a.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare("INSERT OR REPLACE INTO judgements (run_id, paper_id, payload_json) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()
		for pid, j := range byID {
			payload, err := json.Marshal(j)
			if err != nil {
				return err
			}
			if _, err := stmt.Exec(runID, pid, string(payload)); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteAnalyses 批量 upsert 解读行，publish_date 单列冗余便于按时间查询
func (a *Archive) WriteAnalyses(runID string, analyses []model.PaperAnalysis) error {
	return a.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare("INSERT OR REPLACE INTO analyses (run_id, paper_id, payload_json, publish_date) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, an := range analyses {
			payload, err := json.Marshal(an)
			if err != nil {
				return err
			}
			if _, err := stmt.Exec(runID, an.ID, string(payload), an.PublishDate); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteTrend upsert 一条周期趋势
func (a *Archive) WriteTrend(runID string, trend model.PeriodTrend) error {
	payload, err := json.Marshal(trend)
	if err != nil {
		return err
	}
	return a.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT OR REPLACE INTO trends (run_id, period, payload_json) VALUES (?, ?, ?)",
			runID, trend.Period, string(payload))
		return err
	})
}

// WriteDailyReport upsert 完整日报
func (a *Archive) WriteDailyReport(runID string, report *model.DailyReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return a.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT OR REPLACE INTO reports (run_id, payload_json) VALUES (?, ?)",
			runID, string(payload))
		return err
	})
}

// AnalysesBetween 取最近 N 天（含今日，按目标时区）的历史解读。
// 每个日历日只取 generated_at 最新的一次 run，避免同日多次运行重复计数。
func (a *Archive) AnalysesBetween(days int, loc *time.Location) ([]model.PaperAnalysis, error) {
	now := time.Now().In(loc)
	if days < 1 {
		days = 1
	}
	end := now.Format(time.DateOnly)
	start := now.AddDate(0, 0, -(days - 1)).Format(time.DateOnly)

	rows, err := a.db.Query(`
		SELECT report_date, MAX(generated_at) AS gen
		FROM runs
		WHERE report_date BETWEEN ? AND ?
		GROUP BY report_date`,
		start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runIDs []string
	for rows.Next() {
		var reportDate, gen string
		if err := rows.Scan(&reportDate, &gen); err != nil {
			return nil, err
		}
		runIDs = append(runIDs, reportDate+"-"+gen)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(runIDs) == 0 {
		return nil, nil
	}

	qmarks := strings.Repeat("?,", len(runIDs))
	qmarks = qmarks[:len(qmarks)-1]
	args := make([]any, len(runIDs))
	for i, id := range runIDs {
		args[i] = id
	}

	arows, err := a.db.Query("SELECT payload_json FROM analyses WHERE run_id IN ("+qmarks+")", args...)
	if err != nil {
		return nil, err
	}
	defer arows.Close()

	var out []model.PaperAnalysis
	for arows.Next() {
		var payload string
		if err := arows.Scan(&payload); err != nil {
			return nil, err
		}
		var an model.PaperAnalysis
		if err := json.Unmarshal([]byte(payload), &an); err != nil {
			return nil, err
		}
		out = append(out, an)
	}
	return out, arows.Err()
}

// RunSummary 一次运行的摘要行
type RunSummary struct {
	ReportDate string         `json:"report_date"`
	Counts     map[string]int `json:"counts"`
}

// Stats 最近若干次运行的摘要，按报告日期倒序
func (a *Archive) Stats(days int) ([]RunSummary, error) {
	rows, err := a.db.Query(`
		SELECT report_date, counts_json
		FROM runs
		ORDER BY report_date DESC
		LIMIT ?`,
		days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var date, countsJSON string
		if err := rows.Scan(&date, &countsJSON); err != nil {
			return nil, err
		}
		counts := make(map[string]int)
		if err := json.Unmarshal([]byte(countsJSON), &counts); err != nil {
			return nil, err
		}
		out = append(out, RunSummary{ReportDate: date, Counts: counts})
	}
	return out, rows.Err()
}

// ExportReport 导出指定日期的日报（同日多次运行取 generated_at 最新），
// 无记录时返回 ErrNotFound
func (a *Archive) ExportReport(date string) (*model.DailyReport, error) {
	var payload string
	err := a.db.QueryRow(`
		SELECT r.payload_json
		FROM reports r
		JOIN runs u ON u.run_id = r.run_id
		WHERE u.report_date = ?
		ORDER BY u.generated_at DESC
		LIMIT 1`,
		date).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: date=%s", ErrNotFound, date)
	}
	if err != nil {
		return nil, err
	}

	var report model.DailyReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, err
	}
	return &report, nil
}
