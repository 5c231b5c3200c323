package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/paper_radar/pkg/archive"
	"github.com/iWorld-y/paper_radar/pkg/config"
	"github.com/iWorld-y/paper_radar/pkg/feed"
	"github.com/iWorld-y/paper_radar/pkg/llm"
	"github.com/iWorld-y/paper_radar/pkg/logger"
	"github.com/iWorld-y/paper_radar/pkg/model"
	"github.com/iWorld-y/paper_radar/pkg/pipeline"
	"github.com/iWorld-y/paper_radar/pkg/render"
)

func main() {
	root := &cobra.Command{
		Use:           "paper_radar",
		Short:         "arXiv 论文雷达：抓取、判定、解读并生成每日报告",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newRenderCmd(), newDBCmd())

	if err := root.Execute(); err != nil {
		if errors.Is(err, llm.ErrCancelled) {
			fmt.Fprintln(os.Stderr, "已取消")
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var (
		configPath  string
		outDir      string
		dbPath      string
		dateArg     string
		maxResults  int
		maxSelected int
		dryRun      bool
		htmlOnly    bool
		pdfOnly     bool
		templateArg string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "抓取、筛选、解读并渲染 HTML/PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if templateArg != "" {
				cfg.Output.HTMLTemplate = templateArg
			}
			if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
				return fmt.Errorf("无法初始化日志: %w", err)
			}

			p := pipeline.New(cfg, feed.NewClient())
			result, err := p.Run(context.Background(), pipeline.Options{
				OutRoot:     outDir,
				DBPath:      dbPath,
				DateArg:     dateArg,
				MaxResults:  maxResults,
				MaxSelected: maxSelected,
				DryRun:      dryRun,
				HTMLOnly:    htmlOnly,
				PDFOnly:     pdfOnly,
				OnProgress: func(e pipeline.Event) {
					if e.Total > 0 {
						logger.Log.Infof("[%s] %s (%d/%d)", e.Stage, e.Message, e.Done, e.Total)
					} else {
						logger.Log.Infof("[%s] %s", e.Stage, e.Message)
					}
				},
			})
			if err != nil {
				return err
			}

			fmt.Printf("Report date: %s\n", result.ReportDate)
			fmt.Printf("Output dir:  %s\n", result.OutDir)
			if result.HTMLPath != "" {
				fmt.Printf("HTML:        %s\n", result.HTMLPath)
			}
			if result.PDFPath != "" {
				fmt.Printf("PDF:         %s\n", result.PDFPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	cmd.Flags().StringVar(&outDir, "out-dir", "reports", "报告输出目录")
	cmd.Flags().StringVar(&dbPath, "db", "paper_radar.sqlite", "归档数据库路径")
	cmd.Flags().StringVar(&dateArg, "date", "auto", "auto 或 YYYY-MM-DD")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "覆盖配置的抓取上限")
	cmd.Flags().IntVar(&maxSelected, "max-selected", 0, "覆盖配置的入选上限")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "仅抓取，不调用 LLM")
	cmd.Flags().BoolVar(&htmlOnly, "html-only", false, "只产出 HTML")
	cmd.Flags().BoolVar(&pdfOnly, "pdf-only", false, "只产出 PDF")
	cmd.Flags().StringVar(&templateArg, "template", "", "HTML 模板: editorial|baseline|modern|compact 或 '*.tmpl' 文件名")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		input       string
		outDir      string
		htmlOnly    bool
		templateArg string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "由 daily_report.json 渲染 HTML/PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(input)
			if err != nil {
				return err
			}
			var report model.DailyReport
			if err := json.Unmarshal(data, &report); err != nil {
				return fmt.Errorf("解析日报文件失败: %w", err)
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			htmlPath := filepath.Join(outDir, "report.html")
			if err := render.RenderReportHTML(&report, htmlPath, templateArg); err != nil {
				return err
			}
			fmt.Printf("HTML: %s\n", htmlPath)

			pdfPath := filepath.Join(outDir, "report.pdf")
			if !htmlOnly {
				render.HTMLToPDFIfAvailable(htmlPath, pdfPath)
				if _, err := os.Stat(pdfPath); err == nil {
					fmt.Printf("PDF:  %s\n", pdfPath)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "daily_report.json 路径")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "输出目录")
	cmd.Flags().BoolVar(&htmlOnly, "html-only", false, "只产出 HTML")
	cmd.Flags().StringVar(&templateArg, "template", "editorial", "HTML 模板: editorial|baseline|modern|compact 或 '*.tmpl' 文件名")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("out-dir")
	return cmd
}

func newDBCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "db",
		Short: "查看归档数据库",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "paper_radar.sqlite", "归档数据库路径")

	var statsDays int
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "最近运行统计",
		RunE: func(cmd *cobra.Command, args []string) error {
			arch, err := archive.Open(dbPath)
			if err != nil {
				return err
			}
			defer arch.Close()

			runs, err := arch.Stats(statsDays)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(map[string]any{"recent_runs": runs}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	statsCmd.Flags().IntVar(&statsDays, "days", 30, "统计天数")

	var (
		exportDate   string
		exportFormat string
		exportOut    string
	)
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "导出指定日期的日报",
		RunE: func(cmd *cobra.Command, args []string) error {
			if exportFormat != "json" {
				return fmt.Errorf("不支持的导出格式: %s", exportFormat)
			}
			arch, err := archive.Open(dbPath)
			if err != nil {
				return err
			}
			defer arch.Close()

			report, err := arch.ExportReport(exportDate)
			if err != nil {
				return err
			}
			text, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			if exportOut != "" {
				if err := os.WriteFile(exportOut, text, 0o644); err != nil {
					return err
				}
				fmt.Println(exportOut)
				return nil
			}
			fmt.Println(string(text))
			return nil
		},
	}
	exportCmd.Flags().StringVar(&exportDate, "date", "", "报告日期 YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "导出格式")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "输出到文件而非标准输出")
	_ = exportCmd.MarkFlagRequired("date")

	cmd.AddCommand(statsCmd, exportCmd)
	return cmd
}
