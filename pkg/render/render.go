package render

import (
	"fmt"
	"html/template"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/iWorld-y/paper_radar/pkg/model"
)

// 短名到内置模板的映射
var templatesByShortName = map[string]string{
	"baseline":  baselineTpl,
	"editorial": editorialTpl,
	"modern":    modernTpl,
	"compact":   compactTpl,
}

// RenderReportHTML 把日报渲染成 HTML 文件。
// templateName 为短名 (editorial|baseline|modern|compact) 或 '*.tmpl' 文件路径，
// 其它取值视为输入校验错误。
func RenderReportHTML(report *model.DailyReport, outPath string, templateName string) error {
	text, err := resolveTemplate(templateName)
	if err != nil {
		return err
	}

	funcs := template.FuncMap{
		// 关键词权重换算为条形宽度百分比
		"pct": func(w float64) int { return int(w * 100) },
	}
	t, err := template.New("report").Funcs(funcs).Parse(text)
	if err != nil {
		return fmt.Errorf("parse template failed: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return t.Execute(f, report)
}

func resolveTemplate(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return templatesByShortName["editorial"], nil
	}

	if tpl, ok := templatesByShortName[strings.ToLower(name)]; ok {
		return tpl, nil
	}

	if strings.HasSuffix(name, ".tmpl") {
		data, err := os.ReadFile(name)
		if err != nil {
			return "", fmt.Errorf("read template file failed: %w", err)
		}
		return string(data), nil
	}

	names := make([]string, 0, len(templatesByShortName))
	for k := range templatesByShortName {
		names = append(names, k)
	}
	sort.Strings(names)
	return "", fmt.Errorf("未知模板 %q，可选: %s，或 '*.tmpl' 文件名", name, strings.Join(names, ", "))
}

// HTMLToPDFIfAvailable 尽力而为地把 HTML 转为 PDF。
// 转换器缺失或执行失败都静默跳过，HTML 产物不受影响。
func HTMLToPDFIfAvailable(htmlPath, pdfPath string) {
	bin, err := exec.LookPath("wkhtmltopdf")
	if err != nil {
		return
	}
	_ = exec.Command(bin, "--quiet", htmlPath, pdfPath).Run()
}
