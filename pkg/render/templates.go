package render

// 内置的四套日报模板

const editorialTpl = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>论文雷达日报 | {{ .Date }}</title>
    <style>
        :root {
            --primary-color: #2563eb;
            --bg-color: #f8fafc;
            --card-bg: #ffffff;
            --text-main: #1e293b;
            --text-secondary: #64748b;
            --border-color: #e2e8f0;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            background-color: var(--bg-color);
            color: var(--text-main);
            line-height: 1.6;
            margin: 0;
            padding: 20px;
        }
        .container { max-width: 900px; margin: 0 auto; }
        header { text-align: center; margin-bottom: 40px; padding: 20px 0; }
        h1 { font-size: 2.2rem; margin: 0 0 10px 0; }
        .date-info { color: var(--text-secondary); }
        .trend-box {
            background: #eff6ff;
            border-left: 4px solid var(--primary-color);
            padding: 20px 24px;
            border-radius: 8px;
            margin-bottom: 32px;
        }
        .paper-card {
            background: var(--card-bg);
            border-radius: 12px;
            padding: 24px;
            margin-bottom: 24px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.05);
            border: 1px solid var(--border-color);
        }
        .paper-title { font-size: 1.3rem; font-weight: 700; color: #0f172a; }
        .paper-title-en { color: var(--text-secondary); font-size: 0.95rem; margin: 4px 0 12px 0; }
        .paper-score {
            float: right;
            background: #fee2e2; color: #991b1b;
            padding: 2px 12px; border-radius: 20px; font-weight: bold;
        }
        .score-high { background: #dcfce7; color: #166534; }
        .paper-meta { color: var(--text-secondary); font-size: 0.85rem; margin-bottom: 12px; }
        .field-label { font-weight: bold; color: #475569; }
        .period-trend {
            background: var(--card-bg);
            border-radius: 12px;
            padding: 24px;
            margin-bottom: 24px;
            border: 1px solid var(--border-color);
        }
        .kw-bar { background: #dbeafe; height: 18px; border-radius: 4px; }
        .kw-row { display: flex; align-items: center; gap: 8px; margin: 4px 0; font-size: 0.85rem; }
        .kw-name { width: 180px; text-align: right; color: #334155; }
        a { color: var(--primary-color); text-decoration: none; }
        a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>📰 论文雷达日报</h1>
            <div class="date-info">{{ .Date }} • {{ .Domain }} • 入选 {{ len .Papers }} 篇</div>
        </header>

        <div class="trend-box">
            <div class="field-label">📈 今日趋势</div>
            <div>{{ .GlobalTrend }}</div>
        </div>

        {{range .Papers}}
        <div class="paper-card">
            <div class="paper-score {{if ge .Score 4}}score-high{{end}}">{{ .Score }}/5</div>
            <div class="paper-title">{{ .TitleCN }}</div>
            <div class="paper-title-en"><a href="{{ .URL }}" target="_blank">{{ .TitleEN }}</a></div>
            <div class="paper-meta">{{ .ID }} • {{ .PrimaryCategory }} • {{ .PublishDate }}</div>
            <p><span class="field-label">动机：</span>{{ .Motivation }}</p>
            <p><span class="field-label">方法：</span>{{ .Method }}</p>
            <p><span class="field-label">范式关系：</span>{{ .ParadigmRelation }}</p>
            <p><span class="field-label">相关性：</span>{{ .Relevance.RelevanceScore }}/100 — {{ .Relevance.ReasonCN }}</p>
        </div>
        {{end}}

        {{if .WeeklyTrend}}
        <div class="period-trend">
            <div class="field-label">📅 本周趋势 ({{ .WeeklyTrend.StartDate }} ~ {{ .WeeklyTrend.EndDate }})</div>
            <p>{{ .WeeklyTrend.SummaryCN }}</p>
            {{range .WeeklyTrend.Keywords}}
            <div class="kw-row">
                <div class="kw-name">{{ .Keyword }}</div>
                <div class="kw-bar" style="width: {{ pct .Weight }}%"></div>
            </div>
            {{end}}
        </div>
        {{end}}

        {{if .MonthlyTrend}}
        <div class="period-trend">
            <div class="field-label">🗓️ 本月趋势 ({{ .MonthlyTrend.StartDate }} ~ {{ .MonthlyTrend.EndDate }})</div>
            <p>{{ .MonthlyTrend.SummaryCN }}</p>
        </div>
        {{end}}
    </div>
</body>
</html>
`

const baselineTpl = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<title>论文雷达日报 {{ .Date }}</title>
</head>
<body>
<h1>论文雷达日报 {{ .Date }}</h1>
<p>{{ .Domain }} | 入选 {{ len .Papers }} 篇 | 生成于 {{ .GeneratedAt }}</p>
<h2>今日趋势</h2>
<p>{{ .GlobalTrend }}</p>
<h2>入选论文</h2>
{{range .Papers}}
<h3>{{ .TitleCN }} ({{ .Score }}/5)</h3>
<p><a href="{{ .URL }}">{{ .TitleEN }}</a> — {{ .ID }} / {{ .PrimaryCategory }}</p>
<ul>
<li>动机：{{ .Motivation }}</li>
<li>方法：{{ .Method }}</li>
<li>范式关系：{{ .ParadigmRelation }}</li>
<li>相关性：{{ .Relevance.RelevanceScore }}/100</li>
</ul>
{{end}}
{{if .WeeklyTrend}}<h2>本周趋势</h2><p>{{ .WeeklyTrend.SummaryCN }}</p>{{end}}
{{if .MonthlyTrend}}<h2>本月趋势</h2><p>{{ .MonthlyTrend.SummaryCN }}</p>{{end}}
</body>
</html>
`

const modernTpl = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<title>论文雷达 | {{ .Date }}</title>
<style>
body { font-family: "Segoe UI", sans-serif; background: #0f172a; color: #e2e8f0; margin: 0; padding: 32px; }
.wrap { max-width: 860px; margin: 0 auto; }
h1 { color: #f8fafc; }
.card { background: #1e293b; border-radius: 10px; padding: 20px; margin-bottom: 18px; }
.title { font-size: 1.2rem; font-weight: 700; color: #93c5fd; }
.sub { color: #94a3b8; font-size: 0.9rem; }
a { color: #60a5fa; }
.badge { background: #334155; border-radius: 12px; padding: 2px 10px; font-size: 0.8rem; }
</style>
</head>
<body>
<div class="wrap">
<h1>论文雷达 {{ .Date }}</h1>
<div class="card"><div class="title">今日趋势</div><p>{{ .GlobalTrend }}</p></div>
{{range .Papers}}
<div class="card">
<div class="title">{{ .TitleCN }} <span class="badge">{{ .Score }}/5</span></div>
<div class="sub"><a href="{{ .URL }}">{{ .TitleEN }}</a> • {{ .PrimaryCategory }}</div>
<p>{{ .Motivation }}</p>
<p>{{ .Method }} / {{ .ParadigmRelation }}</p>
</div>
{{end}}
{{if .WeeklyTrend}}<div class="card"><div class="title">本周</div><p>{{ .WeeklyTrend.SummaryCN }}</p></div>{{end}}
{{if .MonthlyTrend}}<div class="card"><div class="title">本月</div><p>{{ .MonthlyTrend.SummaryCN }}</p></div>{{end}}
</div>
</body>
</html>
`

const compactTpl = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<title>{{ .Date }} 论文速览</title>
<style>
body { font-family: sans-serif; font-size: 13px; margin: 16px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; vertical-align: top; }
th { background: #f1f5f9; }
</style>
</head>
<body>
<h2>{{ .Date }} 论文速览（{{ len .Papers }} 篇）</h2>
<p>{{ .GlobalTrend }}</p>
<table>
<tr><th>#</th><th>标题</th><th>方法</th><th>分</th></tr>
{{range $i, $p := .Papers}}
<tr><td>{{ $p.ID }}</td><td><a href="{{ $p.URL }}">{{ $p.TitleCN }}</a></td><td>{{ $p.Method }}</td><td>{{ $p.Score }}</td></tr>
{{end}}
</table>
</body>
</html>
`
