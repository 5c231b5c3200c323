package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	Filter      FilterConfig      `yaml:"filter"`
	Trend       TrendConfig       `yaml:"trend"`
	Spotlight   SpotlightConfig   `yaml:"spotlight"`
	Output      OutputConfig      `yaml:"output"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	Provider    string            `yaml:"provider"` // openai | gemini
	BaseURL     string            `yaml:"base_url"`
	APIKey      string            `yaml:"api_key"`
	ModelFast   string            `yaml:"model_fast"`
	ModelSmart  string            `yaml:"model_smart"`
	Temperature float64           `yaml:"temperature"`
	// 部分网关只暴露 preview 名称，这里做稳定名到实际模型 ID 的映射
	ModelAliases map[string]string `yaml:"model_aliases"`
}

// SearchConfig 检索相关配置
type SearchConfig struct {
	Categories      []string `yaml:"categories"`
	Mode            string   `yaml:"mode"` // latest_update_day | fixed_window
	TimeWindowHours int      `yaml:"time_window_hours"`
	LookbackDays    int      `yaml:"lookback_days"`
	Timezone        string   `yaml:"timezone"`
	MaxResults      int      `yaml:"max_results"`
	KeywordsInclude []string `yaml:"keywords_include"`
	KeywordsExclude []string `yaml:"keywords_exclude"`
}

// FilterConfig 相关性筛选配置
type FilterConfig struct {
	RelevanceThreshold int    `yaml:"relevance_threshold"`
	MaxSelected        int    `yaml:"max_selected"`
	ReviewerMode       string `yaml:"reviewer_mode"` // fast_only | fast_then_review（预留）
}

// TrendConfig 趋势汇总配置
type TrendConfig struct {
	EnableWeekly  bool `yaml:"enable_weekly"`
	EnableMonthly bool `yaml:"enable_monthly"`
	WeeklyDays    int  `yaml:"weekly_days"`
	MonthlyDays   int  `yaml:"monthly_days"`
	TopKKeywords  int  `yaml:"top_k_keywords"`
}

// SpotlightConfig 热点论文配置（预留）
type SpotlightConfig struct {
	Enable             bool     `yaml:"enable"`
	RecentDays         int      `yaml:"recent_days"`
	AttentionThreshold int      `yaml:"attention_threshold"`
	MaxItems           int      `yaml:"max_items"`
	Sources            []string `yaml:"sources"`
}

// OutputConfig 产物输出配置
type OutputConfig struct {
	WritePDF bool `yaml:"write_pdf"`
	// HTML 模板短名 (editorial|baseline|modern|compact) 或 '*.tmpl' 文件名
	HTMLTemplate string `yaml:"html_template"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			ModelFast:   "gemini-3-flash",
			ModelSmart:  "gemini-3-flash",
			Temperature: 0.0,
			ModelAliases: map[string]string{
				"gemini-3-flash": "gemini-3-flash-preview",
			},
		},
		Search: SearchConfig{
			Mode:            "latest_update_day",
			TimeWindowHours: 24,
			LookbackDays:    7,
			Timezone:        "UTC",
			MaxResults:      120,
		},
		Filter: FilterConfig{
			RelevanceThreshold: 60,
			MaxSelected:        20,
			ReviewerMode:       "fast_only",
		},
		Trend: TrendConfig{
			EnableWeekly:  true,
			EnableMonthly: true,
			WeeklyDays:    7,
			MonthlyDays:   30,
			TopKKeywords:  20,
		},
		Spotlight: SpotlightConfig{
			Enable:             false,
			RecentDays:         7,
			AttentionThreshold: 70,
			MaxItems:           2,
			Sources:            []string{"semantic_scholar"},
		},
		Output: OutputConfig{
			WritePDF:     true,
			HTMLTemplate: "editorial",
		},
		Log: LogConfig{
			Level: "info",
		},
		Concurrency: ConcurrencyConfig{
			QPS: 2,
			RPM: 60,
		},
	}
}

// LoadConfig 从指定路径加载配置，文件不存在时返回默认配置
func LoadConfig(path string) (*Config, error) {
	// .env 文件仅用于补充 API Key 等敏感项，不存在则忽略
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.resolveAPIKey()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	cfg.resolveAPIKey()
	return cfg, nil
}

// resolveAPIKey 配置未给出 api_key 时回落到环境变量
func (c *Config) resolveAPIKey() {
	if c.LLM.APIKey != "" {
		return
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.APIKey = v
		return
	}
	c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
}
