package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/iWorld-y/paper_radar/pkg/config"
)

// 提供方标签，在构造时一次性确定
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// chatter 抽象一次对话补全：输入 system/user 提示词，返回原始文本。
// 每个提供方一个实现，其余代码不感知后端差异。
type chatter interface {
	Chat(ctx context.Context, modelName, system, user string) (string, error)
}

// newChatter 按配置的提供方标签创建对应实现，缺少必要配置直接报错
func newChatter(cfg config.LLMConfig) (chatter, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("缺少 LLM 配置: 请设置 llm.api_key 或 OPENAI_API_KEY/GEMINI_API_KEY")
		}
		return newOpenAIChat(cfg)
	case ProviderGemini:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("gemini 提供方需要 llm.base_url")
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini 提供方需要 llm.api_key (或 GEMINI_API_KEY/OPENAI_API_KEY 环境变量)")
		}
		return newGeminiChat(cfg), nil
	default:
		return nil, fmt.Errorf("未知的 LLM 提供方: %s", cfg.Provider)
	}
}

const (
	maxTransportAttempts = 3
	retryBaseDelay       = 1500 * time.Millisecond
)

// postWithRetry 仅对传输层失败（超时、连接失败、流中断）重试，
// 指数退避，基准 1.5s 逐次翻倍。响应内容不在这一层解释。
func postWithRetry(do func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxTransportAttempts; attempt++ {
		text, err := do()
		if err == nil {
			return text, nil
		}
		if !isTransportError(err) {
			return "", err
		}
		lastErr = err
		if attempt < maxTransportAttempts-1 {
			time.Sleep(retryBaseDelay * time.Duration(1<<attempt))
		}
	}
	return "", lastErr
}

// isTransportError 判断是否为可重试的传输层错误
func isTransportError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "timeout")
}
