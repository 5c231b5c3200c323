package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/paper_radar/pkg/config"
)

// openaiChat OpenAI 兼容提供方，消息数组进、首个 choice 的文本出
type openaiChat struct {
	models map[string]model.ChatModel
}

func newOpenAIChat(cfg config.LLMConfig) (*openaiChat, error) {
	ctx := context.Background()
	temperature := float32(cfg.Temperature)

	// ChatModel 绑定单一模型名，fast/smart 不同时各建一个
	models := make(map[string]model.ChatModel)
	for _, name := range []string{cfg.ModelFast, cfg.ModelSmart} {
		if name == "" {
			continue
		}
		if _, ok := models[name]; ok {
			continue
		}
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       name,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("LLM 初始化失败: %w", err)
		}
		models[name] = cm
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("LLM 配置错误: 未设置模型名")
	}
	return &openaiChat{models: models}, nil
}

// Chat implements chatter
func (o *openaiChat) Chat(ctx context.Context, modelName, system, user string) (string, error) {
	cm, ok := o.models[modelName]
	if !ok {
		return "", fmt.Errorf("未配置的模型: %s", modelName)
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: system},
		{Role: schema.User, Content: user},
	}

	return postWithRetry(func() (string, error) {
		resp, err := cm.Generate(ctx, messages)
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	})
}
