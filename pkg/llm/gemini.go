package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/iWorld-y/paper_radar/pkg/config"
)

// geminiChat Google Generative Language API (v1beta) 提供方。
// POST {base_url}/v1beta/models/{model}:generateContent，API Key 走 x-api-key 头。
type geminiChat struct {
	baseURL     string
	apiKey      string
	temperature float64
	aliases     map[string]string
	client      *http.Client
}

func newGeminiChat(cfg config.LLMConfig) *geminiChat {
	return &geminiChat{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		aliases:     cfg.ModelAliases,
		client: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
			},
		},
	}
}

// generateRequest generate-content 请求体
type generateRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// generateResponse generate-content 响应体，只取首个 candidate
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Chat implements chatter
func (g *geminiChat) Chat(ctx context.Context, modelName, system, user string) (string, error) {
	m := modelName
	if alias, ok := g.aliases[modelName]; ok {
		m = alias
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, m)

	req := generateRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: system + "\n\n" + user}}},
		},
	}
	req.GenerationConfig.Temperature = g.temperature

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request failed: %w", err)
	}

	return postWithRetry(func() (string, error) {
		return g.doGenerate(ctx, url, payload)
	})
}

func (g *geminiChat) doGenerate(ctx context.Context, url string, payload []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Add("x-api-key", g.apiKey)
	httpReq.Header.Add("Content-Type", "application/json")

	res, err := g.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini api error (status %d): %s", res.StatusCode, string(body))
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("unexpected gemini response shape: %s", string(body))
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}
