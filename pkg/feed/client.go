package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/iWorld-y/paper_radar/pkg/model"
)

const apiBase = "https://export.arxiv.org/api/query"

// Fetcher 定义通用的论文检索接口
type Fetcher interface {
	Fetch(ctx context.Context, categories []string, maxResults int) ([]model.PaperCandidate, error)
}

// Client arXiv Atom API 客户端
type Client struct {
	client *http.Client
}

// NewClient 创建一个新的 arXiv 客户端
func NewClient() *Client {
	return &Client{
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Ensure Client implements Fetcher
var _ Fetcher = (*Client)(nil)

// Fetch 按分区抓取最近更新的论文，结果按更新时间倒序
func (c *Client) Fetch(ctx context.Context, categories []string, maxResults int) ([]model.PaperCandidate, error) {
	query := "all"
	if len(categories) > 0 {
		terms := make([]string, 0, len(categories))
		for _, cat := range categories {
			terms = append(terms, "cat:"+cat)
		}
		query = strings.Join(terms, " OR ")
	}

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("sortBy", "lastUpdatedDate")
	params.Set("sortOrder", "descending")
	params.Set("max_results", fmt.Sprintf("%d", maxResults))

	httpReq, err := http.NewRequestWithContext(ctx, "GET", apiBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv api error (status %d)", res.StatusCode)
	}

	parsed, err := gofeed.NewParser().Parse(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed failed: %w", err)
	}

	candidates := make([]model.PaperCandidate, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		candidates = append(candidates, toCandidate(item))
	}
	return candidates, nil
}

// toCandidate 将一条 Atom entry 转为候选论文
func toCandidate(item *gofeed.Item) model.PaperCandidate {
	entryID := item.GUID
	if entryID == "" {
		entryID = item.Link
	}
	// entry id 形如 http://arxiv.org/abs/2401.12345v2，短 ID 取末段
	pid := entryID
	if idx := strings.LastIndex(entryID, "/"); idx >= 0 {
		pid = entryID[idx+1:]
	}

	title := strings.ReplaceAll(strings.TrimSpace(item.Title), "\n", " ")
	abstract := strings.ReplaceAll(strings.TrimSpace(item.Description), "\n", " ")

	var authors []string
	for _, a := range item.Authors {
		if a == nil {
			continue
		}
		authors = append(authors, a.Name)
		if len(authors) >= 3 {
			break
		}
	}

	updated := item.UpdatedParsed
	if updated == nil {
		updated = item.PublishedParsed
	}
	publishDate := ""
	if updated != nil {
		publishDate = updated.Format(time.RFC3339)
	}

	categories := append([]string(nil), item.Categories...)

	primary := primaryCategory(item)
	if primary == "" && len(categories) > 0 {
		primary = categories[0]
	}

	return model.PaperCandidate{
		ID:              pid,
		TitleEN:         title,
		Authors:         authors,
		URL:             entryID,
		PublishDate:     publishDate,
		Categories:      categories,
		PrimaryCategory: primary,
		Abstract:        abstract,
	}
}

// primaryCategory 从 arxiv 扩展命名空间中取主分区
func primaryCategory(item *gofeed.Item) string {
	exts, ok := item.Extensions["arxiv"]
	if !ok {
		return ""
	}
	for _, e := range exts["primary_category"] {
		if term, ok := e.Attrs["term"]; ok {
			return term
		}
	}
	return ""
}
