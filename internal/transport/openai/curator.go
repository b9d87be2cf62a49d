package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/modacloud/stylesearch/internal/domain"
)

// Curator asks a chat-completion model to split retrieved candidates into
// presentation buckets and write the storefront copy. It only ever reorders
// IDs it was given; unknown IDs are dropped downstream.
type Curator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// CuratorConfig holds the chat-completion settings.
type CuratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewCurator creates a chat-completion curator.
func NewCurator(cfg *CuratorConfig) *Curator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Curator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

const curatorSystemPrompt = `あなたはファッションECサイトの商品キュレーターです。
検索クエリと候補商品リストから、以下のJSON形式で提案を作成してください。

{
  "main_products": ["クエリに最も合致する商品IDの配列"],
  "sub_products": ["関連性の高い代替商品IDの配列"],
  "related_products": ["合わせて提案したい商品IDの配列"],
  "summary": "検索意図の要約（100文字以内）",
  "message": "お客様への提案メッセージ（150文字以内）"
}

ルール:
- 候補リストにあるIDだけを使うこと
- 同じIDを複数の配列に入れないこと
- JSONのみを出力すること`

// Curate sends the query and candidates to the model and parses its lists.
func (c *Curator) Curate(ctx context.Context, query string, products []domain.Product) (domain.Curation, error) {
	if len(products) == 0 {
		return domain.Curation{}, nil
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: curatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildCuratorPrompt(query, products)},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return domain.Curation{}, fmt.Errorf("curate: %w", curatorAPIError(err))
	}
	if len(resp.Choices) == 0 {
		return domain.Curation{}, fmt.Errorf("curate: empty response: %w", domain.ErrCuratorError)
	}

	lists, err := parseCuratedLists(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.Curation{}, fmt.Errorf("curate: %w: %v", domain.ErrCuratorError, err)
	}
	return lists, nil
}

// curatorAPIError classifies a chat-completion failure. Rate limits map to
// domain.ErrRateLimited so callers can back off instead of degrading;
// everything else wraps domain.ErrCuratorError for 502 mapping.
func curatorAPIError(err error) error {
	status := 0
	detail := ""

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		detail = apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
		detail = string(reqErr.Body)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("curator API error %d: %s: %w", status, detail, domain.ErrRateLimited)
	case status != 0:
		return fmt.Errorf("curator API error %d: %s: %w", status, detail, domain.ErrCuratorError)
	default:
		return fmt.Errorf("curator request failed: %w: %v", domain.ErrCuratorError, err)
	}
}

// buildCuratorPrompt compresses each candidate to one pipe-separated line
// to keep the prompt small.
func buildCuratorPrompt(query string, products []domain.Product) string {
	var b strings.Builder
	b.WriteString("検索クエリ: ")
	b.WriteString(query)
	b.WriteString("\n\n候補商品:\n")
	for i := range products {
		p := &products[i]
		fmt.Fprintf(&b, "%s|%s|%s|%s|¥%d|評価%.1f\n",
			p.ID, p.Name, p.Brand, strings.Join(p.Category, "/"), p.Price, p.Rating)
	}
	return b.String()
}

// parseCuratedLists extracts the JSON object from the completion text.
// Models often wrap output in a ```json fence despite instructions.
func parseCuratedLists(content string) (domain.Curation, error) {
	jsonText := extractJSONBlock(content)
	if jsonText == "" {
		return domain.Curation{}, errors.New("no JSON object in completion")
	}

	var lists domain.Curation
	if err := json.Unmarshal([]byte(jsonText), &lists); err != nil {
		return domain.Curation{}, fmt.Errorf("parse completion JSON: %w", err)
	}
	return lists, nil
}

func extractJSONBlock(content string) string {
	if idx := strings.Index(content, "```json"); idx >= 0 {
		rest := content[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return ""
}
