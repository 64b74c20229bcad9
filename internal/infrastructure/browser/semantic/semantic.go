// Package semantic adds model-backed query extraction to a page.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"
)

const (
	defaultMaxPageChars = 30_000
	defaultMaxTokens    = 300
)

const systemPrompt = `You extract one value from a web page's text.

Answer ONLY with a JSON object:
{
  "value": "the exact value as it appears on the page, or empty if absent",
  "type": "monetary | numeric | text",
  "currency": "ISO currency code when type is monetary, else empty"
}`

var (
	_ output.PagePort          = (*Page)(nil)
	_ output.SemanticExtractor = (*Page)(nil)
	_ output.PageFactory       = (*Factory)(nil)
)

type Config struct {
	MaxPageChars int `mapstructure:"max_page_chars"`
	MaxTokens    int `mapstructure:"max_tokens"`
}

func DefaultConfig() Config {
	return Config{
		MaxPageChars: defaultMaxPageChars,
		MaxTokens:    defaultMaxTokens,
	}
}

// Factory wraps every page opened by the inner factory with semantic
// extraction.
type Factory struct {
	inner  output.PageFactory
	llm    output.LLMPort
	cfg    Config
	logger output.LoggerPort
}

func NewFactory(inner output.PageFactory, llm output.LLMPort, cfg Config, logger output.LoggerPort) *Factory {
	return &Factory{inner: inner, llm: llm, cfg: cfg, logger: logger.Named("semantic")}
}

func (f *Factory) Open(ctx context.Context) (output.PagePort, error) {
	page, err := f.inner.Open(ctx)
	if err != nil {
		return nil, err
	}
	return &Page{PagePort: page, llm: f.llm, cfg: f.cfg, logger: f.logger}, nil
}

type Page struct {
	output.PagePort
	llm    output.LLMPort
	cfg    Config
	logger output.LoggerPort
}

func (p *Page) ExtractSemantic(ctx context.Context, query string) (*output.SemanticResult, error) {
	text, err := p.Text(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page text: %w", err)
	}
	text = truncate(text, p.cfg.MaxPageChars)

	resp, err := p.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			{Role: entity.RoleSystem, Content: systemPrompt},
			{Role: entity.RoleUser, Content: buildPrompt(query, p.CurrentURL(), text)},
		},
		Temperature: 0,
		MaxTokens:   p.cfg.MaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}

	result, err := parseResponse(resp.Message.Content)
	if err != nil {
		p.logger.Warn("Failed to parse extraction response", "error", err, "query", query)
		return nil, err
	}
	p.logger.Info("Semantic extraction completed", "query", query, "value", result.Value, "type", result.ValueType)
	return result, nil
}

// truncate keeps the first limit characters of s. A limit of zero or less
// keeps everything.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

func buildPrompt(query, url, text string) string {
	var sb strings.Builder
	sb.WriteString("Find: ")
	sb.WriteString(query)
	if url != "" {
		sb.WriteString("\nPage URL: ")
		sb.WriteString(url)
	}
	sb.WriteString("\n\nPage text:\n")
	sb.WriteString(text)
	return sb.String()
}

// parseResponse reads the first JSON object in response, tolerating prose or
// code fences around it.
func parseResponse(response string) (*output.SemanticResult, error) {
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	result := &output.SemanticResult{
		Value:     stringField(raw, "value"),
		ValueType: stringField(raw, "type"),
		Currency:  stringField(raw, "currency"),
		Raw:       raw,
	}
	if result.ValueType == "text" {
		result.ValueType = ""
	}
	if result.Value == "" {
		return nil, fmt.Errorf("response has no value")
	}
	return result, nil
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprint(v))
	default:
		return ""
	}
}
