package output

import (
	"context"

	"browser-replay/internal/domain/entity"
)

// PagePort is one live page context. Every element argument is a descriptor
// taken from a fresh Elements call.
type PagePort interface {
	Navigate(ctx context.Context, url string) error
	Elements(ctx context.Context) (entity.ElementMap, error)

	Click(ctx context.Context, el entity.ElementDescriptor) error
	Type(ctx context.Context, el entity.ElementDescriptor, text string) error
	Select(ctx context.Context, el entity.ElementDescriptor, value string) error
	Scroll(ctx context.Context, direction string, amount int) error

	Screenshot(ctx context.Context, fullPage bool) (*entity.Screenshot, error)
	Text(ctx context.Context) (string, error)
	ElementText(ctx context.Context, el entity.ElementDescriptor) (string, error)

	CurrentURL() string
	Close() error
}

// PageFactory starts page contexts. Closing the returned page stops it.
type PageFactory interface {
	Open(ctx context.Context) (PagePort, error)
}

// SemanticExtractor is an optional page capability answering a free-text
// query about the current page.
type SemanticExtractor interface {
	ExtractSemantic(ctx context.Context, query string) (*SemanticResult, error)
}

type SemanticResult struct {
	Value     string         `json:"value"`
	ValueType string         `json:"type,omitempty"`
	Currency  string         `json:"currency,omitempty"`
	Raw       map[string]any `json:"-"`
}
