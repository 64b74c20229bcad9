package output

import (
	"context"

	"browser-replay/internal/domain/entity"
)

type LLMPort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatRequest struct {
	Messages    []entity.Message
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

type ChatResponse struct {
	Message entity.Message
}
