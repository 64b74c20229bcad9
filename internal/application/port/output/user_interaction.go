package output

import (
	"context"

	"browser-replay/internal/domain/entity"
)

type UserInteractionPort interface {
	AskQuestion(ctx context.Context, question string) (string, error)
	AnswerInput(ctx context.Context, req entity.InputRequest) (string, error)

	ShowPlan(ctx context.Context, plan *entity.Plan)
	ShowResult(ctx context.Context, result *entity.ExecutionResult)
}
