package input

import (
	"context"

	"browser-replay/internal/domain/entity"
)

type PlanExecutor interface {
	Execute(ctx context.Context, plan *entity.Plan, params map[string]string) (*entity.ExecutionResult, error)
}
