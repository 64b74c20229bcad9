package output

import (
	"context"

	"browser-replay/internal/domain/entity"
)

type PlanStore interface {
	SavePlan(ctx context.Context, plan *entity.Plan) error
	LoadPlan(ctx context.Context, id string) (*entity.Plan, error)
	ListPlans(ctx context.Context, tags []string) ([]*entity.Plan, error)
	SearchPlans(ctx context.Context, query string) ([]*entity.Plan, error)
	DeletePlan(ctx context.Context, id string) error
}

type ResultStore interface {
	SaveResult(ctx context.Context, result *entity.ExecutionResult) error
	LoadResult(ctx context.Context, id string) (*entity.ExecutionResult, error)
	ListResults(ctx context.Context, planID string) ([]*entity.ExecutionResult, error)
}
