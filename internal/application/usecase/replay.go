package usecase

import (
	"context"
	"fmt"

	"browser-replay/internal/application/port/input"
	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"
)

// ReplayUseCase ties compilation and execution to persistence and, when a
// console is available, prompts for parameters the caller did not supply.
type ReplayUseCase struct {
	compiler input.PlanCompiler
	executor input.PlanExecutor
	plans    output.PlanStore
	results  output.ResultStore
	ui       output.UserInteractionPort
	logger   output.LoggerPort
}

func NewReplayUseCase(
	compiler input.PlanCompiler,
	executor input.PlanExecutor,
	plans output.PlanStore,
	results output.ResultStore,
	ui output.UserInteractionPort,
	logger output.LoggerPort,
) *ReplayUseCase {
	return &ReplayUseCase{
		compiler: compiler,
		executor: executor,
		plans:    plans,
		results:  results,
		ui:       ui,
		logger:   logger.Named("replay"),
	}
}

// Compile turns a discovery record into a stored plan. Extra tags are
// appended to the ones the trace carries.
func (uc *ReplayUseCase) Compile(ctx context.Context, record *entity.DiscoveryRecord, tags ...string) (*entity.Plan, error) {
	plan, err := uc.compiler.CompileRecord(record)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	plan.Metadata.Tags = mergeTags(plan.Metadata.Tags, tags)

	if err := uc.plans.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	uc.logger.Info("Plan compiled",
		"plan_id", plan.Metadata.ID,
		"steps", len(plan.Steps),
		"required_params", plan.Metadata.RequiredParams,
	)
	return plan, nil
}

// Run replays a stored plan and stores the outcome. A result that was
// produced but could not be saved is returned together with the error.
func (uc *ReplayUseCase) Run(ctx context.Context, planID string, params map[string]string) (*entity.ExecutionResult, error) {
	plan, err := uc.plans.LoadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	values, err := uc.completeParams(ctx, plan, params)
	if err != nil {
		return nil, err
	}

	result, err := uc.executor.Execute(ctx, plan, values)
	if err != nil {
		return nil, fmt.Errorf("execute plan %s: %w", planID, err)
	}

	if err := uc.results.SaveResult(ctx, result); err != nil {
		uc.logger.Error("Failed to save execution result", "execution_id", result.ID, "error", err)
		return result, err
	}
	return result, nil
}

func (uc *ReplayUseCase) completeParams(ctx context.Context, plan *entity.Plan, params map[string]string) (map[string]string, error) {
	values := make(map[string]string, len(params))
	for k, v := range params {
		values[k] = v
	}

	missing := plan.MissingParams(values)
	if len(missing) == 0 || uc.ui == nil {
		return values, nil
	}

	for _, name := range missing {
		answer, err := uc.ui.AnswerInput(ctx, entity.InputRequest{
			FieldName: name,
			Prompt:    fmt.Sprintf("Value for %s", name),
			Example:   exampleFor(plan, name),
			Required:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("read parameter %s: %w", name, err)
		}
		values[name] = answer
	}
	return values, nil
}

// exampleFor returns the value typed during discovery for the input that
// references name, if it was kept.
func exampleFor(plan *entity.Plan, name string) string {
	placeholder := entity.Placeholder(name)
	for _, step := range plan.Steps {
		p, ok := step.Params.(entity.InputParams)
		if !ok || p.Text != placeholder {
			continue
		}
		if text, ok := step.OriginalParams["text"].(string); ok {
			return text
		}
	}
	return ""
}

func mergeTags(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, t := range append(append([]string{}, base...), extra...) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
