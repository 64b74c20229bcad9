// Package executor replays compiled plans against a live page without any
// model in the loop.
package executor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"browser-replay/internal/application/port/input"
	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"

	"github.com/google/uuid"
)

var _ input.PlanExecutor = (*Executor)(nil)

type Executor struct {
	pages  output.PageFactory
	config Config
	logger output.LoggerPort
}

func New(pages output.PageFactory, config Config, logger output.LoggerPort) *Executor {
	return &Executor{
		pages:  pages,
		config: config,
		logger: logger.Named("executor"),
	}
}

// Execute runs plan step by step. The returned error is reserved for plans
// that cannot be run at all; every run that starts yields a result whose
// status says how it ended.
func (e *Executor) Execute(ctx context.Context, plan *entity.Plan, params map[string]string) (result *entity.ExecutionResult, err error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: plan is nil", entity.ErrInvalidPlan)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if e.config.StrictParams {
		if missing := plan.MissingParams(params); len(missing) > 0 {
			return nil, fmt.Errorf("%w: %v", entity.ErrMissingParams, missing)
		}
	}

	start := time.Now()
	result = &entity.ExecutionResult{
		ID:         newID(),
		PlanID:     plan.Metadata.ID,
		Artifacts:  []entity.Artifact{},
		TotalSteps: len(plan.Steps),
		StartedAt:  start.UTC(),
		Metadata:   map[string]any{"plan_name": plan.Metadata.Name},
	}
	log := e.logger.WithFields(map[string]any{"plan_id": plan.Metadata.ID, "execution_id": result.ID})
	log.Info("Starting plan execution", "steps", len(plan.Steps))

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	page, err := e.pages.Open(ctx)
	if err != nil {
		log.Error("Failed to open page", "error", err)
		result.Status = entity.ExecutionError
		result.ErrorMessage = fmt.Sprintf("open page: %v", err)
		e.finish(log, result, start)
		return result, nil
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Warn("Failed to close page", "error", cerr)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Error("Plan execution panicked", "panic", r)
			result.Status = entity.ExecutionError
			result.ErrorMessage = fmt.Sprintf("unexpected error: %v", r)
			e.captureError(ctx, log, page, result, result.ErrorMessage)
			e.finish(log, result, start)
			err = nil
		}
	}()

	for _, step := range plan.Steps {
		artifacts, stepErr := e.runStep(ctx, page, step, params)
		if stepErr != nil && e.config.RetryOnError && ctx.Err() == nil {
			log.Warn("Step failed, retrying",
				"step", step.SequenceID,
				"action", step.Action,
				"error", stepErr,
			)
			if sleepErr := sleep(ctx, e.config.RetryDelay); sleepErr == nil {
				artifacts, stepErr = e.runStep(ctx, page, step, params)
			}
		}
		if stepErr != nil {
			result.Status = failureStatus(ctx)
			result.ErrorMessage = fmt.Sprintf("step %d (%s) failed: %v", step.SequenceID, step.Action, stepErr)
			log.Error("Step failed", "step", step.SequenceID, "action", step.Action, "error", stepErr)
			e.captureError(ctx, log, page, result, stepErr.Error())
			e.finish(log, result, start)
			return result, nil
		}

		result.Artifacts = append(result.Artifacts, artifacts...)
		result.StepsCompleted++
		log.Debug("Step completed", "step", step.SequenceID, "action", step.Action)
	}

	result.Status = entity.ExecutionSuccess
	e.finish(log, result, start)
	return result, nil
}

// runStep performs one attempt of step. Artifacts are returned only when the
// attempt succeeds.
func (e *Executor) runStep(ctx context.Context, page output.PagePort, step entity.PlanStep, values map[string]string) ([]entity.Artifact, error) {
	var artifacts []entity.Artifact

	switch p := inject(step.Params, values).(type) {
	case entity.NavigateParams:
		if err := page.Navigate(ctx, p.URL); err != nil {
			return nil, err
		}
		if err := sleep(ctx, e.config.Settle.Navigate); err != nil {
			return nil, err
		}
	case entity.ClickParams:
		el, err := resolve(ctx, page, p.Locator)
		if err != nil {
			return nil, err
		}
		if err := page.Click(ctx, el); err != nil {
			return nil, err
		}
		if err := sleep(ctx, e.config.Settle.Click); err != nil {
			return nil, err
		}
	case entity.InputParams:
		el, err := resolve(ctx, page, p.Locator)
		if err != nil {
			return nil, err
		}
		if err := page.Type(ctx, el, p.Text); err != nil {
			return nil, err
		}
		if err := sleep(ctx, e.config.Settle.Input); err != nil {
			return nil, err
		}
	case entity.SelectParams:
		el, err := resolve(ctx, page, p.Locator)
		if err != nil {
			return nil, err
		}
		if err := page.Select(ctx, el, p.Value); err != nil {
			return nil, err
		}
		if err := sleep(ctx, e.config.Settle.Click); err != nil {
			return nil, err
		}
	case entity.ScrollParams:
		if err := page.Scroll(ctx, p.Direction, p.Amount); err != nil {
			return nil, err
		}
		if err := sleep(ctx, e.config.Settle.Scroll); err != nil {
			return nil, err
		}
	case entity.WaitParams:
		if err := sleep(ctx, time.Duration(p.DurationMs)*time.Millisecond); err != nil {
			return nil, err
		}
	case entity.ExtractParams:
		art, err := e.extract(ctx, page, step, p)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, art)
	case entity.ScreenshotParams:
		art, err := screenshotArtifact(ctx, page, p.FullPage, fmt.Sprintf("step_%02d_screenshot", step.SequenceID), nil)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, art)
	default:
		return nil, fmt.Errorf("%w: %s", entity.ErrUnsupportedAction, step.Action)
	}

	if e.config.SaveScreenshots && step.Action != entity.ActionScreenshot {
		name := fmt.Sprintf("step_%02d_%s", step.SequenceID, step.Action)
		art, err := screenshotArtifact(ctx, page, false, name, map[string]any{entity.MetaStep: stepLabel(step)})
		if err != nil {
			e.logger.Warn("Post-step screenshot failed", "step", step.SequenceID, "error", err)
		} else {
			artifacts = append(artifacts, art)
		}
	}
	return artifacts, nil
}

func (e *Executor) captureError(ctx context.Context, log output.LoggerPort, page output.PagePort, result *entity.ExecutionResult, cause string) {
	if !e.config.ScreenshotOnError {
		return
	}
	// The run context may already be done.
	shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	art, err := screenshotArtifact(shotCtx, page, false, "error_screenshot", map[string]any{entity.MetaError: cause})
	if err != nil {
		log.Warn("Failed to take error screenshot", "error", err)
		return
	}
	result.Artifacts = append(result.Artifacts, art)
}

func (e *Executor) finish(log output.LoggerPort, result *entity.ExecutionResult, start time.Time) {
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	log.Info("Plan execution finished",
		"status", result.Status,
		"steps_completed", result.StepsCompleted,
		"total_steps", result.TotalSteps,
		"artifacts", len(result.Artifacts),
		"duration_ms", result.ExecutionTimeMs,
	)
}

func screenshotArtifact(ctx context.Context, page output.PagePort, fullPage bool, name string, meta map[string]any) (entity.Artifact, error) {
	shot, err := page.Screenshot(ctx, fullPage)
	if err != nil {
		return entity.Artifact{}, fmt.Errorf("screenshot: %w", err)
	}
	format := shot.Format
	if format == "" {
		format = "png"
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["format"] = format
	return entity.Artifact{
		ID:       newID(),
		Type:     entity.ArtifactScreenshot,
		Name:     name + "." + format,
		Content:  base64.StdEncoding.EncodeToString(shot.Data),
		Metadata: meta,
	}, nil
}

func failureStatus(ctx context.Context) entity.ExecutionStatus {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return entity.ExecutionTimeout
	case ctx.Err() != nil:
		return entity.ExecutionError
	default:
		return entity.ExecutionFailure
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func stepLabel(step entity.PlanStep) string {
	return strconv.Itoa(step.SequenceID)
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
