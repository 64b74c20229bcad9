// Package jsonfile persists plans and execution results as one JSON document
// per id under plans/ and results/.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"
)

var (
	_ output.PlanStore   = (*Store)(nil)
	_ output.ResultStore = (*Store)(nil)
)

const (
	plansDir   = "plans"
	resultsDir = "results"
	fileExt    = ".json"
)

type Store struct {
	root   string
	logger output.LoggerPort
	now    func() time.Time
}

func New(root string, logger output.LoggerPort) (*Store, error) {
	for _, dir := range []string{plansDir, resultsDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, &entity.PersistenceError{Op: "init", Err: err}
		}
	}
	return &Store{
		root:   root,
		logger: logger.Named("storage"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// SavePlan writes plan and stamps its UpdatedAt.
func (s *Store) SavePlan(ctx context.Context, plan *entity.Plan) error {
	if plan == nil || plan.Metadata.ID == "" {
		return &entity.PersistenceError{Op: "save plan", Err: fmt.Errorf("%w: plan has no id", entity.ErrInvalidPlan)}
	}
	plan.Metadata.UpdatedAt = s.now()
	if err := s.write(ctx, plansDir, plan.Metadata.ID, plan); err != nil {
		return &entity.PersistenceError{Op: "save plan", ID: plan.Metadata.ID, Err: err}
	}
	s.logger.Info("Plan saved", "plan_id", plan.Metadata.ID, "name", plan.Metadata.Name)
	return nil
}

func (s *Store) LoadPlan(ctx context.Context, id string) (*entity.Plan, error) {
	var plan entity.Plan
	if err := s.read(ctx, plansDir, id, &plan); err != nil {
		return nil, &entity.PersistenceError{Op: "load plan", ID: id, Err: err}
	}
	return &plan, nil
}

// ListPlans returns plans carrying any of tags, or every plan when tags is
// empty, most recently updated first.
func (s *Store) ListPlans(ctx context.Context, tags []string) ([]*entity.Plan, error) {
	plans, err := s.allPlans(ctx)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return plans, nil
	}
	wanted := make(map[string]bool, len(tags))
	for _, t := range tags {
		wanted[t] = true
	}
	filtered := plans[:0]
	for _, p := range plans {
		for _, t := range p.Metadata.Tags {
			if wanted[t] {
				filtered = append(filtered, p)
				break
			}
		}
	}
	return filtered, nil
}

// SearchPlans matches query case-insensitively against plan names and
// descriptions.
func (s *Store) SearchPlans(ctx context.Context, query string) ([]*entity.Plan, error) {
	plans, err := s.allPlans(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	matched := plans[:0]
	for _, p := range plans {
		if strings.Contains(strings.ToLower(p.Metadata.Name), q) ||
			strings.Contains(strings.ToLower(p.Metadata.Description), q) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func (s *Store) DeletePlan(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return &entity.PersistenceError{Op: "delete plan", ID: id, Err: err}
	}
	path, err := s.path(plansDir, id)
	if err == nil {
		err = os.Remove(path)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = entity.ErrNotFound
		}
		return &entity.PersistenceError{Op: "delete plan", ID: id, Err: err}
	}
	s.logger.Info("Plan deleted", "plan_id", id)
	return nil
}

func (s *Store) SaveResult(ctx context.Context, result *entity.ExecutionResult) error {
	if result == nil || result.ID == "" {
		return &entity.PersistenceError{Op: "save result", Err: errors.New("result has no id")}
	}
	if err := s.write(ctx, resultsDir, result.ID, result); err != nil {
		return &entity.PersistenceError{Op: "save result", ID: result.ID, Err: err}
	}
	s.logger.Info("Execution result saved", "execution_id", result.ID, "plan_id", result.PlanID, "status", result.Status)
	return nil
}

func (s *Store) LoadResult(ctx context.Context, id string) (*entity.ExecutionResult, error) {
	var result entity.ExecutionResult
	if err := s.read(ctx, resultsDir, id, &result); err != nil {
		return nil, &entity.PersistenceError{Op: "load result", ID: id, Err: err}
	}
	return &result, nil
}

// ListResults returns the results of planID, or all results when planID is
// empty, newest first.
func (s *Store) ListResults(ctx context.Context, planID string) ([]*entity.ExecutionResult, error) {
	ids, err := s.ids(resultsDir)
	if err != nil {
		return nil, &entity.PersistenceError{Op: "list results", Err: err}
	}
	results := make([]*entity.ExecutionResult, 0, len(ids))
	for _, id := range ids {
		r, err := s.LoadResult(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			s.logger.Warn("Skipping unreadable result", "execution_id", id, "error", err)
			continue
		}
		if planID == "" || r.PlanID == planID {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})
	return results, nil
}

func (s *Store) allPlans(ctx context.Context) ([]*entity.Plan, error) {
	ids, err := s.ids(plansDir)
	if err != nil {
		return nil, &entity.PersistenceError{Op: "list plans", Err: err}
	}
	plans := make([]*entity.Plan, 0, len(ids))
	for _, id := range ids {
		p, err := s.LoadPlan(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			s.logger.Warn("Skipping unreadable plan", "plan_id", id, "error", err)
			continue
		}
		plans = append(plans, p)
	}
	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].Metadata.UpdatedAt.After(plans[j].Metadata.UpdatedAt)
	})
	return plans, nil
}

func (s *Store) ids(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, dir))
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	return ids, nil
}

func (s *Store) path(dir, id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid id %q", id)
	}
	return filepath.Join(s.root, dir, id+fileExt), nil
}

func (s *Store) read(ctx context.Context, dir, id string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(dir, id)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entity.ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// write replaces the document atomically so readers never see a partial
// file.
func (s *Store) write(ctx context.Context, dir, id string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(dir, id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+id+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
