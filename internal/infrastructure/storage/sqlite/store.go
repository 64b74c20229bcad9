// Package sqlite persists plans and execution results in a SQLite
// database, one JSON document per row next to the columns used for
// filtering and ordering.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"

	_ "github.com/mattn/go-sqlite3"
)

var (
	_ output.PlanStore   = (*Store)(nil)
	_ output.ResultStore = (*Store)(nil)
)

// timeLayout has a fixed width so text columns order chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	db     *sql.DB
	logger output.LoggerPort
	now    func() time.Time
}

func New(dsn string, logger output.LoggerPort) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, &entity.PersistenceError{Op: "open", Err: err}
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		logger: logger.Named("storage"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, &entity.PersistenceError{Op: "migrate", Err: err}
	}
	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS plans (
			plan_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			updated_at TEXT NOT NULL,
			document TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			execution_id TEXT PRIMARY KEY,
			plan_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			document TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_plan ON results(plan_id, started_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SavePlan inserts or replaces plan and stamps its UpdatedAt.
func (s *Store) SavePlan(ctx context.Context, plan *entity.Plan) error {
	if plan == nil || plan.Metadata.ID == "" {
		return &entity.PersistenceError{Op: "save plan", Err: fmt.Errorf("%w: plan has no id", entity.ErrInvalidPlan)}
	}
	plan.Metadata.UpdatedAt = s.now()

	doc, err := json.Marshal(plan)
	if err != nil {
		return &entity.PersistenceError{Op: "save plan", ID: plan.Metadata.ID, Err: err}
	}
	tags, err := json.Marshal(nonNil(plan.Metadata.Tags))
	if err != nil {
		return &entity.PersistenceError{Op: "save plan", ID: plan.Metadata.ID, Err: err}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plans (plan_id, name, description, tags, updated_at, document) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(plan_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			tags = excluded.tags,
			updated_at = excluded.updated_at,
			document = excluded.document`,
		plan.Metadata.ID, plan.Metadata.Name, plan.Metadata.Description, string(tags),
		plan.Metadata.UpdatedAt.Format(timeLayout), string(doc))
	if err != nil {
		return &entity.PersistenceError{Op: "save plan", ID: plan.Metadata.ID, Err: err}
	}
	s.logger.Info("Plan saved", "plan_id", plan.Metadata.ID, "name", plan.Metadata.Name)
	return nil
}

func (s *Store) LoadPlan(ctx context.Context, id string) (*entity.Plan, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM plans WHERE plan_id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		err = entity.ErrNotFound
	}
	if err != nil {
		return nil, &entity.PersistenceError{Op: "load plan", ID: id, Err: err}
	}
	var plan entity.Plan
	if err := json.Unmarshal([]byte(doc), &plan); err != nil {
		return nil, &entity.PersistenceError{Op: "load plan", ID: id, Err: err}
	}
	return &plan, nil
}

// ListPlans returns plans carrying any of tags, or every plan when tags is
// empty, most recently updated first.
func (s *Store) ListPlans(ctx context.Context, tags []string) ([]*entity.Plan, error) {
	query := `SELECT plan_id, document FROM plans`
	var args []any
	if len(tags) > 0 {
		query += ` WHERE EXISTS (SELECT 1 FROM json_each(plans.tags) WHERE json_each.value IN (?` +
			strings.Repeat(", ?", len(tags)-1) + `))`
		for _, t := range tags {
			args = append(args, t)
		}
	}
	query += ` ORDER BY updated_at DESC`
	return s.queryPlans(ctx, "list plans", query, args...)
}

// SearchPlans matches query case-insensitively against plan names and
// descriptions.
func (s *Store) SearchPlans(ctx context.Context, query string) ([]*entity.Plan, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"
	return s.queryPlans(ctx, "search plans",
		`SELECT plan_id, document FROM plans
		WHERE lower(name) LIKE ? ESCAPE '\' OR lower(description) LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC`,
		pattern, pattern)
}

func (s *Store) DeletePlan(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE plan_id = ?`, id)
	if err == nil {
		var n int64
		if n, err = res.RowsAffected(); err == nil && n == 0 {
			err = entity.ErrNotFound
		}
	}
	if err != nil {
		return &entity.PersistenceError{Op: "delete plan", ID: id, Err: err}
	}
	s.logger.Info("Plan deleted", "plan_id", id)
	return nil
}

func (s *Store) SaveResult(ctx context.Context, result *entity.ExecutionResult) error {
	if result == nil || result.ID == "" {
		return &entity.PersistenceError{Op: "save result", Err: errors.New("result has no id")}
	}
	doc, err := json.Marshal(result)
	if err != nil {
		return &entity.PersistenceError{Op: "save result", ID: result.ID, Err: err}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO results (execution_id, plan_id, status, started_at, document) VALUES (?, ?, ?, ?, ?)`,
		result.ID, result.PlanID, string(result.Status), result.StartedAt.UTC().Format(timeLayout), string(doc))
	if err != nil {
		return &entity.PersistenceError{Op: "save result", ID: result.ID, Err: err}
	}
	s.logger.Info("Execution result saved", "execution_id", result.ID, "plan_id", result.PlanID, "status", result.Status)
	return nil
}

func (s *Store) LoadResult(ctx context.Context, id string) (*entity.ExecutionResult, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM results WHERE execution_id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		err = entity.ErrNotFound
	}
	if err != nil {
		return nil, &entity.PersistenceError{Op: "load result", ID: id, Err: err}
	}
	var result entity.ExecutionResult
	if err := json.Unmarshal([]byte(doc), &result); err != nil {
		return nil, &entity.PersistenceError{Op: "load result", ID: id, Err: err}
	}
	return &result, nil
}

// ListResults returns the results of planID, or all results when planID is
// empty, newest first.
func (s *Store) ListResults(ctx context.Context, planID string) ([]*entity.ExecutionResult, error) {
	query := `SELECT execution_id, document FROM results`
	var args []any
	if planID != "" {
		query += ` WHERE plan_id = ?`
		args = append(args, planID)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &entity.PersistenceError{Op: "list results", Err: err}
	}
	defer rows.Close()

	results := []*entity.ExecutionResult{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, &entity.PersistenceError{Op: "list results", Err: err}
		}
		var r entity.ExecutionResult
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			s.logger.Warn("Skipping unreadable result", "execution_id", id, "error", err)
			continue
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, &entity.PersistenceError{Op: "list results", Err: err}
	}
	return results, nil
}

func (s *Store) queryPlans(ctx context.Context, op, query string, args ...any) ([]*entity.Plan, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &entity.PersistenceError{Op: op, Err: err}
	}
	defer rows.Close()

	plans := []*entity.Plan{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, &entity.PersistenceError{Op: op, Err: err}
		}
		var p entity.Plan
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			s.logger.Warn("Skipping unreadable plan", "plan_id", id, "error", err)
			continue
		}
		plans = append(plans, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, &entity.PersistenceError{Op: op, Err: err}
	}
	return plans, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
