package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/ai-procurement/internal/application/port"
	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

// CaseRepository implements port.CaseRepository
type CaseRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *DB, logger *zap.Logger) *CaseRepository {
	return &CaseRepository{
		db:     db,
		logger: logger,
	}
}

// Load reads a case with its full history
func (r *CaseRepository) Load(ctx context.Context, id string) (*entity.Case, error) {
	query := `
		SELECT id, status, current_stage, facts, flagged, flagged_by, flag_reason,
			rejection_reason, created_at, updated_at
		FROM cases
		WHERE id = ?
	`

	var c entity.Case
	var factsJSON string
	var flaggedBy, flagReason sql.NullString

	err := r.db.conn(ctx).QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.Status,
		&c.CurrentStage,
		&factsJSON,
		&c.Flagged,
		&flaggedBy,
		&flagReason,
		&c.RejectionReason,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", port.ErrCaseNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to load case", zap.String("case_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	if err := json.Unmarshal([]byte(factsJSON), &c.Facts); err != nil {
		return nil, fmt.Errorf("failed to decode facts of case %s: %w", id, err)
	}
	if c.Facts == nil {
		c.Facts = map[string]any{}
	}
	if flaggedBy.Valid {
		c.FlaggedBy = &flaggedBy.String
	}
	if flagReason.Valid {
		c.FlagReason = &flagReason.String
	}

	if c.Results, err = r.loadResults(ctx, id); err != nil {
		return nil, err
	}
	if c.Resolutions, err = r.loadResolutions(ctx, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CaseRepository) loadResults(ctx context.Context, id string) ([]entity.StageResult, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx,
		"SELECT payload FROM stage_results WHERE case_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load stage results: %w", err)
	}
	defer rows.Close()

	results := []entity.StageResult{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan stage result: %w", err)
		}
		var res entity.StageResult
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			return nil, fmt.Errorf("failed to decode stage result of case %s: %w", id, err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *CaseRepository) loadResolutions(ctx context.Context, id string) ([]entity.Resolution, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `
		SELECT stage, action, actor, reason, resolved_at
		FROM resolutions WHERE case_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load resolutions: %w", err)
	}
	defer rows.Close()

	resolutions := []entity.Resolution{}
	for rows.Next() {
		var res entity.Resolution
		if err := rows.Scan(&res.Stage, &res.Action, &res.Actor, &res.Reason, &res.Resolved); err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		resolutions = append(resolutions, res)
	}
	return resolutions, rows.Err()
}

// Save upserts the case row and appends any results and resolutions not yet
// stored. Rows already written are never updated.
func (r *CaseRepository) Save(ctx context.Context, c *entity.Case) error {
	if err := c.Validate(); err != nil {
		return err
	}
	factsJSON, err := json.Marshal(c.Facts)
	if err != nil {
		return fmt.Errorf("failed to encode facts: %w", err)
	}

	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		exec := r.db.conn(ctx)
		_, err := exec.ExecContext(ctx, `
			INSERT INTO cases (
				id, status, current_stage, facts, flagged, flagged_by, flag_reason,
				rejection_reason, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				status = excluded.status,
				current_stage = excluded.current_stage,
				facts = excluded.facts,
				flagged = excluded.flagged,
				flagged_by = excluded.flagged_by,
				flag_reason = excluded.flag_reason,
				rejection_reason = excluded.rejection_reason,
				updated_at = excluded.updated_at
		`,
			c.ID,
			string(c.Status),
			int(c.CurrentStage),
			string(factsJSON),
			c.Flagged,
			nullable(c.FlaggedBy),
			nullable(c.FlagReason),
			c.RejectionReason,
			c.CreatedAt.UTC(),
			c.UpdatedAt.UTC(),
		)
		if err != nil {
			r.logger.Error("Failed to save case", zap.String("case_id", c.ID), zap.Error(err))
			return fmt.Errorf("failed to save case: %w", err)
		}

		stored, err := r.count(ctx, "stage_results", c.ID)
		if err != nil {
			return err
		}
		if stored > len(c.Results) {
			return fmt.Errorf("case %s has %d stored results but only %d in memory", c.ID, stored, len(c.Results))
		}
		for seq := stored; seq < len(c.Results); seq++ {
			res := c.Results[seq]
			payload, err := json.Marshal(res)
			if err != nil {
				return fmt.Errorf("failed to encode stage result: %w", err)
			}
			if _, err := exec.ExecContext(ctx, `
				INSERT INTO stage_results (case_id, seq, stage, verdict, flagged, payload, completed_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				c.ID, seq, int(res.Stage), string(res.Verdict.Value), res.Flagged, string(payload), res.CompletedAt.UTC(),
			); err != nil {
				return fmt.Errorf("failed to append stage result: %w", err)
			}
		}

		stored, err = r.count(ctx, "resolutions", c.ID)
		if err != nil {
			return err
		}
		for seq := stored; seq < len(c.Resolutions); seq++ {
			res := c.Resolutions[seq]
			if _, err := exec.ExecContext(ctx, `
				INSERT INTO resolutions (case_id, seq, stage, action, actor, reason, resolved_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				c.ID, seq, int(res.Stage), string(res.Action), res.Actor, res.Reason, res.Resolved.UTC(),
			); err != nil {
				return fmt.Errorf("failed to append resolution: %w", err)
			}
		}
		return nil
	})
}

// ListByStatus returns case ids in status, least recently updated first
func (r *CaseRepository) ListByStatus(ctx context.Context, status entity.CaseStatus, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.conn(ctx).QueryContext(ctx,
		"SELECT id FROM cases WHERE status = ? ORDER BY updated_at, id LIMIT ?", string(status), limit)
	if err != nil {
		r.logger.Error("Failed to list cases", zap.String("status", string(status)), zap.Error(err))
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan case id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// count returns the stored rows of a history table; table is always a literal
func (r *CaseRepository) count(ctx context.Context, table, caseID string) (int, error) {
	var n int
	err := r.db.conn(ctx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+table+" WHERE case_id = ?", caseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ port.CaseRepository = (*CaseRepository)(nil)
