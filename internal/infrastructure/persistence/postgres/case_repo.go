package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/garyjia/ai-procurement/internal/application/port"
	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

// CaseRepository implements port.CaseRepository on PostgreSQL
type CaseRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *DB, logger *zap.Logger) *CaseRepository {
	return &CaseRepository{db: db, logger: logger}
}

// Load reads a case with its full history
func (r *CaseRepository) Load(ctx context.Context, id string) (*entity.Case, error) {
	var (
		c          entity.Case
		status     string
		stage      int
		factsJSON  []byte
		flaggedBy  *string
		flagReason *string
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, status, current_stage, facts, flagged, flagged_by, flag_reason,
			rejection_reason, created_at, updated_at
		FROM cases WHERE id = $1
	`, id).Scan(&c.ID, &status, &stage, &factsJSON, &c.Flagged, &flaggedBy, &flagReason,
		&c.RejectionReason, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", port.ErrCaseNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to load case", zap.String("case_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	c.Status = entity.CaseStatus(status)
	c.CurrentStage = entity.Stage(stage)
	c.FlaggedBy = flaggedBy
	c.FlagReason = flagReason
	if err := json.Unmarshal(factsJSON, &c.Facts); err != nil {
		return nil, fmt.Errorf("failed to decode facts of case %s: %w", id, err)
	}
	if c.Facts == nil {
		c.Facts = map[string]any{}
	}

	rows, err := r.db.Pool.Query(ctx, `SELECT payload FROM stage_results WHERE case_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load stage results: %w", err)
	}
	c.Results, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.StageResult, error) {
		var payload []byte
		var res entity.StageResult
		if err := row.Scan(&payload); err != nil {
			return res, err
		}
		return res, json.Unmarshal(payload, &res)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read stage results of case %s: %w", id, err)
	}

	rows, err = r.db.Pool.Query(ctx, `
		SELECT stage, action, actor, reason, resolved_at
		FROM resolutions WHERE case_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load resolutions: %w", err)
	}
	c.Resolutions, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Resolution, error) {
		var res entity.Resolution
		var stage int
		var action string
		err := row.Scan(&stage, &action, &res.Actor, &res.Reason, &res.Resolved)
		res.Stage = entity.Stage(stage)
		res.Action = entity.ResolutionAction(action)
		return res, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read resolutions of case %s: %w", id, err)
	}
	return &c, nil
}

// Save upserts the case row and appends unsaved history rows in one transaction
func (r *CaseRepository) Save(ctx context.Context, c *entity.Case) (err error) {
	if err := c.Validate(); err != nil {
		return err
	}
	factsJSON, err := json.Marshal(c.Facts)
	if err != nil {
		return fmt.Errorf("failed to encode facts: %w", err)
	}

	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO cases (id, status, current_stage, facts, flagged, flagged_by, flag_reason,
			rejection_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_stage = EXCLUDED.current_stage,
			facts = EXCLUDED.facts,
			flagged = EXCLUDED.flagged,
			flagged_by = EXCLUDED.flagged_by,
			flag_reason = EXCLUDED.flag_reason,
			rejection_reason = EXCLUDED.rejection_reason,
			updated_at = EXCLUDED.updated_at
	`, c.ID, string(c.Status), int(c.CurrentStage), factsJSON, c.Flagged, c.FlaggedBy, c.FlagReason,
		c.RejectionReason, c.CreatedAt, c.UpdatedAt); err != nil {
		r.logger.Error("Failed to save case", zap.String("case_id", c.ID), zap.Error(err))
		return fmt.Errorf("failed to save case: %w", err)
	}

	var stored int
	if err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM stage_results WHERE case_id = $1`, c.ID).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count stage results: %w", err)
	}
	if stored > len(c.Results) {
		err = fmt.Errorf("case %s has %d stored results but only %d in memory", c.ID, stored, len(c.Results))
		return err
	}

	batch := &pgx.Batch{}
	for seq := stored; seq < len(c.Results); seq++ {
		res := c.Results[seq]
		payload, mErr := json.Marshal(res)
		if mErr != nil {
			err = fmt.Errorf("failed to encode stage result: %w", mErr)
			return err
		}
		batch.Queue(`
			INSERT INTO stage_results (case_id, seq, stage, verdict, flagged, payload, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, seq, int(res.Stage), string(res.Verdict.Value), res.Flagged, payload, res.CompletedAt)
	}

	if err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM resolutions WHERE case_id = $1`, c.ID).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count resolutions: %w", err)
	}
	for seq := stored; seq < len(c.Resolutions); seq++ {
		res := c.Resolutions[seq]
		batch.Queue(`
			INSERT INTO resolutions (case_id, seq, stage, action, actor, reason, resolved_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, seq, int(res.Stage), string(res.Action), res.Actor, res.Reason, res.Resolved)
	}

	if batch.Len() > 0 {
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
	}
	return nil
}

// ListByStatus returns case ids in status, least recently updated first
func (r *CaseRepository) ListByStatus(ctx context.Context, status entity.CaseStatus, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id FROM cases WHERE status = $1 ORDER BY updated_at, id LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	return ids, nil
}

var _ port.CaseRepository = (*CaseRepository)(nil)
