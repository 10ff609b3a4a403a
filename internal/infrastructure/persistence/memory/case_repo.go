// Package memory is an in-process CaseRepository for the replay CLI and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/garyjia/ai-procurement/internal/application/port"
	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

// CaseRepository keeps JSON snapshots so callers never share a case value
type CaseRepository struct {
	mu    sync.RWMutex
	cases map[string][]byte
	meta  map[string]entity.Case
}

// NewCaseRepository creates an empty repository
func NewCaseRepository() *CaseRepository {
	return &CaseRepository{
		cases: make(map[string][]byte),
		meta:  make(map[string]entity.Case),
	}
}

// Load returns a copy of the stored case
func (r *CaseRepository) Load(ctx context.Context, id string) (*entity.Case, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	data, ok := r.cases[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", port.ErrCaseNotFound, id)
	}

	var c entity.Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode case %s: %w", id, err)
	}
	return &c, nil
}

// Save stores a snapshot of c
func (r *CaseRepository) Save(ctx context.Context, c *entity.Case) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c == nil || strings.TrimSpace(c.ID) == "" {
		return entity.ErrMissingCaseID
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode case %s: %w", c.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.meta[c.ID]; ok && len(prev.Results) > len(c.Results) {
		return fmt.Errorf("case %s: stored history has %d results, refusing to save %d", c.ID, len(prev.Results), len(c.Results))
	}
	r.cases[c.ID] = data
	r.meta[c.ID] = entity.Case{
		ID:        c.ID,
		Status:    c.Status,
		Results:   make([]entity.StageResult, len(c.Results)),
		UpdatedAt: c.UpdatedAt,
	}
	return nil
}

// ListByStatus returns ids ordered by last update, then id
func (r *CaseRepository) ListByStatus(ctx context.Context, status entity.CaseStatus, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	r.mu.RLock()
	matches := make([]entity.Case, 0)
	for _, m := range r.meta {
		if m.Status == status {
			matches = append(matches, m)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].UpdatedAt.Equal(matches[j].UpdatedAt) {
			return matches[i].UpdatedAt.Before(matches[j].UpdatedAt)
		}
		return matches[i].ID < matches[j].ID
	})

	ids := make([]string, 0, min(limit, len(matches)))
	for _, m := range matches {
		if len(ids) == limit {
			break
		}
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Len returns the number of stored cases
func (r *CaseRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cases)
}
