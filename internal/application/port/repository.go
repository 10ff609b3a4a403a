package port

import (
	"context"
	"errors"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

// ErrCaseNotFound is returned by Load for an unknown case id
var ErrCaseNotFound = errors.New("case not found")

// CaseRepository persists whole cases. Save replaces the prior state; the
// orchestrator assumes nothing transactional beyond that.
type CaseRepository interface {
	Load(ctx context.Context, id string) (*entity.Case, error)
	Save(ctx context.Context, c *entity.Case) error

	// ListByStatus returns case ids in the given status, oldest update first
	ListByStatus(ctx context.Context, status entity.CaseStatus, limit int) ([]string, error)
}
