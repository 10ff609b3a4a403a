package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-procurement/internal/application/port"
	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

func TestRoundTripCopies(t *testing.T) {
	repo := NewCaseRepository()
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	c, err := entity.NewCase("c-1", map[string]any{"amount": 10.0}, now)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))

	c.Facts["amount"] = 99.0
	loaded, err := repo.Load(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, loaded.Facts["amount"])
	assert.Equal(t, entity.CaseStatusDraft, loaded.Status)
	assert.Equal(t, 1, repo.Len())
}

func TestLoadMissing(t *testing.T) {
	_, err := NewCaseRepository().Load(context.Background(), "nope")
	assert.ErrorIs(t, err, port.ErrCaseNotFound)
}

func TestSaveRejectsShorterHistory(t *testing.T) {
	repo := NewCaseRepository()
	ctx := context.Background()

	c := &entity.Case{ID: "c-1", CurrentStage: entity.StageValidation, Status: entity.CaseStatusInProgress}
	c.AppendResult(entity.StageResult{Stage: entity.StageValidation})
	require.NoError(t, repo.Save(ctx, c))

	stale := &entity.Case{ID: "c-1", CurrentStage: entity.StageValidation, Status: entity.CaseStatusInProgress}
	assert.Error(t, repo.Save(ctx, stale))
	assert.ErrorIs(t, repo.Save(ctx, &entity.Case{}), entity.ErrMissingCaseID)
}

func TestListByStatusOrder(t *testing.T) {
	repo := NewCaseRepository()
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Save(ctx, &entity.Case{
			ID:        id,
			Status:    entity.CaseStatusUnderReview,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Save(ctx, &entity.Case{ID: "d", Status: entity.CaseStatusCompleted, UpdatedAt: base}))

	ids, err := repo.ListByStatus(ctx, entity.CaseStatusUnderReview, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	ids, err = repo.ListByStatus(ctx, entity.CaseStatusUnderReview, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids)
}
