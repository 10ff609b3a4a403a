package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-procurement/internal/application/caselock"
	"github.com/garyjia/ai-procurement/internal/application/orchestrator"
	"github.com/garyjia/ai-procurement/internal/application/port"
	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

type fakeRepo struct {
	mu      sync.Mutex
	cases   map[string]*entity.Case
	listErr error
}

func newFakeRepo(cases ...*entity.Case) *fakeRepo {
	r := &fakeRepo{cases: map[string]*entity.Case{}}
	for _, c := range cases {
		r.cases[c.ID] = c
	}
	return r
}

func (r *fakeRepo) Load(_ context.Context, id string) (*entity.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[id]
	if !ok {
		return nil, port.ErrCaseNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeRepo) Save(_ context.Context, c *entity.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.cases[c.ID] = &cp
	return nil
}

func (r *fakeRepo) ListByStatus(_ context.Context, status entity.CaseStatus, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var ids []string
	for id, c := range r.cases {
		if c.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// pausingAdvancer moves every case to under_review and saves it
type pausingAdvancer struct {
	repo *fakeRepo
	fail map[string]bool

	mu    sync.Mutex
	calls []string
}

func (a *pausingAdvancer) Advance(ctx context.Context, c *entity.Case, _ ...orchestrator.AdvanceOption) (entity.StageResult, error) {
	a.mu.Lock()
	a.calls = append(a.calls, c.ID)
	a.mu.Unlock()
	if a.fail[c.ID] {
		return entity.StageResult{}, errors.New("stage runner unavailable")
	}
	c.Status = entity.CaseStatusUnderReview
	return entity.StageResult{Stage: c.CurrentStage, Flagged: true}, a.repo.Save(ctx, c)
}

func (a *pausingAdvancer) called() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := append([]string(nil), a.calls...)
	sort.Strings(out)
	return out
}

func newCase(id string, status entity.CaseStatus) *entity.Case {
	return &entity.Case{ID: id, Status: status, CurrentStage: entity.StageValidation}
}

func TestSweepAdvancesEligibleCases(t *testing.T) {
	repo := newFakeRepo(
		newCase("a", entity.CaseStatusDraft),
		newCase("b", entity.CaseStatusInProgress),
		newCase("c", entity.CaseStatusApproved),
		newCase("d", entity.CaseStatusUnderReview),
		newCase("e", entity.CaseStatusCompleted),
	)
	adv := &pausingAdvancer{repo: repo}
	w, err := NewAdvanceWorker(AdvanceWorkerConfig{Concurrency: 2}, repo, adv, nil, nil)
	require.NoError(t, err)

	n, err := w.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"a", "b", "c"}, adv.called())

	stats := w.Stats()
	assert.Equal(t, 1, stats.Sweeps)
	assert.Equal(t, 3, stats.Advanced)
	assert.Zero(t, stats.Failed)

	// everything is paused now
	n, err = w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepSkipsLockedCases(t *testing.T) {
	repo := newFakeRepo(newCase("a", entity.CaseStatusInProgress), newCase("b", entity.CaseStatusInProgress))
	adv := &pausingAdvancer{repo: repo}
	locks := caselock.New()

	unlock, ok := locks.TryLock("a")
	require.True(t, ok)
	defer unlock()

	w, err := NewAdvanceWorker(AdvanceWorkerConfig{}, repo, adv, locks, nil)
	require.NoError(t, err)

	n, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"b"}, adv.called())
	assert.Equal(t, 1, w.Stats().Skipped)
}

func TestSweepCountsFailures(t *testing.T) {
	repo := newFakeRepo(newCase("a", entity.CaseStatusInProgress), newCase("b", entity.CaseStatusInProgress))
	adv := &pausingAdvancer{repo: repo, fail: map[string]bool{"a": true}}
	w, err := NewAdvanceWorker(AdvanceWorkerConfig{}, repo, adv, nil, nil)
	require.NoError(t, err)

	n, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats := w.Stats()
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, "stage runner unavailable", stats.LastError)
}

func TestSweepListError(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("database is locked")
	w, err := NewAdvanceWorker(AdvanceWorkerConfig{}, repo, &pausingAdvancer{repo: repo}, nil, nil)
	require.NoError(t, err)

	_, err = w.Sweep(context.Background())
	assert.ErrorContains(t, err, "database is locked")
}

func TestNewAdvanceWorkerValidation(t *testing.T) {
	repo := newFakeRepo()
	_, err := NewAdvanceWorker(AdvanceWorkerConfig{}, nil, &pausingAdvancer{}, nil, nil)
	assert.Error(t, err)
	_, err = NewAdvanceWorker(AdvanceWorkerConfig{}, repo, nil, nil, nil)
	assert.Error(t, err)

	w, err := NewAdvanceWorker(AdvanceWorkerConfig{}, repo, &pausingAdvancer{repo: repo}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAdvanceWorkerConfig(), w.config)
}

func TestAdvanceWorkerLifecycle(t *testing.T) {
	repo := newFakeRepo(newCase("a", entity.CaseStatusInProgress))
	adv := &pausingAdvancer{repo: repo}
	w, err := NewAdvanceWorker(AdvanceWorkerConfig{PollInterval: 5 * time.Millisecond}, repo, adv, nil, nil)
	require.NoError(t, err)

	m := NewManager(nil)
	m.Register(w)
	assert.Equal(t, 1, m.Count())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Error(t, m.StartAll(context.Background()))
	assert.Error(t, w.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return len(adv.called()) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	require.NoError(t, m.StopAll())
	assert.Equal(t, []string{"a"}, adv.called())
}
