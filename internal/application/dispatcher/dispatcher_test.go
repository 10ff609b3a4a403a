package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/event"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func newEvent(t event.Type) *event.Event {
	return event.NewEvent(t, "case-123", entity.StageFraudScreening, map[string]any{"reason": "test"})
}

func TestDispatch_RunsHandlersInOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string
	d.SubscribeNamed(event.TypeCaseFlagged, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.SubscribeNamed(event.TypeCaseFlagged, "second", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), newEvent(event.TypeCaseFlagged)))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatch_StopsAtFirstError(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	boom := errors.New("boom")
	called := false

	d.SubscribeNamed(event.TypeCaseRejected, "failing", func(ctx context.Context, evt *event.Event) error {
		return boom
	})
	d.SubscribeNamed(event.TypeCaseRejected, "after", func(ctx context.Context, evt *event.Event) error {
		called = true
		return nil
	})

	err := d.Dispatch(context.Background(), newEvent(event.TypeCaseRejected))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.False(t, called)
	assert.Equal(t, 1, logger.ErrorCount())
}

func TestDispatch_RecoversPanics(t *testing.T) {
	d := NewDispatcher()
	d.Subscribe(event.TypeCaseCompleted, func(ctx context.Context, evt *event.Event) error {
		panic("handler exploded")
	})

	err := d.Dispatch(context.Background(), newEvent(event.TypeCaseCompleted))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
}

func TestDispatch_IgnoresOtherTypes(t *testing.T) {
	d := NewDispatcher()
	d.Subscribe(event.TypeCaseFlagged, func(ctx context.Context, evt *event.Event) error {
		return errors.New("should not run")
	})
	assert.NoError(t, d.Dispatch(context.Background(), newEvent(event.TypeCaseCreated)))
}

func TestEmit_RunsAsyncAndCloseWaits(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	var count atomic.Int32

	for i := 0; i < 3; i++ {
		d.Subscribe(event.TypeStageCompleted, func(ctx context.Context, evt *event.Event) error {
			count.Add(1)
			return nil
		})
	}
	d.Subscribe(event.TypeStageCompleted, func(ctx context.Context, evt *event.Event) error {
		return errors.New("sink unavailable")
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.Emit(ctx, newEvent(event.TypeStageCompleted))
	cancel()

	require.NoError(t, d.Close())
	assert.Equal(t, int32(3), count.Load())
	assert.Equal(t, 1, logger.ErrorCount())
}

func TestEmit_AfterCloseIsDropped(t *testing.T) {
	d := NewDispatcher()
	called := false
	d.Subscribe(event.TypeCaseFlagged, func(ctx context.Context, evt *event.Event) error {
		called = true
		return nil
	})
	require.NoError(t, d.Close())

	d.Emit(context.Background(), newEvent(event.TypeCaseFlagged))
	assert.False(t, called)
	assert.ErrorIs(t, d.Dispatch(context.Background(), newEvent(event.TypeCaseFlagged)), ErrClosed)
	assert.ErrorIs(t, d.Close(), ErrClosed)
}

func TestUnsubscribeAndList(t *testing.T) {
	d := NewDispatcher()
	noop := func(ctx context.Context, evt *event.Event) error { return nil }
	d.SubscribeNamed(event.TypeCaseResolved, "keep", noop)
	d.SubscribeNamed(event.TypeCaseResolved, "drop", noop)

	d.Unsubscribe(event.TypeCaseResolved, "drop")
	handlers := d.ListHandlers(event.TypeCaseResolved)
	require.Len(t, handlers, 1)
	assert.Equal(t, "keep", handlers[0].Name)
	assert.Nil(t, handlers[0].Handler)
}

func TestConcurrentSubscribeAndEmit(t *testing.T) {
	d := NewDispatcher()
	var count atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d.SubscribeNamed(event.TypeCaseApproved, fmt.Sprintf("h-%d", i), func(ctx context.Context, evt *event.Event) error {
				count.Add(1)
				return nil
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), newEvent(event.TypeCaseApproved))
	}
	require.NoError(t, d.Close())
	assert.Equal(t, int32(50), count.Load())
}
