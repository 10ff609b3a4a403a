package container

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/ai-procurement/internal/config"
	"github.com/garyjia/ai-procurement/internal/domain/event"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.Path = filepath.Join(dir, "db", "cases.db")
	cfg.Report.OutputDir = filepath.Join(dir, "reports")
	cfg.OpenAI.Enabled = false
	cfg.Lark.Enabled = false
	return cfg
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(testConfig(t), nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Server.Port = 0
	_, err = NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_Lifecycle(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	assert.False(t, c.Ready())

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()), "second start")

	require.NotNil(t, c.Orchestrator())
	require.NotNil(t, c.Repo())
	assert.NotNil(t, c.Locks())
	assert.Equal(t, 1, c.Workers().Count())

	names := []string{}
	for _, h := range c.Dispatcher().ListHandlers(event.TypeCaseCompleted) {
		names = append(names, h.Name)
	}
	assert.Contains(t, names, "audit-log")
	assert.Contains(t, names, "report-archiver")

	health := c.Health(context.Background())
	assert.True(t, health.Overall, "%+v", health.Components)
	assert.Equal(t, config.DriverSQLite, health.Components["store"].Message)

	ctx := context.Background()
	cs, err := c.Orchestrator().Submit(ctx, "case-1", map[string]any{"amount": 10.0})
	require.NoError(t, err)
	loaded, err := c.Repo().Load(ctx, cs.ID)
	require.NoError(t, err)
	assert.Equal(t, "case-1", loaded.ID)

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(context.Background()))
}

func TestContainer_WorkerDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.WorkerEnabled = false

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	assert.Zero(t, c.Workers().Count())
	health := c.Health(context.Background())
	assert.True(t, health.Components["workers"].Healthy)
	assert.Equal(t, "disabled", health.Components["workers"].Message)
}

func TestProvideStore_UnknownDriver(t *testing.T) {
	_, err := ProvideStore(context.Background(), config.DatabaseConfig{Driver: "mysql"}, zap.NewNop())
	assert.Error(t, err)
}

func TestProvideDecisionAdapter_Disabled(t *testing.T) {
	a, err := ProvideDecisionAdapter(config.OpenAIConfig{}, config.PipelineConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, a)
}
