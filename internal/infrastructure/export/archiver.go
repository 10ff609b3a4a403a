package export

import (
	"context"
	"fmt"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/garyjia/ai-procurement/internal/application/dispatcher"
	"github.com/garyjia/ai-procurement/internal/application/port"
	"github.com/garyjia/ai-procurement/internal/application/report"
	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/event"
)

var errNotTerminal = errors.New("case not terminal yet")

// Archiver writes the final workbook of every case that reaches a terminal state
type Archiver struct {
	repo   port.CaseRepository
	dir    string
	logger *zap.Logger
	clock  func() time.Time
	tries  uint
}

// NewArchiver creates an archiver writing into dir
func NewArchiver(repo port.CaseRepository, dir string, logger *zap.Logger) (*Archiver, error) {
	if repo == nil {
		return nil, fmt.Errorf("case repository is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("report output directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{repo: repo, dir: dir, logger: logger, clock: time.Now, tries: 5}, nil
}

// Register subscribes the archiver to terminal case events
func (a *Archiver) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeCaseCompleted, "report-archiver", a.Handle)
	d.SubscribeNamed(event.TypeCaseRejected, "report-archiver", a.Handle)
}

// Handle loads the case named by evt and saves its report. The event can
// arrive before the terminal state is persisted, so the load is retried
// until the stored case is terminal.
func (a *Archiver) Handle(ctx context.Context, evt *event.Event) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second

	c, err := backoff.Retry(ctx, func() (*entity.Case, error) {
		c, err := a.repo.Load(ctx, evt.CaseID)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if !c.Status.IsTerminal() {
			return nil, errNotTerminal
		}
		return c, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(a.tries))
	if err != nil {
		return fmt.Errorf("archive %s: %w", evt.CaseID, err)
	}

	path, err := SaveXLSX(a.dir, report.Build(c, a.clock()))
	if err != nil {
		a.logger.Error("Failed to archive report", zap.String("case_id", c.ID), zap.Error(err))
		return err
	}
	a.logger.Info("Report archived",
		zap.String("case_id", c.ID),
		zap.String("status", string(c.Status)),
		zap.String("path", path))
	return nil
}
