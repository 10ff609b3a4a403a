// Command replay runs one case file through the pipeline in memory and
// prints its report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/ai-procurement/internal/application/orchestrator"
	"github.com/garyjia/ai-procurement/internal/application/report"
	"github.com/garyjia/ai-procurement/internal/application/stage"
	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/evaluator"
	"github.com/garyjia/ai-procurement/internal/infrastructure/export"
	"github.com/garyjia/ai-procurement/internal/infrastructure/payment"
	"github.com/garyjia/ai-procurement/internal/infrastructure/persistence/memory"
	"github.com/garyjia/ai-procurement/pkg/utils"
)

// caseFile is either {"id": ..., "facts": {...}} or a bare facts object
type caseFile struct {
	ID    string         `json:"id"`
	Facts map[string]any `json:"facts"`
}

func main() {
	casePath := flag.String("case", "", "case file (JSON)")
	approve := flag.Bool("approve", false, "approve the case when it pauses at the final approval gate")
	actor := flag.String("actor", "replay", "reviewer recorded on the approval")
	xlsxDir := flag.String("xlsx", "", "also write the report as a workbook into this directory")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	if *casePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -case file.json [-approve] [-actor name] [-xlsx dir]")
		os.Exit(2)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: *logLevel, OutputPath: "stderr", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*casePath, *approve, *actor, *xlsxDir, logger); err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, approve bool, actor, xlsxDir string, logger *zap.Logger) error {
	id, facts, err := readCase(path)
	if err != nil {
		return err
	}

	kv := utils.NewKVLogger(logger)
	ev, err := evaluator.New(evaluator.DefaultThresholds())
	if err != nil {
		return err
	}
	x, err := stage.NewExecutor(ev,
		stage.WithPaymentGateway(payment.NewLoggingGateway(logger)),
		stage.WithLogger(kv.Named("stage")))
	if err != nil {
		return err
	}
	orch, err := orchestrator.New(x,
		orchestrator.WithRepository(memory.NewCaseRepository()),
		orchestrator.WithLogger(kv.Named("orchestrator")))
	if err != nil {
		return err
	}

	ctx := context.Background()
	c, err := orch.Submit(ctx, id, facts)
	if err != nil {
		return err
	}
	if _, err := orch.Advance(ctx, c); err != nil {
		return err
	}

	if approve && c.Status == entity.CaseStatusUnderReview && c.CurrentStage == entity.StageFinalApproval {
		if err := orch.Resolve(ctx, c, entity.ActionApprove, actor, "approved during replay"); err != nil {
			return err
		}
		if _, err := orch.Advance(ctx, c); err != nil {
			return err
		}
	}

	r := report.Build(c, time.Now())
	if err := report.RenderText(os.Stdout, r); err != nil {
		return err
	}

	if xlsxDir != "" {
		out, err := export.SaveXLSX(xlsxDir, r)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "workbook written to %s\n", out)
	}
	return nil
}

func readCase(path string) (string, map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read case file: %w", err)
	}

	var cf caseFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return "", nil, fmt.Errorf("failed to parse case file: %w", err)
	}
	if cf.Facts == nil {
		if err := json.Unmarshal(data, &cf.Facts); err != nil {
			return "", nil, fmt.Errorf("failed to parse case file: %w", err)
		}
		delete(cf.Facts, "id")
	}
	if cf.ID == "" {
		cf.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return cf.ID, cf.Facts, nil
}
