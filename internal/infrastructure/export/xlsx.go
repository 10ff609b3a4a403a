// Package export writes case reports as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/ai-procurement/internal/application/report"
)

// Sheet names in workbook order
const (
	SheetSummary     = "Summary"
	SheetStages      = "Stages"
	SheetChecks      = "Checks"
	SheetResolutions = "Resolutions"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	stageHeader      = []interface{}{"Stage", "Name", "Verdict", "Reason", "Pass", "Attention", "Fail", "Flagged", "Flag Reason", "Runs", "Narrative"}
	checkHeader      = []interface{}{"Stage", "Check ID", "Check", "Status", "Detail", "Evidence"}
	resolutionHeader = []interface{}{"Stage", "Action", "Actor", "Reason", "Resolved At"}
)

// WriteXLSX writes r as a workbook to w
func WriteXLSX(w io.Writer, r report.Report) error {
	f, err := build(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes r to dir/<case_id>.xlsx and returns the path
func SaveXLSX(dir string, r report.Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	f, err := build(r)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, FileName(r.CaseID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return path, nil
}

// FileName returns the workbook file name for a case
func FileName(caseID string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, caseID)
	return safe + ".xlsx"
}

func build(r report.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetStages, SheetChecks, SheetResolutions} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	w := &sheetWriter{f: f, bold: bold}
	w.summary(r)
	w.stages(r)
	w.checks(r)
	w.resolutions(r)
	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// sheetWriter keeps the first error so the sheet builders stay linear
type sheetWriter struct {
	f    *excelize.File
	bold int
	err  error
}

func (w *sheetWriter) row(sheet string, n int, values []interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("failed to write %s row %d: %w", sheet, n, err)
	}
}

func (w *sheetWriter) header(sheet string, values []interface{}) {
	w.row(sheet, 1, values)
	if w.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(values), 1)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellStyle(sheet, "A1", last, w.bold); err != nil {
		w.err = err
		return
	}
	if err := w.f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		w.err = err
	}
}

func (w *sheetWriter) summary(r report.Report) {
	rows := [][]interface{}{
		{"Case", r.CaseID},
		{"Status", string(r.Status)},
		{"Current Stage", int(r.CurrentStage)},
		{"Amount", r.Amount},
		{"Currency", r.Currency},
		{"Department", r.Department},
		{"Supplier", r.Supplier},
		{"Flagged", r.Flagged},
		{"Flag Reason", r.FlagReason},
		{"Rejection Reason", r.RejectionReason},
		{"Payment Reference", r.PaymentReference},
		{"Checks Passed", r.Totals.Pass},
		{"Checks Attention", r.Totals.Attention},
		{"Checks Failed", r.Totals.Fail},
		{"Generated At", r.GeneratedAt.UTC().Format(timeLayout)},
	}
	for i, values := range rows {
		w.row(SheetSummary, i+1, values)
	}
	if w.err == nil {
		w.err = w.f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(rows)), w.bold)
	}
	if w.err == nil {
		w.err = w.f.SetColWidth(SheetSummary, "A", "A", 20)
	}
}

func (w *sheetWriter) stages(r report.Report) {
	w.header(SheetStages, stageHeader)
	for i, s := range r.Stages {
		w.row(SheetStages, i+2, []interface{}{
			int(s.Stage), s.Name, string(s.Verdict), s.Reason,
			s.Summary.Pass, s.Summary.Attention, s.Summary.Fail,
			s.Flagged, s.FlagReason, s.Runs, s.Narrative,
		})
	}
}

func (w *sheetWriter) checks(r report.Report) {
	w.header(SheetChecks, checkHeader)
	n := 2
	for _, s := range r.Stages {
		for _, c := range s.Checks {
			w.row(SheetChecks, n, []interface{}{
				int(s.Stage), c.ID, c.Name, string(c.Status), c.Detail, strings.Join(c.Evidence, "; "),
			})
			n++
		}
	}
}

func (w *sheetWriter) resolutions(r report.Report) {
	w.header(SheetResolutions, resolutionHeader)
	for i, res := range r.Resolutions {
		w.row(SheetResolutions, i+2, []interface{}{
			int(res.Stage), string(res.Action), res.Actor, res.Reason, res.Resolved.UTC().Format(timeLayout),
		})
	}
}
