// Package pipeline runs the report batch: load the workbook, select columns and
// rows, merge feedback sources, and build one report per key value.
package pipeline

import (
	"fmt"

	"github.com/hyperjump/cellveyor/internal/feedback"
	"github.com/hyperjump/cellveyor/internal/models"
	"github.com/hyperjump/cellveyor/internal/output"
	"github.com/hyperjump/cellveyor/internal/report"
	"github.com/hyperjump/cellveyor/internal/selector"
	"github.com/hyperjump/cellveyor/internal/sheet"
	"go.uber.org/zap"
)

// Request describes one batch.
type Request struct {
	SpreadsheetPath string
	SheetName       string
	KeyAttribute    string
	ColumnPattern   string
	FeedbackPattern string
	// KeyValue, when set, restricts the batch to rows with this key value.
	KeyValue      *string
	FeedbackFiles []string
	Layout        report.Layout
}

// Result is the outcome of a batch.
type Result struct {
	Reports *models.ReportSet
	// Columns is the selected column list, key attribute included.
	Columns []string
	// Skipped lists feedback sources that were invalid and ignored.
	Skipped []*models.FeedbackSourceInvalidError
	Layout  report.Layout
}

// Run executes the batch sequentially. Loading and selection errors abort the run
// with no partial output; invalid feedback sources are skipped and listed in the result.
func Run(c *output.Console, req Request) (*Result, error) {
	logger := c.Logger()

	wb, err := sheet.Load(req.SpreadsheetPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("workbook loaded", zap.String("path", req.SpreadsheetPath), zap.Strings("sheets", wb.SheetNames()))

	data, err := wb.Sheet(req.SheetName)
	if err != nil {
		return nil, err
	}

	sel, err := selector.Select(data, req.KeyAttribute, req.ColumnPattern, req.KeyValue)
	if err != nil {
		return nil, err
	}
	logger.Debug("columns selected",
		zap.String("sheet", req.SheetName),
		zap.Strings("columns", sel.Columns),
		zap.Int("rows", sel.Data.Len()),
	)

	fb := feedback.NewAggregator(feedback.WithLogger(logger)).Aggregate(req.FeedbackFiles)

	layout, ok := report.ResolveLayout(string(req.Layout))
	if !ok && req.Layout != "" {
		logger.Warn("unknown layout, using default", zap.String("layout", string(req.Layout)), zap.String("default", string(layout)))
	}
	builder := report.NewBuilder(report.WithLayout(layout), report.WithLogger(logger))
	reports, err := builder.Build(report.Input{
		Data:            sel.Data,
		Columns:         sel.Columns,
		KeyAttribute:    req.KeyAttribute,
		FeedbackPattern: req.FeedbackPattern,
		Feedback:        fb,
	})
	if err != nil {
		return nil, fmt.Errorf("build reports: %w", err)
	}
	logger.Info("reports built", zap.Int("reports", reports.Len()), zap.Int("skipped_sources", len(fb.Skipped)))

	return &Result{
		Reports: reports,
		Columns: sel.Columns,
		Skipped: fb.Skipped,
		Layout:  layout,
	}, nil
}
