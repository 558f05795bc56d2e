// Package report assembles one text report per key value from a reduced dataset
// and merged feedback.
package report

import (
	"strings"

	"github.com/hyperjump/cellveyor/internal/feedback"
	"github.com/hyperjump/cellveyor/internal/models"
	"github.com/hyperjump/cellveyor/internal/selector"
	"go.uber.org/zap"
)

// Input holds everything a build needs.
type Input struct {
	// Data is the reduced dataset from the selector.
	Data *models.Dataset
	// Columns is the selected column list, in render order.
	Columns []string
	// KeyAttribute names the grouping column. It is never rendered as a line.
	KeyAttribute string
	// FeedbackPattern picks the columns rendered as free-form feedback (value only).
	// An empty pattern selects no columns.
	FeedbackPattern string
	// Feedback is the aggregator output; nil means no auxiliary feedback.
	Feedback *feedback.Result
}

// Builder renders reports.
type Builder struct {
	layout Layout
	seps   separators
	logger *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLayout selects the separator layout. Unknown layouts fall back to DefaultLayout.
func WithLayout(l Layout) BuilderOption {
	return func(b *Builder) {
		resolved, _ := ResolveLayout(string(l))
		b.layout = resolved
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a builder using DefaultLayout unless configured otherwise.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{layout: DefaultLayout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	b.seps = layouts[b.layout]
	return b
}

// Layout returns the layout in use.
func (b *Builder) Layout() Layout {
	return b.layout
}

// Build groups rows by key value in first-seen order and renders one report per key.
// Rows sharing a key value are rendered in row order and concatenated.
func (b *Builder) Build(in Input) (*models.ReportSet, error) {
	var isFeedback func(string) bool
	if in.FeedbackPattern != "" {
		m, err := selector.NewMatcher(in.FeedbackPattern)
		if err != nil {
			return nil, err
		}
		isFeedback = m.Match
	} else {
		isFeedback = func(string) bool { return false }
	}

	var dataCols, feedbackCols []string
	for _, c := range in.Columns {
		switch {
		case c == in.KeyAttribute:
		case isFeedback(c):
			feedbackCols = append(feedbackCols, c)
		default:
			dataCols = append(dataCols, c)
		}
	}

	keys, groups := b.group(in.Data, in.KeyAttribute)
	reports := models.NewReportSet()
	for _, key := range keys {
		blocks := make([]string, 0, len(groups[key]))
		for _, row := range groups[key] {
			blocks = append(blocks, b.renderRow(key, row, dataCols, feedbackCols, in.Feedback))
		}
		text := strings.Join(blocks, b.seps.section)
		if err := reports.Add(key, text); err != nil {
			return nil, err
		}
		b.logger.Debug("report built", zap.String("key", key), zap.Int("rows", len(groups[key])), zap.Int("bytes", len(text)))
	}
	return reports, nil
}

func (b *Builder) renderRow(key string, row models.Row, dataCols, feedbackCols []string, fb *feedback.Result) string {
	var sections []string
	add := func(lines []string) {
		if len(lines) > 0 {
			sections = append(sections, strings.Join(lines, b.seps.line))
		}
	}

	if header := fb.Text(models.HeaderLabel); header != "" {
		sections = append(sections, header)
	}

	var lines []string
	for _, c := range dataCols {
		v := row.Get(c)
		if v.IsEmpty() {
			continue
		}
		lines = append(lines, c+": "+v.String())
	}
	add(lines)

	lines = nil
	for _, c := range feedbackCols {
		v := row.Get(c)
		if v.IsEmpty() {
			continue
		}
		lines = append(lines, expand(v.String(), fb))
	}
	add(lines)

	lines = nil
	for _, f := range fb.Fragments(key) {
		lines = append(lines, f.Label+": "+f.Text)
	}
	add(lines)

	if footer := fb.Text(models.FooterLabel); footer != "" {
		sections = append(sections, footer)
	}
	return strings.Join(sections, b.seps.section)
}

// expand replaces a feedback cell that names a feedback item with that item's text.
func expand(value string, fb *feedback.Result) string {
	label := strings.TrimSpace(value)
	if models.IsStructuralLabel(label) || fb == nil {
		return value
	}
	if text, ok := fb.Combined[label]; ok {
		return text
	}
	return value
}

// group collects rows per key value in first-appearance order. Rows with a
// blank key cell belong to no report and are dropped.
func (b *Builder) group(d *models.Dataset, keyAttribute string) ([]string, map[string][]models.Row) {
	var keys []string
	groups := make(map[string][]models.Row)
	for i, row := range d.Rows() {
		value := row.Get(keyAttribute)
		if value.IsEmpty() {
			b.logger.Debug("row without key skipped", zap.String("key_attribute", keyAttribute), zap.Int("row", i+1))
			continue
		}
		key := value.String()
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], row)
	}
	return keys, groups
}
