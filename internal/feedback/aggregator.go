// Package feedback reads feedback source files and merges them into one label map
// plus per-key fragment lists.
//
// A source is a YAML or JSON mapping of label to text. The reserved "per-key"
// entry maps key values to their own label/text mappings:
//
//	header: "## Lab 3 feedback"
//	footer: "Questions? Ask in office hours."
//	reassess: "You may resubmit this lab by Friday."
//	per-key:
//	  A:
//	    late: "Submitted two days late."
package feedback

import (
	"fmt"
	"os"
	"strings"

	"github.com/hyperjump/cellveyor/internal/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Result is the merged view of all valid sources.
type Result struct {
	// Combined maps label to text; later sources overwrite earlier ones.
	Combined map[string]string
	// PerKey maps key value to fragments in source order, then document order.
	PerKey map[string][]models.Fragment
	// Skipped lists the sources that were invalid and ignored.
	Skipped []*models.FeedbackSourceInvalidError
}

// NewResult returns an empty result.
func NewResult() *Result {
	return &Result{
		Combined: make(map[string]string),
		PerKey:   make(map[string][]models.Fragment),
	}
}

// Text returns the combined text for label, or "" when absent.
func (r *Result) Text(label string) string {
	if r == nil {
		return ""
	}
	return r.Combined[label]
}

// Fragments returns the per-key fragments for key.
func (r *Result) Fragments(key string) []models.Fragment {
	if r == nil {
		return nil
	}
	return r.PerKey[key]
}

// Aggregator merges feedback sources.
type Aggregator struct {
	logger *zap.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLogger sets a logger for debug output (sources applied or skipped).
func WithLogger(l *zap.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = l }
}

// NewAggregator creates an aggregator.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate parses every path in order and merges the valid ones.
// An invalid source is skipped as a whole and recorded in Result.Skipped.
func (a *Aggregator) Aggregate(paths []string) *Result {
	res := NewResult()
	for _, path := range paths {
		src, err := readSource(path)
		if err != nil {
			invalid := asInvalid(path, err)
			a.logger.Warn("feedback source skipped", zap.String("path", path), zap.Error(invalid))
			res.Skipped = append(res.Skipped, invalid)
			continue
		}
		for _, f := range src.labels {
			res.Combined[f.Label] = f.Text
		}
		for _, key := range src.keyOrder {
			res.PerKey[key] = append(res.PerKey[key], src.perKey[key]...)
		}
		a.logger.Debug("feedback source applied",
			zap.String("path", path),
			zap.Int("labels", len(src.labels)),
			zap.Int("keys", len(src.keyOrder)),
		)
	}
	return res
}

// Aggregate merges paths with a default aggregator.
func Aggregate(paths []string) *Result {
	return NewAggregator().Aggregate(paths)
}

type source struct {
	labels   []models.Fragment
	keyOrder []string
	perKey   map[string][]models.Fragment
}

type parseError struct {
	reason string
	err    error
}

func (e *parseError) Error() string {
	if e.err != nil {
		return e.reason + ": " + e.err.Error()
	}
	return e.reason
}

func invalidf(format string, args ...interface{}) error {
	return &parseError{reason: fmt.Sprintf(format, args...)}
}

func asInvalid(path string, err error) *models.FeedbackSourceInvalidError {
	if pe, ok := err.(*parseError); ok {
		return &models.FeedbackSourceInvalidError{Path: path, Reason: pe.reason, Err: pe.err}
	}
	return &models.FeedbackSourceInvalidError{Path: path, Reason: "unreadable", Err: err}
}

func readSource(path string) (*source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSource(data)
}

// parseSource decodes into a yaml.Node so that per-key fragments keep document order.
// JSON objects are read with encoding/json into the same tree; everything else is YAML.
func parseSource(data []byte) (*source, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, &parseError{reason: "parse", err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, invalidf("empty document")
	}
	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, invalidf("top level must be a mapping of label to text")
	}

	src := &source{perKey: make(map[string][]models.Fragment)}
	seen := make(map[string]bool)
	for i := 0; i+1 < len(root.Content); i += 2 {
		label, err := scalarText(root.Content[i])
		if err != nil {
			return nil, invalidf("line %d: label must be text", root.Content[i].Line)
		}
		if seen[label] {
			return nil, invalidf("line %d: duplicate label %q", root.Content[i].Line, label)
		}
		seen[label] = true

		value := root.Content[i+1]
		if label == models.PerKeyLabel {
			if err := src.readPerKey(resolve(value)); err != nil {
				return nil, err
			}
			continue
		}
		text, err := scalarText(value)
		if err != nil {
			return nil, invalidf("line %d: label %q must map to text", value.Line, label)
		}
		src.labels = append(src.labels, models.Fragment{Label: label, Text: text})
	}
	return src, nil
}

func decodeDocument(data []byte) (*yaml.Node, error) {
	if looksLikeJSON(data) {
		return decodeJSON(data)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *source) readPerKey(n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return invalidf("line %d: %q must map key values to labels", n.Line, models.PerKeyLabel)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, err := scalarText(n.Content[i])
		if err != nil {
			return invalidf("line %d: key value must be text", n.Content[i].Line)
		}
		if _, dup := s.perKey[key]; dup {
			return invalidf("line %d: duplicate key value %q", n.Content[i].Line, key)
		}
		entries := resolve(n.Content[i+1])
		if entries.Kind != yaml.MappingNode {
			return invalidf("line %d: key value %q must map labels to text", entries.Line, key)
		}
		frags := make([]models.Fragment, 0, len(entries.Content)/2)
		seen := make(map[string]bool)
		for j := 0; j+1 < len(entries.Content); j += 2 {
			label, err := scalarText(entries.Content[j])
			if err != nil {
				return invalidf("line %d: label must be text", entries.Content[j].Line)
			}
			if seen[label] {
				return invalidf("line %d: duplicate label %q for key value %q", entries.Content[j].Line, label, key)
			}
			seen[label] = true
			text, err := scalarText(entries.Content[j+1])
			if err != nil {
				return invalidf("line %d: label %q must map to text", entries.Content[j+1].Line, label)
			}
			frags = append(frags, models.Fragment{Label: label, Text: text})
		}
		s.keyOrder = append(s.keyOrder, key)
		s.perKey[key] = frags
	}
	return nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// scalarText returns a scalar's text with trailing newlines removed. Null is empty text.
func scalarText(n *yaml.Node) (string, error) {
	n = resolve(n)
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("not a scalar")
	}
	if isNull(n) {
		return "", nil
	}
	return strings.TrimRight(n.Value, "\n"), nil
}
