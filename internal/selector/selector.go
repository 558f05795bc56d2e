// Package selector reduces a dataset to the key attribute plus the columns whose
// names match a pattern, optionally keeping only rows for one key value.
package selector

import (
	"regexp"

	"github.com/hyperjump/cellveyor/internal/models"
)

// Matcher is a compiled column-name pattern.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
}

// NewMatcher compiles pattern. Matching is unanchored: the pattern may match any part of a name.
func NewMatcher(pattern string) (*Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &models.PatternInvalidError{Pattern: pattern, Err: err}
	}
	return &Matcher{pattern: pattern, re: re}, nil
}

// Match reports whether column matches the pattern.
func (m *Matcher) Match(column string) bool {
	return m.re.MatchString(column)
}

// String returns the source pattern.
func (m *Matcher) String() string {
	return m.pattern
}

// Selection is the output of Select.
type Selection struct {
	// Columns lists the selected columns in dataset order; it always contains the key attribute.
	Columns []string
	// Data holds the retained rows projected onto Columns.
	Data *models.Dataset
}

// Select keeps the columns of d matched by columnPattern, always including keyAttribute,
// and, when keyValue is non-nil, only the rows whose key cell equals *keyValue exactly.
func Select(d *models.Dataset, keyAttribute, columnPattern string, keyValue *string) (*Selection, error) {
	if !d.HasColumn(keyAttribute) {
		return nil, &models.KeyAttributeNotFoundError{Column: keyAttribute}
	}
	m, err := NewMatcher(columnPattern)
	if err != nil {
		return nil, err
	}

	var columns []string
	for _, c := range d.Columns() {
		if c == keyAttribute || m.Match(c) {
			columns = append(columns, c)
		}
	}

	out := models.NewDataset(d.Name, columns)
	for _, row := range d.Rows() {
		if keyValue != nil && row.Get(keyAttribute).String() != *keyValue {
			continue
		}
		out.AppendRow(row)
	}
	return &Selection{Columns: columns, Data: out}, nil
}
