// Package models defines the data structures shared by the report pipeline:
// datasets loaded from spreadsheets, feedback fragments, and generated reports.
package models

import (
	"strconv"
	"strings"
)

// ValueKind is the type of a single spreadsheet cell.
type ValueKind int

const (
	// KindEmpty is a missing or blank cell.
	KindEmpty ValueKind = iota
	// KindText is a text cell.
	KindText
	// KindNumber is a numeric cell.
	KindNumber
)

// Value is a scalar cell value: text, number, or empty.
type Value struct {
	Kind ValueKind
	Text string
	Num  float64
}

// TextValue returns a text Value.
func TextValue(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// NumberValue returns a numeric Value.
func NumberValue(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}

// EmptyValue returns the empty Value.
func EmptyValue() Value {
	return Value{}
}

// IsEmpty reports whether v carries no content. Whitespace-only text counts as empty.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindEmpty:
		return true
	case KindText:
		return strings.TrimSpace(v.Text) == ""
	default:
		return false
	}
}

// String renders the value. Numbers use the shortest decimal that round-trips (90, 72.5).
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// Row maps column name to cell value.
type Row map[string]Value

// Get returns the value for column, or the empty value when the column is absent.
func (r Row) Get(column string) Value {
	return r[column]
}

// Dataset is an ordered sequence of rows over a fixed, ordered column set.
// A Dataset is read-only once built.
type Dataset struct {
	Name    string
	columns []string
	index   map[string]int
	rows    []Row
}

// NewDataset creates an empty dataset with the given column order.
func NewDataset(name string, columns []string) *Dataset {
	cols := append([]string(nil), columns...)
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c] = i
	}
	return &Dataset{Name: name, columns: cols, index: index}
}

// AppendRow adds a row. Columns missing from row are stored as empty and
// columns unknown to the dataset are dropped, so every row shares the column set.
func (d *Dataset) AppendRow(row Row) {
	normalized := make(Row, len(d.columns))
	for _, c := range d.columns {
		normalized[c] = row[c]
	}
	d.rows = append(d.rows, normalized)
}

// Columns returns the column names in ordinal order.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// HasColumn reports whether name is a column of d.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// ColumnIndex returns the ordinal position of name, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	if i, ok := d.index[name]; ok {
		return i
	}
	return -1
}

// Rows returns the rows in order.
func (d *Dataset) Rows() []Row {
	return d.rows
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}
