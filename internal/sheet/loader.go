// Package sheet loads spreadsheet workbooks into per-sheet datasets.
package sheet

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hyperjump/cellveyor/internal/models"
	"github.com/xuri/excelize/v2"
)

// Workbook holds every sheet of a spreadsheet file as a Dataset.
type Workbook struct {
	Path   string
	names  []string
	sheets map[string]*models.Dataset
}

// SheetNames returns sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return append([]string(nil), w.names...)
}

// Sheet returns the dataset for name.
func (w *Workbook) Sheet(name string) (*models.Dataset, error) {
	d, ok := w.sheets[name]
	if !ok {
		return nil, &models.SheetNotFoundError{Sheet: name, Available: w.SheetNames()}
	}
	return d, nil
}

// Load opens the spreadsheet at path and reads every sheet.
// The first row of each sheet names the columns. Numeric cells stay numeric
// and text cells stay text; raw values are used rather than formatted ones,
// except that date and time cells are rendered as "2006-01-02 15:04:05" text.
func Load(path string) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &models.SourceUnreadableError{Path: path, Reason: "cannot open file", Err: err}
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &models.SourceUnreadableError{Path: path, Reason: "not a recognized spreadsheet", Err: err}
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, &models.SourceUnreadableError{Path: path, Reason: "workbook has no sheets"}
	}
	wb := &Workbook{
		Path:   path,
		names:  names,
		sheets: make(map[string]*models.Dataset, len(names)),
	}
	for _, name := range names {
		d, err := readSheet(f, name)
		if err != nil {
			return nil, &models.SourceUnreadableError{Path: path, Reason: fmt.Sprintf("read sheet %q", name), Err: err}
		}
		wb.sheets[name] = d
	}
	return wb, nil
}

func readSheet(f *excelize.File, name string) (*models.Dataset, error) {
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return models.NewDataset(name, nil), nil
	}
	columns := headerNames(rows[0])
	d := models.NewDataset(name, columns)
	dates := newDateFormats(f)
	for r := 1; r < len(rows); r++ {
		raw := rows[r]
		if blankRow(raw) {
			continue
		}
		row := make(models.Row, len(columns))
		for c, col := range columns {
			if c >= len(raw) || raw[c] == "" {
				row[col] = models.EmptyValue()
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(name, cell)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", cell, err)
			}
			v := cellValue(typ, raw[c])
			if v.Kind == models.KindNumber {
				isDate, err := dates.isDate(name, cell)
				if err != nil {
					return nil, fmt.Errorf("cell %s: %w", cell, err)
				}
				if isDate {
					if text, ok := dates.render(v.Num); ok {
						v = text
					}
				}
			}
			row[col] = v
		}
		d.AppendRow(row)
	}
	return d, nil
}

// cellValue converts a raw cell string using the cell's stored type.
// Integers written by most tools carry no type attribute, so untyped cells
// that parse as numbers are numbers.
func cellValue(typ excelize.CellType, raw string) models.Value {
	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return models.NumberValue(n)
		}
		return models.TextValue(raw)
	case excelize.CellTypeBool:
		if raw == "1" || strings.EqualFold(raw, "true") {
			return models.TextValue("TRUE")
		}
		return models.TextValue("FALSE")
	default:
		return models.TextValue(raw)
	}
}

// headerNames turns the header row into unique column names. Names are kept
// exactly as written; blank headers become "Unnamed: N" and repeats get ".1",
// ".2", ... suffixes.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))
	suffix := make(map[string]int)
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if used[name] {
			base := name
			for {
				suffix[base]++
				candidate := base + "." + strconv.Itoa(suffix[base])
				if !used[candidate] {
					name = candidate
					break
				}
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
