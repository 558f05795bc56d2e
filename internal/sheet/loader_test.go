package sheet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/cellveyor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, cells map[string]map[string]interface{}, extraSheets ...string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for _, name := range extraSheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
	}
	for sheet, values := range cells {
		for cell, v := range values {
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	path := filepath.Join(t.TempDir(), "grades.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoad_typesAndOrder(t *testing.T) {
	path := writeWorkbook(t, map[string]map[string]interface{}{
		"Sheet1": {
			"A1": "id", "B1": "score", "C1": "comments", "D1": "passed",
			"A2": "A", "B2": 90, "C2": "good", "D2": true,
			"A3": "B", "B3": 72.5,
		},
		"Roster": {"A1": "name", "A2": "Ada"},
	}, "Roster")

	wb, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sheet1", "Roster"}, wb.SheetNames())

	d, err := wb.Sheet("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "score", "comments", "passed"}, d.Columns())
	require.Equal(t, 2, d.Len())

	first := d.Rows()[0]
	assert.Equal(t, models.TextValue("A"), first.Get("id"))
	assert.Equal(t, models.NumberValue(90), first.Get("score"))
	assert.Equal(t, "90", first.Get("score").String())
	assert.Equal(t, models.TextValue("good"), first.Get("comments"))
	assert.Equal(t, models.TextValue("TRUE"), first.Get("passed"))

	second := d.Rows()[1]
	assert.Equal(t, models.NumberValue(72.5), second.Get("score"))
	assert.True(t, second.Get("comments").IsEmpty())
	assert.Equal(t, models.KindEmpty, second.Get("passed").Kind)

	roster, err := wb.Sheet("Roster")
	require.NoError(t, err)
	assert.Equal(t, 1, roster.Len())
}

func TestLoad_numericTextStaysText(t *testing.T) {
	path := writeWorkbook(t, map[string]map[string]interface{}{
		"Sheet1": {"A1": "id", "A2": "007"},
	})
	wb, err := Load(path)
	require.NoError(t, err)
	d, _ := wb.Sheet("Sheet1")
	assert.Equal(t, models.TextValue("007"), d.Rows()[0].Get("id"))
}

func TestLoad_datesAsText(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"id", "due", "submitted", "at", "score"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{
		"A", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 45383, 0.5, 12.25,
	}))
	isoDate := "yyyy-mm-dd"
	custom, err := f.NewStyle(&excelize.Style{CustomNumFmt: &isoDate})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "C2", "C2", custom))
	clock, err := f.NewStyle(&excelize.Style{NumFmt: 20})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "D2", "D2", clock))
	decimals, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "E2", "E2", decimals))
	path := filepath.Join(t.TempDir(), "dates.xlsx")
	require.NoError(t, f.SaveAs(path))

	wb, err := Load(path)
	require.NoError(t, err)
	d, _ := wb.Sheet("Sheet1")
	row := d.Rows()[0]
	assert.Equal(t, models.TextValue("2024-03-01 00:00:00"), row.Get("due"))
	assert.Equal(t, models.TextValue("2024-04-01 00:00:00"), row.Get("submitted"))
	assert.Equal(t, models.TextValue("12:00:00"), row.Get("at"))
	assert.Equal(t, models.NumberValue(12.25), row.Get("score"))
}

func TestIsDateFormatCode(t *testing.T) {
	for code, want := range map[string]bool{
		"yyyy-mm-dd":        true,
		"[$-409]d-mmm-yy":   true,
		"[h]:mm:ss":         true,
		"[Red]0.00":         false,
		`0.00 "days"`:       false,
		`#,##0;[Red]-#,##0`: false,
		"General":           false,
		`\d0`:               false,
		"hh:mm AM/PM":       true,
	} {
		assert.Equal(t, want, isDateFormatCode(code), code)
	}
}

func TestLoad_skipsBlankRows(t *testing.T) {
	path := writeWorkbook(t, map[string]map[string]interface{}{
		"Sheet1": {"A1": "id", "A2": "A", "A4": "C"},
	})
	wb, err := Load(path)
	require.NoError(t, err)
	d, _ := wb.Sheet("Sheet1")
	require.Equal(t, 2, d.Len())
	assert.Equal(t, "C", d.Rows()[1].Get("id").String())
}

func TestLoad_unknownSheet(t *testing.T) {
	path := writeWorkbook(t, map[string]map[string]interface{}{"Sheet1": {"A1": "id"}})
	wb, err := Load(path)
	require.NoError(t, err)
	_, err = wb.Sheet("Missing")
	var notFound *models.SheetNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Missing", notFound.Sheet)
	assert.Equal(t, []string{"Sheet1"}, notFound.Available)
}

func TestLoad_unreadable(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "notes.xlsx")
	require.NoError(t, os.WriteFile(garbage, []byte("not a workbook"), 0600))

	for name, path := range map[string]string{
		"missing": filepath.Join(dir, "nope.xlsx"),
		"corrupt": garbage,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(path)
			var unreadable *models.SourceUnreadableError
			require.True(t, errors.As(err, &unreadable), "got %v", err)
			assert.Equal(t, path, unreadable.Path)
		})
	}
}

func TestHeaderNames(t *testing.T) {
	got := headerNames([]string{"id", "", "score", "score", "score", "score.1 "})
	assert.Equal(t, []string{"id", "Unnamed: 1", "score", "score.1", "score.2", "score.1 "}, got)
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, models.NumberValue(3), cellValue(excelize.CellTypeNumber, "3"))
	assert.Equal(t, models.NumberValue(1.5), cellValue(excelize.CellTypeUnset, "1.5"))
	assert.Equal(t, models.TextValue("n/a"), cellValue(excelize.CellTypeUnset, "n/a"))
	assert.Equal(t, models.TextValue("42"), cellValue(excelize.CellTypeSharedString, "42"))
	assert.Equal(t, models.TextValue("FALSE"), cellValue(excelize.CellTypeBool, "0"))
}
