package sheet

import (
	"strings"

	"github.com/hyperjump/cellveyor/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	dateTimeLayout = "2006-01-02 15:04:05"
	timeLayout     = "15:04:05"
)

// dateFormats tracks which cell styles of a workbook carry a date or time
// number format. Lookups are cached per style index.
type dateFormats struct {
	f        *excelize.File
	date1904 bool
	styles   map[int]bool
}

func newDateFormats(f *excelize.File) *dateFormats {
	d := &dateFormats{f: f, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

func (d *dateFormats) isDate(sheet, cell string) (bool, error) {
	idx, err := d.f.GetCellStyle(sheet, cell)
	if err != nil {
		return false, err
	}
	if known, ok := d.styles[idx]; ok {
		return known, nil
	}
	style, err := d.f.GetStyle(idx)
	if err != nil {
		// cells without a stored style use the General format
		d.styles[idx] = false
		return false, nil
	}
	date := isDateNumFmt(style.NumFmt)
	if style.CustomNumFmt != nil {
		date = isDateFormatCode(*style.CustomNumFmt)
	}
	d.styles[idx] = date
	return date, nil
}

// render turns an Excel serial into date text. Serials below one day carry
// only a time of day.
func (d *dateFormats) render(serial float64) (models.Value, bool) {
	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return models.Value{}, false
	}
	if serial < 1 {
		return models.TextValue(t.Format(timeLayout)), true
	}
	return models.TextValue(t.Format(dateTimeLayout)), true
}

// isDateNumFmt reports whether a built-in number format id is a date or time.
func isDateNumFmt(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 45 && id <= 47)
}

// isDateFormatCode reports whether a custom format code contains date or time
// tokens once quoted literals, escapes and bracketed sections are removed.
// Elapsed-time sections such as [h] still count.
func isDateFormatCode(code string) bool {
	section := code
	if i := strings.IndexByte(code, ';'); i >= 0 {
		section = code[:i]
	}
	var b strings.Builder
	for i := 0; i < len(section); i++ {
		switch c := section[i]; c {
		case '"':
			j := strings.IndexByte(section[i+1:], '"')
			if j < 0 {
				i = len(section)
			} else {
				i += j + 1
			}
		case '\\', '_', '*':
			i++
		case '[':
			j := strings.IndexByte(section[i+1:], ']')
			if j < 0 {
				i = len(section)
				continue
			}
			inner := strings.ToLower(section[i+1 : i+1+j])
			if strings.Trim(inner, "hms") == "" {
				b.WriteString(inner)
			}
			i += j + 1
		default:
			b.WriteByte(c)
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "ydmhs")
}
