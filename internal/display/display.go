// Package display renders generated reports for the terminal or for other tools.
package display

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomarkdown/markdown"
	"github.com/hyperjump/cellveyor/internal/models"
)

// Format is the output format for reports.
type Format string

const (
	// FormatPanel draws each report in a bordered panel (default).
	FormatPanel Format = "panel"
	// FormatPlain writes a "== key ==" heading followed by the report text.
	FormatPlain Format = "plain"
	// FormatJSON writes an ordered array of {key, report} objects.
	FormatJSON Format = "json"
	// FormatHTML renders each report's Markdown to HTML.
	FormatHTML Format = "html"

	// DefaultFormat is used for empty or unknown format names.
	DefaultFormat = FormatPanel
)

type renderer func(w io.Writer, reports []models.Report) error

var renderers = map[Format]renderer{
	FormatPanel: writePanels,
	FormatPlain: writePlain,
	FormatJSON:  writeJSON,
	FormatHTML:  writeHTML,
}

// ResolveFormat maps name to a known format, falling back to DefaultFormat with ok false.
func ResolveFormat(name string) (format Format, ok bool) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if _, found := renderers[f]; found {
		return f, true
	}
	return DefaultFormat, false
}

// WriteReports writes reports to w in the given format, in key order.
func WriteReports(w io.Writer, reports *models.ReportSet, format Format) error {
	f, _ := ResolveFormat(string(format))
	return renderers[f](w, reports.Reports())
}

var (
	panelTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	panelBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

func writePanels(w io.Writer, reports []models.Report) error {
	for _, r := range reports {
		title := panelTitle.Render("Report: " + r.Key)
		body := panelBox.Render(r.Text)
		if _, err := fmt.Fprintf(w, "%s\n%s\n\n", title, body); err != nil {
			return err
		}
	}
	return nil
}

func writePlain(w io.Writer, reports []models.Report) error {
	for _, r := range reports {
		if _, err := fmt.Fprintf(w, "== %s ==\n%s\n\n", r.Key, r.Text); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, reports []models.Report) error {
	if reports == nil {
		reports = []models.Report{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func writeHTML(w io.Writer, reports []models.Report) error {
	for _, r := range reports {
		body := markdown.ToHTML(markdown.NormalizeNewlines([]byte(r.Text)), nil, nil)
		if _, err := fmt.Fprintf(w, "<section data-key=\"%s\">\n%s</section>\n", html.EscapeString(r.Key), body); err != nil {
			return err
		}
	}
	return nil
}
