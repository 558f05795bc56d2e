package report

// Layout names a strategy for separating the parts of a report.
type Layout string

const (
	// LayoutCompact separates every line and section with a single newline.
	LayoutCompact Layout = "compact"
	// LayoutSpaced puts one blank line between sections and a single newline
	// between lines inside a section, so Markdown renders sections as paragraphs.
	LayoutSpaced Layout = "spaced"

	// DefaultLayout is used when no layout is requested or the name is unknown.
	DefaultLayout = LayoutCompact
)

type separators struct {
	line    string
	section string
}

var layouts = map[Layout]separators{
	LayoutCompact: {line: "\n", section: "\n"},
	LayoutSpaced:  {line: "\n", section: "\n\n"},
}

// Layouts returns the known layout names.
func Layouts() []Layout {
	return []Layout{LayoutCompact, LayoutSpaced}
}

// ResolveLayout maps name to a known layout. Unknown or empty names resolve to
// DefaultLayout and ok is false.
func ResolveLayout(name string) (layout Layout, ok bool) {
	l := Layout(name)
	if _, found := layouts[l]; found {
		return l, true
	}
	return DefaultLayout, false
}
