// Package output holds the per-run console: where user-facing text goes and
// which logger components use. One Console is built per run and passed by
// reference; nothing in cellveyor keeps a package-level console or logger.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tagline = "💫 cellveyor: Transport spreadsheet cells into feedback reports"
	website = "🔗 GitHub: https://github.com/GatorEducator/cellveyor"
	server  = "✨ Syslog server for receiving debugging information"
	indent  = "   "
)

// Setting is one name/value pair shown by PrintDiagnostics.
type Setting struct {
	Name  string
	Value interface{}
}

// Console is the output context for one run.
type Console struct {
	out     io.Writer
	logger  *zap.Logger
	runID   string
	verbose bool
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithWriter sets where user-facing text is written (default stdout).
func WithWriter(w io.Writer) ConsoleOption {
	return func(c *Console) { c.out = w }
}

// WithLogger sets the logger (default no-op). The run ID is attached to every entry.
func WithLogger(l *zap.Logger) ConsoleOption {
	return func(c *Console) { c.logger = l }
}

// WithVerbose enables diagnostic output.
func WithVerbose(v bool) ConsoleOption {
	return func(c *Console) { c.verbose = v }
}

// NewConsole creates a console with a fresh run ID.
func NewConsole(opts ...ConsoleOption) *Console {
	c := &Console{
		out:    os.Stdout,
		logger: zap.NewNop(),
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("run_id", c.runID))
	return c
}

// Out returns the user-facing writer.
func (c *Console) Out() io.Writer { return c.out }

// Logger returns the run's logger.
func (c *Console) Logger() *zap.Logger { return c.logger }

// RunID identifies this run in logs.
func (c *Console) RunID() string { return c.runID }

// Verbose reports whether diagnostics are enabled.
func (c *Console) Verbose() bool { return c.verbose }

// Printf writes formatted text.
func (c *Console) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

// Println writes a line.
func (c *Console) Println(args ...interface{}) {
	fmt.Fprintln(c.out, args...)
}

// PrintHeader shows the tool banner.
func (c *Console) PrintHeader() {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, tagline)
	fmt.Fprintln(c.out, website)
}

// PrintServer shows the log server banner.
func (c *Console) PrintServer() {
	fmt.Fprintln(c.out, server)
	fmt.Fprintln(c.out)
}

// PrintDiagnostics lists settings in order, only when verbose.
func (c *Console) PrintDiagnostics(settings ...Setting) {
	if !c.verbose {
		return
	}
	fmt.Fprintln(c.out, "✨ Configured with these parameters:")
	for _, s := range settings {
		fmt.Fprintf(c.out, "%s%s = %v\n", indent, s.Name, s.Value)
	}
}
