package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/hyperjump/cellveyor/internal/config"
	"github.com/hyperjump/cellveyor/internal/delivery"
	"github.com/hyperjump/cellveyor/internal/display"
	"github.com/hyperjump/cellveyor/internal/fsutil"
	"github.com/hyperjump/cellveyor/internal/models"
	"github.com/hyperjump/cellveyor/internal/output"
	"github.com/hyperjump/cellveyor/internal/pipeline"
	"github.com/hyperjump/cellveyor/internal/report"
	"github.com/hyperjump/cellveyor/internal/storage"
	"github.com/hyperjump/cellveyor/internal/watcher"
	"go.uber.org/zap"
)

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// optionalString records whether the flag was given at all, so that an
// explicit empty key value still filters.
type optionalString struct {
	value string
	set   bool
}

func (o *optionalString) String() string { return o.value }

func (o *optionalString) Set(v string) error {
	o.value, o.set = v, true
	return nil
}

type transportOptions struct {
	configPath       string
	directory        string
	file             string
	sheetName        string
	keyAttribute     string
	columnRegexp     string
	feedbackRegexp   string
	keyValue         optionalString
	feedbackFiles    stringList
	githubToken      string
	githubOrg        string
	githubPrefix     string
	transfer         bool
	force            bool
	layout           string
	format           string
	debugLevel       string
	debugDestination string
	verbose          bool
	watch            bool
}

func parseTransportFlags(args []string) (*transportOptions, error) {
	o := &transportOptions{}
	fs := flag.NewFlagSet("transport", flag.ContinueOnError)

	str := func(p *string, long, short, usage string) {
		fs.StringVar(p, long, "", usage)
		if short != "" {
			fs.StringVar(p, short, "", "shorthand for --"+long)
		}
	}
	str(&o.directory, "spreadsheet-directory", "d", "directory with spreadsheet file(s) (required)")
	str(&o.file, "spreadsheet-file", "f", "spreadsheet file in the directory (required)")
	str(&o.sheetName, "sheet-name", "s", "name of the sheet in the spreadsheet file (required)")
	str(&o.keyAttribute, "key-attribute", "a", "name of the key attribute column (required)")
	str(&o.columnRegexp, "column-regexp", "c", "regular expression for columns to include (required)")
	str(&o.feedbackRegexp, "feedback-regexp", "r", "regular expression for feedback columns (required)")
	fs.Var(&o.keyValue, "key-value", "only build the report for this key value")
	fs.Var(&o.keyValue, "v", "shorthand for --key-value")
	fs.Var(&o.feedbackFiles, "feedback-file", "feedback file in YAML or JSON format (repeatable)")
	str(&o.githubToken, "github-token", "g", "GitHub authorization token")
	str(&o.githubOrg, "github-organization", "o", "GitHub organization that stores all matching repositories")
	str(&o.githubPrefix, "github-repository-prefix", "p", "prefix for all destination repositories")
	fs.BoolVar(&o.transfer, "transfer", false, "transfer the reports to GitHub")
	fs.BoolVar(&o.force, "force", false, "transfer even reports that were already delivered unchanged")
	fs.StringVar(&o.layout, "layout", "", "report layout: "+layoutNames())
	fs.StringVar(&o.format, "format", "", "console format: panel, plain, json, html")
	str(&o.debugLevel, "debug-level", "l", "DEBUG, INFO, WARNING, ERROR or CRITICAL")
	str(&o.debugDestination, "debug-dest", "t", "console or syslog")
	fs.BoolVar(&o.verbose, "verbose", false, "display configuration before running")
	fs.BoolVar(&o.watch, "watch", false, "re-run whenever the spreadsheet or a feedback file changes")
	fs.StringVar(&o.configPath, "config", defaultConfigPath, "config file path")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	required := []struct{ name, value string }{
		{"--spreadsheet-directory", o.directory},
		{"--spreadsheet-file", o.file},
		{"--sheet-name", o.sheetName},
		{"--key-attribute", o.keyAttribute},
		{"--column-regexp", o.columnRegexp},
		{"--feedback-regexp", o.feedbackRegexp},
	}
	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return o, nil
}

func layoutNames() string {
	names := make([]string, 0, len(report.Layouts()))
	for _, l := range report.Layouts() {
		names = append(names, string(l))
	}
	return strings.Join(names, ", ")
}

// request builds the pipeline request for a resolved spreadsheet path.
func (o *transportOptions) request(path string, cfg *config.Config) pipeline.Request {
	req := pipeline.Request{
		SpreadsheetPath: path,
		SheetName:       o.sheetName,
		KeyAttribute:    o.keyAttribute,
		ColumnPattern:   o.columnRegexp,
		FeedbackPattern: o.feedbackRegexp,
		FeedbackFiles:   o.feedbackFiles,
		Layout:          report.Layout(firstNonEmpty(o.layout, cfg.Display.Layout)),
	}
	if o.keyValue.set {
		v := o.keyValue.value
		req.KeyValue = &v
	}
	return req
}

func (o *transportOptions) target(cfg *config.Config) delivery.Target {
	return delivery.Target{
		Token:            firstNonEmpty(o.githubToken, cfg.GitHub.Token),
		Organization:     firstNonEmpty(o.githubOrg, cfg.GitHub.Organization),
		RepositoryPrefix: firstNonEmpty(o.githubPrefix, cfg.GitHub.RepositoryPrefix),
		PullRequest:      cfg.GitHub.PullRequest,
	}
}

func (o *transportOptions) settings(cfg *config.Config) []output.Setting {
	t := o.target(cfg)
	token := ""
	if t.Token != "" {
		token = "********"
	}
	return []output.Setting{
		{Name: "spreadsheet_directory", Value: o.directory},
		{Name: "spreadsheet_file", Value: o.file},
		{Name: "sheet_name", Value: o.sheetName},
		{Name: "key_attribute", Value: o.keyAttribute},
		{Name: "column_regexp", Value: o.columnRegexp},
		{Name: "feedback_regexp", Value: o.feedbackRegexp},
		{Name: "key_value", Value: o.keyValue.value},
		{Name: "feedback_file", Value: o.feedbackFiles.String()},
		{Name: "github_token", Value: token},
		{Name: "github_organization", Value: t.Organization},
		{Name: "github_repository_prefix", Value: t.RepositoryPrefix},
		{Name: "transfer", Value: o.transfer},
		{Name: "layout", Value: firstNonEmpty(o.layout, cfg.Display.Layout)},
		{Name: "format", Value: firstNonEmpty(o.format, cfg.Display.Format)},
		{Name: "debug_level", Value: firstNonEmpty(o.debugLevel, cfg.Logging.Level)},
		{Name: "debug_destination", Value: firstNonEmpty(o.debugDestination, cfg.Logging.Destination)},
	}
}

func runTransport(args []string) error {
	opts, err := parseTransportFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	c, err := newConsole(cfg, opts.debugLevel, opts.debugDestination, opts.verbose)
	if err != nil {
		return err
	}
	defer c.Logger().Sync()

	if opts.verbose {
		c.PrintHeader()
		c.PrintDiagnostics(opts.settings(cfg)...)
	}

	path, err := fsutil.ResolveFileInDirectory(opts.file, opts.directory)
	if err != nil {
		c.Println("🤷 Unable to access file and/or directory")
		return err
	}
	c.Printf("🚚 Accessing: %s\n", path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !opts.watch {
		return transportOnce(ctx, c, cfg, opts, path)
	}
	return watchTransport(ctx, c, cfg, opts, path)
}

// transportOnce runs one complete batch: build, display, and optionally deliver.
func transportOnce(ctx context.Context, c *output.Console, cfg *config.Config, opts *transportOptions, path string) error {
	result, err := pipeline.Run(c, opts.request(path, cfg))
	if err != nil {
		return err
	}
	for _, s := range result.Skipped {
		c.Printf("⚠️  Skipped feedback file %s: %s\n", s.Path, s.Reason)
	}

	requested := firstNonEmpty(opts.format, cfg.Display.Format)
	format, ok := display.ResolveFormat(requested)
	if !ok {
		c.Logger().Warn("unknown format, using default", zap.String("format", requested), zap.String("default", string(format)))
	}
	if err := display.WriteReports(c.Out(), result.Reports, format); err != nil {
		return fmt.Errorf("display reports: %w", err)
	}

	if !opts.transfer {
		return nil
	}
	return transferReports(ctx, c, cfg, opts, result.Reports)
}

func transferReports(ctx context.Context, c *output.Console, cfg *config.Config, opts *transportOptions, reports *models.ReportSet) error {
	clientOpts := []delivery.ClientOption{
		delivery.WithBaseURL(cfg.GitHub.BaseURL),
		delivery.WithRateLimit(cfg.GitHub.RequestsPerSecond, 2),
		delivery.WithConcurrency(cfg.GitHub.Concurrency),
		delivery.WithForce(opts.force),
		delivery.WithLogger(c.Logger()),
	}
	ledger, err := storage.NewSQLiteLedger(cfg.Storage.DatabasePath)
	if err != nil {
		c.Logger().Warn("delivery ledger unavailable, every report will be posted", zap.Error(err))
	} else {
		defer ledger.Close()
		clientOpts = append(clientOpts, delivery.WithLedger(ledger))
	}

	outcomes, err := delivery.NewClient(clientOpts...).Deliver(ctx, opts.target(cfg), reports)
	if err != nil {
		return fmt.Errorf("transfer reports: %w", err)
	}
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			c.Printf("❌ %s: %v\n", o.Repository, o.Err)
		case o.Skipped:
			c.Printf("⏭️  %s: unchanged since last delivery\n", o.Repository)
		default:
			c.Printf("📬 %s: %s\n", o.Repository, o.CommentURL)
		}
	}
	if failed := delivery.Failed(outcomes); len(failed) > 0 {
		return fmt.Errorf("%d of %d reports failed to transfer", len(failed), len(outcomes))
	}
	return nil
}

// watchTransport runs a batch now and again after every settled change to the
// spreadsheet or a feedback file. Batch errors are reported and watching continues.
func watchTransport(ctx context.Context, c *output.Console, cfg *config.Config, opts *transportOptions, path string) error {
	var mu sync.Mutex
	runBatch := func() {
		mu.Lock()
		defer mu.Unlock()
		if err := transportOnce(ctx, c, cfg, opts, path); err != nil && !errors.Is(err, context.Canceled) {
			c.Println(describeError(err))
		}
	}
	runBatch()

	files := append([]string{path}, opts.feedbackFiles...)
	w := watcher.NewWatcher(files, func(changed []string) {
		c.Printf("🔁 Changed: %s\n", strings.Join(changed, ", "))
		runBatch()
	}, watcher.WithLogger(c.Logger()), watcher.WithDebounce(cfg.Watch.Debounce))
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	c.Printf("👀 Watching %d file(s); press Ctrl+C to stop\n", len(w.Files()))
	<-ctx.Done()
	return nil
}
