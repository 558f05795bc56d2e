// Package main is the cellveyor CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hyperjump/cellveyor/internal/config"
	"github.com/hyperjump/cellveyor/internal/logserver"
	"github.com/hyperjump/cellveyor/internal/models"
	"github.com/hyperjump/cellveyor/internal/output"
	"github.com/hyperjump/cellveyor/internal/storage"
	"github.com/hyperjump/cellveyor/pkg/utils"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var version = "dev"

const defaultConfigPath = "cellveyor.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}
	var err error
	command := os.Args[1]
	switch command {
	case "transport":
		err = runTransport(os.Args[2:])
	case "log":
		err = runLog(os.Args[2:])
	case "history":
		err = runHistory(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "version", "--version":
		fmt.Printf("cellveyor version %s\n", version)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage(os.Stdout)
		os.Exit(1)
	}
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "%s\n", describeError(err))
		}
		os.Exit(1)
	}
}

// describeError turns pipeline errors into a message for the terminal.
func describeError(err error) string {
	var (
		unreadable *models.SourceUnreadableError
		noSheet    *models.SheetNotFoundError
		noKey      *models.KeyAttributeNotFoundError
		badPattern *models.PatternInvalidError
		dupKey     *models.DuplicateKeyReportError
	)
	switch {
	case errors.As(err, &unreadable):
		return fmt.Sprintf("🤷 Unable to read spreadsheet %s: %s", unreadable.Path, unreadable.Reason)
	case errors.As(err, &noSheet):
		return fmt.Sprintf("🤷 No sheet named %q (available: %s)", noSheet.Sheet, strings.Join(noSheet.Available, ", "))
	case errors.As(err, &noKey):
		return fmt.Sprintf("🤷 Key attribute %q is not a column of the sheet", noKey.Column)
	case errors.As(err, &badPattern):
		return fmt.Sprintf("🤷 Invalid regular expression %q: %v", badPattern.Pattern, badPattern.Err)
	case errors.As(err, &dupKey):
		return fmt.Sprintf("🤷 More than one report for key %q", dupKey.Key)
	default:
		return fmt.Sprintf("🤷 %v", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// newConsole builds the run's logger and console. When the requested log
// destination is unavailable the console destination is used and a warning logged.
func newConsole(cfg *config.Config, level, dest string, verbose bool) (*output.Console, error) {
	logger, ok, err := utils.NewLogger(utils.LoggerConfig{
		Level:         firstNonEmpty(level, cfg.Logging.Level),
		Destination:   firstNonEmpty(dest, cfg.Logging.Destination),
		SyslogAddress: cfg.Logging.SyslogAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if !ok {
		logger.Warn("log destination unavailable, using console", zap.String("destination", firstNonEmpty(dest, cfg.Logging.Destination)))
	}
	return output.NewConsole(
		output.WithWriter(os.Stdout),
		output.WithLogger(logger),
		output.WithVerbose(verbose),
	), nil
}

func runLog(args []string) error {
	fs := flag.NewFlagSet("log", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	host := fs.String("host", "", "UDP and HTTP listen host (overrides config)")
	port := fs.Int("port", 0, "UDP syslog port (overrides config)")
	httpPort := fs.Int("http-port", 0, "HTTP API port, -1 disables (overrides config)")
	level := fs.String("debug-level", "", "level of the server's own logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *host != "" {
		cfg.LogServer.Host = *host
	}
	if *port != 0 {
		cfg.LogServer.Port = *port
	}
	if *httpPort != 0 {
		cfg.LogServer.HTTPPort = *httpPort
	}

	// The collector must not send its own logs to itself.
	c, err := newConsole(cfg, firstNonEmpty(*level, "INFO"), string(utils.DestinationConsole), false)
	if err != nil {
		return err
	}
	defer c.Logger().Sync()

	c.PrintHeader()
	c.PrintServer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return logserver.NewServer(cfg.LogServer, c).Serve(ctx)
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 20, "number of deliveries to list")
	offset := fs.Int("offset", 0, "number of newest deliveries to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	ledger, err := storage.NewSQLiteLedger(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer ledger.Close()

	return printHistory(context.Background(), os.Stdout, ledger, cfg.Storage.DatabasePath, *offset, *limit)
}

func printHistory(ctx context.Context, w io.Writer, ledger storage.Ledger, dbPath string, offset, limit int) error {
	total, err := ledger.CountDeliveries(ctx)
	if err != nil {
		return err
	}
	deliveries, err := ledger.ListDeliveries(ctx, offset, limit)
	if err != nil {
		return err
	}
	size, err := storage.LedgerSizeBytes(dbPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "📒 Ledger: %s (%d deliveries, %s)\n", dbPath, total, formatBytes(size))
	if len(deliveries) == 0 {
		fmt.Fprintln(w, "   No deliveries recorded.")
		return nil
	}
	for _, d := range deliveries {
		fmt.Fprintf(w, "   %s  %-40s  %s  %s\n",
			d.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			d.Repository,
			utils.Truncate(d.Digest, 19),
			d.CommentURL,
		)
	}
	if shown := int64(offset + len(deliveries)); shown < total {
		fmt.Fprintf(w, "   ... %d older deliveries (use --offset %d)\n", total-shown, shown)
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	write := fs.String("write", "", "write the effective configuration (token included) to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *write != "" {
		if err := config.Save(*write, cfg); err != nil {
			return err
		}
		fmt.Printf("📝 Wrote %s\n", *write)
		return nil
	}
	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `cellveyor - transport spreadsheet cells into per-key feedback reports

Usage:
  cellveyor <command> [flags]

Commands:
  transport   Build one report per key value and optionally post them to GitHub
  log         Start the syslog collector that receives --debug-dest syslog output
  history     List reports already delivered to GitHub
  config      Print the effective configuration
  version     Print version
  help        Show this help

Run "cellveyor <command> -h" for command flags.

Example:
  cellveyor transport -d grades -f lab1.xlsx -s Sheet1 -a Student \
    -c "^Score" -r "^Comment" --feedback-file feedback.yaml --transfer \
    -o my-course -p lab1-
`)
}
