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
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/stampkit/internal/batch"
	"github.com/ironsheep/stampkit/internal/config"
	"github.com/ironsheep/stampkit/internal/imaging"
	"github.com/ironsheep/stampkit/internal/logging"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	programName = "stampkit"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// Handle --version and --help before touching config
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Fprintf(stdout, "%s %s\n", programName, Version)
			fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
			return exitOK
		case "--help", "-h", "help":
			usage(stdout, newFlagSet(config.Default(), stdout).set)
			return exitOK
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)
		return exitUsage
	}

	fs := newFlagSet(cfg, stderr)
	if err := fs.parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)
		return exitUsage
	}
	if fs.set.NArg() != 1 {
		usage(stderr, fs.set)
		return exitUsage
	}
	op, err := batch.ParseOperation(fs.set.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)
		usage(stderr, fs.set)
		return exitUsage
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)
		return exitUsage
	}
	defer logger.Sync()

	logger.Debug("starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit))

	runner, err := batch.NewRunner(cfg, logger)
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return exitUsage
	}

	report, err := runner.Run(ctx, op)
	if report != nil {
		printReport(stdout, report)
	}
	if err != nil {
		logger.Error("batch aborted", zap.Error(err))
		return exitFailed
	}
	if report.Failed() {
		return exitFailed
	}
	return exitOK
}

// flagSet binds command-line flags onto a loaded Config. Flag defaults are the
// config values, so only flags given on the command line change anything.
type flagSet struct {
	set *flag.FlagSet
	cfg *config.Config

	thresholds string
	size       string
	names      string
	flatten    string
	preview    string
}

func newFlagSet(cfg *config.Config, output io.Writer) *flagSet {
	f := &flagSet{
		set:        flag.NewFlagSet(programName, flag.ContinueOnError),
		cfg:        cfg,
		thresholds: joinInts(cfg.Detect.Thresholds),
		size:       cfg.Output.String(),
		names:      strings.Join(cfg.Batch.Names, ","),
	}
	s := f.set
	s.SetOutput(output)
	s.Usage = func() { usage(output, s) }

	s.StringVar(&cfg.Batch.Dir, "dir", cfg.Batch.Dir, "stamp directory")
	s.StringVar(&f.names, "names", f.names, "comma-separated stamp files; empty for every *.png in -dir")
	s.StringVar(&cfg.Batch.BackupDir, "backup-dir", cfg.Batch.BackupDir, "backup directory, relative to -dir unless absolute")
	s.IntVar(&cfg.Batch.Workers, "workers", cfg.Batch.Workers, "images processed in parallel")

	s.StringVar(&f.thresholds, "thresholds", f.thresholds, "content-detect thresholds, tried in order")
	s.Float64Var(&cfg.Detect.MinAreaRatio, "min-area", cfg.Detect.MinAreaRatio, "smallest accepted content area ratio")
	s.Float64Var(&cfg.Detect.MaxAreaRatio, "max-area", cfg.Detect.MaxAreaRatio, "largest accepted content area ratio")
	s.StringVar(&f.size, "size", f.size, "normalized output size, WIDTHxHEIGHT")

	s.IntVar(&cfg.Trim.Threshold, "threshold", cfg.Trim.Threshold, "border-trim threshold")
	s.IntVar(&cfg.Trim.Padding, "padding", cfg.Trim.Padding, "border-trim padding in pixels")

	s.StringVar(&f.flatten, "flatten-color", "", "flatten background color (default "+imaging.HexString(cfg.Colors.Flatten)+")")
	s.StringVar(&f.preview, "preview-color", "", "preview background color (default "+imaging.HexString(cfg.Colors.Preview)+")")

	s.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	s.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "console or json")
	s.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "write logs to a rotated file instead of stderr")
	return f
}

// parse applies args to the config and converts the string-valued flags.
func (f *flagSet) parse(args []string) error {
	if err := f.set.Parse(args); err != nil {
		return err
	}

	thresholds, err := config.ParseThresholds(f.thresholds)
	if err != nil {
		return fmt.Errorf("-thresholds: %w", err)
	}
	f.cfg.Detect.Thresholds = thresholds

	size, err := config.ParseSize(f.size)
	if err != nil {
		return fmt.Errorf("-size: %w", err)
	}
	f.cfg.Output = config.OutputConfig{Width: size.Width, Height: size.Height}

	f.cfg.Batch.Names = nil
	for _, name := range strings.Split(f.names, ",") {
		if name = strings.TrimSpace(name); name != "" {
			f.cfg.Batch.Names = append(f.cfg.Batch.Names, name)
		}
	}

	if f.flatten != "" {
		if f.cfg.Colors.Flatten, err = config.ParseColor(f.flatten); err != nil {
			return fmt.Errorf("-flatten-color: %w", err)
		}
	}
	if f.preview != "" {
		if f.cfg.Colors.Preview, err = config.ParseColor(f.preview); err != nil {
			return fmt.Errorf("-preview-color: %w", err)
		}
	}
	return nil
}

func usage(w io.Writer, s *flag.FlagSet) {
	fmt.Fprintf(w, "%s - normalize decorative stamp images\n", programName)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Usage: %s [options] <operation>\n", programName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Operations:")
	fmt.Fprintln(w, "  normalize    Crop to the detected content and fill-resize to -size")
	fmt.Fprintln(w, "  trim         Crop away a uniform light border, keeping -padding")
	fmt.Fprintln(w, "  flatten      Paste transparent stamps onto -flatten-color")
	fmt.Fprintln(w, "  preview      Write <name>-preview.png on -preview-color")
	fmt.Fprintln(w, "  inspect      Report size, format and transparency")
	fmt.Fprintln(w, "  detect       Report the content box and write <name>-detect.png")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "normalize, trim and flatten overwrite files in place after copying each")
	fmt.Fprintln(w, "original into the backup directory once.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	s.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables (also read from .env):")
	fmt.Fprintln(w, "  STAMP_DIR, STAMP_NAMES, STAMP_BACKUP_DIR, STAMP_WORKERS")
	fmt.Fprintln(w, "  STAMP_THRESHOLDS, STAMP_MIN_AREA, STAMP_MAX_AREA, STAMP_TARGET_SIZE")
	fmt.Fprintln(w, "  STAMP_TRIM_THRESHOLD, STAMP_TRIM_PADDING")
	fmt.Fprintln(w, "  STAMP_FLATTEN_COLOR, STAMP_PREVIEW_COLOR")
	fmt.Fprintln(w, "  STAMP_LOG_LEVEL, STAMP_LOG_FORMAT, STAMP_LOG_FILE")
}

func printReport(w io.Writer, r *batch.Report) {
	for _, o := range r.Outcomes {
		detail := o.Detail
		if o.Err != nil {
			if detail != "" {
				detail += ": "
			}
			detail += o.Err.Error()
		}
		fmt.Fprintln(w, strings.TrimRight(fmt.Sprintf("%-8s %-20s %s", o.Status, o.Name, detail), " "))
	}
	fmt.Fprintf(w, "%s: %s in %s\n", r.Op, r.Summary(), r.Elapsed.Round(time.Millisecond))
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}
