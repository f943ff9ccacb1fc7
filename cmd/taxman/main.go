package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"taxman/internal/config"
	"taxman/internal/core"
	"taxman/internal/fetch"
	"taxman/internal/log"
	"taxman/internal/output"
	"taxman/internal/platform"
	"taxman/internal/report"
	"taxman/internal/runner"
)

var (
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
)

type options struct {
	start     string
	end       string
	months    int
	monthsSet bool
	platforms []string
	overwrite bool
	verbose   bool
}

func main() {
	// Optional .env for local runs; environment wins.
	_ = godotenv.Load()

	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		red.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	lg := log.New(log.Config{Level: level})
	log.SetDefault(lg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, lg); err != nil {
		red.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (*options, error) {
	fs := flag.NewFlagSet("taxman", flag.ContinueOnError)
	opts := &options{}
	var platforms string
	fs.StringVar(&opts.start, "start", "", "first month, YYYY-MM")
	fs.StringVar(&opts.end, "end", "", "last month, YYYY-MM")
	fs.IntVar(&opts.months, "months", 1, "number of months, counted forward from -start or back from -end")
	fs.StringVar(&platforms, "platforms", "", "comma-separated platform names (default: all)")
	fs.BoolVar(&opts.overwrite, "overwrite", false, "replace reports whose content changed")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "months" {
			opts.monthsSet = true
		}
	})
	for _, name := range strings.Split(platforms, ",") {
		if name = strings.TrimSpace(name); name != "" {
			opts.platforms = append(opts.platforms, name)
		}
	}
	return opts, nil
}

// resolvePeriod turns the start/end/months flags into an inclusive
// month range. Either endpoint may be given alone; months counts off
// the other endpoint and means nothing when both are present.
func resolvePeriod(opts *options) ([]core.TaxMonth, error) {
	if opts.start == "" && opts.end == "" {
		return nil, fmt.Errorf("either -start or -end is required")
	}

	var start, end core.TaxMonth
	var err error
	if opts.start != "" {
		if start, err = core.ParseTaxMonth(opts.start); err != nil {
			return nil, fmt.Errorf("invalid -start: %w", err)
		}
	}
	if opts.end != "" {
		if end, err = core.ParseTaxMonth(opts.end); err != nil {
			return nil, fmt.Errorf("invalid -end: %w", err)
		}
	}

	months := opts.months
	if months < 1 {
		months = 1
	}

	switch {
	case opts.start != "" && opts.end != "":
		if opts.monthsSet {
			return nil, fmt.Errorf("-months means nothing when both -start and -end are given")
		}
	case opts.start != "":
		end = start.AddMonths(months - 1)
	default:
		start = end.AddMonths(-months + 1)
	}

	return core.MonthRange(start, end)
}

func run(ctx context.Context, opts *options, lg *log.Logger) error {
	months, err := resolvePeriod(opts)
	if err != nil {
		return err
	}

	cfg := config.Load()
	if opts.overwrite {
		cfg.Overwrite = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		return err
	}

	adapters, err := platform.Resolve(opts.platforms, cfg, settings, lg)
	if err != nil {
		return err
	}
	names := make([]string, len(adapters))
	for i, p := range adapters {
		names[i] = p.Name()
	}

	lg.Info("starting run",
		"start", months[0].String(), "end", months[len(months)-1].String(),
		"platforms", strings.Join(names, ","), "workers", cfg.Workers)

	gen := report.NewGenerator(settings, lg)
	for _, p := range adapters {
		if src, ok := p.(report.TypeSummarySource); ok {
			gen.AttachPassSummary(src)
		}
	}
	fetcher := fetch.New(cfg.PlayBucket, cfg.GoogleCredentialsFile, cfg.DataRoot, lg)

	table, statuses := runner.New(adapters, fetcher, cfg.Workers, lg).
		Collect(ctx, months, runner.ExtendedMonths(months, names, gen.PassOffset()))

	reports, err := gen.Generate(table, months, names)
	if err != nil {
		return err
	}
	if err := output.NewWriter(cfg.OutputRoot, cfg.Overwrite, lg).WriteAll(reports); err != nil {
		return err
	}

	if runner.Failed(statuses) {
		for _, s := range statuses {
			switch {
			case s.Err != nil:
				red.Fprintf(os.Stderr, "%s %s: %v\n", s.Platform, s.Month, s.Err)
			case s.Result == platform.ResultMissing && !s.Extended:
				yellow.Fprintf(os.Stderr, "%s %s: no data\n", s.Platform, s.Month)
			}
		}
		return fmt.Errorf("run incomplete: some months failed or had no data")
	}
	return nil
}
