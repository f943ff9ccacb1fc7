// Package runner fans parse work out over a bounded worker pool and
// funnels the results into one table for reporting. A single bad
// (platform, month) pair never takes down the rest of the run.
package runner

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"taxman/internal/core"
	"taxman/internal/fetch"
	"taxman/internal/log"
	"taxman/internal/platform"
	"taxman/internal/report"
)

// Fetcher pulls a month's export from remote storage when it is absent
// locally. Satisfied by fetch.Fetcher.
type Fetcher interface {
	Enabled() bool
	Fetch(ctx context.Context, month core.TaxMonth) error
}

// Status is the outcome of one (platform, month) pair.
type Status struct {
	Platform string
	Month    core.TaxMonth
	Result   platform.ParseResult
	Err      error

	// Extended marks a month parsed beyond the requested range to
	// feed a lagging sub-ledger. Its absence is not a failure: the
	// user never asked for it.
	Extended bool
}

// Failed reports whether any requested pair errored or came up
// missing. Intentional exclusions and absent extended months are
// fine; silent gaps in the requested range are not.
func Failed(statuses []Status) bool {
	for _, s := range statuses {
		if s.Err != nil {
			return true
		}
		if s.Result == platform.ResultMissing && !s.Extended {
			return true
		}
	}
	return false
}

type Runner struct {
	platforms []platform.Platform
	fetcher   Fetcher
	workers   int
	lg        *log.Logger
}

func New(platforms []platform.Platform, fetcher Fetcher, workers int, lg *log.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		platforms: platforms,
		fetcher:   fetcher,
		workers:   workers,
		lg:        lg.WithComponent(log.ComponentRunner),
	}
}

// ExtendedMonths returns the extra months each platform must parse
// beyond the requested range. When both google sub-ledgers are
// selected the subscription ledger lags by the pass offset, so the
// months feeding the first requested report must be loaded too. Only
// the subscription adapter gets them: no other platform contributes
// rows outside the requested range.
func ExtendedMonths(months []core.TaxMonth, platformNames []string, passOffset int) map[string][]core.TaxMonth {
	if len(months) == 0 || !report.NeedsMerge(platformNames) || passOffset < 1 {
		return nil
	}
	extra := make([]core.TaxMonth, 0, passOffset)
	for i := passOffset; i > 0; i-- {
		extra = append(extra, months[0].AddMonths(-i))
	}
	return map[string][]core.TaxMonth{"play-pass": extra}
}

type task struct {
	platform platform.Platform
	month    core.TaxMonth
	extended bool
}

// Collect parses every requested (platform, month) pair on the worker
// pool, plus any per-platform extended months. All pairs run to
// completion; per-pair failures land in the statuses instead of
// aborting the batch.
func (r *Runner) Collect(ctx context.Context, months []core.TaxMonth, extended map[string][]core.TaxMonth) (core.Table, []Status) {
	var tasks []task
	for _, p := range r.platforms {
		for _, m := range extended[p.Name()] {
			tasks = append(tasks, task{platform: p, month: m, extended: true})
		}
		for _, m := range months {
			tasks = append(tasks, task{platform: p, month: m})
		}
	}

	statuses := make([]Status, len(tasks))
	tables := make([]core.Table, len(tasks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			res, table, err := r.parseOne(ctx, t.platform, t.month)
			statuses[i] = Status{
				Platform: t.platform.Name(),
				Month:    t.month,
				Result:   res,
				Err:      err,
				Extended: t.extended,
			}
			tables[i] = table
			return nil
		})
	}
	// Workers never return errors, so Wait only orders memory.
	_ = g.Wait()

	var out core.Table
	for i, table := range tables {
		s := statuses[i]
		switch {
		case s.Err != nil:
			r.lg.Error("parse failed",
				log.FieldPlatform, s.Platform, log.FieldMonth, s.Month.String(),
				log.FieldError, s.Err)
		case s.Result == platform.ResultMissing && s.Extended:
			r.lg.Info("no data for extended sub-ledger month",
				log.FieldPlatform, s.Platform, log.FieldMonth, s.Month.String())
		case s.Result == platform.ResultMissing:
			r.lg.Warn("no data for month",
				log.FieldPlatform, s.Platform, log.FieldMonth, s.Month.String())
		case s.Result == platform.ResultExcluded:
			r.lg.Info("month excluded",
				log.FieldPlatform, s.Platform, log.FieldMonth, s.Month.String())
		default:
			out = append(out, table...)
		}
	}
	return out, statuses
}

// parseOne runs one pair, pulling the export from remote storage first
// when it is absent locally and a fetcher is wired for the platform.
func (r *Runner) parseOne(ctx context.Context, p platform.Platform, month core.TaxMonth) (platform.ParseResult, core.Table, error) {
	if err := ctx.Err(); err != nil {
		return platform.ResultMissing, nil, err
	}

	res, table, err := p.Parse(ctx, month)
	if err != nil || res != platform.ResultMissing {
		return res, table, err
	}
	if r.fetcher == nil || !r.fetcher.Enabled() || p.Name() != "play-store" {
		return res, table, err
	}

	if ferr := r.fetcher.Fetch(ctx, month); ferr != nil {
		if errors.Is(ferr, fetch.ErrNoData) {
			return platform.ResultMissing, nil, nil
		}
		return platform.ResultMissing, nil, ferr
	}
	return p.Parse(ctx, month)
}
