package platform

import (
	"context"
	"fmt"
	"os"
	"sync"

	"taxman/internal/config"
	"taxman/internal/core"
	"taxman/internal/log"
)

// PlayPass handles the subscription-pool export: one aggregate payout
// row per product, no per-sale units. Product ids are internal package
// names and remap to canonical titles; unknown ids pass through so a
// new product never silently disappears.
type PlayPass struct {
	base
	remap map[string]string

	mu        sync.Mutex
	summaries map[core.TaxMonth]*core.Accumulator
}

const playPassName = "play-pass"

var playPassColumns = columnAliases{
	"date":   {"Start Date", "Period Start Date"},
	"id":     {"Product Id", "Package Name"},
	"type":   {"Transaction Type"},
	"amount": {"Amount (Merchant Currency)", "Earnings (Merchant Currency)"},
}

func NewPlayPass(cfg *config.Config, settings *config.Settings, lg *log.Logger) *PlayPass {
	cutoff, hasCutoff := settings.ExcludeBefore(playPassName)
	return &PlayPass{
		base:      newBase(playPassName, cfg.DataRoot, ".csv", cutoff, hasCutoff, lg),
		remap:     settings.TitleMap(playPassName),
		summaries: make(map[core.TaxMonth]*core.Accumulator),
	}
}

func (p *PlayPass) Parse(ctx context.Context, month core.TaxMonth) (ParseResult, core.Table, error) {
	if p.CheckExcluded(month) {
		return ResultExcluded, nil, nil
	}
	if p.CheckPresent(month) != ResultOK {
		return ResultMissing, nil, nil
	}

	path := p.monthPath(month, 0)
	f, err := os.Open(path)
	if err != nil {
		return ResultMissing, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := readDelimited(f, ',', playPassColumns)
	if err != nil {
		return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
	}

	byType := core.NewAccumulator()
	table := make(core.Table, 0, len(rows))
	for _, r := range rows {
		amount, err := parseAmount(r["amount"])
		if err != nil {
			return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
		}
		title := r["id"]
		if canonical, ok := p.remap[title]; ok {
			title = canonical
		}
		rowMonth, err := core.ParseTaxMonth(shortDate(r["date"]))
		if err != nil {
			return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
		}
		byType.Add(r["type"], amount)
		table = append(table, core.Record{
			Title:    title,
			Units:    0, // subscription pool payout, no per-sale units
			Revenue:  amount,
			Currency: "SEK",
			Month:    rowMonth,
			Platform: p.name,
		})
	}

	p.mu.Lock()
	p.summaries[month] = byType
	p.mu.Unlock()

	return ResultOK, table, nil
}

// TypeSummary returns the charge/fee/tax/refund totals recorded while
// parsing the month, or nil when the month has not been parsed.
func (p *PlayPass) TypeSummary(month core.TaxMonth) *core.Accumulator {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summaries[month]
}

// shortDate truncates "2024-01-01" style dates to their month.
func shortDate(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
