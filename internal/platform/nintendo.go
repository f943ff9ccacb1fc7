package platform

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"taxman/internal/config"
	"taxman/internal/core"
	"taxman/internal/log"
)

// Nintendo handles the simplest export: already per-product, already
// in SEK, just a column select and a per-title sum.
type Nintendo struct {
	base
}

const nintendoName = "nintendo"

var nintendoColumns = columnAliases{
	"title":  {"Title"},
	"units":  {"Sales Units", "Units"},
	"amount": {"Final Payable Amount", "Payable Amount"},
}

func NewNintendo(cfg *config.Config, settings *config.Settings, lg *log.Logger) *Nintendo {
	cutoff, hasCutoff := settings.ExcludeBefore(nintendoName)
	return &Nintendo{
		base: newBase(nintendoName, cfg.DataRoot, ".csv", cutoff, hasCutoff, lg),
	}
}

func (p *Nintendo) Parse(ctx context.Context, month core.TaxMonth) (ParseResult, core.Table, error) {
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

	rows, err := readDelimited(f, ',', nintendoColumns)
	if err != nil {
		return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
	}

	type total struct {
		units  int64
		amount decimal.Decimal
	}
	totals := make(map[string]*total)
	order := make([]string, 0)
	for _, r := range rows {
		units, err := parseUnits(r["units"])
		if err != nil {
			return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
		}
		amount, err := parseAmount(r["amount"])
		if err != nil {
			return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
		}
		t, ok := totals[r["title"]]
		if !ok {
			t = &total{}
			totals[r["title"]] = t
			order = append(order, r["title"])
		}
		// signed vendor counts: refund rows subtract
		t.units += units
		t.amount = t.amount.Add(amount)
	}

	table := make(core.Table, 0, len(order))
	for _, title := range order {
		t := totals[title]
		table = append(table, core.Record{
			Title:    title,
			Units:    t.units,
			Revenue:  t.amount,
			Currency: "SEK",
			Month:    month,
			Platform: p.name,
		})
	}
	return ResultOK, table, nil
}
