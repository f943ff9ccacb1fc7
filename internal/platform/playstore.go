package platform

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"taxman/internal/config"
	"taxman/internal/core"
	"taxman/internal/log"
)

// PlayStore handles the direct-sales export. A single purchase spans
// several rows (the charge, its tax, the store fee) sharing one
// transaction id; each id collapses to one sold unit.
type PlayStore struct {
	base
}

const playStoreName = "play-store"

// playStoreColumns tolerates the two header generations of the export.
var playStoreColumns = columnAliases{
	"id":     {"Description", "Transaction ID"},
	"date":   {"Transaction Date", "Order Charged Date"},
	"title":  {"Product Title", "Product Id"},
	"amount": {"Amount (Merchant Currency)", "Charged Amount (Merchant Currency)"},
}

func NewPlayStore(cfg *config.Config, settings *config.Settings, lg *log.Logger) *PlayStore {
	cutoff, hasCutoff := settings.ExcludeBefore(playStoreName)
	return &PlayStore{
		base: newBase(playStoreName, cfg.DataRoot, ".csv", cutoff, hasCutoff, lg),
	}
}

func (p *PlayStore) Parse(ctx context.Context, month core.TaxMonth) (ParseResult, core.Table, error) {
	if p.CheckExcluded(month) {
		return ResultExcluded, nil, nil
	}
	if p.CheckPresent(month) != ResultOK {
		return ResultMissing, nil, nil
	}

	// the vendor sometimes splits a month across several files;
	// every present file contributes
	var rows []row
	for index := 0; ; index++ {
		path := p.monthPath(month, index)
		if index > 0 && !exists(path) {
			break
		}
		if index > 0 {
			p.lg.Info("split export, reading extra file", log.FieldMonth, month.String(), log.FieldPath, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return ResultMissing, nil, fmt.Errorf("open %s: %w", path, err)
		}
		fileRows, err := readDelimited(f, ',', playStoreColumns)
		f.Close()
		if err != nil {
			return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
		}
		rows = append(rows, fileRows...)
	}

	type group struct {
		title  string
		date   string
		amount decimal.Decimal
	}
	groups := make(map[string]*group)
	order := make([]string, 0)
	for _, r := range rows {
		amount, err := parseAmount(r["amount"])
		if err != nil {
			return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
		}
		g, ok := groups[r["id"]]
		if !ok {
			// title and date come from the first row of the group
			g = &group{title: r["title"], date: r["date"]}
			groups[r["id"]] = g
			order = append(order, r["id"])
		}
		g.amount = g.amount.Add(amount)
	}

	table := make(core.Table, 0, len(order))
	for _, id := range order {
		g := groups[id]
		rowMonth, err := playStoreMonth(g.date)
		if err != nil {
			return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
		}
		table = append(table, core.Record{
			Title:    g.title,
			Units:    1, // one grouped transaction is one sale, refunds included
			Revenue:  g.amount,
			Currency: "SEK",
			Month:    rowMonth,
			Platform: p.name,
		})
	}
	return ResultOK, table, nil
}

// playStoreMonth parses the export's "Jan 2, 2006" dates down to the
// month they belong to.
func playStoreMonth(s string) (core.TaxMonth, error) {
	t, err := time.Parse("Jan 2, 2006", s)
	if err != nil {
		return core.TaxMonth{}, fmt.Errorf("%w: transaction date %q", core.ErrFileFormat, s)
	}
	return core.TaxMonth{Year: t.Year(), Month: int(t.Month())}, nil
}
