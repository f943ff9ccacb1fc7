package platform

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"taxman/internal/config"
	"taxman/internal/core"
	"taxman/internal/log"
	"taxman/internal/reconcile"
)

// AppStore handles the multi-currency store. Every month needs two
// independent exports: a payout file (earnings and SEK proceeds per
// territory) and a sales file (units and gross revenue per product per
// currency). The payout file yields the implied exchange rates that
// turn per-currency sales into SEK.
type AppStore struct {
	base
	remap map[string]string
}

const appStoreName = "appstore"

var appStorePayoutColumns = columnAliases{
	"territory": {"Country or Region (Currency)", "Territory (Currency)"},
	"earned":    {"Earned", "Amount"},
	"proceeds":  {"Proceeds", "Proceeds (SEK)"},
}

var appStoreSalesColumns = columnAliases{
	"title":    {"Vendor Identifier", "SKU"},
	"units":    {"Quantity", "Units"},
	"earned":   {"Extended Partner Share", "Partner Share"},
	"currency": {"Partner Share Currency", "Currency of Proceeds"},
}

func NewAppStore(cfg *config.Config, settings *config.Settings, lg *log.Logger) *AppStore {
	cutoff, hasCutoff := settings.ExcludeBefore(appStoreName)
	return &AppStore{
		base:  newBase(appStoreName, cfg.DataRoot, ".csv", cutoff, hasCutoff, lg),
		remap: settings.TitleMap(appStoreName),
	}
}

func (p *AppStore) payoutPath(month core.TaxMonth) string {
	return p.filePath(month.String() + "-payout.csv")
}

func (p *AppStore) salesPath(month core.TaxMonth) string {
	return p.filePath(month.String() + "-sales.tsv")
}

// CheckPresent requires the payout/sales pair all-or-nothing: a lone
// half is a missing month, not a partial one.
func (p *AppStore) CheckPresent(month core.TaxMonth) ParseResult {
	if !exists(p.payoutPath(month)) || !exists(p.salesPath(month)) {
		return ResultMissing
	}
	return ResultOK
}

func (p *AppStore) CheckExcluded(month core.TaxMonth) bool {
	if p.hasCutoff && month.Before(p.cutoff) {
		return true
	}
	return hasExcludedMarker(p.payoutPath(month))
}

func (p *AppStore) Parse(ctx context.Context, month core.TaxMonth) (ParseResult, core.Table, error) {
	if p.CheckExcluded(month) {
		return ResultExcluded, nil, nil
	}
	if p.CheckPresent(month) != ResultOK {
		return ResultMissing, nil, nil
	}

	rates, err := p.loadRates(month)
	if err != nil {
		return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
	}
	sales, err := p.loadSales(month)
	if err != nil {
		return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
	}

	products := reconcile.ApportionByCurrency(sales, rates, p.lg)

	table := make(core.Table, 0, len(products))
	for _, pr := range products {
		table = append(table, core.Record{
			Title:    pr.Title,
			Units:    pr.Units,
			Revenue:  pr.Revenue,
			Currency: "SEK",
			Month:    month,
			Platform: p.name,
		})
	}
	p.lg.Info("reconciled payout",
		log.FieldMonth, month.String(),
		"stated_payout", rates.TotalPaid().StringFixed(2),
		"apportioned", table.SumRevenue().StringFixed(2))
	return ResultOK, table, nil
}

// loadRates builds the per-currency rate table from the payout file.
// The same currency appears on several territory rows; they sum.
func (p *AppStore) loadRates(month core.TaxMonth) (*reconcile.RateTable, error) {
	content, err := preprocessPayout(p.payoutPath(month))
	if err != nil {
		return nil, err
	}
	rows, err := readDelimited(strings.NewReader(content), ',', appStorePayoutColumns)
	if err != nil {
		return nil, err
	}
	rates := reconcile.NewRateTable()
	for _, r := range rows {
		currency, err := currencyFromTerritory(r["territory"])
		if err != nil {
			return nil, err
		}
		earned, err := parseAmount(r["earned"])
		if err != nil {
			return nil, err
		}
		proceeds, err := parseAmount(r["proceeds"])
		if err != nil {
			return nil, err
		}
		rates.Add(currency, earned, proceeds)
	}
	return rates, nil
}

func (p *AppStore) loadSales(month core.TaxMonth) ([]reconcile.Sale, error) {
	content, err := preprocessSales(p.salesPath(month))
	if err != nil {
		return nil, err
	}
	rows, err := readDelimited(strings.NewReader(content), '\t', appStoreSalesColumns)
	if err != nil {
		return nil, err
	}
	sales := make([]reconcile.Sale, 0, len(rows))
	for _, r := range rows {
		units, err := parseUnits(r["units"])
		if err != nil {
			return nil, err
		}
		earned, err := parseAmount(r["earned"])
		if err != nil {
			return nil, err
		}
		title := r["title"]
		if canonical, ok := p.remap[title]; ok {
			title = canonical
		}
		sales = append(sales, reconcile.Sale{
			Title:    title,
			Currency: r["currency"],
			Units:    units,
			Earned:   earned,
		})
	}
	return sales, nil
}

// preprocessPayout strips the two banner lines at the top of the
// payout export and everything from the blank filler line onwards.
func preprocessPayout(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	scanner := bufio.NewScanner(f)
	line := -1
	for scanner.Scan() {
		line++
		if line < 2 {
			continue
		}
		if strings.Contains(scanner.Text(), ",,,,,,,,,,,,") {
			break
		}
		b.WriteString(scanner.Text())
		b.WriteByte('\n')
	}
	return b.String(), scanner.Err()
}

// preprocessSales cuts the sales export at its Total_Rows trailer.
func preprocessSales(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "Total_Rows") {
			break
		}
		b.WriteString(scanner.Text())
		b.WriteByte('\n')
	}
	return b.String(), scanner.Err()
}
