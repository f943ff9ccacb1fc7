package platform

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"taxman/internal/config"
	"taxman/internal/core"
	"taxman/internal/log"
	"taxman/internal/reconcile"
)

// Steam handles the revenue-share table, an HTML-rendered report in
// USD. The store pays a blended amount per reporting period, so the
// SEK value comes from matching the vendor's payment ledger against
// the bank statement and applying each payout event's implied rate.
type Steam struct {
	base
	toleranceDays int

	// ledger join is computed lazily exactly once per run; adapters
	// run on a worker pool, so the gate must be race-safe
	once     sync.Once
	ratesErr error
	rates    map[string]decimal.Decimal
}

const steamName = "steam"

var steamColumns = columnAliases{
	"title": {"Product (Id#)"},
	"units": {"Net Units Sold"},
	"usd":   {"Total"},
}

var steamPaymentColumns = columnAliases{
	"period": {"Reporting Period"},
	"sent":   {"Payment Date"},
	"usd":    {"Net Payment"},
}

var steamBankColumns = columnAliases{
	"date": {"date", "Date"},
	"sek":  {"sek", "SEK", "Amount (SEK)"},
}

var packageIDPattern = regexp.MustCompile(`\(\d+\)`)

func NewSteam(cfg *config.Config, settings *config.Settings, lg *log.Logger) *Steam {
	cutoff, hasCutoff := settings.ExcludeBefore(steamName)
	return &Steam{
		base:          newBase(steamName, cfg.DataRoot, ".htm", cutoff, hasCutoff, lg),
		toleranceDays: settings.BankToleranceDays(steamName),
	}
}

func (p *Steam) Parse(ctx context.Context, month core.TaxMonth) (ParseResult, core.Table, error) {
	if p.CheckExcluded(month) {
		return ResultExcluded, nil, nil
	}
	if p.CheckPresent(month) != ResultOK {
		return ResultMissing, nil, nil
	}

	rates, err := p.payoutRates()
	if err != nil {
		return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
	}
	rate, ok := rates[month.String()]
	if !ok {
		return ResultOK, nil, fmt.Errorf("%w: no payout event covers period %s", core.ErrReconciliation, month)
	}

	path := p.monthPath(month, 0)
	f, err := os.Open(path)
	if err != nil {
		return ResultMissing, nil, fmt.Errorf("open %s: %w", path, err)
	}
	table, err := parseHTMLTable(f)
	f.Close()
	if err != nil {
		return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
	}

	cols, err := resolveColumns(table.columns(), steamColumns)
	if err != nil {
		return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
	}

	var out core.Table
	for _, r := range table.dataRows(cols) {
		units, err := parseUnits(r[cols["units"]])
		if err != nil {
			return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
		}
		usd, err := parseAmount(r[cols["usd"]])
		if err != nil {
			return ResultOK, nil, fmt.Errorf("%s %s: %w", p.name, month, err)
		}
		out = append(out, core.Record{
			Title:    cleanProductName(r[cols["title"]]),
			Units:    units, // the vendor's signed net count, refunds already subtracted
			Revenue:  usd.Mul(rate).Round(2),
			Currency: "SEK",
			Month:    month,
			Platform: p.name,
		})
	}
	return ResultOK, out, nil
}

// payoutRates joins the payment ledger against the bank statement and
// caches the per-period rates for the rest of the run.
func (p *Steam) payoutRates() (map[string]decimal.Decimal, error) {
	p.once.Do(func() {
		p.rates, p.ratesErr = p.loadPayoutRates()
	})
	return p.rates, p.ratesErr
}

func (p *Steam) loadPayoutRates() (map[string]decimal.Decimal, error) {
	payments, err := p.loadPayments()
	if err != nil {
		return nil, err
	}
	bank, err := p.loadBankStatement()
	if err != nil {
		return nil, err
	}
	events := reconcile.GroupPayments(payments)
	matched, err := reconcile.MatchBank(events, bank, p.toleranceDays, p.lg)
	if err != nil {
		return nil, err
	}
	return reconcile.RatesByPeriod(matched), nil
}

func (p *Steam) loadPayments() ([]reconcile.Payment, error) {
	path := p.filePath("payments.tsv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("payment ledger: %w", err)
	}
	defer f.Close()

	rows, err := readDelimited(f, '\t', steamPaymentColumns)
	if err != nil {
		return nil, fmt.Errorf("payment ledger: %w", err)
	}
	payments := make([]reconcile.Payment, 0, len(rows))
	for _, r := range rows {
		period, err := paymentPeriod(r["period"])
		if err != nil {
			return nil, fmt.Errorf("payment ledger: %w", err)
		}
		sent, err := parseDate(r["sent"])
		if err != nil {
			return nil, fmt.Errorf("payment ledger: %w", err)
		}
		amount, err := parseAmount(r["usd"])
		if err != nil {
			return nil, fmt.Errorf("payment ledger: %w", err)
		}
		payments = append(payments, reconcile.Payment{Period: period, SentDate: sent, Amount: amount})
	}
	return payments, nil
}

func (p *Steam) loadBankStatement() ([]reconcile.BankEntry, error) {
	path := p.filePath("bank_statement.tsv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bank statement: %w", err)
	}
	defer f.Close()

	rows, err := readDelimited(f, '\t', steamBankColumns)
	if err != nil {
		return nil, fmt.Errorf("bank statement: %w", err)
	}
	entries := make([]reconcile.BankEntry, 0, len(rows))
	for _, r := range rows {
		date, err := parseDate(r["date"])
		if err != nil {
			return nil, fmt.Errorf("bank statement: %w", err)
		}
		amount, err := parseAmount(r["sek"])
		if err != nil {
			return nil, fmt.Errorf("bank statement: %w", err)
		}
		entries = append(entries, reconcile.BankEntry{ReceivedDate: date, Amount: amount})
	}
	return entries, nil
}

// paymentPeriod normalizes the ledger's "January 2024" period labels
// to the YYYY-MM form the reports key on.
func paymentPeriod(s string) (string, error) {
	t, err := time.Parse("January 2006", s)
	if err != nil {
		return "", fmt.Errorf("%w: reporting period %q", core.ErrFileFormat, s)
	}
	return core.TaxMonth{Year: t.Year(), Month: int(t.Month())}.String(), nil
}

// parseDate accepts the two date spellings seen in the ledgers.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q", core.ErrFileFormat, s)
}

// cleanProductName drops the "(id#)" suffix and normalizes case.
func cleanProductName(s string) string {
	return strings.ToLower(strings.TrimSpace(packageIDPattern.ReplaceAllString(s, "")))
}
