// Package reconcile attributes blended storefront payouts back to
// individual products. Two patterns cover the vendors we deal with:
// per-currency share apportionment (exchange.go) and blended-payment
// bank matching (bank.go).
package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"taxman/internal/log"
)

// ExchangeSnapshot accumulates what a currency earned locally and what
// was actually paid out in SEK for it. The implied rate is paid/earned.
type ExchangeSnapshot struct {
	Earned decimal.Decimal
	Paid   decimal.Decimal
}

// RateTable holds one ExchangeSnapshot per currency. Vendors list the
// same currency on several payout rows (regions share a currency), so
// rows sum into the snapshot rather than overwrite it.
type RateTable struct {
	snapshots map[string]*ExchangeSnapshot
}

func NewRateTable() *RateTable {
	return &RateTable{snapshots: make(map[string]*ExchangeSnapshot)}
}

// Add accumulates a payout row into the currency's snapshot.
func (t *RateTable) Add(currency string, earned, paid decimal.Decimal) {
	s, ok := t.snapshots[currency]
	if !ok {
		s = &ExchangeSnapshot{}
		t.snapshots[currency] = s
	}
	s.Earned = s.Earned.Add(earned)
	s.Paid = s.Paid.Add(paid)
}

// Rate returns the implied SEK-per-local rate for a currency. A
// currency that earned nothing, or that never appears in the payout
// table (all its sales were refunded), resolves to an explicit zero
// rate rather than a division by zero.
func (t *RateTable) Rate(currency string) decimal.Decimal {
	s, ok := t.snapshots[currency]
	if !ok || s.Earned.IsZero() {
		return decimal.Zero
	}
	return s.Paid.Div(s.Earned)
}

// Has reports whether the payout table listed the currency at all.
func (t *RateTable) Has(currency string) bool {
	_, ok := t.snapshots[currency]
	return ok
}

// TotalPaid is the stated payout summed across currencies. Surfaced
// so the apportioned per-product total can be audited against it.
func (t *RateTable) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, s := range t.snapshots {
		total = total.Add(s.Paid)
	}
	return total
}

// Sale is one (product, currency) bucket from a vendor's sales file.
type Sale struct {
	Title    string
	Currency string
	Units    int64
	Earned   decimal.Decimal
}

// ProductRevenue is a product's apportioned SEK total for a month.
// Approximate is set when any part of the amount came from the
// zero-rate-currency estimate below.
type ProductRevenue struct {
	Title       string
	Units       int64
	Revenue     decimal.Decimal
	Approximate bool
}

// ApportionByCurrency converts per-(product, currency) sales into SEK
// using the implied rates, then collapses to one row per product.
//
// Currencies whose rate resolves to zero still carry sold units. When
// the product earned SEK in other currencies, those units are valued
// at the product's average per-unit SEK price elsewhere. This is a
// best-effort estimate, not an exact figure; it is logged as such and
// flagged on the result. Units are never silently dropped.
func ApportionByCurrency(sales []Sale, rates *RateTable, lg *log.Logger) []ProductRevenue {
	type bucket struct {
		units  int64
		earned decimal.Decimal
	}
	type product struct {
		ratedUnits   int64
		ratedRevenue decimal.Decimal
		zeroUnits    int64
		zero         map[string]bucket
	}

	grouped := groupSales(sales)
	products := make(map[string]*product)
	titles := make([]string, 0)

	for _, s := range grouped {
		p, ok := products[s.Title]
		if !ok {
			p = &product{zero: make(map[string]bucket)}
			products[s.Title] = p
			titles = append(titles, s.Title)
		}
		rate := rates.Rate(s.Currency)
		if rate.IsZero() {
			p.zeroUnits += s.Units
			b := p.zero[s.Currency]
			b.units += s.Units
			b.earned = b.earned.Add(s.Earned)
			p.zero[s.Currency] = b
			continue
		}
		p.ratedUnits += s.Units
		p.ratedRevenue = p.ratedRevenue.Add(s.Earned.Mul(rate).Round(2))
	}
	sort.Strings(titles)

	out := make([]ProductRevenue, 0, len(titles))
	for _, title := range titles {
		p := products[title]
		rev := ProductRevenue{
			Title:   title,
			Units:   p.ratedUnits + p.zeroUnits,
			Revenue: p.ratedRevenue,
		}
		if p.zeroUnits > 0 && p.ratedUnits > 0 && p.ratedRevenue.IsPositive() {
			perUnit := p.ratedRevenue.Div(decimal.NewFromInt(p.ratedUnits))
			estimate := perUnit.Mul(decimal.NewFromInt(p.zeroUnits)).Round(2)
			rev.Revenue = rev.Revenue.Add(estimate)
			rev.Approximate = true
			for _, currency := range sortedKeys(p.zero) {
				lg.Warn("estimated revenue for zero-payout currency",
					log.FieldTitle, title,
					log.FieldCurrency, currency,
					"units", p.zero[currency].units,
					"estimate", estimate.String())
			}
		} else {
			for _, currency := range sortedKeys(p.zero) {
				b := p.zero[currency]
				if b.earned.IsZero() && b.units == 0 {
					continue
				}
				lg.Warn("no exchange data for currency, amount left unconverted",
					log.FieldTitle, title,
					log.FieldCurrency, currency,
					"units", b.units,
					log.FieldAmount, b.earned.String())
			}
		}
		out = append(out, rev)
	}
	return out
}

// groupSales sums units and earnings per (title, currency) before any
// rate is applied. Refunded-out currencies zero out here, which is how
// we know a currency missing from the payout table is harmless.
func groupSales(sales []Sale) []Sale {
	type key struct{ title, currency string }
	grouped := make(map[key]*Sale)
	order := make([]key, 0)
	for _, s := range sales {
		k := key{s.Title, s.Currency}
		g, ok := grouped[k]
		if !ok {
			g = &Sale{Title: s.Title, Currency: s.Currency}
			grouped[k] = g
			order = append(order, k)
		}
		g.Units += s.Units
		g.Earned = g.Earned.Add(s.Earned)
	}
	out := make([]Sale, 0, len(order))
	for _, k := range order {
		out = append(out, *grouped[k])
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
