package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

type (
	// Record is the common schema every platform adapter produces.
	// Revenue is an exact decimal; binary floats would drift by cents
	// over thousands of rows.
	Record struct {
		Title    string
		Units    int64
		Revenue  decimal.Decimal
		Currency string
		Month    TaxMonth
		Platform string
	}

	// Table is the unified record table handed to aggregation and
	// report generation.
	Table []Record

	// TransactionCollection accumulates a (sum, count) pair per
	// classification key. Paid is only meaningful in reconciliation
	// contexts. The zero value is ready to accumulate into.
	TransactionCollection struct {
		Sum   decimal.Decimal
		Count int64
		Paid  decimal.Decimal
	}

	// Accumulator groups TransactionCollections by an arbitrary string
	// key, creating the collection on first write.
	Accumulator struct {
		byKey map[string]*TransactionCollection
	}
)

func NewAccumulator() *Accumulator {
	return &Accumulator{byKey: make(map[string]*TransactionCollection)}
}

// At returns the collection for key, creating a zeroed one on first use.
func (a *Accumulator) At(key string) *TransactionCollection {
	c, ok := a.byKey[key]
	if !ok {
		c = &TransactionCollection{}
		a.byKey[key] = c
	}
	return c
}

// Add accumulates one transaction amount under key.
func (a *Accumulator) Add(key string, amount decimal.Decimal) {
	c := a.At(key)
	c.Sum = c.Sum.Add(amount)
	c.Count++
}

// Keys returns all keys in sorted order for deterministic output.
func (a *Accumulator) Keys() []string {
	keys := make([]string, 0, len(a.byKey))
	for k := range a.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Total sums every collection in the accumulator.
func (a *Accumulator) Total() decimal.Decimal {
	total := decimal.Zero
	for _, c := range a.byKey {
		total = total.Add(c.Sum)
	}
	return total
}

// Select returns the rows matching platform and month, in input order.
func (t Table) Select(platform string, month TaxMonth) Table {
	var out Table
	for _, r := range t {
		if r.Platform == platform && r.Month.Equal(month) {
			out = append(out, r)
		}
	}
	return out
}

// GroupByTitle collapses the table to one row per (platform, month,
// title), summing units and revenue. Rows come back sorted by month,
// then platform, then title.
func (t Table) GroupByTitle() Table {
	type key struct {
		platform string
		month    TaxMonth
		title    string
	}
	grouped := make(map[key]*Record)
	order := make([]key, 0)
	for _, r := range t {
		k := key{r.Platform, r.Month, r.Title}
		g, ok := grouped[k]
		if !ok {
			g = &Record{Title: r.Title, Month: r.Month, Platform: r.Platform, Currency: r.Currency}
			grouped[k] = g
			order = append(order, k)
		}
		g.Units += r.Units
		g.Revenue = g.Revenue.Add(r.Revenue)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if !a.month.Equal(b.month) {
			return a.month.Before(b.month)
		}
		if a.platform != b.platform {
			return a.platform < b.platform
		}
		return a.title < b.title
	})
	out := make(Table, 0, len(order))
	for _, k := range order {
		out = append(out, *grouped[k])
	}
	return out
}

// SumUnits totals the unit column.
func (t Table) SumUnits() int64 {
	var units int64
	for _, r := range t {
		units += r.Units
	}
	return units
}

// SumRevenue totals the revenue column.
func (t Table) SumRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, r := range t {
		total = total.Add(r.Revenue)
	}
	return total
}

// Relabel rewrites the platform tag on every row.
func (t Table) Relabel(platform string) Table {
	out := make(Table, len(t))
	for i, r := range t {
		r.Platform = platform
		out[i] = r
	}
	return out
}

// ShiftMonths offsets every row's month by n. Used for sub-ledgers
// paid in arrears, keyed by the month the money lands.
func (t Table) ShiftMonths(n int) Table {
	out := make(Table, len(t))
	for i, r := range t {
		r.Month = r.Month.AddMonths(n)
		out[i] = r
	}
	return out
}
