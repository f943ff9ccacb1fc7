// Package report renders the unified record table into the per-month
// text statements the accountant files.
package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"taxman/internal/config"
	"taxman/internal/core"
	"taxman/internal/log"
)

// combinedGoogle is the single logical platform the two google
// sub-ledgers collapse into when both are selected.
const combinedGoogle = "google"

// Report is one rendered artifact for one (platform, month).
type Report struct {
	Platform string
	Month    core.TaxMonth
	Text     string
}

type Generator struct {
	settings  *config.Settings
	passTypes TypeSummarySource
	lg        *log.Logger
}

func NewGenerator(settings *config.Settings, lg *log.Logger) *Generator {
	return &Generator{
		settings: settings,
		lg:       lg.WithComponent(log.ComponentReport),
	}
}

// TypeSummarySource exposes the subscription ledger's per-transaction
// type totals (charges, fees, taxes, refunds). Satisfied by the
// play-pass adapter.
type TypeSummarySource interface {
	TypeSummary(month core.TaxMonth) *core.Accumulator
}

// AttachPassSummary wires in the transaction-type breakdown rendered
// inside the merged google statement.
func (g *Generator) AttachPassSummary(src TypeSummarySource) {
	g.passTypes = src
}

// PassOffset is how many months the subscription ledger lags the
// statement it lands in. Configurable; one month in arrears by default.
func (g *Generator) PassOffset() int {
	if offset := g.settings.MonthOffset("play-pass"); offset != 0 {
		return offset
	}
	return 1
}

// CombinePlatforms rewrites the platform selection for rendering:
// when both google sub-ledgers are present they merge into one
// combined statement.
func CombinePlatforms(names []string) []string {
	if !NeedsMerge(names) {
		return names
	}
	out := make([]string, 0, len(names)-1)
	for _, n := range names {
		if n == "play-pass" || n == "play-store" {
			continue
		}
		out = append(out, n)
	}
	return append(out, combinedGoogle)
}

// NeedsMerge reports whether the selection carries both google
// sub-ledgers and therefore renders as a single combined statement.
func NeedsMerge(names []string) bool {
	var pass, store bool
	for _, n := range names {
		pass = pass || n == "play-pass"
		store = store || n == "play-store"
	}
	return pass && store
}

// Generate renders one report per (platform, month). A run that
// produced no rows at all is fatal: an empty statement is never a
// valid accounting artifact.
func (g *Generator) Generate(table core.Table, months []core.TaxMonth, platforms []string) ([]Report, error) {
	if len(table) == 0 {
		return nil, core.ErrNoData
	}
	grouped := table.GroupByTitle()

	var out []Report
	for _, name := range CombinePlatforms(platforms) {
		for _, month := range months {
			var (
				text string
				ok   bool
			)
			if name == combinedGoogle {
				text, ok = g.renderGoogle(grouped, month)
			} else {
				text, ok = g.renderPlatform(grouped, name, month)
			}
			if !ok {
				g.lg.Info("no rows for report, skipping",
					log.FieldPlatform, name, log.FieldMonth, month.String())
				continue
			}
			out = append(out, Report{Platform: name, Month: month, Text: text})
		}
	}
	return out, nil
}

func (g *Generator) renderPlatform(table core.Table, platform string, month core.TaxMonth) (string, bool) {
	rows := table.Select(platform, month)
	if len(rows) == 0 {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "sales report for %s %s\n\n", platform, month)
	b.WriteString("PER TITLE (including charges, fees, taxes, and refunds):\n\n")
	writeSection(&b, rows)
	return b.String(), true
}

// renderGoogle merges the direct-sales month with the subscription
// ledger paid out for it. The subscription side lags by the configured
// offset; when it has no counterpart rows the direct side still goes
// out standalone.
func (g *Generator) renderGoogle(table core.Table, month core.TaxMonth) (string, bool) {
	offsetMonth := month.AddMonths(-g.PassOffset())
	storeRows := table.Select("play-store", month)
	passRows := table.Select("play-pass", offsetMonth)

	if len(storeRows) == 0 {
		if len(passRows) > 0 {
			g.lg.Warn("subscription rows have no direct-sales counterpart, skipping merge",
				log.FieldMonth, month.String(), "pass_month", offsetMonth.String())
		}
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "sales report for play pass %s and play store %s\n\n", offsetMonth, month)

	b.WriteString(hr("play store"))
	writeSection(&b, storeRows)
	b.WriteByte('\n')

	if len(passRows) > 0 {
		b.WriteString(hr("play pass"))
		writeSection(&b, passRows)
		g.writeTypeBreakdown(&b, offsetMonth)
		b.WriteByte('\n')
	} else {
		g.lg.Info("no subscription rows for merged statement",
			log.FieldMonth, month.String(), "pass_month", offsetMonth.String())
	}

	// the grand total is always recomputed from the raw rows, never
	// read back from the section totals
	combined := append(storeRows.Relabel(combinedGoogle),
		passRows.ShiftMonths(g.PassOffset()).Relabel(combinedGoogle)...)
	b.WriteString(hr("total"))
	b.WriteString(reportRow("", core.FormatUnits(combined.SumUnits()), core.FormatCurrency(combined.SumRevenue())))
	return b.String(), true
}

// writeTypeBreakdown renders the subscription ledger's per-transaction
// type totals when a source is attached. The count rides in the units
// column: transactions, not sales.
func (g *Generator) writeTypeBreakdown(b *strings.Builder, month core.TaxMonth) {
	if g.passTypes == nil {
		return
	}
	summary := g.passTypes.TypeSummary(month)
	if summary == nil {
		return
	}
	b.WriteString("\nBY TRANSACTION TYPE:\n\n")
	for _, kind := range summary.Keys() {
		c := summary.At(kind)
		b.WriteString(reportRow(kind, core.FormatUnits(c.Count), core.FormatCurrency(c.Sum)))
	}
}

// writeSection renders the per-title rows followed by a totals line
// that is exactly the sum of the rows above it.
func writeSection(b *strings.Builder, rows core.Table) {
	b.WriteString(reportRow("title", "units", "revenue"))
	units := int64(0)
	revenue := decimal.Zero
	for _, r := range rows {
		b.WriteString(reportRow(r.Title, core.FormatUnits(r.Units), core.FormatCurrency(r.Revenue)))
		units += r.Units
		revenue = revenue.Add(r.Revenue)
	}
	b.WriteByte('\n')
	b.WriteString(reportRow("", core.FormatUnits(units), core.FormatCurrency(revenue)))
}

func reportRow(title, units, revenue string) string {
	return fmt.Sprintf("%-28s%10s%20s\n", title, units, revenue)
}

func hr(title string) string {
	return fmt.Sprintf("- %s %s\n", strings.ToUpper(title), strings.Repeat("-", 55-len(title)))
}
