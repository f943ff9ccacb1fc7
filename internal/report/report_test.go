package report

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxman/internal/config"
	"taxman/internal/core"
	"taxman/internal/log"
)

func testGenerator() *Generator {
	return NewGenerator(&config.Settings{}, log.New(log.Config{}))
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestGenerateTotalsMatchRows(t *testing.T) {
	m := core.TaxMonth{Year: 2024, Month: 1}
	table := core.Table{
		{Title: "a", Units: 3, Revenue: dec("10.00"), Month: m, Platform: "nintendo"},
		{Title: "b", Units: 2, Revenue: dec("5.00"), Month: m, Platform: "nintendo"},
	}
	reports, err := testGenerator().Generate(table, []core.TaxMonth{m}, []string{"nintendo"})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	text := reports[0].Text
	assert.Contains(t, text, "sales report for nintendo 2024-01")
	assert.Contains(t, text, "a")
	assert.Contains(t, text, "b")
	// totals line is the exact sum of the displayed rows
	total := reportRow("", core.FormatUnits(5), core.FormatCurrency(dec("15.00")))
	assert.Contains(t, text, total)
}

func TestGenerateEmptyTableFatal(t *testing.T) {
	m := core.TaxMonth{Year: 2024, Month: 1}
	_, err := testGenerator().Generate(core.Table{}, []core.TaxMonth{m}, []string{"nintendo"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoData))
}

func TestGenerateSkipsMonthsWithoutRows(t *testing.T) {
	m1 := core.TaxMonth{Year: 2024, Month: 1}
	m2 := core.TaxMonth{Year: 2024, Month: 2}
	table := core.Table{
		{Title: "a", Units: 1, Revenue: dec("1.00"), Month: m1, Platform: "steam"},
	}
	reports, err := testGenerator().Generate(table, []core.TaxMonth{m1, m2}, []string{"steam"})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Month.Equal(m1))
}

func TestCombinePlatforms(t *testing.T) {
	combined := CombinePlatforms([]string{"steam", "play-pass", "play-store"})
	assert.Equal(t, []string{"steam", "google"}, combined)

	// one sub-ledger alone stays standalone
	assert.Equal(t, []string{"play-pass"}, CombinePlatforms([]string{"play-pass"}))
	assert.Equal(t, []string{"steam"}, CombinePlatforms([]string{"steam"}))
}

type fakeSummarySource struct {
	byMonth map[core.TaxMonth]*core.Accumulator
}

func (f *fakeSummarySource) TypeSummary(month core.TaxMonth) *core.Accumulator {
	return f.byMonth[month]
}

func TestGoogleMergeRendersTypeBreakdown(t *testing.T) {
	paid := core.TaxMonth{Year: 2024, Month: 2}
	earned := core.TaxMonth{Year: 2024, Month: 1}
	table := core.Table{
		{Title: "holedown", Units: 2, Revenue: dec("20.00"), Month: paid, Platform: "play-store"},
		{Title: "holedown", Units: 0, Revenue: dec("7.00"), Month: earned, Platform: "play-pass"},
	}

	summary := core.NewAccumulator()
	summary.Add("Charge", dec("10.00"))
	summary.Add("Google fee", dec("-3.00"))

	gen := testGenerator()
	gen.AttachPassSummary(&fakeSummarySource{byMonth: map[core.TaxMonth]*core.Accumulator{earned: summary}})

	reports, err := gen.Generate(table, []core.TaxMonth{paid}, []string{"play-pass", "play-store"})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	text := reports[0].Text
	assert.Contains(t, text, "BY TRANSACTION TYPE:")
	assert.Contains(t, text, reportRow("Charge", core.FormatUnits(1), core.FormatCurrency(dec("10.00"))))
	assert.Contains(t, text, reportRow("Google fee", core.FormatUnits(1), core.FormatCurrency(dec("-3.00"))))

	// no source attached, no breakdown section
	reports, err = testGenerator().Generate(table, []core.TaxMonth{paid}, []string{"play-pass", "play-store"})
	require.NoError(t, err)
	assert.NotContains(t, reports[0].Text, "BY TRANSACTION TYPE:")
}

func TestGoogleMergeOffsetsPassMonth(t *testing.T) {
	paid := core.TaxMonth{Year: 2024, Month: 2}
	earned := core.TaxMonth{Year: 2024, Month: 1}
	table := core.Table{
		{Title: "holedown", Units: 2, Revenue: dec("20.00"), Month: paid, Platform: "play-store"},
		{Title: "holedown", Units: 0, Revenue: dec("7.00"), Month: earned, Platform: "play-pass"},
	}
	reports, err := testGenerator().Generate(table, []core.TaxMonth{paid}, []string{"play-pass", "play-store"})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, "google", r.Platform)
	assert.True(t, r.Month.Equal(paid))
	assert.Contains(t, r.Text, "play pass 2024-01 and play store 2024-02")
	assert.Contains(t, r.Text, "- PLAY STORE ")
	assert.Contains(t, r.Text, "- PLAY PASS ")
	// grand total recomputed from the raw rows of both sections
	grand := reportRow("", core.FormatUnits(2), core.FormatCurrency(dec("27.00")))
	assert.True(t, strings.HasSuffix(r.Text, grand), "text ends with %q", r.Text)
}

func TestGoogleMergeWithoutPassCounterpart(t *testing.T) {
	paid := core.TaxMonth{Year: 2024, Month: 2}
	table := core.Table{
		{Title: "holedown", Units: 2, Revenue: dec("20.00"), Month: paid, Platform: "play-store"},
	}
	reports, err := testGenerator().Generate(table, []core.TaxMonth{paid}, []string{"play-pass", "play-store"})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	// the direct-sales side still goes out standalone
	assert.NotContains(t, reports[0].Text, "- PLAY PASS ")
	grand := reportRow("", core.FormatUnits(2), core.FormatCurrency(dec("20.00")))
	assert.True(t, strings.HasSuffix(reports[0].Text, grand))
}

func TestGoogleMergeWithoutStoreSideSkips(t *testing.T) {
	earned := core.TaxMonth{Year: 2024, Month: 1}
	paid := core.TaxMonth{Year: 2024, Month: 2}
	table := core.Table{
		{Title: "holedown", Units: 0, Revenue: dec("7.00"), Month: earned, Platform: "play-pass"},
	}
	reports, err := testGenerator().Generate(table, []core.TaxMonth{paid}, []string{"play-pass", "play-store"})
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestPassOffsetConfigurable(t *testing.T) {
	settings := &config.Settings{
		Platforms: map[string]config.PlatformSettings{
			"play-pass": {MonthOffset: 2},
		},
	}
	g := NewGenerator(settings, log.New(log.Config{}))
	assert.Equal(t, 2, g.PassOffset())
	assert.Equal(t, 1, testGenerator().PassOffset())
}
