package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxman/internal/core"
)

func TestNintendoSumsPerTitle(t *testing.T) {
	cfg := testConfig(t)
	writeExport(t, cfg.DataRoot, "nintendo", "2024-02.csv",
		"Title,Sales Units,Final Payable Amount\nholedown,5,100.00\nholedown,-1,-20.00\ntwofold,3,60.00\n")
	p := NewNintendo(cfg, emptySettings(), testLogger())

	result, table, err := p.Parse(context.Background(), core.TaxMonth{Year: 2024, Month: 2})
	require.NoError(t, err)
	assert.Equal(t, ResultOK, result)
	require.Len(t, table, 2)

	// refund rows subtract from both columns
	assert.Equal(t, "holedown", table[0].Title)
	assert.Equal(t, int64(4), table[0].Units)
	assert.True(t, table[0].Revenue.Equal(dec(t, "80.00")), "revenue = %s", table[0].Revenue)

	assert.Equal(t, "twofold", table[1].Title)
	assert.Equal(t, int64(3), table[1].Units)
}

func TestNintendoMissing(t *testing.T) {
	cfg := testConfig(t)
	p := NewNintendo(cfg, emptySettings(), testLogger())
	result, _, err := p.Parse(context.Background(), core.TaxMonth{Year: 2024, Month: 2})
	require.NoError(t, err)
	assert.Equal(t, ResultMissing, result)
}

func TestResolveKnownAndUnknown(t *testing.T) {
	cfg := testConfig(t)
	platforms, err := Resolve(nil, cfg, emptySettings(), testLogger())
	require.NoError(t, err)
	assert.Len(t, platforms, 5)

	platforms, err = Resolve([]string{"steam", "nintendo"}, cfg, emptySettings(), testLogger())
	require.NoError(t, err)
	require.Len(t, platforms, 2)
	assert.Equal(t, "steam", platforms[0].Name())

	_, err = Resolve([]string{"itch"}, cfg, emptySettings(), testLogger())
	assert.Error(t, err)
}

func TestParseResultString(t *testing.T) {
	assert.Equal(t, "ok", ResultOK.String())
	assert.Equal(t, "excluded", ResultExcluded.String())
	assert.Equal(t, "missing", ResultMissing.String())
}
