package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxman/internal/core"
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestGroupPaymentsBatchesBySendDate(t *testing.T) {
	payments := []Payment{
		{Period: "2024-01", SentDate: day(5), Amount: dec("100")},
		{Period: "2024-02", SentDate: day(5), Amount: dec("50")},
		{Period: "2024-03", SentDate: day(28), Amount: dec("200")},
	}
	events := GroupPayments(payments)
	require.Len(t, events, 2)
	assert.Equal(t, []string{"2024-01", "2024-02"}, events[0].Periods)
	assert.True(t, events[0].Foreign.Equal(dec("150")))
	assert.Equal(t, []string{"2024-03"}, events[1].Periods)
}

func TestMatchBankNearestByAbsoluteDistance(t *testing.T) {
	events := []PayoutEvent{{Periods: []string{"2024-02"}, SentDate: day(4), Foreign: dec("100")}}
	bank := []BankEntry{
		{ReceivedDate: day(1), Amount: dec("1000")},
		{ReceivedDate: day(5), Amount: dec("900")},
		{ReceivedDate: day(20), Amount: dec("800")},
	}
	matched, err := MatchBank(events, bank, 10, testLogger())
	require.NoError(t, err)
	// day 5 is nearest to day 4, not day 1 or day 20
	assert.Equal(t, day(5), matched[0].ReceivedDate)
	assert.True(t, matched[0].Home.Equal(dec("900")))
	assert.True(t, matched[0].Rate().Equal(dec("9")))
}

func TestMatchBankEquidistantPrefersLaterDate(t *testing.T) {
	events := []PayoutEvent{{Periods: []string{"2024-02"}, SentDate: day(4), Foreign: dec("100")}}
	bank := []BankEntry{
		{ReceivedDate: day(3), Amount: dec("1000")},
		{ReceivedDate: day(5), Amount: dec("900")},
	}
	// day 3 and day 5 are both one day from day 4; only day 5 can be
	// the arrival of money sent on day 4
	matched, err := MatchBank(events, bank, 10, testLogger())
	require.NoError(t, err)
	assert.Equal(t, day(5), matched[0].ReceivedDate)
	assert.True(t, matched[0].Rate().Equal(dec("9")))
}

func TestMatchBankReceivedBeforeSentFatal(t *testing.T) {
	events := []PayoutEvent{{Periods: []string{"2024-02"}, SentDate: day(10), Foreign: dec("100")}}
	bank := []BankEntry{{ReceivedDate: day(7), Amount: dec("900")}}
	_, err := MatchBank(events, bank, 10, testLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrReconciliation))
}

func TestMatchBankToleranceExceededFatal(t *testing.T) {
	events := []PayoutEvent{{Periods: []string{"2024-02"}, SentDate: day(1), Foreign: dec("100")}}
	bank := []BankEntry{{ReceivedDate: day(12), Amount: dec("900")}}

	// gap of 11 days against tolerance 10 is fatal
	_, err := MatchBank(events, bank, 10, testLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrReconciliation))

	// the same gap passes with tolerance 11
	matched, err := MatchBank(events, bank, 11, testLogger())
	require.NoError(t, err)
	assert.Equal(t, day(12), matched[0].ReceivedDate)
}

func TestMatchBankEmptyStatement(t *testing.T) {
	events := []PayoutEvent{{Periods: []string{"2024-02"}, SentDate: day(1), Foreign: dec("100")}}
	_, err := MatchBank(events, nil, 10, testLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrReconciliation))
}

func TestRatesByPeriodSharedEvent(t *testing.T) {
	events := []PayoutEvent{{
		Periods: []string{"2024-01", "2024-02"},
		Foreign: dec("200"),
		Home:    dec("2000"),
	}}
	rates := RatesByPeriod(events)
	// batched periods resolve to the shared transfer's rate
	assert.True(t, rates["2024-01"].Equal(dec("10")))
	assert.True(t, rates["2024-02"].Equal(dec("10")))
	_, ok := rates["2024-03"]
	assert.False(t, ok)
}

func TestPayoutEventZeroForeignRate(t *testing.T) {
	e := PayoutEvent{Foreign: dec("0"), Home: dec("100")}
	assert.True(t, e.Rate().IsZero())
}
