package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"taxman/internal/core"
	"taxman/internal/log"
)

type (
	// Payment is one row of a vendor's payment ledger: a reporting
	// period, the date the vendor says it sent the money, and the
	// foreign-currency amount.
	Payment struct {
		Period   string
		SentDate time.Time
		Amount   decimal.Decimal
	}

	// BankEntry is one row of the bank statement: the date the money
	// landed and the SEK amount actually deposited.
	BankEntry struct {
		ReceivedDate time.Time
		Amount       decimal.Decimal
	}

	// PayoutEvent is one actual transfer. The vendor batches small
	// payouts, so an event can cover several reporting periods.
	PayoutEvent struct {
		Periods      []string
		SentDate     time.Time
		Foreign      decimal.Decimal
		Home         decimal.Decimal
		ReceivedDate time.Time
	}
)

// GroupPayments collapses payment rows sharing a send date into one
// payout event, summing amounts and keeping every contributing period
// label. Events come back ordered by send date.
func GroupPayments(payments []Payment) []PayoutEvent {
	byDate := make(map[time.Time]*PayoutEvent)
	order := make([]time.Time, 0)
	for _, p := range payments {
		day := p.SentDate.Truncate(24 * time.Hour)
		e, ok := byDate[day]
		if !ok {
			e = &PayoutEvent{SentDate: day}
			byDate[day] = e
			order = append(order, day)
		}
		e.Periods = append(e.Periods, p.Period)
		e.Foreign = e.Foreign.Add(p.Amount)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	out := make([]PayoutEvent, 0, len(order))
	for _, day := range order {
		out = append(out, *byDate[day])
	}
	return out
}

// MatchBank pairs every payout event with the bank entry nearest its
// send date by absolute day distance; equidistant entries resolve to
// the later date, since money can only arrive after it was sent. A
// match is only valid when it arrived on or after the send date and
// within toleranceDays; a farther candidate means the bank statement
// is missing an entry, not that the pairing is right.
func MatchBank(events []PayoutEvent, bank []BankEntry, toleranceDays int, lg *log.Logger) ([]PayoutEvent, error) {
	if len(bank) == 0 {
		return nil, fmt.Errorf("%w: bank statement is empty", core.ErrReconciliation)
	}
	out := make([]PayoutEvent, len(events))
	for i, e := range events {
		nearest := bank[0]
		best := absDays(bank[0].ReceivedDate, e.SentDate)
		for _, b := range bank[1:] {
			d := absDays(b.ReceivedDate, e.SentDate)
			if d < best || (d == best && b.ReceivedDate.After(nearest.ReceivedDate)) {
				best = d
				nearest = b
			}
		}
		delta := daysBetween(e.SentDate, nearest.ReceivedDate)
		if delta < 0 {
			return nil, fmt.Errorf("%w: payment for %s received %s before it was sent %s",
				core.ErrReconciliation, strings.Join(e.Periods, "+"),
				nearest.ReceivedDate.Format("2006-01-02"), e.SentDate.Format("2006-01-02"))
		}
		if delta > toleranceDays {
			return nil, fmt.Errorf("%w: no received payment for %s sent %s, best candidate %s is %d days away (tolerance %d)",
				core.ErrReconciliation, strings.Join(e.Periods, "+"),
				e.SentDate.Format("2006-01-02"), nearest.ReceivedDate.Format("2006-01-02"),
				delta, toleranceDays)
		}
		lg.Debug("matched payout to bank entry",
			"sent", e.SentDate.Format("2006-01-02"),
			"received", nearest.ReceivedDate.Format("2006-01-02"),
			"delta_days", delta)
		e.Home = nearest.Amount
		e.ReceivedDate = nearest.ReceivedDate
		out[i] = e
	}
	return out, nil
}

// Rate is the implied SEK-per-foreign rate of one payout event.
func (e PayoutEvent) Rate() decimal.Decimal {
	if e.Foreign.IsZero() {
		return decimal.Zero
	}
	return e.Home.Div(e.Foreign)
}

// RatesByPeriod indexes matched events by reporting period, so product
// rows can look up the rate of the payout that covered their period.
// Periods batched into one transfer share that transfer's rate.
func RatesByPeriod(events []PayoutEvent) map[string]decimal.Decimal {
	rates := make(map[string]decimal.Decimal)
	for _, e := range events {
		rate := e.Rate()
		for _, period := range e.Periods {
			rates[period] = rate
		}
	}
	return rates
}

func absDays(a, b time.Time) int {
	d := daysBetween(b, a)
	if d < 0 {
		return -d
	}
	return d
}

// daysBetween counts whole days from a to b, positive when b is later.
func daysBetween(a, b time.Time) int {
	return int(b.Truncate(24*time.Hour).Sub(a.Truncate(24*time.Hour)) / (24 * time.Hour))
}
