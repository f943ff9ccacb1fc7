package core

import "errors"

var (
	// ErrMonthFormat marks a malformed period string or month number.
	ErrMonthFormat = errors.New("invalid tax month, want YYYY-MM")

	// ErrInvalidRange marks a month range whose end precedes its start.
	ErrInvalidRange = errors.New("invalid month range")

	// ErrFileFormat marks an export whose structure or numeric fields
	// cannot be parsed. Fatal for that month: financial figures are
	// all-or-nothing, never per-row recoverable.
	ErrFileFormat = errors.New("unexpected report file structure")

	// ErrMissingData marks a report file (or one of a required pair)
	// that should exist but does not.
	ErrMissingData = errors.New("expected report data missing")

	// ErrReconciliation marks a payout that could not be matched to a
	// confirmed bank transfer. Always fatal for that month: proceeding
	// would produce financially wrong output.
	ErrReconciliation = errors.New("payout reconciliation failed")

	// ErrNoData marks a run that produced zero rows overall. An empty
	// report is never a valid accounting artifact.
	ErrNoData = errors.New("no transaction rows to report")
)
