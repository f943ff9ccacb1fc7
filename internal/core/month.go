package core

import (
	"fmt"
	"strconv"
	"strings"
)

// TaxMonth identifies the accounting period a report covers.
// It is a plain (year, month) value with no day or timezone attached.
type TaxMonth struct {
	Year  int
	Month int
}

// NewTaxMonth builds a TaxMonth and validates the month number.
func NewTaxMonth(year, month int) (TaxMonth, error) {
	if month < 1 || month > 12 {
		return TaxMonth{}, fmt.Errorf("%w: month %d out of range", ErrMonthFormat, month)
	}
	return TaxMonth{Year: year, Month: month}, nil
}

// ParseTaxMonth parses a "YYYY-MM" string.
func ParseTaxMonth(s string) (TaxMonth, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return TaxMonth{}, fmt.Errorf("%w: %q", ErrMonthFormat, s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return TaxMonth{}, fmt.Errorf("%w: %q", ErrMonthFormat, s)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return TaxMonth{}, fmt.Errorf("%w: %q", ErrMonthFormat, s)
	}
	return NewTaxMonth(year, month)
}

func (m TaxMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// index counts months since year zero, which makes ordering and
// month arithmetic trivial.
func (m TaxMonth) index() int {
	return m.Year*12 + (m.Month - 1)
}

// AddMonths returns the month shifted by n, rolling the year in
// either direction.
func (m TaxMonth) AddMonths(n int) TaxMonth {
	idx := m.index() + n
	year := idx / 12
	month := idx%12 + 1
	if idx < 0 && idx%12 != 0 {
		year--
		month += 12
	}
	return TaxMonth{Year: year, Month: month}
}

func (m TaxMonth) Equal(other TaxMonth) bool {
	return m.Year == other.Year && m.Month == other.Month
}

func (m TaxMonth) Before(other TaxMonth) bool {
	return m.index() < other.index()
}

func (m TaxMonth) After(other TaxMonth) bool {
	return m.index() > other.index()
}

// MonthRange returns the inclusive ascending sequence from start to end.
func MonthRange(start, end TaxMonth) ([]TaxMonth, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s precedes %s", ErrInvalidRange, end, start)
	}
	months := make([]TaxMonth, 0, end.index()-start.index()+1)
	for current := start; !current.After(end); current = current.AddMonths(1) {
		months = append(months, current)
	}
	return months, nil
}
