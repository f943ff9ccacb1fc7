package core

import (
	"errors"
	"testing"
)

func TestParseTaxMonth(t *testing.T) {
	cases := []struct {
		in   string
		want TaxMonth
		ok   bool
	}{
		{"2024-01", TaxMonth{2024, 1}, true},
		{"2024-12", TaxMonth{2024, 12}, true},
		{"1999-07", TaxMonth{1999, 7}, true},
		{"2024-13", TaxMonth{}, false},
		{"2024-00", TaxMonth{}, false},
		{"2024", TaxMonth{}, false},
		{"2024-1-1", TaxMonth{}, false},
		{"abcd-ef", TaxMonth{}, false},
		{"", TaxMonth{}, false},
	}
	for _, tc := range cases {
		got, err := ParseTaxMonth(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("ParseTaxMonth(%q) unexpected error: %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("ParseTaxMonth(%q) expected error", tc.in)
			}
			if !errors.Is(err, ErrMonthFormat) {
				t.Fatalf("ParseTaxMonth(%q) error = %v, want ErrMonthFormat", tc.in, err)
			}
			continue
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseTaxMonth(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAddMonthsRollover(t *testing.T) {
	cases := []struct {
		start TaxMonth
		n     int
		want  TaxMonth
	}{
		{TaxMonth{2024, 1}, 1, TaxMonth{2024, 2}},
		{TaxMonth{2024, 12}, 1, TaxMonth{2025, 1}},
		{TaxMonth{2024, 1}, -1, TaxMonth{2023, 12}},
		{TaxMonth{2024, 6}, 12, TaxMonth{2025, 6}},
		{TaxMonth{2024, 6}, -18, TaxMonth{2022, 12}},
		{TaxMonth{2024, 6}, 0, TaxMonth{2024, 6}},
		{TaxMonth{2024, 2}, 23, TaxMonth{2026, 1}},
	}
	for _, tc := range cases {
		if got := tc.start.AddMonths(tc.n); !got.Equal(tc.want) {
			t.Fatalf("%v.AddMonths(%d) = %v, want %v", tc.start, tc.n, got, tc.want)
		}
	}
}

func TestAddMonthsRoundTrip(t *testing.T) {
	m := TaxMonth{2023, 7}
	for n := -30; n <= 30; n++ {
		if got := m.AddMonths(n).AddMonths(-n); !got.Equal(m) {
			t.Fatalf("AddMonths(%d) round trip = %v, want %v", n, got, m)
		}
	}
}

func TestOrdering(t *testing.T) {
	a := TaxMonth{2023, 12}
	b := TaxMonth{2024, 1}
	if !a.Before(b) || b.Before(a) {
		t.Fatal("expected 2023-12 before 2024-01")
	}
	if !b.After(a) || a.After(b) {
		t.Fatal("expected 2024-01 after 2023-12")
	}
	if !a.Equal(a) || a.Equal(b) {
		t.Fatal("equality broken")
	}
}

func TestMonthRange(t *testing.T) {
	start := TaxMonth{2023, 11}
	end := TaxMonth{2024, 2}
	months, err := MonthRange(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantLen := (end.Year*12 + end.Month) - (start.Year*12 + start.Month) + 1
	if len(months) != wantLen {
		t.Fatalf("range length = %d, want %d", len(months), wantLen)
	}
	for i := 1; i < len(months); i++ {
		if !months[i-1].Before(months[i]) {
			t.Fatalf("range not strictly ascending at %d: %v", i, months)
		}
	}
	if !months[0].Equal(start) || !months[len(months)-1].Equal(end) {
		t.Fatalf("range endpoints wrong: %v", months)
	}
}

func TestMonthRangeSingle(t *testing.T) {
	m := TaxMonth{2024, 5}
	months, err := MonthRange(m, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(months) != 1 || !months[0].Equal(m) {
		t.Fatalf("single month range = %v", months)
	}
}

func TestMonthRangeInverted(t *testing.T) {
	_, err := MonthRange(TaxMonth{2024, 2}, TaxMonth{2024, 1})
	if err == nil {
		t.Fatal("expected error for inverted range")
	}
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("error = %v, want ErrInvalidRange", err)
	}
}

func TestString(t *testing.T) {
	if got := (TaxMonth{2024, 3}).String(); got != "2024-03" {
		t.Fatalf("String() = %q, want 2024-03", got)
	}
}
