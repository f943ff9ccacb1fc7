package platform

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"taxman/internal/core"
)

// columnAliases maps one internal column name to every header spelling
// a vendor has used for it over the years. Exports rename columns; the
// rest of the adapter only ever sees the internal name.
type columnAliases map[string][]string

// resolveColumns maps each internal name to its index in the header.
// Every internal name must resolve through exactly one of its aliases.
func resolveColumns(header []string, aliases columnAliases) (map[string]int, error) {
	byHeader := make(map[string]int, len(header))
	for i, h := range header {
		byHeader[strings.TrimSpace(h)] = i
	}
	cols := make(map[string]int, len(aliases))
	for name, candidates := range aliases {
		found := false
		for _, c := range candidates {
			if i, ok := byHeader[c]; ok {
				cols[name] = i
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: no column for %q (known headers: %s)",
				core.ErrFileFormat, name, strings.Join(candidates, ", "))
		}
	}
	return cols, nil
}

// row is one record keyed by internal column names.
type row map[string]string

// readDelimited reads a comma or tab separated export, resolving the
// header through the alias map. Rows shorter than a resolved index are
// a structure error.
func readDelimited(r io.Reader, comma rune, aliases columnAliases) ([]row, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrFileFormat, err)
	}
	cols, err := resolveColumns(header, aliases)
	if err != nil {
		return nil, err
	}

	var rows []row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrFileFormat, err)
		}
		out := make(row, len(cols))
		for name, idx := range cols {
			if idx >= len(record) {
				return nil, fmt.Errorf("%w: row %v lacks column %q", core.ErrFileFormat, record, name)
			}
			out[name] = strings.TrimSpace(record[idx])
		}
		rows = append(rows, out)
	}
	return rows, nil
}

// parseAmount parses a money field, tolerating currency symbols and
// thousands separators ("$1,234.56"). A malformed amount fails the
// whole month.
func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty amount", core.ErrFileFormat)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: malformed amount %q", core.ErrFileFormat, s)
	}
	return d, nil
}

// parseUnits parses a signed unit count, tolerating thousands
// separators. Refund rows carry negative counts on some stores.
func parseUnits(s string) (int64, error) {
	cleaned := strings.NewReplacer(",", "", " ", "").Replace(s)
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed unit count %q", core.ErrFileFormat, s)
	}
	return n, nil
}

// currencyFromTerritory extracts the 3-letter code from a territory
// string like "Japan (JPY)".
func currencyFromTerritory(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 5 || !strings.HasSuffix(s, ")") || s[len(s)-5] != '(' {
		return "", fmt.Errorf("%w: no currency in territory %q", core.ErrFileFormat, s)
	}
	code := s[len(s)-4 : len(s)-1]
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: no currency in territory %q", core.ErrFileFormat, s)
		}
	}
	return code, nil
}
