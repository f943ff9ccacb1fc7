// Package platform converts each storefront's monthly export into the
// common record schema. One adapter per store; they share presence and
// exclusion checks but differ wildly in row semantics.
package platform

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"taxman/internal/core"
	"taxman/internal/log"
)

// ParseResult is the outcome of loading one (platform, month) pair.
type ParseResult int

const (
	// ResultOK means data was present and parsed.
	ResultOK ParseResult = iota
	// ResultExcluded means the month intentionally has no data
	// (pre-launch cutoff or an explicit marker in the export).
	ResultExcluded
	// ResultMissing means expected data is absent. A hard condition:
	// the month shows up as missing, never as silently empty.
	ResultMissing
)

func (r ParseResult) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultExcluded:
		return "excluded"
	case ResultMissing:
		return "missing"
	}
	return fmt.Sprintf("ParseResult(%d)", int(r))
}

// Platform is the adapter contract: one implementation per storefront.
type Platform interface {
	Name() string

	// CheckPresent reports whether the month's expected file (or file
	// pair) exists. Partial presence of a required pair is missing.
	CheckPresent(month core.TaxMonth) ParseResult

	// CheckExcluded reports intentional absence. Takes priority over
	// presence and short-circuits parsing.
	CheckExcluded(month core.TaxMonth) bool

	Parse(ctx context.Context, month core.TaxMonth) (ParseResult, core.Table, error)
}

// excludedMarker flags a month's export as intentionally empty when it
// appears on the file's first line.
const excludedMarker = "# excluded"

// base carries what every adapter shares: its directory under the data
// root, the export file extension, an optional exclusion cutoff, and a
// component logger.
type base struct {
	name      string
	root      string
	ext       string
	cutoff    core.TaxMonth
	hasCutoff bool
	lg        *log.Logger
}

func newBase(name, dataRoot, ext string, cutoff core.TaxMonth, hasCutoff bool, lg *log.Logger) base {
	return base{
		name:      name,
		root:      filepath.Join(dataRoot, name),
		ext:       ext,
		cutoff:    cutoff,
		hasCutoff: hasCutoff,
		lg:        lg.WithComponent(log.ComponentPlatform).With(log.FieldPlatform, name),
	}
}

func (b *base) Name() string {
	return b.name
}

// monthPath is the export path for a month. Split exports append a
// numeric suffix: 2024-01.csv, 2024-01-1.csv, 2024-01-2.csv, ...
func (b *base) monthPath(month core.TaxMonth, index int) string {
	if index > 0 {
		return filepath.Join(b.root, fmt.Sprintf("%s-%d%s", month, index, b.ext))
	}
	return filepath.Join(b.root, month.String()+b.ext)
}

func (b *base) filePath(name string) string {
	return filepath.Join(b.root, name)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (b *base) CheckPresent(month core.TaxMonth) ParseResult {
	if !exists(b.monthPath(month, 0)) {
		return ResultMissing
	}
	return ResultOK
}

func (b *base) CheckExcluded(month core.TaxMonth) bool {
	if b.hasCutoff && month.Before(b.cutoff) {
		return true
	}
	return hasExcludedMarker(b.monthPath(month, 0))
}

// hasExcludedMarker reports whether the file exists and its first line
// is the exclusion tag.
func hasExcludedMarker(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return false
	}
	return scanner.Text() == excludedMarker
}
