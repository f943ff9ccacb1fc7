// Package output persists rendered reports as flat text files, one
// per (platform, month), at a deterministic path under the output
// root.
package output

import (
	"fmt"
	"os"
	"path/filepath"

	"taxman/internal/log"
	"taxman/internal/report"
)

type Writer struct {
	root      string
	overwrite bool
	lg        *log.Logger
}

func NewWriter(root string, overwrite bool, lg *log.Logger) *Writer {
	return &Writer{
		root:      root,
		overwrite: overwrite,
		lg:        lg.WithComponent(log.ComponentOutput),
	}
}

// Path is where a report lands: {root}/{platform}/{month}.txt.
func (w *Writer) Path(r report.Report) string {
	return filepath.Join(w.root, r.Platform, r.Month.String()+".txt")
}

// Write persists one report. Rewriting identical content is a no-op;
// differing content is only replaced when overwrite is enabled,
// otherwise the write is skipped with a diagnostic so a manual edit is
// never clobbered silently.
func (w *Writer) Write(r report.Report) error {
	path := w.Path(r)
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if string(existing) == r.Text {
			w.lg.Debug("report unchanged", log.FieldPath, path)
			return nil
		}
		if !w.overwrite {
			w.lg.Warn("report content differs and overwrite is disabled, skipping",
				log.FieldPlatform, r.Platform,
				log.FieldMonth, r.Month.String(),
				log.FieldPath, path)
			return nil
		}
	case !os.IsNotExist(err):
		// an unreadable existing report must never be clobbered blind
		return fmt.Errorf("read existing report %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(r.Text), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	w.lg.Info("wrote report",
		log.FieldPlatform, r.Platform,
		log.FieldMonth, r.Month.String(),
		log.FieldPath, path)
	return nil
}

// WriteAll persists every report, stopping at the first failure.
func (w *Writer) WriteAll(reports []report.Report) error {
	for _, r := range reports {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
