package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"taxman/internal/config"
	"taxman/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{})
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// writeExport drops a fixture file under root/platform/name.
func writeExport(t *testing.T, root, platform, name, content string) {
	t.Helper()
	dir := filepath.Join(root, platform)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataRoot:   t.TempDir(),
		OutputRoot: t.TempDir(),
		Workers:    1,
	}
}

func emptySettings() *config.Settings {
	return &config.Settings{}
}
