package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxman/internal/core"
	"taxman/internal/log"
	"taxman/internal/report"
)

func testReport(text string) report.Report {
	return report.Report{
		Platform: "steam",
		Month:    core.TaxMonth{Year: 2024, Month: 1},
		Text:     text,
	}
}

func TestWriteCreatesDeterministicPath(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, false, log.New(log.Config{}))

	require.NoError(t, w.Write(testReport("report body\n")))

	path := filepath.Join(root, "steam", "2024-01.txt")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "report body\n", string(data))
}

func TestWriteIdenticalContentIsNoOp(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, false, log.New(log.Config{}))

	require.NoError(t, w.Write(testReport("same\n")))
	info1, err := os.Stat(filepath.Join(root, "steam", "2024-01.txt"))
	require.NoError(t, err)

	require.NoError(t, w.Write(testReport("same\n")))
	info2, err := os.Stat(filepath.Join(root, "steam", "2024-01.txt"))
	require.NoError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime())
}

func TestWriteDifferingContentSkippedWithoutOverwrite(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, false, log.New(log.Config{}))

	require.NoError(t, w.Write(testReport("original\n")))
	require.NoError(t, w.Write(testReport("changed\n")))

	data, err := os.ReadFile(filepath.Join(root, "steam", "2024-01.txt"))
	require.NoError(t, err)
	// manual edits are never clobbered silently
	assert.Equal(t, "original\n", string(data))
}

func TestWriteDifferingContentReplacedWithOverwrite(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, true, log.New(log.Config{}))

	require.NoError(t, w.Write(testReport("original\n")))
	require.NoError(t, w.Write(testReport("changed\n")))

	data, err := os.ReadFile(filepath.Join(root, "steam", "2024-01.txt"))
	require.NoError(t, err)
	assert.Equal(t, "changed\n", string(data))
}

func TestWriteUnreadableExistingReportFails(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, true, log.New(log.Config{}))

	// a directory squatting on the report path makes the read fail
	// with something other than not-exist
	require.NoError(t, os.MkdirAll(filepath.Join(root, "steam", "2024-01.txt"), 0o755))

	err := w.Write(testReport("body\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read existing report")
}

func TestWriteAll(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, false, log.New(log.Config{}))
	reports := []report.Report{
		testReport("one\n"),
		{Platform: "nintendo", Month: core.TaxMonth{Year: 2024, Month: 2}, Text: "two\n"},
	}
	require.NoError(t, w.WriteAll(reports))
	assert.FileExists(t, filepath.Join(root, "steam", "2024-01.txt"))
	assert.FileExists(t, filepath.Join(root, "nintendo", "2024-02.txt"))
}
