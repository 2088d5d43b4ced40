package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mcmanusm/cattle-text/internal/writer"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	parseFlags = runFlags{}
	templatesFlags = runFlags{}
	tablesFile = ""
	t.Setenv("CATTLETEXT_ARCHIVE_DIR", filepath.Join(t.TempDir(), "archive"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml")))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "Cattle Text")
	require.Contains(t, out, "Version:    dev")
}

func TestTablesCommand(t *testing.T) {
	out, err := execute(t, "tables")
	require.NoError(t, err)
	require.Contains(t, out, "Northern Territory")
	require.Contains(t, out, "Breeding Stock")
	require.Contains(t, out, "avg_c_kg")
}

func TestTablesCommandInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields: [offered, offered]\n"), 0o644))

	_, err := execute(t, "tables", "--tables", path)
	require.ErrorContains(t, err, "duplicate field")
}

func TestParseCommand(t *testing.T) {
	dir := t.TempDir()
	capture := filepath.Join(dir, "weekly.txt")
	require.NoError(t, os.WriteFile(capture, []byte("NSW\nCows\n12\n"), 0o644))
	outDir := filepath.Join(dir, "out")

	_, err := execute(t, "parse", "--output", outDir, capture, capture)
	require.NoError(t, err)

	ds, err := writer.ReadDataset(filepath.Join(outDir, "weekly.json"))
	require.NoError(t, err)
	require.Empty(t, ds.National)
	require.Equal(t, "NSW", ds.States[0].State)
	require.Equal(t, "Cows", ds.States[0].Categories[0].Category)
}

func TestParseCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")

	_, err := execute(t, "parse", "--output", outDir, filepath.Join(dir, "missing.txt"))
	require.EqualError(t, err, "1 of 1 capture(s) failed")

	logs, globErr := filepath.Glob(filepath.Join(outDir, "failure_log_*.txt"))
	require.NoError(t, globErr)
	require.Len(t, logs, 1)
}

func TestParseCommandRejectsSharedOutputPath(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"a", "b"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
	}
	first := filepath.Join(dir, "a", "weekly.txt")
	second := filepath.Join(dir, "b", "weekly.txt")
	third := filepath.Join(dir, "b", "weekly.json")
	other := filepath.Join(dir, "b", "monthly.txt")
	require.NoError(t, os.WriteFile(first, []byte("NSW\nCows\n12\n"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("QLD\nBulls\n7\n"), 0o644))
	require.NoError(t, os.WriteFile(third, []byte(`[["VIC", "Cows", "3"]]`), 0o644))
	require.NoError(t, os.WriteFile(other, []byte("SA\nCows\n4\n"), 0o644))
	outDir := filepath.Join(dir, "out")

	_, err := execute(t, "parse", "--output", outDir, first, second, third, other)
	require.EqualError(t, err, "3 of 4 capture(s) failed")
	require.NoFileExists(t, filepath.Join(outDir, "weekly.json"))
	require.FileExists(t, filepath.Join(outDir, "monthly.json"))

	logs, globErr := filepath.Glob(filepath.Join(outDir, "failure_log_*.txt"))
	require.NoError(t, globErr)
	require.Len(t, logs, 1)
	data, readErr := os.ReadFile(logs[0])
	require.NoError(t, readErr)
	require.Contains(t, string(data), "Error Type: conflict")
}

func TestParseCommandCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	capture := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(capture, []byte("Applied filters\n"), 0o644))
	outDir := filepath.Join(dir, "out")
	archiveDir := filepath.Join(dir, "kept")

	t.Setenv("CATTLETEXT_ARCHIVE_DIR", archiveDir)
	parseFlags = runFlags{}
	rootCmd.SetArgs([]string{"parse", "--config", filepath.Join(dir, "none.yaml"), "--output", outDir, capture})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	require.DirExists(t, archiveDir)
	require.FileExists(t, filepath.Join(outDir, "empty.json"))
}

func TestParseCommandRequiresCapture(t *testing.T) {
	_, err := execute(t, "parse")
	require.Error(t, err)
}

func TestTemplatesCommandDryRun(t *testing.T) {
	dir := t.TempDir()
	capture := filepath.Join(dir, "sms.txt")
	require.NoError(t, os.WriteFile(capture, []byte("Cows\n$1,450\n310c\n"), 0o644))
	outDir := filepath.Join(dir, "out")

	_, err := execute(t, "templates", "--dry-run", "--output", outDir, capture)
	require.NoError(t, err)
	require.NoDirExists(t, outDir)
}
