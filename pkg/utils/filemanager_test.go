package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateOutputFileName(t *testing.T) {
	tests := []struct {
		name   string
		format string
		check  func(t *testing.T, got string)
	}{
		{
			name:   "original",
			format: "{original}.json",
			check: func(t *testing.T, got string) {
				require.Equal(t, "national.json", got)
			},
		},
		{
			name:   "extension appended",
			format: "{original}-metrics",
			check: func(t *testing.T, got string) {
				require.Equal(t, "national-metrics.json", got)
			},
		},
		{
			name:   "date",
			format: "{original}_{date}.json",
			check: func(t *testing.T, got string) {
				require.Regexp(t, `^national_\d{8}\.json$`, got)
			},
		},
		{
			name:   "uuid",
			format: "{uuid}.json",
			check: func(t *testing.T, got string) {
				require.Len(t, strings.TrimSuffix(got, ".json"), 36)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, GenerateOutputFileName(tc.format, map[string]string{"original": "national"}, ".json"))
		})
	}
}

func TestOutputAndXLSXPath(t *testing.T) {
	fm := NewFileManager("out", "archive")

	path := fm.OutputPath("{original}.json", "capture")
	require.Equal(t, filepath.Join("out", "capture.json"), path)
	require.Equal(t, filepath.Join("out", "capture.xlsx"), XLSXPath(path))
}

func TestArchiveOutputFile(t *testing.T) {
	dir := t.TempDir()
	fm := NewFileManager(filepath.Join(dir, "out"), filepath.Join(dir, "archive"))
	fm.UseTimestampSubdirs = true
	fm.now = func() time.Time { return time.Date(2025, 1, 15, 14, 30, 22, 0, time.UTC) }
	require.NoError(t, fm.EnsureDirectories())

	// Nothing to archive yet.
	archived, err := fm.ArchiveOutputFile(filepath.Join(fm.OutputDir, "metrics.json"))
	require.NoError(t, err)
	require.Empty(t, archived)

	src := filepath.Join(fm.OutputDir, "metrics.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"national":[]}`), 0o644))

	archived, err = fm.ArchiveOutputFile(src)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(fm.ArchiveDir, "2025", "01", "15"), filepath.Dir(archived))
	require.Regexp(t, `^metrics_20250115_143022_[0-9a-f]{8}\.json$`, filepath.Base(archived))

	data, err := os.ReadFile(archived)
	require.NoError(t, err)
	require.Equal(t, `{"national":[]}`, string(data))
	require.FileExists(t, src)
}

func TestCleanOldArchives(t *testing.T) {
	dir := t.TempDir()
	fm := NewFileManager(dir, filepath.Join(dir, "archive"))
	require.NoError(t, fm.EnsureDirectories())

	oldFile := filepath.Join(fm.ArchiveDir, "old.json")
	newFile := filepath.Join(fm.ArchiveDir, "new.json")
	require.NoError(t, os.WriteFile(oldFile, nil, 0o644))
	require.NoError(t, os.WriteFile(newFile, nil, 0o644))
	past := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, past, past))

	removed, err := fm.CleanOldArchives(0)
	require.NoError(t, err)
	require.Zero(t, removed)

	removed, err = fm.CleanOldArchives(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.NoFileExists(t, oldFile)
	require.FileExists(t, newFile)
}

func TestCleanOldArchivesMissingDir(t *testing.T) {
	fm := NewFileManager(t.TempDir(), filepath.Join(t.TempDir(), "none"))

	removed, err := fm.CleanOldArchives(time.Hour)
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestWriteFailureLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteFailureLog(nil, dir)
	require.NoError(t, err)
	require.Empty(t, path)

	path, err = WriteFailureLog([]FailureLogEntry{{
		Timestamp:    time.Now(),
		Capture:      "national.txt",
		ErrorType:    "acquisition",
		ErrorMessage: "capture holds no report content",
	}}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Total Failures: 1")
	require.Contains(t, string(data), "Capture:    national.txt")
	require.Contains(t, string(data), "End of Failure Log")
}
