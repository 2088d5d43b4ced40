package converter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mcmanusm/cattle-text/internal/config"
	"github.com/mcmanusm/cattle-text/internal/linesource"
	"github.com/mcmanusm/cattle-text/internal/writer"
	"github.com/stretchr/testify/require"
)

const metricsCapture = `Applied filters: Species is Cattle
National 2
Steers 0-200kg
120
200-280kg
240kg
$800-1000
$900
+10
380-420c
400c
+5
95%
NSW
Heifers 0-200kg
80
Scroll to see more
NSW
Cows
12
`

type fixture struct {
	dir    string
	cfg    *config.MainConfig
	tables config.Tables
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	cfg, err := config.LoadMainConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	cfg.OutputDir = filepath.Join(dir, "output")
	cfg.ArchiveDir = filepath.Join(dir, "archive")

	return &fixture{dir: dir, cfg: cfg, tables: config.DefaultTables()}
}

func (f *fixture) capture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f *fixture) run(input string, kind Kind, opts Options) Result {
	c := New(input, kind, f.cfg, f.tables, nil).WithOptions(opts)
	c.now = func() time.Time { return time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC) }
	return c.Run()
}

func TestRunWritesMetrics(t *testing.T) {
	f := newFixture(t)
	input := f.capture(t, "weekly.txt", metricsCapture)

	result := f.run(input, KindMetrics, Options{})
	require.NoError(t, result.Error)
	require.True(t, result.Success)
	require.False(t, result.Skipped)
	require.Equal(t, filepath.Join(f.cfg.OutputDir, "weekly.json"), result.OutputFile)
	require.NotEmpty(t, result.RunID)

	require.Equal(t, 20, result.Stats.LinesRead)
	require.Equal(t, 18, result.Stats.LinesKept)
	require.Equal(t, 3, result.Stats.Records)
	require.Equal(t, 2, result.Stats.Regions)
	require.True(t, result.Stats.ProcessingTime > 0)

	ds, err := writer.ReadDataset(result.OutputFile)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC), ds.UpdatedAt.UTC())
	require.Len(t, ds.National, 1)
	require.Len(t, ds.States, 1)
	require.Equal(t, "NSW", ds.States[0].State)
	require.Len(t, ds.States[0].Categories, 2)

	require.Equal(t, 3, result.Report.TotalCategories)
	require.Contains(t, result.Report.EmptyRegions, "QLD")
	require.NotContains(t, result.Report.EmptyRegions, "National")
}

func TestRunSkipsUnchangedAndArchivesChanges(t *testing.T) {
	f := newFixture(t)
	input := f.capture(t, "weekly.txt", metricsCapture)

	first := f.run(input, KindMetrics, Options{})
	require.NoError(t, first.Error)
	require.Empty(t, first.ArchivedFile)

	second := f.run(input, KindMetrics, Options{})
	require.NoError(t, second.Error)
	require.True(t, second.Skipped)

	forced := f.run(input, KindMetrics, Options{Force: true})
	require.NoError(t, forced.Error)
	require.False(t, forced.Skipped)
	require.FileExists(t, forced.ArchivedFile)

	f.capture(t, "weekly.txt", strings.Replace(metricsCapture, "\n12\n", "\n13\n", 1))
	changed := f.run(input, KindMetrics, Options{})
	require.NoError(t, changed.Error)
	require.False(t, changed.Skipped)
	require.FileExists(t, changed.ArchivedFile)
	require.True(t, strings.HasPrefix(filepath.Base(changed.ArchivedFile), "weekly_"))
}

func TestRunDryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	input := f.capture(t, "weekly.txt", metricsCapture)

	result := f.run(input, KindMetrics, Options{DryRun: true, XLSX: true})
	require.NoError(t, result.Error)
	require.True(t, result.DryRun)
	require.NoFileExists(t, result.OutputFile)
	require.Empty(t, result.XLSXFile)
}

func TestRunWritesWorkbook(t *testing.T) {
	f := newFixture(t)
	input := f.capture(t, "weekly.txt", metricsCapture)

	result := f.run(input, KindMetrics, Options{XLSX: true})
	require.NoError(t, result.Error)
	require.Equal(t, filepath.Join(f.cfg.OutputDir, "weekly.xlsx"), result.XLSXFile)
	require.FileExists(t, result.XLSXFile)
}

func TestRunWritesMissingWorkbookWhenUnchanged(t *testing.T) {
	f := newFixture(t)
	input := f.capture(t, "weekly.txt", metricsCapture)

	first := f.run(input, KindMetrics, Options{})
	require.NoError(t, first.Error)
	require.Empty(t, first.XLSXFile)

	again := f.run(input, KindMetrics, Options{XLSX: true})
	require.NoError(t, again.Error)
	require.True(t, again.Skipped)
	require.Empty(t, again.ArchivedFile)
	require.FileExists(t, filepath.Join(f.cfg.OutputDir, "weekly.xlsx"))
	require.Equal(t, filepath.Join(f.cfg.OutputDir, "weekly.xlsx"), again.XLSXFile)

	third := f.run(input, KindMetrics, Options{XLSX: true})
	require.True(t, third.Skipped)
	require.Empty(t, third.XLSXFile)
}

func TestOutputPath(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, filepath.Join(f.cfg.OutputDir, "weekly.json"), OutputPath(KindMetrics, f.cfg, "a/weekly.txt"))
	require.Equal(t, filepath.Join(f.cfg.OutputDir, "weekly.json"), OutputPath(KindMetrics, f.cfg, "b/weekly.json"))
	require.Equal(t, filepath.Join(f.cfg.OutputDir, "sms-templates.json"), OutputPath(KindTemplates, f.cfg, "sms.txt"))
	require.Equal(t, filepath.Join(f.cfg.OutputDir, "stdin.json"), OutputPath(KindMetrics, f.cfg, "-"))
}

func TestRunGridRows(t *testing.T) {
	f := newFixture(t)
	input := f.capture(t, "grid.json", `[
  ["Category", "Offered"],
  ["Steers", "Steers 0-200kg", "120", null, "240kg"],
  ["QLD", "Breeding Stock", "Cows", "7"]
]`)

	result := f.run(input, KindMetrics, Options{})
	require.NoError(t, result.Error)
	require.Equal(t, 10, result.Stats.LinesRead)
	require.Equal(t, 1, len(result.Dataset.National))
	require.Equal(t, "QLD", result.Dataset.States[0].State)

	offered, _ := result.Dataset.National[0].Value("offered")
	require.Equal(t, "120", *offered)
	weight, _ := result.Dataset.National[0].Value("weight_range")
	require.Nil(t, weight)
	avg, _ := result.Dataset.National[0].Value("avg_weight")
	require.Equal(t, "240kg", *avg)
}

func TestRunGridRowsKeepColumnsAfterHiddenCell(t *testing.T) {
	f := newFixture(t)
	input := f.capture(t, "grid.json", `[
  ["Breeding Stock", "Cows", "12", null, "450kg", "$900-1000", "$950", "+20", "300-320c", "310c", "+4", "90%"]
]`)

	result := f.run(input, KindMetrics, Options{})
	require.NoError(t, result.Error)

	rec := result.Dataset.National[0]
	weight, _ := rec.Value("weight_range")
	require.Nil(t, weight)
	avg, _ := rec.Value("avg_weight")
	require.Equal(t, "450kg", *avg)
	clearance, _ := rec.Value("clearance")
	require.Equal(t, "90%", *clearance)
}

func TestRunTemplates(t *testing.T) {
	f := newFixture(t)
	input := f.capture(t, "sms.txt", "Text Message Template\nSteers 0-200kg\n$900/hd\n400c/kg\nCows\n$1,450\n310c\n")

	result := f.run(input, KindTemplates, Options{})
	require.NoError(t, result.Error)
	require.Equal(t, 2, result.Stats.Templates)
	require.Equal(t, filepath.Join(f.cfg.OutputDir, "sms-templates.json"), result.OutputFile)

	set, err := writer.ReadTemplateSet(result.OutputFile)
	require.NoError(t, err)
	require.Equal(t, "Cows", set.Templates[1].PriceStockCategory)

	again := f.run(input, KindTemplates, Options{})
	require.True(t, again.Skipped)
}

func TestRunAcquisitionFailure(t *testing.T) {
	f := newFixture(t)

	result := f.run(filepath.Join(f.dir, "missing.txt"), KindMetrics, Options{})
	require.False(t, result.Success)

	var acqErr *linesource.AcquisitionError
	require.ErrorAs(t, result.Error, &acqErr)
	require.NoDirExists(t, f.cfg.OutputDir)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "metrics", KindMetrics.String())
	require.Equal(t, "templates", KindTemplates.String())
}
