package linesource

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadText(t *testing.T) {
	path := writeFile(t, "capture.txt", []byte("National\nCows\n12\n"))

	c, err := Load(path)
	require.NoError(t, err)
	require.False(t, c.IsRows())
	require.Equal(t, "National\nCows\n12\n", c.Text)
	require.Equal(t, "capture", c.Name())
}

func TestLoadTextUTF16(t *testing.T) {
	// "Cows\n" as UTF-16LE with a byte order mark.
	data := []byte{0xFF, 0xFE, 'C', 0, 'o', 0, 'w', 0, 's', 0, '\n', 0}
	path := writeFile(t, "capture.txt", data)

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Cows\n", c.Text)
}

func TestLoadTextStripsUTF8BOM(t *testing.T) {
	path := writeFile(t, "capture.txt", append([]byte{0xEF, 0xBB, 0xBF}, "NSW"...))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "NSW", c.Text)
}

func TestLoadRows(t *testing.T) {
	path := writeFile(t, "grid.JSON", []byte(`[["Steers","Steers 0-200kg","120",null],["NSW","Cows"]]`))

	c, err := Load(path)
	require.NoError(t, err)
	require.True(t, c.IsRows())
	require.Len(t, c.Rows, 2)
	require.Nil(t, c.Rows[0][3])
	require.Equal(t, "Cows", *c.Rows[1][1])
	require.Equal(t, "grid", c.Name())
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    string
		noMatch bool
	}{
		{name: "blank text", file: "a.txt", data: " \n\t\n", noMatch: true},
		{name: "empty rows", file: "a.json", data: `[[null, " "], []]`, noMatch: true},
		{name: "malformed json", file: "a.json", data: `[["Cows"`},
		{name: "wrong json shape", file: "a.json", data: `{"rows": []}`},
		{name: "trailing json", file: "a.json", data: `[["Cows"]] [["Bulls"]]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, tc.file, []byte(tc.data))

			_, err := Load(path)
			var acqErr *AcquisitionError
			require.ErrorAs(t, err, &acqErr)
			require.Equal(t, path, acqErr.Source)
			require.Equal(t, tc.noMatch, errors.Is(err, ErrNoContent))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))

	var acqErr *AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Contains(t, err.Error(), "acquisition failed for")
}

func TestReadStdinName(t *testing.T) {
	c, err := Read(StdinPath, strings.NewReader("Cows"), false)
	require.NoError(t, err)
	require.Equal(t, "stdin", c.Name())
}
