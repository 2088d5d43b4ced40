// =============================================================================
// Cattle Text - Capture Loading
// =============================================================================
//
// A capture is the raw content some acquisition tool pulled out of the
// rendered report. This package reads it from disk (or stdin) and hands it
// to the normalizer unchanged. Two formats are recognized by extension:
//
//   | Extension | Shape                                                  |
//   |-----------|--------------------------------------------------------|
//   | .json     | JSON array of grid rows, each an array of string|null  |
//   | anything  | visible-text dump, one value per line                  |
//
// A path of "-" reads a text dump from stdin.
//
// Text is decoded as UTF-8, or as UTF-16 when a byte order mark says so,
// since text copied out of a browser on Windows is often saved that way.
//
// Any failure here is an AcquisitionError: the capture never produced a
// line sequence and the parser must not run.
//
// =============================================================================

package linesource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// StdinPath is the capture path that reads from standard input.
const StdinPath = "-"

// ErrNoContent is wrapped by an AcquisitionError when a capture holds
// nothing but whitespace or empty rows.
var ErrNoContent = errors.New("capture holds no report content")

// =============================================================================
// ERRORS
// =============================================================================

// AcquisitionError reports that a capture could not produce a line sequence.
type AcquisitionError struct {
	// Source is the capture path, or "-" for stdin.
	Source string

	// Err is the underlying cause.
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition failed for %s: %v", e.Source, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CAPTURE
// =============================================================================

// Capture is the raw content of one capture. Exactly one of Text and Rows
// is populated.
type Capture struct {
	// Source is where the capture was read from.
	Source string

	// Text is the visible-text dump.
	Text string

	// Rows are the grid rows of a JSON capture. Nil cells were hidden.
	Rows [][]*string
}

// IsRows reports whether the capture is a grid-row capture.
func (c *Capture) IsRows() bool {
	return c.Rows != nil
}

// Name returns the capture file name without directory or extension.
// Stdin captures are named "stdin".
func (c *Capture) Name() string {
	return CaptureName(c.Source)
}

// CaptureName returns the name of the capture at path without directory or
// extension. Stdin is named "stdin".
func CaptureName(path string) string {
	if path == StdinPath {
		return "stdin"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// =============================================================================
// LOADING FUNCTIONS
// =============================================================================

// Load reads the capture at path.
//
// PARAMETERS:
//   - path: The capture file, or "-" for stdin.
//
// RETURNS:
//   - The capture.
//   - An *AcquisitionError if the file cannot be read, decoded, or is empty.
func Load(path string) (*Capture, error) {
	if path == StdinPath {
		return Read(path, os.Stdin, false)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &AcquisitionError{Source: path, Err: err}
	}
	defer file.Close()

	return Read(path, file, IsRowsPath(path))
}

// IsRowsPath reports whether path names a grid-row capture.
func IsRowsPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Read decodes a capture from r.
//
// PARAMETERS:
//   - source: The name reported in errors and stored on the capture.
//   - r: The capture content.
//   - rows: Whether the content is a JSON grid-row array.
func Read(source string, r io.Reader, rows bool) (*Capture, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, &AcquisitionError{Source: source, Err: fmt.Errorf("failed to read capture: %w", err)}
	}

	capture := &Capture{Source: source}

	if rows {
		capture.Rows, err = decodeRows(data)
		if err != nil {
			return nil, &AcquisitionError{Source: source, Err: err}
		}
		if !hasCell(capture.Rows) {
			return nil, &AcquisitionError{Source: source, Err: ErrNoContent}
		}
		return capture, nil
	}

	capture.Text = string(data)
	if strings.TrimSpace(capture.Text) == "" {
		return nil, &AcquisitionError{Source: source, Err: ErrNoContent}
	}
	return capture, nil
}

// decodeRows parses a JSON array of rows. The result is never nil on success.
func decodeRows(data []byte) ([][]*string, error) {
	var rows [][]*string
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to parse grid rows: %w", err)
	}
	if dec.More() {
		return nil, errors.New("failed to parse grid rows: trailing data after array")
	}
	if rows == nil {
		rows = [][]*string{}
	}
	return rows, nil
}

// hasCell reports whether any row holds a non-blank cell.
func hasCell(rows [][]*string) bool {
	for _, row := range rows {
		for _, cell := range row {
			if cell != nil && strings.TrimSpace(*cell) != "" {
				return true
			}
		}
	}
	return false
}
