// =============================================================================
// Cattle Text - JSON Sink
// =============================================================================
//
// This module writes parsed documents (metrics datasets and template sets)
// as indented JSON and reads previous documents back for change detection.
//
// WRITING:
//   Documents are written to a temporary file in the target directory and
//   renamed into place, so a reader polling the output never sees a
//   partially written document.
//
// CHANGE DETECTION:
//   A new document is "unchanged" when it differs from the previous one only
//   in updated_at. Hosts use this to avoid rewriting (and re-publishing) the
//   same data on every scheduled run.
//
// =============================================================================

package writer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mcmanusm/cattle-text/internal/types"
)

// =============================================================================
// SERIALIZATION
// =============================================================================

// MarshalDocument renders v as two-space indented JSON with a trailing
// newline. HTML characters are not escaped.
func MarshalDocument(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteJSON writes v to path, creating the parent directory if needed.
//
// PARAMETERS:
//   - path: The output file path.
//   - v: The document (*types.Dataset or *types.TemplateSet).
//
// RETURNS:
//   - An error if encoding or writing fails. On error the previous file at
//     path, if any, is left untouched.
func WriteJSON(path string, v any) error {
	data, err := MarshalDocument(v)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// =============================================================================
// READING
// =============================================================================

// ReadJSON decodes the document at path into v.
// A missing file returns an error wrapping os.ErrNotExist.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// ReadDataset loads a previously written metrics dataset.
func ReadDataset(path string) (*types.Dataset, error) {
	var ds types.Dataset
	if err := ReadJSON(path, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// ReadTemplateSet loads a previously written template set.
func ReadTemplateSet(path string) (*types.TemplateSet, error) {
	var set types.TemplateSet
	if err := ReadJSON(path, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// =============================================================================
// CHANGE DETECTION
// =============================================================================

// compareOpts ignores the timestamps and treats nil and empty lists alike.
var compareOpts = cmp.Options{
	cmpopts.IgnoreFields(types.Dataset{}, "UpdatedAt"),
	cmpopts.IgnoreFields(types.TemplateSet{}, "UpdatedAt"),
	cmpopts.EquateEmpty(),
}

// Diff returns a human-readable diff between two documents of the same
// type, ignoring updated_at. An empty string means unchanged.
func Diff(prev, cur any) string {
	return cmp.Diff(prev, cur, compareOpts)
}

// Unchanged reports whether cur carries the same data as prev.
func Unchanged(prev, cur any) bool {
	return Diff(prev, cur) == ""
}
