// =============================================================================
// Cattle Text - Line Normalizer
// =============================================================================
//
// The normalizer turns a raw capture into the ordered line sequence the
// assembler consumes. Two capture shapes are supported:
//
//   - Text: a flattened visible-text dump, one value per line.
//   - Rows: ARIA grid rows, each an ordered list of cell texts. Cells hidden
//           by conditional formatting arrive as nil. Nil and blank cells
//           become EmptyCell so the cells after them keep their column.
//
// CLEANING (applied to every line or cell):
//   1. Unicode NFKD normalization
//   2. Dash and minus variants replaced by "-"
//   3. Whitespace runs collapsed to a single space
//   4. Leading and trailing whitespace trimmed
//
// Lines that are empty or match the junk rules after cleaning are dropped.
// Order is preserved: field identity downstream is purely positional.
//
// =============================================================================

package normalizer

import (
	"strings"

	"github.com/mcmanusm/cattle-text/internal/config"
	"golang.org/x/text/unicode/norm"
)

// EmptyCell stands in for a nil or blank grid cell. It occupies a metric
// field slot and is recorded as null. Clean strips NUL, so no cleaned line
// can equal it.
const EmptyCell = "\x00"

// dashReplacer maps the dash characters that survive NFKD to "-" and
// drops NUL.
var dashReplacer = strings.NewReplacer(
	"\x00", "",
	"‐", "-", // hyphen
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"―", "-", // horizontal bar
	"−", "-", // minus sign
	"﹣", "-", // small hyphen-minus
	"－", "-", // fullwidth hyphen-minus
)

// Clean normalizes one raw line.
func Clean(s string) string {
	s = norm.NFKD.String(s)
	s = dashReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// =============================================================================
// JUNK FILTER
// =============================================================================

// JunkFilter decides whether a cleaned line is UI chrome rather than data.
type JunkFilter struct {
	equals   map[string]struct{}
	contains []string
}

// NewJunkFilter builds a filter from the junk table. Table entries are
// cleaned the same way lines are, so they match after normalization.
func NewJunkFilter(rules config.JunkRules) *JunkFilter {
	f := &JunkFilter{equals: make(map[string]struct{}, len(rules.Equals))}
	for _, e := range rules.Equals {
		f.equals[Clean(e)] = struct{}{}
	}
	for _, c := range rules.Contains {
		// Contains entries may carry meaningful trailing spaces ("Date ").
		if c != "" {
			f.contains = append(f.contains, c)
		}
	}
	return f
}

// IsJunk reports whether a cleaned line carries no data value.
func (f *JunkFilter) IsJunk(line string) bool {
	if line == "" {
		return true
	}
	if _, ok := f.equals[line]; ok {
		return true
	}
	for _, c := range f.contains {
		if strings.Contains(line, c) {
			return true
		}
	}
	return false
}

// =============================================================================
// NORMALIZER
// =============================================================================

// Normalizer produces the cleaned line sequence of a capture.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	junk *JunkFilter
}

// New creates a normalizer using the given junk rules.
func New(rules config.JunkRules) *Normalizer {
	return &Normalizer{junk: NewJunkFilter(rules)}
}

// Junk returns the junk filter, which the assembler reuses to skip
// junk lines without giving them a field slot.
func (n *Normalizer) Junk() *JunkFilter {
	return n.junk
}

// Text splits a visible-text dump into cleaned, non-junk lines.
// The result is never nil.
func (n *Normalizer) Text(blob string) []string {
	lines := make([]string, 0, strings.Count(blob, "\n")+1)
	for _, raw := range strings.Split(blob, "\n") {
		lines = n.appendLine(lines, raw)
	}
	return lines
}

// Rows flattens ARIA grid rows into cleaned, non-junk lines, in row order
// and then cell order. A nil or blank cell becomes EmptyCell. The result
// is never nil.
func (n *Normalizer) Rows(rows [][]*string) []string {
	lines := make([]string, 0, len(rows)*12)
	for _, row := range rows {
		for _, cell := range row {
			if cell == nil || Clean(*cell) == "" {
				lines = append(lines, EmptyCell)
				continue
			}
			// Wrapped cell text stays one value.
			lines = n.appendLine(lines, *cell)
		}
	}
	return lines
}

// Count returns how many raw lines a text dump holds before filtering.
func Count(blob string) int {
	if blob == "" {
		return 0
	}
	return strings.Count(strings.TrimRight(blob, "\n"), "\n") + 1
}

func (n *Normalizer) appendLine(lines []string, raw string) []string {
	line := Clean(raw)
	if n.junk.IsJunk(line) {
		return lines
	}
	return append(lines, line)
}
