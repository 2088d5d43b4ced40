// =============================================================================
// Cattle Text - Text-Message Template Parser
// =============================================================================
//
// The text-message page of the report renders a three-column table:
//
//   Price Stock Category | $/head text | c/kg text
//
// Rows are recognized over the normalized line stream as a triple whose
// second line contains "$" and whose third line contains "c" (any case).
// A matched triple is consumed whole; otherwise the cursor moves one line.
// An empty grid cell never names a stock category.
//
// =============================================================================

package templates

import (
	"strings"

	"github.com/mcmanusm/cattle-text/internal/normalizer"
	"github.com/mcmanusm/cattle-text/internal/types"
)

// Parse extracts template rows from normalized lines.
// The result is never nil.
func Parse(lines []string) []types.Template {
	out := []types.Template{}

	for i := 0; i+2 < len(lines); {
		stock, head, ckg := lines[i], lines[i+1], lines[i+2]

		if stock != normalizer.EmptyCell && IsRow(head, ckg) {
			out = append(out, types.Template{
				PriceStockCategory: stock,
				TextHead:           head,
				TextCKg:            ckg,
			})
			i += 3
			continue
		}
		i++
	}

	return out
}

// IsRow reports whether head and ckg look like the two price columns.
func IsRow(head, ckg string) bool {
	return strings.Contains(head, "$") && strings.Contains(strings.ToLower(ckg), "c")
}
