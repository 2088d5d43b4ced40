// =============================================================================
// Cattle Text - Hierarchical Record Assembler
// =============================================================================
//
// The assembler walks the normalized line sequence once and rebuilds the
// Region -> [Category record] hierarchy the report rendered.
//
// STATE:
//   - current region, initially National
//   - one bucket per non-national region, created on first sight and never
//     reset, so a region label that recurs keeps accumulating
//   - the national record list
//
// EVENTS (outer cursor):
//   | Line     | Action                                                     |
//   |----------|------------------------------------------------------------|
//   | Region   | switch current region, look up or create its bucket        |
//   | Category | consume the following values into a record (inner cursor)  |
//   | Data     | ignored                                                    |
//
// The inner cursor (consume) assigns the lines after a category to the
// metric fields strictly by position. It stops at the next region or
// category line, or once every field is filled. Junk lines are skipped
// without taking a field slot. An empty grid cell (normalizer.EmptyCell)
// takes its slot and leaves it null. Fields left unfilled stay null.
//
// Buckets that never receive a record are left out of the result.
//
// =============================================================================

package assembler

import (
	"errors"

	"github.com/mcmanusm/cattle-text/internal/classifier"
	"github.com/mcmanusm/cattle-text/internal/config"
	"github.com/mcmanusm/cattle-text/internal/normalizer"
	"github.com/mcmanusm/cattle-text/internal/types"
)

// ErrNilLines is returned when no line sequence was supplied at all.
// An empty, non-nil sequence is valid and yields an empty dataset.
var ErrNilLines = errors.New("assembler: nil line sequence")

// JunkMatcher reports whether a line carries no data value.
type JunkMatcher interface {
	IsJunk(line string) bool
}

// Assembler builds datasets from normalized lines.
// It is immutable after construction and safe for concurrent use.
type Assembler struct {
	classifier *classifier.Classifier
	junk       JunkMatcher
	fields     []string
}

// New creates an assembler.
//
// PARAMETERS:
//   - c: The label classifier.
//   - junk: The junk predicate applied inside a consumption window. May be nil.
//   - fields: The metric field names in positional order.
func New(c *classifier.Classifier, junk JunkMatcher, fields []string) *Assembler {
	return &Assembler{
		classifier: c,
		junk:       junk,
		fields:     append([]string(nil), fields...),
	}
}

// Fields returns the metric field names in positional order.
func (a *Assembler) Fields() []string {
	return append([]string(nil), a.fields...)
}

// Assemble parses one line sequence into a dataset. UpdatedAt is left for
// the caller to set. Malformed content never fails: short rows become null
// fields and unknown lines are ignored.
func (a *Assembler) Assemble(lines []string) (*types.Dataset, error) {
	if lines == nil {
		return nil, ErrNilLines
	}

	national := []types.MetricRecord{}
	var buckets []types.StateBucket
	bucketIndex := make(map[string]int)
	current := config.NationalRegion

	for i := 0; i < len(lines); {
		label := a.classifier.Classify(lines[i])

		switch label.Kind {
		case classifier.Region:
			current = label.Value
			if current != config.NationalRegion {
				if _, ok := bucketIndex[current]; !ok {
					bucketIndex[current] = len(buckets)
					buckets = append(buckets, types.StateBucket{State: current})
				}
			}
			i++

		case classifier.Category:
			values, consumed := a.consume(lines, i+1)
			record := a.buildRecord(label.Value, values)

			idx, ok := bucketIndex[current]
			if current == config.NationalRegion || !ok {
				national = append(national, record)
			} else {
				buckets[idx].Categories = append(buckets[idx].Categories, record)
			}
			i += 1 + consumed

		default:
			i++
		}
	}

	states := make([]types.StateBucket, 0, len(buckets))
	for _, b := range buckets {
		if len(b.Categories) > 0 {
			states = append(states, b)
		}
	}

	return &types.Dataset{National: national, States: states}, nil
}

// consume collects the metric values that follow a category line.
//
// PARAMETERS:
//   - lines: The full line sequence.
//   - start: The index just after the category line.
//
// RETURNS:
//   - The values in positional order, at most one per field.
//   - How many lines were passed over, junk included. The boundary line that
//     stopped consumption is not counted.
func (a *Assembler) consume(lines []string, start int) ([]string, int) {
	values := make([]string, 0, len(a.fields))
	i := start

	for i < len(lines) && len(values) < len(a.fields) {
		line := lines[i]
		if a.classifier.Classify(line).IsBoundary() {
			break
		}
		if a.junk == nil || !a.junk.IsJunk(line) {
			values = append(values, line)
		}
		i++
	}

	return values, i - start
}

// buildRecord fills the record fields in order; missing values stay null.
func (a *Assembler) buildRecord(category string, values []string) types.MetricRecord {
	record := types.NewMetricRecord(category, a.classifier.StockGroup(category), a.fields)
	for i, v := range values {
		if v == normalizer.EmptyCell {
			continue
		}
		record.Fields[i].Value = &v
	}
	return record
}
