// =============================================================================
// Cattle Text - Shared Types
// =============================================================================
//
// This package contains the types shared by the parser, the report and the
// sinks. Types defined here are used by:
//   - assembler  (builds Dataset values)
//   - templates  (builds TemplateSet values)
//   - validation (inspects Dataset values)
//   - writer     (serializes and reloads them)
//
// The field order of a MetricRecord is data, not code, so records carry their
// fields as an ordered slice and serialize it with a custom JSON codec.
//
// =============================================================================

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// METRIC RECORDS
// =============================================================================

// Field is one positional metric value. A nil Value is JSON null.
type Field struct {
	Name  string
	Value *string
}

// MetricRecord is the metric row of one category within one region.
type MetricRecord struct {
	// Category is the canonical category name.
	Category string

	// StockGroup is derived from Category (Steers, Heifers, Breeding Stock).
	StockGroup string

	// Fields holds the metric values in table order.
	Fields []Field
}

// NewMetricRecord returns a record with every named field set to null.
func NewMetricRecord(category, stockGroup string, fieldNames []string) MetricRecord {
	fields := make([]Field, len(fieldNames))
	for i, name := range fieldNames {
		fields[i] = Field{Name: name}
	}
	return MetricRecord{Category: category, StockGroup: stockGroup, Fields: fields}
}

// Value returns the value of the named field and whether the field exists.
func (r MetricRecord) Value(name string) (*string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// NullFields returns the names of the fields that hold no value.
func (r MetricRecord) NullFields() []string {
	var names []string
	for _, f := range r.Fields {
		if f.Value == nil {
			names = append(names, f.Name)
		}
	}
	return names
}

// MarshalJSON writes category and stock_group first, then every field in
// its positional order.
func (r MetricRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeMember(&buf, "category", &r.Category, true)
	writeMember(&buf, "stock_group", &r.StockGroup, false)
	for _, f := range r.Fields {
		writeMember(&buf, f.Name, f.Value, false)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a record back, keeping the order of its field members.
func (r *MetricRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	*r = MetricRecord{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("metric record: unexpected key %v", tok)
		}

		var value *string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("metric record field %q: %w", key, err)
		}

		switch key {
		case "category":
			if value != nil {
				r.Category = *value
			}
		case "stock_group":
			if value != nil {
				r.StockGroup = *value
			}
		default:
			r.Fields = append(r.Fields, Field{Name: key, Value: value})
		}
	}

	return expectDelim(dec, '}')
}

// =============================================================================
// DATASET
// =============================================================================

// StateBucket holds the records of one non-national region.
type StateBucket struct {
	State      string         `json:"state"`
	Categories []MetricRecord `json:"categories"`
}

// Dataset is the parsed content of one capture.
type Dataset struct {
	UpdatedAt time.Time      `json:"updated_at"`
	National  []MetricRecord `json:"national"`
	States    []StateBucket  `json:"states"`
}

// MarshalJSON always writes national and states as arrays.
func (d Dataset) MarshalJSON() ([]byte, error) {
	type plain Dataset
	out := plain(d)
	if out.National == nil {
		out.National = []MetricRecord{}
	}
	if out.States == nil {
		out.States = []StateBucket{}
	}
	for i := range out.States {
		if out.States[i].Categories == nil {
			out.States[i].Categories = []MetricRecord{}
		}
	}
	return marshalUnescaped(out)
}

// RecordCount returns the number of records across all regions.
func (d *Dataset) RecordCount() int {
	n := len(d.National)
	for _, s := range d.States {
		n += len(s.Categories)
	}
	return n
}

// =============================================================================
// TEXT-MESSAGE TEMPLATES
// =============================================================================

// Template is one row of the text-message price table.
type Template struct {
	PriceStockCategory string `json:"price_stock_category"`
	TextHead           string `json:"text_head"`
	TextCKg            string `json:"text_c_kg"`
}

// TemplateSet is the parsed content of one text-message capture.
type TemplateSet struct {
	UpdatedAt time.Time  `json:"updated_at"`
	Templates []Template `json:"templates"`
}

// MarshalJSON always writes templates as an array.
func (s TemplateSet) MarshalJSON() ([]byte, error) {
	type plain TemplateSet
	out := plain(s)
	if out.Templates == nil {
		out.Templates = []Template{}
	}
	return marshalUnescaped(out)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// writeMember appends `"key":value` to buf, with a leading comma unless first.
// HTML escaping is off so names such as "Cows & Calves" stay readable.
func writeMember(buf *bytes.Buffer, key string, value *string, first bool) {
	if !first {
		buf.WriteByte(',')
	}
	buf.WriteString(quote(key))
	buf.WriteByte(':')
	if value == nil {
		buf.WriteString("null")
		return
	}
	buf.WriteString(quote(*value))
}

func quote(s string) string {
	// Encoding a string cannot fail.
	b, _ := marshalUnescaped(s)
	return string(b)
}

// marshalUnescaped is json.Marshal without HTML escaping.
func marshalUnescaped(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(b.Bytes(), []byte("\n")), nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("metric record: expected %q, got %v", want, tok)
	}
	return nil
}
