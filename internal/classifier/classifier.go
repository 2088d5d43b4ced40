// =============================================================================
// Cattle Text - Label Classifier
// =============================================================================
//
// The classifier decides what a normalized line denotes:
//
//   | Kind     | Test                                                      |
//   |----------|-----------------------------------------------------------|
//   | Region   | stripped label found in the region alias table (any case) |
//   | Category | stripped label equal to a known category name             |
//   | Data     | anything else                                             |
//
// Region is tested first. The "stripped label" is the line with a trailing
// row-count suffix removed ("National 50" -> "National"). Stripping is only
// used for matching; the line itself is never changed.
//
// Category matching is exact. A line that merely resembles a
// category ("Steers 0-200kg avg") is data.
//
// =============================================================================

package classifier

import (
	"regexp"
	"strings"

	"github.com/mcmanusm/cattle-text/internal/config"
	"github.com/mcmanusm/cattle-text/internal/normalizer"
)

// Kind is the classification of a line.
type Kind int

const (
	// Data is any line that is neither a region nor a category label.
	Data Kind = iota
	// Region is a National or state label.
	Region
	// Category is a known livestock category label.
	Category
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case Region:
		return "region"
	case Category:
		return "category"
	default:
		return "data"
	}
}

// Label is the result of classifying one line. For regions Value is the
// canonical region code, for categories the canonical category name, and
// for data the line itself.
type Label struct {
	Kind  Kind
	Value string
}

// IsBoundary reports whether the label ends metric-field consumption.
func (l Label) IsBoundary() bool {
	return l.Kind == Region || l.Kind == Category
}

// countSuffix matches a label followed by a Power BI row count.
var countSuffix = regexp.MustCompile(`^(.*\S)\s+\d+$`)

// StripCount removes a trailing whitespace-and-digits row count.
func StripCount(line string) string {
	if m := countSuffix.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return line
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classifier classifies lines against the region and category tables.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	regions    map[string]string
	codes      []string
	categories map[string]struct{}
	groups     config.StockGroupRules
}

// New builds a classifier from the parser tables.
func New(tables config.Tables) *Classifier {
	aliases := tables.RegionAliases()
	c := &Classifier{
		regions:    make(map[string]string, len(aliases)),
		codes:      tables.RegionCodes(),
		categories: make(map[string]struct{}, len(tables.Categories)),
		groups:     config.StockGroupRules{Default: tables.StockGroups.Default},
	}

	// Table entries are cleaned like lines, so "Steers 0–200kg" typed with
	// an en dash still matches.
	for alias, code := range aliases {
		c.regions[strings.ToLower(normalizer.Clean(alias))] = code
	}
	for _, name := range tables.Categories {
		c.categories[normalizer.Clean(name)] = struct{}{}
	}
	for _, rule := range tables.StockGroups.Rules {
		c.groups.Rules = append(c.groups.Rules, config.StockGroupRule{
			Prefix: normalizer.Clean(rule.Prefix),
			Group:  rule.Group,
		})
	}
	return c
}

// Classify returns the label of one normalized line.
func (c *Classifier) Classify(line string) Label {
	key := StripCount(normalizer.Clean(line))

	if code, ok := c.regions[strings.ToLower(key)]; ok {
		return Label{Kind: Region, Value: code}
	}
	if _, ok := c.categories[key]; ok {
		return Label{Kind: Category, Value: key}
	}
	return Label{Kind: Data, Value: line}
}

// StockGroup derives the stock group of a category from its name.
func (c *Classifier) StockGroup(category string) string {
	for _, rule := range c.groups.Rules {
		if strings.HasPrefix(category, rule.Prefix) {
			return rule.Group
		}
	}
	return c.groups.Default
}

// Regions returns the canonical region codes in table order.
func (c *Classifier) Regions() []string {
	return append([]string(nil), c.codes...)
}
