// =============================================================================
// Cattle Text - Parser Tables
// =============================================================================
//
// The parser never hard-codes vocabulary. Everything it matches against is
// one of these tables, so a layout change in the report can be absorbed by
// editing data instead of code:
//
//   | Table        | Used by     | Purpose                                      |
//   |--------------|-------------|----------------------------------------------|
//   | junk         | normalizer  | UI chrome and restated headers to drop       |
//   | regions      | classifier  | surface form -> canonical region code        |
//   | categories   | classifier  | closed list of livestock category names      |
//   | stock_groups | classifier  | category prefix -> stock group metadata      |
//   | fields       | assembler   | positional order of the metric fields        |
//
// OVERRIDES:
//   A tables file replaces any table it sets; tables it leaves out keep their
//   defaults. A sibling "<name>.local.<ext>" file is merged on top of it.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// NationalRegion is the canonical code of the national scope. Records
// parsed before any region label belong to it.
const NationalRegion = "National"

// =============================================================================
// TABLE STRUCTURES
// =============================================================================

// Tables holds every piece of vocabulary the parser depends on.
type Tables struct {
	Junk        JunkRules       `yaml:"junk" json:"junk"`
	Regions     []RegionEntry   `yaml:"regions" json:"regions"`
	Categories  []string        `yaml:"categories" json:"categories"`
	StockGroups StockGroupRules `yaml:"stock_groups" json:"stock_groups"`
	Fields      []string        `yaml:"fields" json:"fields"`
}

// JunkRules is the junk-line predicate expressed as data. A line is junk
// when it is empty, equals one of Equals, or contains one of Contains.
type JunkRules struct {
	Equals   []string `yaml:"equals" json:"equals"`
	Contains []string `yaml:"contains" json:"contains"`
}

// RegionEntry maps the surface forms of one region to its canonical code.
// The code itself is always accepted as a surface form.
type RegionEntry struct {
	Code    string   `yaml:"code" json:"code"`
	Aliases []string `yaml:"aliases" json:"aliases"`
}

// StockGroupRules derives the stock group of a category from its name.
type StockGroupRules struct {
	Rules   []StockGroupRule `yaml:"rules" json:"rules"`
	Default string           `yaml:"default" json:"default"`
}

// StockGroupRule assigns Group to every category whose name starts with Prefix.
type StockGroupRule struct {
	Prefix string `yaml:"prefix" json:"prefix"`
	Group  string `yaml:"group" json:"group"`
}

// =============================================================================
// DEFAULT TABLES
// =============================================================================

// DefaultFields is the positional order of the metric fields in the report.
var DefaultFields = []string{
	"offered",
	"weight_range",
	"avg_weight",
	"dollar_head_range",
	"avg_dollar_head",
	"dollar_change",
	"c_kg_range",
	"avg_c_kg",
	"c_kg_change",
	"clearance",
}

// DefaultTables returns the tables matching the current report layout.
// Every call returns fresh slices, so callers may modify the result.
func DefaultTables() Tables {
	return Tables{
		Junk: JunkRules{
			Equals: []string{
				"Select Row",
				// Restated column headers.
				"Category",
				"State",
				"Stock Group",
				"Offered",
				"Weight Range",
				"Avg Weight",
				"$/Head Range",
				"Avg $/Head",
				"$ Change",
				"c/kg Range",
				"Avg c/kg",
				"c/kg Change",
				"Clearance",
				// Stock group headings rendered above the category column.
				"Steers",
				"Heifers",
				"Breeding Stock",
			},
			Contains: []string{
				"Scroll",
				"Press Enter",
				"Additional Conditional Formatting",
				"Applied filters",
				"Species is Cattle",
				"Date ",
			},
		},
		Regions: []RegionEntry{
			{Code: NationalRegion, Aliases: []string{"Nat", "Australia"}},
			{Code: "NSW", Aliases: []string{"New South Wales"}},
			{Code: "QLD", Aliases: []string{"Qld", "Queensland"}},
			{Code: "VIC", Aliases: []string{"Vic", "Victoria"}},
			{Code: "SA", Aliases: []string{"South Australia"}},
			{Code: "TAS", Aliases: []string{"Tas", "Tasmania"}},
			{Code: "WA", Aliases: []string{"Western Australia"}},
			{Code: "NT", Aliases: []string{"Northern Territory"}},
		},
		Categories: []string{
			"Steers 0-200kg",
			"Steers 200.1-280kg",
			"Steers 280.1-330kg",
			"Steers 330.1-400kg",
			"Steers 400kg +",
			"Heifers 0-200kg",
			"Heifers 200.1-280kg",
			"Heifers 280.1-330kg",
			"Heifers 330.1-400kg",
			"Heifers 400kg +",
			"Mixed Sex Weaners",
			"Cows",
			"Bulls",
			"PTIC Cows",
			"PTIC Heifers",
			"NSM Cows",
			"NSM Heifers",
			"Joined Cows",
			"Unjoined Heifers",
			"Cows & Calves",
			"PTIC Cows & Calves",
			"Heifers & Calves",
		},
		StockGroups: StockGroupRules{
			Rules: []StockGroupRule{
				{Prefix: "Steers", Group: "Steers"},
				{Prefix: "Heifers", Group: "Heifers"},
			},
			Default: "Breeding Stock",
		},
		Fields: append([]string(nil), DefaultFields...),
	}
}

// =============================================================================
// TABLE LOADING
// =============================================================================

// TablesReader decodes a single tables file.
type TablesReader func(path string) (Tables, error)

// tablesReaders maps a lower-case file extension to its decoder.
var tablesReaders = map[string]TablesReader{
	".yaml":  readYAMLTables,
	".yml":   readYAMLTables,
	".json":  readJSON5Tables,
	".json5": readJSON5Tables,
}

// RegisterTablesReader adds a decoder for another tables file format.
// It is meant to be called from init functions.
func RegisterTablesReader(ext string, reader TablesReader) {
	tablesReaders[strings.ToLower(ext)] = reader
}

// LoadTables returns the default tables overlaid with the tables file at
// path and its optional "<name>.local.<ext>" sibling. An empty path returns
// the defaults. The result is validated before it is returned.
func LoadTables(path string) (Tables, error) {
	tables := DefaultTables()
	if path == "" {
		return tables, tables.Validate()
	}

	override, err := ReadTablesFile(path)
	if err != nil {
		return Tables{}, err
	}
	if err := MergeTables(&tables, override); err != nil {
		return Tables{}, err
	}

	localPath := LocalPath(path)
	if _, err := os.Stat(localPath); err == nil {
		local, err := ReadTablesFile(localPath)
		if err != nil {
			return Tables{}, err
		}
		if err := MergeTables(&tables, local); err != nil {
			return Tables{}, err
		}
		slog.Info("merging tables with local overrides", "local", localPath)
	}

	if err := tables.Validate(); err != nil {
		return Tables{}, fmt.Errorf("invalid tables in %s: %w", path, err)
	}
	return tables, nil
}

// ReadTablesFile decodes one tables file, choosing the decoder by extension.
func ReadTablesFile(path string) (Tables, error) {
	ext := strings.ToLower(filepath.Ext(path))
	reader, ok := tablesReaders[ext]
	if !ok {
		return Tables{}, fmt.Errorf("unsupported tables file format %q", ext)
	}
	tables, err := reader(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to load tables from %s: %w", path, err)
	}
	return tables, nil
}

// MergeTables overlays every table that override sets onto dst.
func MergeTables(dst *Tables, override Tables) error {
	if err := mergo.Merge(dst, override, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge tables: %w", err)
	}
	return nil
}

// LocalPath returns the "<name>.local.<ext>" sibling of path.
func LocalPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

func readYAMLTables(path string) (Tables, error) {
	var tables Tables
	data, err := os.ReadFile(path)
	if err != nil {
		return tables, err
	}
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return tables, err
	}
	return tables, nil
}

func readJSON5Tables(path string) (Tables, error) {
	var tables Tables
	data, err := os.ReadFile(path)
	if err != nil {
		return tables, err
	}
	if err := json5.Unmarshal(data, &tables); err != nil {
		return tables, err
	}
	return tables, nil
}

// =============================================================================
// TABLE VALIDATION
// =============================================================================

// Validate reports every inconsistency in the tables at once.
func (t Tables) Validate() error {
	var errs []error

	if len(t.Fields) == 0 {
		errs = append(errs, errors.New("fields: at least one field is required"))
	}
	seenFields := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		switch {
		case strings.TrimSpace(f) == "":
			errs = append(errs, errors.New("fields: empty field name"))
		case f == "category" || f == "stock_group":
			errs = append(errs, fmt.Errorf("fields: %q is reserved", f))
		case seenFields[f]:
			errs = append(errs, fmt.Errorf("fields: duplicate field %q", f))
		}
		seenFields[f] = true
	}

	aliases := t.RegionAliases()
	hasNational := false
	seenCodes := make(map[string]bool, len(t.Regions))
	owner := make(map[string]string)
	for _, r := range t.Regions {
		if strings.TrimSpace(r.Code) == "" {
			errs = append(errs, errors.New("regions: empty region code"))
			continue
		}
		if seenCodes[r.Code] {
			errs = append(errs, fmt.Errorf("regions: duplicate region code %q", r.Code))
		}
		seenCodes[r.Code] = true
		if r.Code == NationalRegion {
			hasNational = true
		}
		for _, a := range append([]string{r.Code}, r.Aliases...) {
			key := strings.ToLower(a)
			if prev, ok := owner[key]; ok && prev != r.Code {
				errs = append(errs, fmt.Errorf("regions: alias %q maps to both %q and %q", a, prev, r.Code))
			}
			owner[key] = r.Code
		}
	}
	if !hasNational {
		errs = append(errs, fmt.Errorf("regions: the %q region is required", NationalRegion))
	}

	if len(t.Categories) == 0 {
		errs = append(errs, errors.New("categories: at least one category is required"))
	}
	seenCategories := make(map[string]bool, len(t.Categories))
	for _, c := range t.Categories {
		if strings.TrimSpace(c) == "" {
			errs = append(errs, errors.New("categories: empty category name"))
			continue
		}
		if seenCategories[c] {
			errs = append(errs, fmt.Errorf("categories: duplicate category %q", c))
		}
		seenCategories[c] = true
		if code, ok := aliases[strings.ToLower(c)]; ok {
			errs = append(errs, fmt.Errorf("categories: %q is also a label of region %q", c, code))
		}
	}

	if strings.TrimSpace(t.StockGroups.Default) == "" {
		errs = append(errs, errors.New("stock_groups: default group is required"))
	}
	for _, rule := range t.StockGroups.Rules {
		if rule.Prefix == "" || rule.Group == "" {
			errs = append(errs, errors.New("stock_groups: rules need both prefix and group"))
		}
	}

	for _, e := range t.Junk.Contains {
		if e == "" {
			errs = append(errs, errors.New("junk: empty contains entry would match every line"))
		}
	}

	return errors.Join(errs...)
}

// RegionAliases returns the lower-cased surface form -> canonical code index.
func (t Tables) RegionAliases() map[string]string {
	index := make(map[string]string)
	for _, r := range t.Regions {
		if r.Code == "" {
			continue
		}
		index[strings.ToLower(r.Code)] = r.Code
		for _, a := range r.Aliases {
			index[strings.ToLower(a)] = r.Code
		}
	}
	return index
}

// RegionCodes returns the canonical codes in table order.
func (t Tables) RegionCodes() []string {
	codes := make([]string, 0, len(t.Regions))
	for _, r := range t.Regions {
		codes = append(codes, r.Code)
	}
	return codes
}

// SortedAliases returns the surface forms of code, sorted, for display.
func (t Tables) SortedAliases(code string) []string {
	for _, r := range t.Regions {
		if r.Code == code {
			out := append([]string(nil), r.Aliases...)
			sort.Strings(out)
			return out
		}
	}
	return nil
}
