package classifier

import (
	"testing"

	"github.com/mcmanusm/cattle-text/internal/config"
	"github.com/stretchr/testify/require"
)

func newDefault() *Classifier {
	return New(config.DefaultTables())
}

func TestStripCount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "National 50", want: "National"},
		{in: "NSW  7", want: "NSW"},
		{in: "Steers 0-200kg 12", want: "Steers 0-200kg"},
		{in: "National", want: "National"},
		{in: "120", want: "120"},
		{in: "Steers 400kg +", want: "Steers 400kg +"},
		{in: "Cows 12a", want: "Cows 12a"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			require.Equal(t, tc.want, StripCount(tc.in))
		})
	}
}

func TestClassify(t *testing.T) {
	c := newDefault()

	tests := []struct {
		line string
		want Label
	}{
		{line: "National", want: Label{Kind: Region, Value: "National"}},
		{line: "National 50", want: Label{Kind: Region, Value: "National"}},
		{line: "NSW", want: Label{Kind: Region, Value: "NSW"}},
		{line: "New South Wales", want: Label{Kind: Region, Value: "NSW"}},
		{line: "tasmania", want: Label{Kind: Region, Value: "TAS"}},
		{line: "Steers 0-200kg", want: Label{Kind: Category, Value: "Steers 0-200kg"}},
		{line: "PTIC Cows & Calves 3", want: Label{Kind: Category, Value: "PTIC Cows & Calves"}},
		{line: "Heifers 400kg +", want: Label{Kind: Category, Value: "Heifers 400kg +"}},
		// Near misses stay data.
		{line: "steers 0-200kg", want: Label{Kind: Data, Value: "steers 0-200kg"}},
		{line: "Steers 0-200kg avg", want: Label{Kind: Data, Value: "Steers 0-200kg avg"}},
		{line: "Steers", want: Label{Kind: Data, Value: "Steers"}},
		{line: "Victorian", want: Label{Kind: Data, Value: "Victorian"}},
		{line: "$900", want: Label{Kind: Data, Value: "$900"}},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			require.Equal(t, tc.want, c.Classify(tc.line))
		})
	}
}

func TestClassifySurfaceFormsAgree(t *testing.T) {
	c := newDefault()

	for _, line := range []string{"Vic", "VIC", "Victoria", "victoria 12"} {
		require.Equal(t, Label{Kind: Region, Value: "VIC"}, c.Classify(line), line)
	}
}

func TestStockGroup(t *testing.T) {
	c := newDefault()

	require.Equal(t, "Steers", c.StockGroup("Steers 330.1-400kg"))
	require.Equal(t, "Heifers", c.StockGroup("Heifers & Calves"))
	require.Equal(t, "Breeding Stock", c.StockGroup("PTIC Heifers"))
	require.Equal(t, "Breeding Stock", c.StockGroup("Mixed Sex Weaners"))
}

func TestRegions(t *testing.T) {
	c := newDefault()

	require.Equal(t, []string{"National", "NSW", "QLD", "VIC", "SA", "TAS", "WA", "NT"}, c.Regions())
}

func TestCustomTables(t *testing.T) {
	tables := config.DefaultTables()
	tables.Categories = append(tables.Categories, "Vealers")
	tables.Regions = append(tables.Regions, config.RegionEntry{Code: "ACT", Aliases: []string{"Canberra"}})

	c := New(tables)

	require.Equal(t, Label{Kind: Category, Value: "Vealers"}, c.Classify("Vealers"))
	require.Equal(t, Label{Kind: Region, Value: "ACT"}, c.Classify("canberra"))
}

func TestTableEntriesAreCleaned(t *testing.T) {
	tables := config.DefaultTables()
	tables.Categories = []string{"Steers 0–200kg", "Cows\u00a0&\u00a0Calves"}
	tables.Regions = append(tables.Regions, config.RegionEntry{Code: "ACT", Aliases: []string{"  Australian   Capital Territory "}})
	tables.StockGroups.Rules = []config.StockGroupRule{{Prefix: "Steers\u00a0", Group: "Steers"}}

	c := New(tables)

	require.Equal(t, Label{Kind: Category, Value: "Steers 0-200kg"}, c.Classify("Steers 0-200kg"))
	require.Equal(t, Label{Kind: Category, Value: "Cows & Calves"}, c.Classify("Cows & Calves"))
	require.Equal(t, Label{Kind: Region, Value: "ACT"}, c.Classify("Australian Capital Territory"))
	require.Equal(t, "Steers", c.StockGroup("Steers 0-200kg"))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "region", Region.String())
	require.Equal(t, "category", Category.String())
	require.Equal(t, "data", Data.String())
}
