// =============================================================================
// Cattle Text - Post-Parse Report
// =============================================================================
//
// The parser never fails on malformed content; it degrades to null fields
// and missing regions instead. This module turns that silent degradation
// into something a person can act on:
//
//   | Check                            | Severity | Meaning                    |
//   |----------------------------------|----------|----------------------------|
//   | canonical region with no records | warning  | likely extraction/layout   |
//   |                                  |          | regression upstream        |
//   | record with null fields          | info     | short row in the source    |
//
// Issues are collected, never returned as errors. The host decides what to
// do with them (log, print, fail a CI job).
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/mcmanusm/cattle-text/internal/config"
	"github.com/mcmanusm/cattle-text/internal/types"
)

// Issue severities.
const (
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// =============================================================================
// ISSUE TYPES
// =============================================================================

// Issue is one finding about a parsed dataset.
type Issue struct {
	// Severity is SeverityWarning or SeverityInfo.
	Severity string

	// Region is the canonical region code the issue concerns.
	Region string

	// Category is the record's category, empty for region-level issues.
	Category string

	// Fields lists the null fields of an incomplete record.
	Fields []string

	// Message is a human-readable description.
	Message string
}

// String formats the issue on one line.
func (i *Issue) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(i.Severity), i.Region)
	if i.Category != "" {
		fmt.Fprintf(&b, " / %s", i.Category)
	}
	fmt.Fprintf(&b, ": %s", i.Message)
	return b.String()
}

// =============================================================================
// REPORT
// =============================================================================

// RegionCount is the number of records parsed for one region.
type RegionCount struct {
	Region string
	Count  int
}

// Report summarizes one parsed dataset.
type Report struct {
	// National is the number of national records.
	National int

	// States lists the per-state record counts in output order.
	States []RegionCount

	// TotalCategories is the number of records across all regions.
	TotalCategories int

	// EmptyRegions lists canonical regions that produced no records,
	// National included.
	EmptyRegions []string

	// IncompleteRecords counts records with at least one null field.
	IncompleteRecords int

	// Issues holds every finding, warnings first.
	Issues []*Issue
}

// RegionSet is the part of the classifier the report needs.
type RegionSet interface {
	Regions() []string
}

// Build inspects a dataset against the canonical region set.
//
// PARAMETERS:
//   - ds: The parsed dataset.
//   - regions: The canonical regions, in the order empty ones are reported.
//
// RETURNS:
//   - The report. Never nil.
func Build(ds *types.Dataset, regions RegionSet) *Report {
	report := &Report{}
	if ds == nil {
		ds = &types.Dataset{}
	}

	report.National = len(ds.National)
	seen := map[string]int{}
	if len(ds.National) > 0 {
		seen[config.NationalRegion] = len(ds.National)
	}
	for _, s := range ds.States {
		report.States = append(report.States, RegionCount{Region: s.State, Count: len(s.Categories)})
		seen[s.State] += len(s.Categories)
	}
	report.TotalCategories = ds.RecordCount()

	for _, code := range regions.Regions() {
		if seen[code] > 0 {
			continue
		}
		report.EmptyRegions = append(report.EmptyRegions, code)
		report.Issues = append(report.Issues, &Issue{
			Severity: SeverityWarning,
			Region:   code,
			Message:  "no categories parsed for this region",
		})
	}

	addIncomplete := func(region string, records []types.MetricRecord) {
		for _, r := range records {
			nulls := r.NullFields()
			if len(nulls) == 0 {
				continue
			}
			report.IncompleteRecords++
			report.Issues = append(report.Issues, &Issue{
				Severity: SeverityInfo,
				Region:   region,
				Category: r.Category,
				Fields:   nulls,
				Message:  fmt.Sprintf("incomplete record, null fields: %s", strings.Join(nulls, ", ")),
			})
		}
	}
	addIncomplete(config.NationalRegion, ds.National)
	for _, s := range ds.States {
		addIncomplete(s.State, s.Categories)
	}

	return report
}

// Warnings returns the issues with warning severity.
func (r *Report) Warnings() []*Issue {
	var out []*Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			out = append(out, i)
		}
	}
	return out
}

// FormatIssues formats issues for display or logging.
//
// PARAMETERS:
//   - issues: The issues to format.
//
// RETURNS:
//   - A formatted string listing every issue.
func FormatIssues(issues []*Issue) string {
	if len(issues) == 0 {
		return "No issues."
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Parse completed with %d issue(s):\n\n", len(issues))
	for i, issue := range issues {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, issue)
	}
	return builder.String()
}
