package dataset

import (
	"sort"
	"strings"
)

// MergeOptions selects the join policy.
type MergeOptions struct {
	// ByYear joins on (code, year). When false the join is on code alone and
	// every life expectancy row of a country matches every GDP row of it.
	ByYear bool
	// DropCodePrefixes excludes codes with any of these prefixes, in addition
	// to rows without a code.
	DropCodePrefixes []string
}

// MergeStats counts rows at each filter of the merge.
type MergeStats struct {
	GDPRows  int
	LifeRows int
	// GDPAggregates and LifeAggregates count rows dropped for a null or
	// excluded code before the join.
	GDPAggregates  int
	LifeAggregates int
	// UnmatchedGDP counts GDP rows with no life expectancy row for their key.
	UnmatchedGDP int
	// DroppedNull counts joined rows discarded because a field was null.
	DroppedNull int
	Merged      int
}

type joinKey struct {
	code string
	year int
}

// Merge inner-joins the GDP and life expectancy tables.
//
// Rows without a code (aggregate regions such as "World") are removed from
// both sides first. Each GDP row is paired with every life expectancy row
// sharing its key, in input order, so one GDP row may yield several records
// when the life table repeats a key. Under ByYear a row with a null year has
// no key and cannot match. Joined rows with any null field are dropped. The
// result is sorted by (code, year) ascending; ties keep join order.
//
// country comes from the GDP table.
func Merge(gdp, life []SourceRecord, opt MergeOptions) ([]MergedRecord, MergeStats) {
	stats := MergeStats{GDPRows: len(gdp), LifeRows: len(life)}

	keep := func(code string) bool {
		if code == "" {
			return false
		}
		for _, p := range opt.DropCodePrefixes {
			if p != "" && strings.HasPrefix(code, p) {
				return false
			}
		}
		return true
	}

	keyOf := func(r SourceRecord) (joinKey, bool) {
		if !opt.ByYear {
			return joinKey{code: r.Code}, true
		}
		if r.Year == nil {
			return joinKey{}, false
		}
		return joinKey{code: r.Code, year: *r.Year}, true
	}

	index := make(map[joinKey][]int, len(life))
	for i, r := range life {
		if !keep(r.Code) {
			stats.LifeAggregates++
			continue
		}
		k, ok := keyOf(r)
		if !ok {
			continue
		}
		index[k] = append(index[k], i)
	}

	out := make([]MergedRecord, 0, len(gdp))
	for _, g := range gdp {
		if !keep(g.Code) {
			stats.GDPAggregates++
			continue
		}
		k, ok := keyOf(g)
		matches := index[k]
		if !ok || len(matches) == 0 {
			stats.UnmatchedGDP++
			continue
		}
		for _, li := range matches {
			rec, ok := combine(g, life[li])
			if !ok {
				stats.DroppedNull++
				continue
			}
			out = append(out, rec)
		}
	}

	SortRecords(out)
	stats.Merged = len(out)
	return out, stats
}

// combine builds a MergedRecord, reporting false if any field is null.
func combine(g, l SourceRecord) (MergedRecord, bool) {
	if g.Country == "" || g.Code == "" || g.Year == nil || g.Value == nil || l.Value == nil {
		return MergedRecord{}, false
	}
	return MergedRecord{
		Country:        g.Country,
		Code:           g.Code,
		Year:           *g.Year,
		GDP:            *g.Value,
		LifeExpectancy: *l.Value,
	}, true
}

// SortRecords orders records by (code, year) ascending, stably.
func SortRecords(recs []MergedRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Code != recs[j].Code {
			return recs[i].Code < recs[j].Code
		}
		return recs[i].Year < recs[j].Year
	})
}
