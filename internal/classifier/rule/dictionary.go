// Package rule implements the cascade's first tier: exact lookup against
// a static, in-memory NameDictionary.
package rule

import (
	"fmt"
	"sort"

	"github.com/hjonck/leadscout-sub002/internal/domain"
)

// Dictionary is the loaded, immutable NameDictionary: a normalized name
// maps to exactly one ethnicity, duplicates resolved at load time by
// priority (spec.md §3).
type Dictionary struct {
	entries map[string]domain.NameDictEntry
}

// Entry is one raw row fed to NewDictionary before priority resolution.
type Entry struct {
	NormalizedName string
	Ethnicity      domain.Ethnicity
	Priority       int
	ConfidenceBase float64
}

// NewDictionary builds a Dictionary from raw entries, resolving
// duplicate normalized names by highest priority (ties keep the first
// entry seen, matching a stable sort).
func NewDictionary(entries []Entry) (*Dictionary, error) {
	byName := make(map[string][]Entry, len(entries))
	for _, e := range entries {
		if e.NormalizedName == "" {
			return nil, fmt.Errorf("rule: entry with empty normalized name")
		}
		if !e.Ethnicity.IsValid() {
			return nil, fmt.Errorf("rule: entry %q has invalid ethnicity %q", e.NormalizedName, e.Ethnicity)
		}
		byName[e.NormalizedName] = append(byName[e.NormalizedName], e)
	}

	resolved := make(map[string]domain.NameDictEntry, len(byName))
	for name, group := range byName {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Priority > group[j].Priority
		})
		winner := group[0]
		resolved[name] = domain.NameDictEntry{
			NormalizedName: winner.NormalizedName,
			Ethnicity:      winner.Ethnicity,
			Priority:       winner.Priority,
			ConfidenceBase: winner.ConfidenceBase,
		}
	}
	return &Dictionary{entries: resolved}, nil
}

// Lookup returns the dictionary entry for an exact normalized name, if any.
func (d *Dictionary) Lookup(normalized string) (domain.NameDictEntry, bool) {
	e, ok := d.entries[normalized]
	return e, ok
}

// Len returns the number of distinct normalized names in the dictionary.
func (d *Dictionary) Len() int { return len(d.entries) }

// All returns every resolved entry, for derived-index construction
// (the phonetic classifier builds its PhoneticIndex from this).
func (d *Dictionary) All() []domain.NameDictEntry {
	out := make([]domain.NameDictEntry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e)
	}
	return out
}
