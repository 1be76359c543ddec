package rule

import (
	"time"

	"github.com/hjonck/leadscout-sub002/internal/domain"
)

// Classifier is the cascade's rule tier: fast, exact dictionary lookups
// with no phonetic or learned fallback.
type Classifier struct {
	dict *Dictionary
}

// New constructs a rule Classifier over an already-loaded Dictionary.
func New(dict *Dictionary) *Classifier {
	return &Classifier{dict: dict}
}

// Classify looks up normalized first by its full joined form, then by
// each individual token, per spec.md §4.2. It returns false when no
// token matches anything in the dictionary.
func (c *Classifier) Classify(normalized string) (domain.Classification, bool) {
	start := time.Now()

	if entry, ok := c.dict.Lookup(normalized); ok {
		return c.result(normalized, entry, start), true
	}

	tokens := domain.Tokenize(normalized)
	if len(tokens) == 0 {
		return domain.Classification{}, false
	}

	var matches []domain.NameDictEntry
	for _, tok := range tokens {
		if entry, ok := c.dict.Lookup(tok); ok {
			matches = append(matches, entry)
		}
	}
	if len(matches) == 0 {
		return domain.Classification{}, false
	}
	if len(matches) == 1 {
		return c.result(normalized, matches[0], start), true
	}

	winner := resolveSurnamePriority(tokens, matches)
	return c.result(normalized, winner, start), true
}

// resolveSurnamePriority applies the surname-priority rule: the entry
// matching the last name token wins; otherwise the higher dictionary
// priority wins, and on equal priority the earliest match is kept.
func resolveSurnamePriority(tokens []string, matches []domain.NameDictEntry) domain.NameDictEntry {
	lastToken := tokens[len(tokens)-1]

	best := matches[0]
	bestIsSurname := matches[0].NormalizedName == lastToken
	for _, m := range matches[1:] {
		isSurname := m.NormalizedName == lastToken
		switch {
		case isSurname && !bestIsSurname:
			best, bestIsSurname = m, true
		case isSurname == bestIsSurname && m.Priority > best.Priority:
			best = m
		}
	}
	return best
}

func (c *Classifier) result(normalized string, entry domain.NameDictEntry, start time.Time) domain.Classification {
	return domain.Classification{
		NormalizedName:   normalized,
		Ethnicity:        entry.Ethnicity,
		Confidence:       entry.ConfidenceBase,
		Method:           domain.MethodRule,
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

// CoverageStats reports dictionary-wide counts per ethnicity, supplementing
// the spec from original_source/'s RuleClassifier.get_coverage_stats().
type CoverageStats struct {
	TotalNames        int
	EthnicityBreakdown map[domain.Ethnicity]int
}

// CoverageStats computes a CoverageStats snapshot over the loaded dictionary.
func (c *Classifier) CoverageStats() CoverageStats {
	stats := CoverageStats{EthnicityBreakdown: make(map[domain.Ethnicity]int)}
	for _, e := range c.dict.All() {
		stats.TotalNames++
		stats.EthnicityBreakdown[e.Ethnicity]++
	}
	return stats
}
