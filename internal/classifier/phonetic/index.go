package phonetic

import "github.com/hjonck/leadscout-sub002/internal/domain"

// candidate is one dictionary name sharing a phonetic key with a query.
type candidate struct {
	name      string
	ethnicity domain.Ethnicity
}

// Index is the derived PhoneticIndex: per algorithm, a phonetic key maps
// to the set of dictionary (name, ethnicity) pairs sharing that key.
// Reconstructible deterministically from a NameDictionary + the fixed
// algorithm set (spec.md §3).
type Index struct {
	byAlgo map[domain.PhoneticAlgorithm]map[string][]candidate
}

// BuildIndex derives an Index from the resolved dictionary entries.
func BuildIndex(entries []domain.NameDictEntry) *Index {
	idx := &Index{byAlgo: make(map[domain.PhoneticAlgorithm]map[string][]candidate)}
	for _, algo := range domain.AllPhoneticAlgorithms() {
		table := make(map[string][]candidate, len(entries))
		for _, e := range entries {
			key := Key(algo, e.NormalizedName)
			if key == "" {
				continue
			}
			table[key] = append(table[key], candidate{name: e.NormalizedName, ethnicity: e.Ethnicity})
		}
		idx.byAlgo[algo] = table
	}
	return idx
}

// Lookup returns the candidates sharing phonetic key for the given algorithm.
func (idx *Index) Lookup(algo domain.PhoneticAlgorithm, key string) []candidate {
	return idx.byAlgo[algo][key]
}

// Size returns the number of distinct phonetic keys stored for an algorithm,
// used by Stats().
func (idx *Index) Size(algo domain.PhoneticAlgorithm) int {
	return len(idx.byAlgo[algo])
}
