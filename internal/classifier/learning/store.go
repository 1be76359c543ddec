// Package learning implements the cascade's learning tier: a persisted
// cache of confirmed classifications plus patterns generalized from them.
package learning

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/hjonck/leadscout-sub002/internal/classifier/phonetic"
	"github.com/hjonck/leadscout-sub002/internal/domain"
)

// ngramSizes are the prefix/suffix window lengths patterns are derived at,
// per spec.md §4.4.
var ngramSizes = []int{3, 4, 5}

const (
	minPatternShare  = 0.65
	minPatternWeight = 1.5
	confidenceFloor  = 0.6
	confidenceSlope  = 0.3
	confidenceCeiling = 0.88
	exactConfidenceCeiling = 0.95
)

// Repo is the persistence boundary the Store drives; implemented against
// SQLite in internal/adapter/sqlite/learning.
type Repo interface {
	GetExact(ctx context.Context, normalizedName string) (*domain.LearnedClassification, error)
	UpsertExact(ctx context.Context, lc domain.LearnedClassification) error
	GetPatterns(ctx context.Context, kind domain.PatternKind, values []string) ([]domain.LearnedPattern, error)
	IncrementPattern(ctx context.Context, kind domain.PatternKind, value string, ethnicity domain.Ethnicity) error
	RecalculatePatternConfidence(ctx context.Context, kind domain.PatternKind, value string, minSupport int, minConfidence float64) error
	// RunInTx runs fn with a single underlying transaction bound to the
	// returned context, so every Repo call fn makes through that context
	// is serialized against concurrent readers and writers. Per spec.md
	// §4.4, a single classification's full read-then-write sequence must
	// commit (or roll back) atomically.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store is the cascade's learning tier.
type Store struct {
	repo          Repo
	minSupport    int
	minConfidence float64
}

// New constructs a Store over repo using the given pattern-activation
// thresholds (spec.md §6 configuration options).
func New(repo Repo, minSupport int, minConfidence float64) *Store {
	return &Store{repo: repo, minSupport: minSupport, minConfidence: minConfidence}
}

// Lookup implements spec.md §4.4's lookup algorithm: exact hit first,
// then a weighted aggregate over active patterns.
func (s *Store) Lookup(ctx context.Context, normalized string) (domain.Classification, bool, error) {
	start := time.Now()

	var result domain.Classification
	var hit bool

	err := s.repo.RunInTx(ctx, func(ctx context.Context) error {
		exact, err := s.repo.GetExact(ctx, normalized)
		if err != nil {
			return err
		}
		if exact != nil {
			confidence := exact.Confidence
			if confidence > exactConfidenceCeiling {
				confidence = exactConfidenceCeiling
			}
			result = domain.Classification{
				NormalizedName:   normalized,
				Ethnicity:        exact.Ethnicity,
				Confidence:       confidence,
				Method:           domain.MethodCache,
				ProcessingTimeMs: elapsedMs(start),
			}
			hit = true
			return nil
		}

		candidates, err := s.candidatePatterns(ctx, normalized)
		if err != nil {
			return err
		}

		weightByEthnicity := make(map[domain.Ethnicity]float64)
		var total float64
		for _, p := range candidates {
			if !p.IsActive(s.minSupport, s.minConfidence) {
				continue
			}
			w := float64(p.SupportCount) * p.Confidence
			weightByEthnicity[p.Ethnicity] += w
			total += w
		}
		if total == 0 {
			return nil
		}

		winner, winnerWeight := argmax(weightByEthnicity)
		share := winnerWeight / total
		if share < minPatternShare || winnerWeight < minPatternWeight {
			return nil
		}

		confidence := confidenceFloor + confidenceSlope*share
		if confidence > confidenceCeiling {
			confidence = confidenceCeiling
		}

		result = domain.Classification{
			NormalizedName:   normalized,
			Ethnicity:        winner,
			Confidence:       confidence,
			Method:           domain.MethodLearned,
			ProcessingTimeMs: elapsedMs(start),
		}
		hit = true
		return nil
	})
	if err != nil {
		return domain.Classification{}, false, err
	}
	return result, hit, nil
}

// candidatePatterns gathers every pattern row that could vote on normalized:
// phonetic-key and full-phonetic-family patterns from the fixed algorithm
// set, plus prefix/suffix n-gram patterns.
func (s *Store) candidatePatterns(ctx context.Context, normalized string) ([]domain.LearnedPattern, error) {
	var out []domain.LearnedPattern

	phoneticKeys := derivePhoneticKeys(normalized)
	if rows, err := s.repo.GetPatterns(ctx, domain.PatternKindPhoneticKey, phoneticKeys); err != nil {
		return nil, err
	} else {
		out = append(out, rows...)
	}

	family := []string{phoneticFamily(normalized)}
	if rows, err := s.repo.GetPatterns(ctx, domain.PatternKindFullPhoneticFam, family); err != nil {
		return nil, err
	} else {
		out = append(out, rows...)
	}

	prefixes, suffixes := deriveNGrams(normalized)
	if rows, err := s.repo.GetPatterns(ctx, domain.PatternKindPrefixNGram, prefixes); err != nil {
		return nil, err
	} else {
		out = append(out, rows...)
	}
	if rows, err := s.repo.GetPatterns(ctx, domain.PatternKindSuffixNGram, suffixes); err != nil {
		return nil, err
	} else {
		out = append(out, rows...)
	}

	return out, nil
}

// Store persists a confirmed classification, per the upsert rule (a
// higher-or-equal confidence result wins), and derives/upserts its
// patterns.
func (s *Store) Store(ctx context.Context, lc domain.LearnedClassification) error {
	return s.repo.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetExact(ctx, lc.NormalizedName)
		if err != nil {
			return err
		}
		if existing == nil || lc.Confidence >= existing.Confidence {
			if err := s.repo.UpsertExact(ctx, lc); err != nil {
				return err
			}
		}

		for _, key := range derivePhoneticKeys(lc.NormalizedName) {
			if err := s.upsertPattern(ctx, domain.PatternKindPhoneticKey, key, lc.Ethnicity); err != nil {
				return err
			}
		}
		if err := s.upsertPattern(ctx, domain.PatternKindFullPhoneticFam, phoneticFamily(lc.NormalizedName), lc.Ethnicity); err != nil {
			return err
		}
		prefixes, suffixes := deriveNGrams(lc.NormalizedName)
		for _, p := range prefixes {
			if err := s.upsertPattern(ctx, domain.PatternKindPrefixNGram, p, lc.Ethnicity); err != nil {
				return err
			}
		}
		for _, sfx := range suffixes {
			if err := s.upsertPattern(ctx, domain.PatternKindSuffixNGram, sfx, lc.Ethnicity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) upsertPattern(ctx context.Context, kind domain.PatternKind, value string, ethnicity domain.Ethnicity) error {
	if value == "" {
		return nil
	}
	if err := s.repo.IncrementPattern(ctx, kind, value, ethnicity); err != nil {
		return err
	}
	return s.repo.RecalculatePatternConfidence(ctx, kind, value, s.minSupport, s.minConfidence)
}

func derivePhoneticKeys(normalized string) []string {
	keys := make([]string, 0, len(domain.AllPhoneticAlgorithms()))
	for _, algo := range domain.AllPhoneticAlgorithms() {
		if key := phonetic.Key(algo, normalized); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func phoneticFamily(normalized string) string {
	keys := derivePhoneticKeys(normalized)
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

func deriveNGrams(normalized string) (prefixes, suffixes []string) {
	joined := strings.ReplaceAll(normalized, " ", "")
	for _, n := range ngramSizes {
		if len(joined) >= n {
			prefixes = append(prefixes, joined[:n])
			suffixes = append(suffixes, joined[len(joined)-n:])
		}
	}
	return prefixes, suffixes
}

func argmax(weights map[domain.Ethnicity]float64) (domain.Ethnicity, float64) {
	var winner domain.Ethnicity
	best := -1.0
	for e, w := range weights {
		if w > best {
			best = w
			winner = e
		}
	}
	return winner, best
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
