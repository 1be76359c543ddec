// Package cascade wires the rule, learning, phonetic, and LLM tiers into
// the single confidence-gated pipeline described in spec.md §4.6.
package cascade

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hjonck/leadscout-sub002/internal/classifier"
	"github.com/hjonck/leadscout-sub002/internal/classifier/learning"
	"github.com/hjonck/leadscout-sub002/internal/classifier/phonetic"
	"github.com/hjonck/leadscout-sub002/internal/classifier/rule"
	"github.com/hjonck/leadscout-sub002/internal/domain"
)

// defaultCacheSize bounds the in-process classification cache: batch
// input files routinely repeat the same director/business name across
// many rows, and re-running the full cascade for a repeat is wasted
// work within a single job (spec.md §4.6's caching note).
const defaultCacheSize = 10000

// LLMGateway is the cascade's view of the LLM tier; satisfied by
// llmgateway.Gateway.
type LLMGateway interface {
	Classify(ctx context.Context, inputName, normalized string) domain.Classification
}

// Orchestrator runs the full rule -> learning -> phonetic -> LLM cascade.
type Orchestrator struct {
	rule     *rule.Classifier
	learning *learning.Store
	phonetic *phonetic.Classifier
	llm      LLMGateway
	mode     domain.Mode
	stats    *domain.SessionStats
	cache    *lru.Cache[string, domain.Classification]
}

// New constructs an Orchestrator over the four tiers for the given Mode,
// fronted by an in-process LRU cache of up to defaultCacheSize distinct
// normalized names. stats accumulates every ClassifyName call's outcome;
// pass a fresh *domain.SessionStats per job.
func New(ruleC *rule.Classifier, learningS *learning.Store, phoneticC *phonetic.Classifier, llm LLMGateway, mode domain.Mode, stats *domain.SessionStats) *Orchestrator {
	cache, _ := lru.New[string, domain.Classification](defaultCacheSize)
	return &Orchestrator{rule: ruleC, learning: learningS, phonetic: phoneticC, llm: llm, mode: mode, stats: stats, cache: cache}
}

// ClassifyName runs raw through the cascade and returns the first tier's
// result that clears its confidence threshold, falling through to the
// next tier otherwise. It never returns a Go error: an unresolvable name
// yields an unknown-ethnicity, zero-confidence Classification. A repeat
// of a previously seen normalized name within this Orchestrator's
// lifetime is served from the in-process cache without re-running any
// tier.
func (o *Orchestrator) ClassifyName(ctx context.Context, raw string) domain.Classification {
	start := time.Now()
	normalized := domain.NormalizeName(raw)

	if o.cache != nil {
		if cached, ok := o.cache.Get(normalized); ok {
			cached.InputName = raw
			cached.Method = domain.MethodCache
			cached.ProcessingTimeMs = elapsedMs(start)
			if o.stats != nil {
				o.stats.Record(cached, false)
			}
			return cached
		}
	}

	thresholds := classifier.ThresholdsForMode(o.mode)

	result, stored := o.classify(ctx, raw, normalized, thresholds)
	result.ProcessingTimeMs = elapsedMs(start)
	if o.cache != nil && normalized != "" {
		o.cache.Add(normalized, result)
	}
	if o.stats != nil {
		o.stats.Record(result, stored)
	}
	return result
}

func (o *Orchestrator) classify(ctx context.Context, raw, normalized string, t classifier.Thresholds) (domain.Classification, bool) {
	if normalized == "" {
		return domain.Unknown(raw, normalized, domain.MethodRule), false
	}

	if !classifier.SkipsNonLLMTiers(o.mode) {
		if c, ok := o.rule.Classify(normalized); ok && c.Confidence >= t.Rule {
			c.InputName = raw
			return c, false
		}

		if o.learning != nil {
			if c, ok, err := o.learning.Lookup(ctx, normalized); err == nil && ok && c.Confidence >= t.Learning {
				c.InputName = raw
				return c, false
			}
		}

		if c, ok := o.phonetic.Classify(normalized); ok && c.Confidence >= t.Phonetic {
			c.InputName = raw
			return c, false
		}
	}

	if o.llm == nil {
		return domain.Unknown(raw, normalized, domain.MethodLLM), false
	}

	c := o.llm.Classify(ctx, raw, normalized)
	if c.Confidence < t.LLM || c.Ethnicity == domain.EthnicityUnknown {
		c.Ethnicity = domain.EthnicityUnknown
		c.Confidence = 0
		return c, false
	}

	stored := false
	if o.learning != nil && c.Error == "" {
		lc := domain.LearnedClassification{
			NormalizedName: normalized,
			Ethnicity:      c.Ethnicity,
			Confidence:     c.Confidence,
			CreatedAt:      time.Now().UTC(),
		}
		if c.LLMCostUSD != nil {
			lc.LLMCostUSD = *c.LLMCostUSD
		}
		if c.LLMTokens != nil {
			lc.Tokens = *c.LLMTokens
		}
		if err := o.learning.Store(ctx, lc); err == nil {
			stored = true
		}
	}

	return c, stored
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
