// Package classifier defines the cascade's shared Mode/threshold
// configuration used by every tier.
package classifier

import (
	"math"

	"github.com/hjonck/leadscout-sub002/internal/domain"
)

// Thresholds gates a cascade tier's confidence, a value in [0,1] below
// which that tier's result is discarded and the cascade falls through
// to the next tier.
type Thresholds struct {
	Rule     float64
	Learning float64
	Phonetic float64
	LLM      float64
}

// defaultThresholds implements the cost_optimized preset from spec.md §4.6.
var defaultThresholds = Thresholds{
	Rule:     0.80,
	Learning: 0.75,
	Phonetic: 0.70,
	LLM:      0.50,
}

// strictBump is added to every threshold in strict mode.
const strictBump = 0.05

// ThresholdsForMode resolves a named Mode to its concrete Thresholds.
// llm_only's tier skipping is handled by the orchestrator, not here;
// its thresholds equal cost_optimized's so that the LLM tier itself
// behaves identically regardless of mode.
func ThresholdsForMode(mode domain.Mode) Thresholds {
	switch mode {
	case domain.ModeStrict:
		// Rounded to two decimals so 0.80+0.05 is exactly 0.85, not
		// 0.8500000000000001.
		bump := func(v float64) float64 { return math.Round((v+strictBump)*100) / 100 }
		t := defaultThresholds
		t.Rule = bump(t.Rule)
		t.Learning = bump(t.Learning)
		t.Phonetic = bump(t.Phonetic)
		t.LLM = bump(t.LLM)
		return t
	case domain.ModeLLMOnly:
		return defaultThresholds
	default:
		return defaultThresholds
	}
}

// SkipsNonLLMTiers reports whether the mode bypasses rule/learning/phonetic
// tiers entirely, per spec.md §4.6.
func SkipsNonLLMTiers(mode domain.Mode) bool {
	return mode == domain.ModeLLMOnly
}
