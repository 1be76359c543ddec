package domain

import "sync"

// SessionStats accumulates per-run counters. It is updated from
// concurrently classified rows within a batch, so all mutation goes
// through its mutex-guarded methods.
type SessionStats struct {
	mu sync.Mutex

	TotalClassifications int
	RuleClassifications  int
	PhoneticClassifications int
	LearnedClassifications int
	CacheClassifications  int
	LLMClassifications   int
	LearningStores        int
	LLMCostUSD            float64
	WallTimeMs            float64
}

// Record folds one Classification's outcome into the running totals.
func (s *SessionStats) Record(c Classification, stored bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.TotalClassifications++
	switch c.Method {
	case MethodRule:
		s.RuleClassifications++
	case MethodPhonetic:
		s.PhoneticClassifications++
	case MethodLearned:
		s.LearnedClassifications++
	case MethodCache:
		s.CacheClassifications++
	case MethodLLM:
		s.LLMClassifications++
	}
	if c.LLMCostUSD != nil {
		s.LLMCostUSD += *c.LLMCostUSD
	}
	if stored {
		s.LearningStores++
	}
	s.WallTimeMs += c.ProcessingTimeMs
}

// Snapshot returns a copy of the current counters safe to read without
// holding the lock further.
func (s *SessionStats) Snapshot() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStats{
		TotalClassifications:    s.TotalClassifications,
		RuleClassifications:     s.RuleClassifications,
		PhoneticClassifications: s.PhoneticClassifications,
		LearnedClassifications:  s.LearnedClassifications,
		CacheClassifications:    s.CacheClassifications,
		LLMClassifications:      s.LLMClassifications,
		LearningStores:          s.LearningStores,
		LLMCostUSD:              s.LLMCostUSD,
		WallTimeMs:              s.WallTimeMs,
	}
}

// LLMUsageRate is the share of classifications that reached the LLM tier.
func (s SessionStats) LLMUsageRate() float64 {
	if s.TotalClassifications == 0 {
		return 0
	}
	return float64(s.LLMClassifications) / float64(s.TotalClassifications)
}

// LearnedHitRate is the share of classifications with the learned or
// cache method: learning-store hits plus repeats served by the
// orchestrator's in-process cache, avoiding an LLM call.
func (s SessionStats) LearnedHitRate() float64 {
	if s.TotalClassifications == 0 {
		return 0
	}
	return float64(s.LearnedClassifications+s.CacheClassifications) / float64(s.TotalClassifications)
}
