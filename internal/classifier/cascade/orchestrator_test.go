package cascade

import (
	"context"
	"testing"

	"github.com/hjonck/leadscout-sub002/internal/classifier/learning"
	"github.com/hjonck/leadscout-sub002/internal/classifier/phonetic"
	"github.com/hjonck/leadscout-sub002/internal/classifier/rule"
	"github.com/hjonck/leadscout-sub002/internal/domain"
)

// fakeLLM is a function-field mock matching the teacher's test style.
type fakeLLM struct {
	classifyFn func(ctx context.Context, inputName, normalized string) domain.Classification
	calls      int
}

func (f *fakeLLM) Classify(ctx context.Context, inputName, normalized string) domain.Classification {
	f.calls++
	return f.classifyFn(ctx, inputName, normalized)
}

func emptyRule(t *testing.T) *rule.Classifier {
	t.Helper()
	dict, err := rule.NewDictionary([]rule.Entry{
		{NormalizedName: "thabo mokoena", Ethnicity: domain.EthnicityAfrican, Priority: 1, ConfidenceBase: 0.95},
	})
	if err != nil {
		t.Fatalf("NewDictionary: %v", err)
	}
	return rule.New(dict)
}

func emptyPhonetic() *phonetic.Classifier {
	return phonetic.New(phonetic.BuildIndex(nil))
}

// noRowsRepo is a learning.Repo with nothing stored; used to exercise the
// cascade falling through the learning tier to phonetic/LLM.
type noRowsRepo struct{}

func (noRowsRepo) GetExact(context.Context, string) (*domain.LearnedClassification, error) {
	return nil, nil
}
func (noRowsRepo) UpsertExact(context.Context, domain.LearnedClassification) error { return nil }
func (noRowsRepo) GetPatterns(context.Context, domain.PatternKind, []string) ([]domain.LearnedPattern, error) {
	return nil, nil
}
func (noRowsRepo) IncrementPattern(context.Context, domain.PatternKind, string, domain.Ethnicity) error {
	return nil
}
func (noRowsRepo) RecalculatePatternConfidence(context.Context, domain.PatternKind, string, int, float64) error {
	return nil
}
func (noRowsRepo) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// memRepo is a minimal stateful learning.Repo (exact-match storage only)
// used to exercise the learning tier across multiple Orchestrator
// instances, e.g. a "warm" second run reusing a populated store.
type memRepo struct {
	exact map[string]domain.LearnedClassification
}

func newMemRepo() *memRepo {
	return &memRepo{exact: make(map[string]domain.LearnedClassification)}
}

func (r *memRepo) GetExact(_ context.Context, normalizedName string) (*domain.LearnedClassification, error) {
	if lc, ok := r.exact[normalizedName]; ok {
		return &lc, nil
	}
	return nil, nil
}

func (r *memRepo) UpsertExact(_ context.Context, lc domain.LearnedClassification) error {
	r.exact[lc.NormalizedName] = lc
	return nil
}

func (r *memRepo) GetPatterns(context.Context, domain.PatternKind, []string) ([]domain.LearnedPattern, error) {
	return nil, nil
}

func (r *memRepo) IncrementPattern(context.Context, domain.PatternKind, string, domain.Ethnicity) error {
	return nil
}

func (r *memRepo) RecalculatePatternConfidence(context.Context, domain.PatternKind, string, int, float64) error {
	return nil
}

func (r *memRepo) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func TestOrchestrator_HundredRowBatch_OneLLMCallPerDistinctName(t *testing.T) {
	t.Parallel()

	names := []string{"Pillay Govender", "Naidoo Reddy", "Khumalo Dlamini"}
	callsPerName := make(map[string]int)
	llm := &fakeLLM{classifyFn: func(_ context.Context, inputName, normalized string) domain.Classification {
		callsPerName[normalized]++
		return domain.Classification{InputName: inputName, NormalizedName: normalized, Ethnicity: domain.EthnicityIndian, Confidence: 0.9, Method: domain.MethodLLM}
	}}

	store := learning.New(newMemRepo(), domain.DefaultMinSupport, domain.DefaultMinPatternConfidence)
	o := New(emptyRule(t), store, emptyPhonetic(), llm, domain.ModeCostOptimized, &domain.SessionStats{})

	for i := 0; i < 100; i++ {
		o.ClassifyName(context.Background(), names[i%len(names)])
	}

	if llm.calls != len(names) {
		t.Errorf("llm.calls = %d, want %d (one per distinct name across 100 rows)", llm.calls, len(names))
	}
	for _, n := range names {
		if got := callsPerName[domain.NormalizeName(n)]; got != 1 {
			t.Errorf("callsPerName[%q] = %d, want 1", n, got)
		}
	}
}

func TestOrchestrator_WarmStoreRerun_MakesZeroLLMCalls(t *testing.T) {
	t.Parallel()

	names := []string{"Pillay Govender", "Naidoo Reddy", "Khumalo Dlamini"}
	repo := newMemRepo()

	firstLLM := &fakeLLM{classifyFn: func(_ context.Context, inputName, normalized string) domain.Classification {
		return domain.Classification{InputName: inputName, NormalizedName: normalized, Ethnicity: domain.EthnicityIndian, Confidence: 0.9, Method: domain.MethodLLM}
	}}
	first := New(emptyRule(t), learning.New(repo, domain.DefaultMinSupport, domain.DefaultMinPatternConfidence), emptyPhonetic(), firstLLM, domain.ModeCostOptimized, &domain.SessionStats{})
	for _, n := range names {
		first.ClassifyName(context.Background(), n)
	}
	if firstLLM.calls != len(names) {
		t.Fatalf("first run llm.calls = %d, want %d", firstLLM.calls, len(names))
	}

	// A second Orchestrator (fresh in-process cache) over the same input,
	// sharing only the persisted learning store populated above, must
	// resolve every name from the learning tier and never reach the LLM.
	secondLLM := &fakeLLM{classifyFn: func(context.Context, string, string) domain.Classification {
		t.Fatal("a warm learning store must serve every repeat name without an LLM call")
		return domain.Classification{}
	}}
	second := New(emptyRule(t), learning.New(repo, domain.DefaultMinSupport, domain.DefaultMinPatternConfidence), emptyPhonetic(), secondLLM, domain.ModeCostOptimized, &domain.SessionStats{})
	for _, n := range names {
		got := second.ClassifyName(context.Background(), n)
		if got.Method != domain.MethodCache {
			t.Errorf("Method = %v, want cache (learning-store exact hit)", got.Method)
		}
	}
	if secondLLM.calls != 0 {
		t.Errorf("second run llm.calls = %d, want 0", secondLLM.calls)
	}
}

func TestOrchestrator_RuleTierShortCircuits(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{classifyFn: func(context.Context, string, string) domain.Classification {
		t.Fatal("LLM tier should not be called when rule tier matches")
		return domain.Classification{}
	}}

	stats := &domain.SessionStats{}
	o := New(emptyRule(t), learning.New(noRowsRepo{}, domain.DefaultMinSupport, domain.DefaultMinPatternConfidence), emptyPhonetic(), llm, domain.ModeCostOptimized, stats)

	got := o.ClassifyName(context.Background(), "Thabo Mokoena")
	if got.Method != domain.MethodRule {
		t.Errorf("Method = %v, want rule", got.Method)
	}
	if got.Ethnicity != domain.EthnicityAfrican {
		t.Errorf("Ethnicity = %v, want african", got.Ethnicity)
	}
	if snap := stats.Snapshot(); snap.RuleClassifications != 1 {
		t.Errorf("RuleClassifications = %d, want 1", snap.RuleClassifications)
	}
}

func TestOrchestrator_FallsThroughToLLM_AndStoresResult(t *testing.T) {
	t.Parallel()

	cost := 0.001
	tokens := 42
	llm := &fakeLLM{classifyFn: func(_ context.Context, inputName, normalized string) domain.Classification {
		return domain.Classification{
			InputName:      inputName,
			NormalizedName: normalized,
			Ethnicity:      domain.EthnicityIndian,
			Confidence:     0.9,
			Method:         domain.MethodLLM,
			LLMCostUSD:     &cost,
			LLMTokens:      &tokens,
		}
	}}

	repo := noRowsRepo{}
	store := learning.New(repo, domain.DefaultMinSupport, domain.DefaultMinPatternConfidence)
	stats := &domain.SessionStats{}
	o := New(emptyRule(t), store, emptyPhonetic(), llm, domain.ModeCostOptimized, stats)

	got := o.ClassifyName(context.Background(), "Pillay Govender")
	if got.Method != domain.MethodLLM {
		t.Errorf("Method = %v, want llm", got.Method)
	}
	if llm.calls != 1 {
		t.Errorf("llm.calls = %d, want 1", llm.calls)
	}
	snap := stats.Snapshot()
	if snap.LLMClassifications != 1 {
		t.Errorf("LLMClassifications = %d, want 1", snap.LLMClassifications)
	}
	if snap.LearningStores != 1 {
		t.Errorf("LearningStores = %d, want 1", snap.LearningStores)
	}
}

func TestOrchestrator_LLMOnlyModeSkipsOtherTiers(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{classifyFn: func(_ context.Context, inputName, normalized string) domain.Classification {
		return domain.Classification{InputName: inputName, NormalizedName: normalized, Ethnicity: domain.EthnicityWhite, Confidence: 0.8, Method: domain.MethodLLM}
	}}

	store := learning.New(noRowsRepo{}, domain.DefaultMinSupport, domain.DefaultMinPatternConfidence)
	o := New(emptyRule(t), store, emptyPhonetic(), llm, domain.ModeLLMOnly, &domain.SessionStats{})

	got := o.ClassifyName(context.Background(), "Thabo Mokoena")
	if got.Method != domain.MethodLLM {
		t.Errorf("Method = %v, want llm even though the rule dictionary has a match", got.Method)
	}
	if llm.calls != 1 {
		t.Errorf("llm.calls = %d, want 1", llm.calls)
	}
}

func TestOrchestrator_RepeatNameServedFromCache(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{classifyFn: func(_ context.Context, inputName, normalized string) domain.Classification {
		return domain.Classification{InputName: inputName, NormalizedName: normalized, Ethnicity: domain.EthnicityIndian, Confidence: 0.9, Method: domain.MethodLLM}
	}}

	store := learning.New(noRowsRepo{}, domain.DefaultMinSupport, domain.DefaultMinPatternConfidence)
	stats := &domain.SessionStats{}
	o := New(emptyRule(t), store, emptyPhonetic(), llm, domain.ModeCostOptimized, stats)

	first := o.ClassifyName(context.Background(), "Pillay Govender")
	second := o.ClassifyName(context.Background(), "pillay govender")

	if llm.calls != 1 {
		t.Errorf("llm.calls = %d, want 1 (second call should hit the cache)", llm.calls)
	}
	if second.Method != domain.MethodCache {
		t.Errorf("second.Method = %v, want cache", second.Method)
	}
	if second.Ethnicity != first.Ethnicity {
		t.Errorf("second.Ethnicity = %v, want %v", second.Ethnicity, first.Ethnicity)
	}
	if snap := stats.Snapshot(); snap.CacheClassifications != 1 {
		t.Errorf("CacheClassifications = %d, want 1", snap.CacheClassifications)
	}
}

func TestOrchestrator_EmptyNameReturnsUnknown(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{classifyFn: func(context.Context, string, string) domain.Classification {
		t.Fatal("LLM tier should not be called for an empty name")
		return domain.Classification{}
	}}
	store := learning.New(noRowsRepo{}, domain.DefaultMinSupport, domain.DefaultMinPatternConfidence)
	o := New(emptyRule(t), store, emptyPhonetic(), llm, domain.ModeCostOptimized, &domain.SessionStats{})

	got := o.ClassifyName(context.Background(), "   ")
	if got.Ethnicity != domain.EthnicityUnknown {
		t.Errorf("Ethnicity = %v, want unknown", got.Ethnicity)
	}
	if got.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", got.Confidence)
	}
}
