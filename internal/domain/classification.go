package domain

import "time"

// Classification is the result of classifying a single name.
type Classification struct {
	InputName        string           `json:"input_name"`
	NormalizedName   string           `json:"normalized_name"`
	Ethnicity        Ethnicity        `json:"ethnicity"`
	Confidence       float64          `json:"confidence"`
	Method           Method           `json:"method"`
	ProcessingTimeMs float64          `json:"processing_time_ms"`
	PhoneticDetails  *PhoneticDetails `json:"phonetic_details,omitempty"`
	LLMCostUSD       *float64         `json:"llm_cost_usd,omitempty"`
	LLMTokens        *int             `json:"llm_tokens,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// Unknown builds the sentinel zero-confidence classification returned
// whenever no tier produces a usable result.
func Unknown(inputName, normalized string, method Method) Classification {
	return Classification{
		InputName:      inputName,
		NormalizedName: normalized,
		Ethnicity:      EthnicityUnknown,
		Confidence:     0,
		Method:         method,
	}
}

// PhoneticMatch is one algorithm's vote toward a phonetic consensus.
type PhoneticMatch struct {
	Algorithm        PhoneticAlgorithm
	MatchedName      string
	MatchedEthnicity Ethnicity
	Similarity       float64
}

// PhoneticDetails carries the full evidence behind a phonetic-tier
// classification.
type PhoneticDetails struct {
	Matches        []PhoneticMatch
	ConsensusScore float64
}

// NameDictEntry is one row of the static NameDictionary.
type NameDictEntry struct {
	NormalizedName string
	Ethnicity      Ethnicity
	Priority       int
	ConfidenceBase float64
}

// LearnedClassification is a persisted LLM (or otherwise confirmed)
// classification keyed by normalized name.
type LearnedClassification struct {
	NormalizedName string
	Ethnicity      Ethnicity
	Confidence     float64
	LLMCostUSD     float64
	Tokens         int
	CreatedAt      time.Time
	SourceLLMID    string
}

// LearnedPattern is a derived generalization over LearnedClassification
// rows, used by the learning store's fuzzy-lookup path.
type LearnedPattern struct {
	PatternKind   PatternKind
	PatternValue  string
	Ethnicity     Ethnicity
	SupportCount  int
	Confidence    float64
	Active        bool
}

// DefaultMinSupport and DefaultMinPatternConfidence are the default activation
// thresholds for a LearnedPattern; configurable overrides live in
// internal/config.
const (
	DefaultMinSupport           = 2
	DefaultMinPatternConfidence = 0.80
)

// IsActive reports whether the pattern meets the given activation
// thresholds.
func (p LearnedPattern) IsActive(minSupport int, minConfidence float64) bool {
	return p.SupportCount >= minSupport && p.Confidence >= minConfidence
}
