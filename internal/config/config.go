package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root application configuration for a classification run,
// grouped by concern the way the teacher groups Server/Database/Auth.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Cascade    CascadeConfig    `yaml:"cascade"`
	LLM        LLMConfig        `yaml:"llm"`
	Job        JobConfig        `yaml:"job"`
	Learning   LearningConfig   `yaml:"learning"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig holds the embedded SQLite store's settings.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"DATABASE_PATH" env-default:"./leadscout.db"`
}

// DictionaryConfig locates the static NameDictionary the rule and
// phonetic tiers load at startup.
type DictionaryConfig struct {
	Path string `yaml:"path" env:"DICTIONARY_PATH" env-required:"true"`
}

// CascadeConfig selects the cascade's mode preset, per spec.md §4.6/§6.
type CascadeConfig struct {
	Mode      string `yaml:"mode" env:"CASCADE_MODE" env-default:"cost_optimized"`
	EnableLLM bool   `yaml:"enable_llm" env:"CASCADE_ENABLE_LLM" env-default:"true"`
}

// LLMConfig holds the LLM tier's connection, concurrency, timeout, and
// pricing settings.
type LLMConfig struct {
	APIKey string `yaml:"api_key" env:"LLM_API_KEY"`
	// Model names the Anthropic model to call. No env-default is set
	// here: unlike the other settings in this file, a deployment must
	// choose its model explicitly.
	Model          string        `yaml:"model" env:"LLM_MODEL"`
	MaxConcurrency int64         `yaml:"max_concurrency" env:"LLM_MAX_CONCURRENCY" env-default:"4"`
	CallTimeout    time.Duration `yaml:"call_timeout" env:"LLM_CALL_TIMEOUT" env-default:"30s"`

	// CostPerInputToken and CostPerOutputToken price the configured model
	// in USD per token, for llm_cost_usd accounting (spec.md §4.5).
	CostPerInputToken  decimal.Decimal `yaml:"cost_per_input_token" env:"LLM_COST_PER_INPUT_TOKEN" env-default:"0.000003"`
	CostPerOutputToken decimal.Decimal `yaml:"cost_per_output_token" env:"LLM_COST_PER_OUTPUT_TOKEN" env-default:"0.000015"`
}

// JobConfig holds the resumable job runner's batching and fault-tolerance
// settings, per spec.md §4.7/§6.
type JobConfig struct {
	BatchSize      int     `yaml:"batch_size" env:"JOB_BATCH_SIZE" env-default:"100"`
	RowParallelism int     `yaml:"row_parallelism" env:"JOB_ROW_PARALLELISM" env-default:"8"`
	MaxErrorRatio  float64 `yaml:"max_error_ratio" env:"JOB_MAX_ERROR_RATIO" env-default:"0.20"`
}

// LearningConfig holds the learning store's pattern activation
// thresholds, per spec.md §4.4/§6.
type LearningConfig struct {
	MinPatternSupport    int     `yaml:"min_pattern_support" env:"LEARNING_MIN_PATTERN_SUPPORT" env-default:"2"`
	MinPatternConfidence float64 `yaml:"min_pattern_confidence" env:"LEARNING_MIN_PATTERN_CONFIDENCE" env-default:"0.80"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
