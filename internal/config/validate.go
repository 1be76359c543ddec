package config

import "fmt"

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Dictionary.Path == "" {
		return fmt.Errorf("dictionary.path is required")
	}

	switch c.Cascade.Mode {
	case "strict", "cost_optimized", "llm_only":
	default:
		return fmt.Errorf("cascade.mode %q must be one of strict, cost_optimized, llm_only", c.Cascade.Mode)
	}

	if c.Cascade.EnableLLM {
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required when cascade.enable_llm is true")
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("llm.model is required when cascade.enable_llm is true")
		}
	}

	if err := c.Job.validate(); err != nil {
		return fmt.Errorf("job: %w", err)
	}
	if err := c.Learning.validate(); err != nil {
		return fmt.Errorf("learning: %w", err)
	}

	return nil
}

func (j JobConfig) validate() error {
	if j.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", j.BatchSize)
	}
	if j.RowParallelism <= 0 {
		return fmt.Errorf("row_parallelism must be > 0 (got %d)", j.RowParallelism)
	}
	if j.MaxErrorRatio <= 0 || j.MaxErrorRatio > 1 {
		return fmt.Errorf("max_error_ratio must be in (0,1] (got %v)", j.MaxErrorRatio)
	}
	return nil
}

func (l LearningConfig) validate() error {
	if l.MinPatternSupport < 1 {
		return fmt.Errorf("min_pattern_support must be >= 1 (got %d)", l.MinPatternSupport)
	}
	if l.MinPatternConfidence <= 0 || l.MinPatternConfidence > 1 {
		return fmt.Errorf("min_pattern_confidence must be in (0,1] (got %v)", l.MinPatternConfidence)
	}
	return nil
}
