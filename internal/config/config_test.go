package config

import (
	"os"
	"path/filepath"
	"testing"
)

// validEnv sets the minimum env vars for a valid Config.
func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DICTIONARY_PATH", "./testdata/dictionary.csv")
	t.Setenv("CASCADE_ENABLE_LLM", "false")
}

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
database:
  path: "./data/leadscout.db"

dictionary:
  path: "./data/dictionary.csv"

cascade:
  mode: "strict"
  enable_llm: true

llm:
  api_key: "test-key"
  model: "test-model"
  max_concurrency: 2
  call_timeout: "10s"

job:
  batch_size: 50
  row_parallelism: 4
  max_error_ratio: 0.1

learning:
  min_pattern_support: 3
  min_pattern_confidence: 0.9

log:
  level: "debug"
  format: "text"
`

func TestLoad_FromEnv_AppliesDefaults(t *testing.T) {
	validEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Database.Path != "./leadscout.db" {
		t.Errorf("Database.Path = %q, want default", cfg.Database.Path)
	}
	if cfg.Cascade.Mode != "cost_optimized" {
		t.Errorf("Cascade.Mode = %q, want cost_optimized default", cfg.Cascade.Mode)
	}
	if cfg.Job.BatchSize != 100 {
		t.Errorf("Job.BatchSize = %d, want 100 default", cfg.Job.BatchSize)
	}
	if cfg.Learning.MinPatternConfidence != 0.80 {
		t.Errorf("Learning.MinPatternConfidence = %v, want 0.80 default", cfg.Learning.MinPatternConfidence)
	}
}

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("LEADSCOUT_CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Cascade.Mode != "strict" {
		t.Errorf("Cascade.Mode = %q, want strict", cfg.Cascade.Mode)
	}
	if cfg.LLM.Model != "test-model" {
		t.Errorf("LLM.Model = %q, want test-model", cfg.LLM.Model)
	}
	if cfg.Job.MaxErrorRatio != 0.1 {
		t.Errorf("Job.MaxErrorRatio = %v, want 0.1", cfg.Job.MaxErrorRatio)
	}
}

func TestLoad_MissingExplicitFile_Errors(t *testing.T) {
	t.Setenv("LEADSCOUT_CONFIG_PATH", "/does/not/exist.yaml")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

func TestValidate_RejectsMissingDictionaryPath(t *testing.T) {
	cfg := &Config{Cascade: CascadeConfig{Mode: "strict"}, Job: JobConfig{BatchSize: 1, RowParallelism: 1, MaxErrorRatio: 0.2}, Learning: LearningConfig{MinPatternSupport: 2, MinPatternConfidence: 0.8}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an empty dictionary path")
	}
}

func TestValidate_RejectsUnknownMode(t *testing.T) {
	cfg := &Config{
		Dictionary: DictionaryConfig{Path: "x"},
		Cascade:    CascadeConfig{Mode: "turbo"},
		Job:        JobConfig{BatchSize: 1, RowParallelism: 1, MaxErrorRatio: 0.2},
		Learning:   LearningConfig{MinPatternSupport: 2, MinPatternConfidence: 0.8},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unrecognized cascade mode")
	}
}

func TestValidate_RequiresAPIKeyAndModelWhenLLMEnabled(t *testing.T) {
	cfg := &Config{
		Dictionary: DictionaryConfig{Path: "x"},
		Cascade:    CascadeConfig{Mode: "strict", EnableLLM: true},
		Job:        JobConfig{BatchSize: 1, RowParallelism: 1, MaxErrorRatio: 0.2},
		Learning:   LearningConfig{MinPatternSupport: 2, MinPatternConfidence: 0.8},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error when enable_llm is true but api_key/model are empty")
	}
}

func TestValidate_RejectsOutOfRangeMaxErrorRatio(t *testing.T) {
	cfg := &Config{
		Dictionary: DictionaryConfig{Path: "x"},
		Cascade:    CascadeConfig{Mode: "strict"},
		Job:        JobConfig{BatchSize: 1, RowParallelism: 1, MaxErrorRatio: 1.5},
		Learning:   LearningConfig{MinPatternSupport: 2, MinPatternConfidence: 0.8},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for max_error_ratio > 1")
	}
}
