// Command classify runs a resumable batch classification job over an
// input CSV of business/director names, writing an enriched output CSV
// and persisting progress to the embedded SQLite database so the run
// can be resumed after a crash (spec.md §4.7).
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pressly/goose/v3"

	"github.com/hjonck/leadscout-sub002/internal/adapter/sqlite"
	"github.com/hjonck/leadscout-sub002/internal/adapter/sqlite/jobstore"
	"github.com/hjonck/leadscout-sub002/internal/adapter/sqlite/learning"
	"github.com/hjonck/leadscout-sub002/internal/adapter/sqlite/migrations"
	"github.com/hjonck/leadscout-sub002/internal/app"
	"github.com/hjonck/leadscout-sub002/internal/classifier/cascade"
	"github.com/hjonck/leadscout-sub002/internal/classifier/llmgateway"
	learningstore "github.com/hjonck/leadscout-sub002/internal/classifier/learning"
	"github.com/hjonck/leadscout-sub002/internal/classifier/phonetic"
	"github.com/hjonck/leadscout-sub002/internal/classifier/rule"
	"github.com/hjonck/leadscout-sub002/internal/config"
	"github.com/hjonck/leadscout-sub002/internal/domain"
	"github.com/hjonck/leadscout-sub002/internal/jobrunner"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (overrides LEADSCOUT_CONFIG_PATH)")
	inputPath := flag.String("input", "", "path to input CSV")
	outputPath := flag.String("output", "", "path to output CSV")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("LEADSCOUT_CONFIG_PATH", *configPath)
	}
	if *inputPath == "" || *outputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: classify -input in.csv -output out.csv [-config config.yaml]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Log)

	if err := run(context.Background(), cfg, logger, *inputPath, *outputPath); err != nil {
		logger.Error("classification run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, inputPath, outputPath string) error {
	db, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Database.Path})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("new migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	entries, err := rule.LoadCSV(cfg.Dictionary.Path)
	if err != nil {
		return fmt.Errorf("load dictionary: %w", err)
	}
	dict, err := rule.NewDictionary(entries)
	if err != nil {
		return fmt.Errorf("build dictionary: %w", err)
	}
	logger.Info("dictionary loaded", slog.Int("entries", dict.Len()))

	ruleClassifier := rule.New(dict)
	phoneticClassifier := phonetic.New(phonetic.BuildIndex(dict.All()))

	learningRepo := learning.New(db)
	learningStore := learningstore.New(learningRepo, cfg.Learning.MinPatternSupport, cfg.Learning.MinPatternConfidence)

	var llmGateway cascade.LLMGateway
	if cfg.Cascade.EnableLLM {
		client := anthropic.NewClient(option.WithAPIKey(cfg.LLM.APIKey))
		llmGateway = llmgateway.New(client, llmgateway.Config{
			Model:              cfg.LLM.Model,
			MaxConcurrency:     cfg.LLM.MaxConcurrency,
			CallTimeout:        cfg.LLM.CallTimeout,
			CostPerInputToken:  cfg.LLM.CostPerInputToken,
			CostPerOutputToken: cfg.LLM.CostPerOutputToken,
		}, logger)
	}

	stats := &domain.SessionStats{}
	mode := domain.Mode(cfg.Cascade.Mode)
	orchestrator := cascade.New(ruleClassifier, learningStore, phoneticClassifier, llmGateway, mode, stats)

	jobRepo := jobstore.New(db)
	runner := jobrunner.New(jobRepo, orchestrator, jobrunner.Config{
		BatchSize:      cfg.Job.BatchSize,
		RowParallelism: cfg.Job.RowParallelism,
		MaxErrorRatio:  cfg.Job.MaxErrorRatio,
	}, logger)

	inputFile, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input file: %w", err)
	}
	defer inputFile.Close()

	inputHash, err := jobrunner.HashFile(inputFile)
	if err != nil {
		return fmt.Errorf("hash input file: %w", err)
	}
	if _, err := inputFile.Seek(0, 0); err != nil {
		return fmt.Errorf("rewind input file: %w", err)
	}

	totalRows, err := countDataRows(inputPath)
	if err != nil {
		return fmt.Errorf("count input rows: %w", err)
	}

	rowSource, err := jobrunner.NewCSVRowSource(inputFile)
	if err != nil {
		return fmt.Errorf("open row source: %w", err)
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer outFile.Close()
	csvWriter := jobrunner.NewCSVWriter(outFile)

	jobID, err := runner.Run(ctx, inputHash, totalRows, rowSource, csvWriter)
	if err != nil {
		return fmt.Errorf("job %s: %w", jobID, err)
	}

	snap := stats.Snapshot()
	logger.Info("classification run complete",
		slog.String("job_id", jobID),
		slog.Int("total", snap.TotalClassifications),
		slog.Float64("llm_usage_rate", snap.LLMUsageRate()),
		slog.Float64("learned_hit_rate", snap.LearnedHitRate()),
		slog.Float64("llm_cost_usd", snap.LLMCostUSD),
	)
	return nil
}

// countDataRows counts data rows (excluding the header) in the input
// CSV, used only to populate Job.TotalRows for progress reporting.
func countDataRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	src, err := jobrunner.NewCSVRowSource(f)
	if err != nil {
		return 0, err
	}
	count := 0
	for {
		_, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}
