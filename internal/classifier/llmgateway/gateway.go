// Package llmgateway implements the cascade's LLM tier: a concurrency-
// capped, retrying client over the Anthropic Messages API.
package llmgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"github.com/hjonck/leadscout-sub002/internal/domain"
)

// Config controls the gateway's model, concurrency, and retry behavior.
type Config struct {
	Model          string
	MaxConcurrency int64         // N_LLM, default 4
	CallTimeout    time.Duration // T_LLM, default 30s
	// CostPerInputToken and CostPerOutputToken price the model in USD,
	// since the Anthropic API reports token counts, not cost.
	CostPerInputToken  decimal.Decimal
	CostPerOutputToken decimal.Decimal
}

// fixedSchedule is a backoff.BackOff implementing spec.md §4.5's exact
// retry schedule (1s, then 4s, then stop) instead of cenkalti/backoff's
// default jittered exponential curve.
type fixedSchedule struct {
	delays []time.Duration
	step   int
}

func newFixedSchedule() *fixedSchedule {
	return &fixedSchedule{delays: []time.Duration{1 * time.Second, 4 * time.Second}}
}

func (f *fixedSchedule) NextBackOff() time.Duration {
	if f.step >= len(f.delays) {
		return backoff.Stop
	}
	d := f.delays[f.step]
	f.step++
	return d
}

func (f *fixedSchedule) Reset() { f.step = 0 }

// Gateway is the cascade's LLM tier.
type Gateway struct {
	client anthropic.Client
	cfg    Config
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// New constructs a Gateway bounding concurrent calls to cfg.MaxConcurrency.
func New(client anthropic.Client, cfg Config, logger *slog.Logger) *Gateway {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &Gateway{
		client: client,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrency),
		logger: logger,
	}
}

// ethnicityResponse is the schema the prompt asks the model to return.
type ethnicityResponse struct {
	Ethnicity  string  `json:"ethnicity"`
	Confidence float64 `json:"confidence"`
}

// Classify calls the LLM for normalized, enforcing the gateway's global
// concurrency cap and per-call timeout with a bounded retry schedule. On
// final failure it returns an unknown-ethnicity Classification with
// confidence 0 and the error annotated, per spec.md §4.5 — it never
// returns a Go error to the cascade.
func (g *Gateway) Classify(ctx context.Context, inputName, normalized string) domain.Classification {
	start := time.Now()

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return failure(inputName, normalized, start, err)
	}
	defer g.sem.Release(1)

	var resp *anthropic.Message
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()
		var err error
		resp, err = g.call(callCtx, normalized)
		return err
	}

	b := backoff.WithContext(newFixedSchedule(), ctx)
	if err := backoff.Retry(op, b); err != nil {
		g.logger.Warn("llm classification failed", slog.String("name", normalized), slog.Any("error", err))
		return failure(inputName, normalized, start, err)
	}

	parsed, tokensIn, tokensOut, err := parseResponse(resp)
	if err != nil {
		return failure(inputName, normalized, start, err)
	}

	cost := g.cfg.CostPerInputToken.Mul(decimal.NewFromInt(int64(tokensIn))).
		Add(g.cfg.CostPerOutputToken.Mul(decimal.NewFromInt(int64(tokensOut))))
	costF, _ := cost.Float64()
	totalTokens := tokensIn + tokensOut

	ethnicity := domain.Ethnicity(strings.ToLower(parsed.Ethnicity))
	if !ethnicity.IsValid() {
		ethnicity = domain.EthnicityUnknown
	}

	return domain.Classification{
		InputName:        inputName,
		NormalizedName:   normalized,
		Ethnicity:        ethnicity,
		Confidence:       clip01(parsed.Confidence),
		Method:           domain.MethodLLM,
		ProcessingTimeMs: elapsedMs(start),
		LLMCostUSD:       &costF,
		LLMTokens:        &totalTokens,
	}
}

func (g *Gateway) call(ctx context.Context, normalized string) (*anthropic.Message, error) {
	return g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.cfg.Model),
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(normalized))),
		},
	})
}

func buildPrompt(normalized string) string {
	return fmt.Sprintf(`Classify the likely ethnicity of the South African name "%s".

Respond with ONLY a JSON object matching this exact schema, no markdown, no explanation:
{"ethnicity": "<african|indian|cape_malay|coloured|white|unknown>", "confidence": <0.0-1.0>}`, normalized)
}

func parseResponse(msg *anthropic.Message) (ethnicityResponse, int, int, error) {
	if msg == nil || len(msg.Content) == 0 {
		return ethnicityResponse{}, 0, 0, fmt.Errorf("llmgateway: empty response")
	}
	text := msg.Content[0].Text
	jsonStr, err := extractJSON(text)
	if err != nil {
		return ethnicityResponse{}, 0, 0, fmt.Errorf("llmgateway: %w", err)
	}
	var parsed ethnicityResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return ethnicityResponse{}, 0, 0, fmt.Errorf("llmgateway: unmarshal response: %w", err)
	}
	return parsed, int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens), nil
}

// extractJSON returns the span from the first '{' to the last '}' in a
// string; it does not check that the span is a single valid JSON object.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return s[start : end+1], nil
}

func failure(inputName, normalized string, start time.Time, err error) domain.Classification {
	return domain.Classification{
		InputName:        inputName,
		NormalizedName:   normalized,
		Ethnicity:        domain.EthnicityUnknown,
		Confidence:       0,
		Method:           domain.MethodLLM,
		ProcessingTimeMs: elapsedMs(start),
		Error:            err.Error(),
	}
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
