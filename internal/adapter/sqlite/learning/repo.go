// Package learning is the SQLite-backed implementation of
// internal/classifier/learning.Repo.
package learning

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	sqliteadapter "github.com/hjonck/leadscout-sub002/internal/adapter/sqlite"
	"github.com/hjonck/leadscout-sub002/internal/domain"
)

// Repo implements classifier/learning.Repo against SQLite.
type Repo struct {
	db *sql.DB
	tx *sqliteadapter.TxManager
}

// New constructs a Repo over db.
func New(db *sql.DB) *Repo {
	return &Repo{db: db, tx: sqliteadapter.NewTxManager(db)}
}

func (r *Repo) q(ctx context.Context) sqliteadapter.Querier {
	return sqliteadapter.QuerierFromCtx(ctx, r.db)
}

// RunInTx runs fn with a single transaction bound to its context, so
// every Repo call fn makes is serialized within that transaction.
func (r *Repo) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.tx.RunInTx(ctx, fn)
}

// GetExact returns the learned classification stored for normalizedName,
// or nil if no row exists.
func (r *Repo) GetExact(ctx context.Context, normalizedName string) (*domain.LearnedClassification, error) {
	row := r.q(ctx).QueryRowContext(ctx, `
		SELECT normalized_name, ethnicity, confidence, cost_usd, tokens, created_at, source_llm_id
		FROM learned_classifications WHERE normalized_name = ?`, normalizedName)

	var lc domain.LearnedClassification
	var createdAt string
	err := row.Scan(&lc.NormalizedName, &lc.Ethnicity, &lc.Confidence, &lc.LLMCostUSD, &lc.Tokens, &createdAt, &lc.SourceLLMID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, sqliteadapter.MapError(err, "learned_classification", normalizedName)
	}
	lc.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("learned_classification %s: parse created_at: %w", normalizedName, err)
	}
	return &lc, nil
}

// UpsertExact inserts or replaces the learned classification row for
// lc.NormalizedName. The higher-or-equal-confidence upsert rule is
// enforced by the caller (classifier/learning.Store); this method always
// writes unconditionally.
func (r *Repo) UpsertExact(ctx context.Context, lc domain.LearnedClassification) error {
	if lc.CreatedAt.IsZero() {
		lc.CreatedAt = time.Now().UTC()
	}
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO learned_classifications (normalized_name, ethnicity, confidence, cost_usd, tokens, created_at, source_llm_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(normalized_name) DO UPDATE SET
			ethnicity = excluded.ethnicity,
			confidence = excluded.confidence,
			cost_usd = excluded.cost_usd,
			tokens = excluded.tokens,
			created_at = excluded.created_at,
			source_llm_id = excluded.source_llm_id`,
		lc.NormalizedName, lc.Ethnicity, lc.Confidence, lc.LLMCostUSD, lc.Tokens, lc.CreatedAt.Format(time.RFC3339), lc.SourceLLMID)
	if err != nil {
		return sqliteadapter.MapError(err, "learned_classification", lc.NormalizedName)
	}
	return nil
}

// GetPatterns returns every active-or-not pattern row matching kind and
// any of values; callers filter for activation themselves.
func (r *Repo) GetPatterns(ctx context.Context, kind domain.PatternKind, values []string) ([]domain.LearnedPattern, error) {
	if len(values) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(values))
	for _, v := range values {
		args = append(args, v)
	}
	query, queryArgs, err := sq.Select("pattern_kind", "pattern_value", "ethnicity", "support_count", "confidence", "active").
		From("learned_patterns").
		Where(sq.Eq{"pattern_kind": string(kind)}).
		Where(sq.Eq{"pattern_value": values}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build patterns query: %w", err)
	}

	rows, err := r.q(ctx).QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, sqliteadapter.MapError(err, "learned_patterns", string(kind))
	}
	defer rows.Close()

	var out []domain.LearnedPattern
	for rows.Next() {
		var p domain.LearnedPattern
		var active int
		if err := rows.Scan(&p.PatternKind, &p.PatternValue, &p.Ethnicity, &p.SupportCount, &p.Confidence, &active); err != nil {
			return nil, fmt.Errorf("scan learned_pattern: %w", err)
		}
		p.Active = active != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// IncrementPattern bumps support_count for (kind, value, ethnicity),
// creating the row with support_count=1 if it does not yet exist.
func (r *Repo) IncrementPattern(ctx context.Context, kind domain.PatternKind, value string, ethnicity domain.Ethnicity) error {
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO learned_patterns (pattern_kind, pattern_value, ethnicity, support_count, confidence, active)
		VALUES (?, ?, ?, 1, 0, 0)
		ON CONFLICT(pattern_kind, pattern_value, ethnicity) DO UPDATE SET
			support_count = support_count + 1`,
		string(kind), value, string(ethnicity))
	if err != nil {
		return sqliteadapter.MapError(err, "learned_patterns", value)
	}
	return nil
}

// RecalculatePatternConfidence recomputes confidence = support /
// total_support_for_value for every ethnicity sharing (kind, value), and
// updates the active flag against the given activation thresholds.
func (r *Repo) RecalculatePatternConfidence(ctx context.Context, kind domain.PatternKind, value string, minSupport int, minConfidence float64) error {
	q := r.q(ctx)

	rows, err := q.QueryContext(ctx, `
		SELECT ethnicity, support_count FROM learned_patterns
		WHERE pattern_kind = ? AND pattern_value = ?`, string(kind), value)
	if err != nil {
		return sqliteadapter.MapError(err, "learned_patterns", value)
	}
	type row struct {
		ethnicity string
		support   int
	}
	var all []row
	var total int
	for rows.Next() {
		var rr row
		if err := rows.Scan(&rr.ethnicity, &rr.support); err != nil {
			rows.Close()
			return fmt.Errorf("scan learned_pattern support: %w", err)
		}
		all = append(all, rr)
		total += rr.support
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if total == 0 {
		return nil
	}

	for _, rr := range all {
		confidence := float64(rr.support) / float64(total)
		active := rr.support >= minSupport && confidence >= minConfidence
		activeInt := 0
		if active {
			activeInt = 1
		}
		_, err := q.ExecContext(ctx, `
			UPDATE learned_patterns SET confidence = ?, active = ?
			WHERE pattern_kind = ? AND pattern_value = ? AND ethnicity = ?`,
			confidence, activeInt, string(kind), value, rr.ethnicity)
		if err != nil {
			return sqliteadapter.MapError(err, "learned_patterns", value)
		}
	}
	return nil
}
