package learning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hjonck/leadscout-sub002/internal/adapter/sqlite/testhelper"
	"github.com/hjonck/leadscout-sub002/internal/domain"
)

func TestRepo_UpsertExactThenGetExact(t *testing.T) {
	t.Parallel()

	db := testhelper.SetupTestDB(t)
	repo := New(db)
	ctx := context.Background()

	lc := domain.LearnedClassification{
		NormalizedName: "bongani mthembu",
		Ethnicity:      domain.EthnicityAfrican,
		Confidence:     0.91,
		LLMCostUSD:     0.002,
		Tokens:         120,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
		SourceLLMID:    "claude-test-model",
	}
	require.NoError(t, repo.UpsertExact(ctx, lc))

	got, err := repo.GetExact(ctx, "bongani mthembu")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, lc.Ethnicity, got.Ethnicity)
	require.InDelta(t, lc.Confidence, got.Confidence, 0.0001)
	require.Equal(t, lc.Tokens, got.Tokens)
}

func TestRepo_GetExact_Miss(t *testing.T) {
	t.Parallel()

	db := testhelper.SetupTestDB(t)
	repo := New(db)

	got, err := repo.GetExact(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRepo_IncrementPattern_AndRecalculate(t *testing.T) {
	t.Parallel()

	db := testhelper.SetupTestDB(t)
	repo := New(db)
	ctx := context.Background()

	require.NoError(t, repo.IncrementPattern(ctx, domain.PatternKindPhoneticKey, "M315", domain.EthnicityAfrican))
	require.NoError(t, repo.IncrementPattern(ctx, domain.PatternKindPhoneticKey, "M315", domain.EthnicityAfrican))
	require.NoError(t, repo.IncrementPattern(ctx, domain.PatternKindPhoneticKey, "M315", domain.EthnicityWhite))
	require.NoError(t, repo.RecalculatePatternConfidence(ctx, domain.PatternKindPhoneticKey, "M315", domain.DefaultMinSupport, domain.DefaultMinPatternConfidence))

	patterns, err := repo.GetPatterns(ctx, domain.PatternKindPhoneticKey, []string{"M315"})
	require.NoError(t, err)
	require.Len(t, patterns, 2)

	var africanConfidence float64
	for _, p := range patterns {
		if p.Ethnicity == domain.EthnicityAfrican {
			africanConfidence = p.Confidence
		}
	}
	require.InDelta(t, 2.0/3.0, africanConfidence, 0.0001)
}

func TestRepo_RecalculatePatternConfidence_UsesGivenThresholds(t *testing.T) {
	t.Parallel()

	db := testhelper.SetupTestDB(t)
	repo := New(db)
	ctx := context.Background()

	// A single supporting row at confidence 1.0 fails the default
	// min-support of 2 but should pass a caller-supplied threshold of 1.
	require.NoError(t, repo.IncrementPattern(ctx, domain.PatternKindPhoneticKey, "P100", domain.EthnicityIndian))
	require.NoError(t, repo.RecalculatePatternConfidence(ctx, domain.PatternKindPhoneticKey, "P100", domain.DefaultMinSupport, domain.DefaultMinPatternConfidence))

	patterns, err := repo.GetPatterns(ctx, domain.PatternKindPhoneticKey, []string{"P100"})
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	require.False(t, patterns[0].Active, "support_count=1 should not activate under the default min-support of 2")

	require.NoError(t, repo.RecalculatePatternConfidence(ctx, domain.PatternKindPhoneticKey, "P100", 1, 0.5))
	patterns, err = repo.GetPatterns(ctx, domain.PatternKindPhoneticKey, []string{"P100"})
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	require.True(t, patterns[0].Active, "support_count=1 should activate once the configured min-support is 1")
}

func TestRepo_RunInTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	db := testhelper.SetupTestDB(t)
	repo := New(db)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := repo.RunInTx(ctx, func(ctx context.Context) error {
		if err := repo.UpsertExact(ctx, domain.LearnedClassification{
			NormalizedName: "naidoo",
			Ethnicity:      domain.EthnicityIndian,
			Confidence:     0.9,
		}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	got, err := repo.GetExact(ctx, "naidoo")
	require.NoError(t, err)
	require.Nil(t, got, "a rolled-back transaction must not leave the write visible")
}

func TestRepo_RunInTx_CommitsOnSuccess(t *testing.T) {
	t.Parallel()

	db := testhelper.SetupTestDB(t)
	repo := New(db)
	ctx := context.Background()

	err := repo.RunInTx(ctx, func(ctx context.Context) error {
		if err := repo.UpsertExact(ctx, domain.LearnedClassification{
			NormalizedName: "pillay",
			Ethnicity:      domain.EthnicityIndian,
			Confidence:     0.9,
		}); err != nil {
			return err
		}
		return repo.IncrementPattern(ctx, domain.PatternKindPhoneticKey, "P500", domain.EthnicityIndian)
	})
	require.NoError(t, err)

	got, err := repo.GetExact(ctx, "pillay")
	require.NoError(t, err)
	require.NotNil(t, got)

	patterns, err := repo.GetPatterns(ctx, domain.PatternKindPhoneticKey, []string{"P500"})
	require.NoError(t, err)
	require.Len(t, patterns, 1)
}

func TestRepo_GetPatterns_EmptyValues(t *testing.T) {
	t.Parallel()

	db := testhelper.SetupTestDB(t)
	repo := New(db)

	patterns, err := repo.GetPatterns(context.Background(), domain.PatternKindPhoneticKey, nil)
	require.NoError(t, err)
	require.Empty(t, patterns)
}
