package s0_data

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
)

func TestResultRepository_RoundTrip(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewResultRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	runID := "test-" + time.Now().Format("20060102150405.000")
	require.NoError(t, repo.SaveRun(ctx, contracts.RunRecord{
		RunID: runID, Job: "sorts/BE_ME_q5_all", ConfigJSON: []byte(`{"quantiles":5}`),
		StartedAt: time.Now().UTC(), Duration: 12,
	}))

	july := monthEnd(2000, 7)
	table := contracts.NewReturnTable(
		contracts.PortfolioReturn{Date: july, Label: "1", Return: 0.01, Weight: 10, Members: 2},
		contracts.PortfolioReturn{Date: july, Label: "5", Return: -0.02, Weight: 30, Members: 4},
	)
	require.NoError(t, repo.SaveReturns(ctx, runID, "sorts/BE_ME_q5_all", table))

	back, err := repo.GetReturns(ctx, runID, "sorts/BE_ME_q5_all")
	require.NoError(t, err)
	assert.Equal(t, 2, back.Len())
	assert.InDelta(t, -0.02, back.Value(july, "5"), 1e-12)

	counts := [][]int{{3, 1}, {0, 0}}
	matrix := contracts.TransitionMatrix{Name: "BE_ME", Labels: []string{"1", "2"}, Counts: counts, Links: 4}
	require.NoError(t, repo.SaveMatrix(ctx, runID, "transitions/BE_ME", matrix))

	m, err := repo.GetMatrix(ctx, runID, "transitions/BE_ME")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, counts, m.Counts)
	assert.InDelta(t, 75.0, m.Probabilities[0][0], 1e-12)
	assert.True(t, math.IsNaN(m.Probabilities[1][0]))

	missing, err := repo.GetMatrix(ctx, runID, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	runs, err := repo.ListRuns(ctx, 50)
	require.NoError(t, err)
	found := false
	for _, run := range runs {
		if run.RunID == runID && run.Job == "sorts/BE_ME_q5_all" {
			found = true
			assert.Equal(t, int64(12), run.Duration)
		}
	}
	assert.True(t, found, "saved run not listed")
}
