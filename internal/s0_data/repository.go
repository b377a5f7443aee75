package s0_data

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
)

// schema creates the result tables when missing
const schema = `
	CREATE SCHEMA IF NOT EXISTS results;

	CREATE TABLE IF NOT EXISTS results.runs (
		run_id      TEXT NOT NULL,
		job         TEXT NOT NULL,
		config      JSONB NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		duration_ms BIGINT NOT NULL,
		PRIMARY KEY (run_id, job)
	);

	CREATE TABLE IF NOT EXISTS results.portfolio_returns (
		run_id       TEXT NOT NULL,
		job          TEXT NOT NULL,
		period       DATE NOT NULL,
		label        TEXT NOT NULL,
		return_value DOUBLE PRECISION,
		weight       DOUBLE PRECISION,
		members      INTEGER NOT NULL,
		PRIMARY KEY (run_id, job, period, label)
	);

	CREATE TABLE IF NOT EXISTS results.transition_matrices (
		run_id TEXT NOT NULL,
		job    TEXT NOT NULL,
		name   TEXT NOT NULL,
		labels JSONB NOT NULL,
		counts JSONB NOT NULL,
		links  INTEGER NOT NULL,
		PRIMARY KEY (run_id, job)
	);
`

// ResultRepository persists run outputs in Postgres
// ⭐ SSOT: 결과 테이블 저장/조회는 여기서만
type ResultRepository struct {
	db *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository instance
func NewResultRepository(db *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{db: db}
}

var _ contracts.ResultRepository = (*ResultRepository)(nil)

// Pool returns the underlying database pool
func (r *ResultRepository) Pool() *pgxpool.Pool {
	return r.db
}

// EnsureSchema creates the results schema
func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create results schema: %w", err)
	}
	return nil
}

// SaveRun records one executed job
func (r *ResultRepository) SaveRun(ctx context.Context, run contracts.RunRecord) error {
	query := `
		INSERT INTO results.runs (run_id, job, config, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id, job) DO UPDATE SET
			config = EXCLUDED.config,
			started_at = EXCLUDED.started_at,
			duration_ms = EXCLUDED.duration_ms
	`
	_, err := r.db.Exec(ctx, query, run.RunID, run.Job, run.ConfigJSON, run.StartedAt, run.Duration)
	if err != nil {
		return fmt.Errorf("insert run %s/%s: %w", run.RunID, run.Job, err)
	}
	return nil
}

// SaveReturns replaces the return table of a job (bulk upsert in one transaction)
func (r *ResultRepository) SaveReturns(ctx context.Context, runID, job string, table *contracts.ReturnTable) error {
	if table == nil || table.Len() == 0 {
		return nil
	}

	query := `
		INSERT INTO results.portfolio_returns (
			run_id, job, period, label, return_value, weight, members
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, job, period, label) DO UPDATE SET
			return_value = EXCLUDED.return_value,
			weight = EXCLUDED.weight,
			members = EXCLUDED.members
	`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range table.Rows() {
		batch.Queue(query, runID, job, row.Date, row.Label, row.Return, row.Weight, row.Members)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert returns for %s: %w", job, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SaveMatrix stores the counts of a transition matrix; probabilities are derived on read
func (r *ResultRepository) SaveMatrix(ctx context.Context, runID, job string, matrix contracts.TransitionMatrix) error {
	labels, err := json.Marshal(matrix.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	counts, err := json.Marshal(matrix.Counts)
	if err != nil {
		return fmt.Errorf("marshal counts: %w", err)
	}

	query := `
		INSERT INTO results.transition_matrices (run_id, job, name, labels, counts, links)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, job) DO UPDATE SET
			name = EXCLUDED.name,
			labels = EXCLUDED.labels,
			counts = EXCLUDED.counts,
			links = EXCLUDED.links
	`
	if _, err := r.db.Exec(ctx, query, runID, job, matrix.Name, labels, counts, matrix.Links); err != nil {
		return fmt.Errorf("insert matrix %s: %w", job, err)
	}
	return nil
}

// GetReturns loads the return table of a job
func (r *ResultRepository) GetReturns(ctx context.Context, runID, job string) (*contracts.ReturnTable, error) {
	query := `
		SELECT period, label, return_value, weight, members
		FROM results.portfolio_returns
		WHERE run_id = $1 AND job = $2
		ORDER BY period, label
	`
	rows, err := r.db.Query(ctx, query, runID, job)
	if err != nil {
		return nil, fmt.Errorf("query returns: %w", err)
	}
	defer rows.Close()

	table := contracts.NewReturnTable()
	for rows.Next() {
		var row contracts.PortfolioReturn
		if err := rows.Scan(&row.Date, &row.Label, &row.Return, &row.Weight, &row.Members); err != nil {
			return nil, fmt.Errorf("scan return: %w", err)
		}
		table.Add(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate returns: %w", err)
	}
	return table, nil
}

// GetMatrix loads a transition matrix and recomputes its row percentages
func (r *ResultRepository) GetMatrix(ctx context.Context, runID, job string) (*contracts.TransitionMatrix, error) {
	query := `
		SELECT name, labels, counts, links
		FROM results.transition_matrices
		WHERE run_id = $1 AND job = $2
	`
	var (
		m              contracts.TransitionMatrix
		labels, counts []byte
	)
	err := r.db.QueryRow(ctx, query, runID, job).Scan(&m.Name, &labels, &counts, &m.Links)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query matrix: %w", err)
	}
	if err := json.Unmarshal(labels, &m.Labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}
	if err := json.Unmarshal(counts, &m.Counts); err != nil {
		return nil, fmt.Errorf("unmarshal counts: %w", err)
	}
	m.Probabilities = contracts.RowPercentages(m.Counts)
	return &m, nil
}

// ListRuns returns the most recently started jobs, newest first
func (r *ResultRepository) ListRuns(ctx context.Context, limit int) ([]contracts.RunRecord, error) {
	query := `
		SELECT run_id, job, config, started_at, duration_ms
		FROM results.runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []contracts.RunRecord
	for rows.Next() {
		var run contracts.RunRecord
		if err := rows.Scan(&run.RunID, &run.Job, &run.ConfigJSON, &run.StartedAt, &run.Duration); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
