package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// RunRecord identifies one executed study job
type RunRecord struct {
	RunID      string    `json:"run_id"` // study config hash
	Job        string    `json:"job"`    // e.g. "sorts/BE_ME_q5_all"
	ConfigJSON []byte    `json:"config"` // job config as JSON
	StartedAt  time.Time `json:"started_at"`
	Duration   int64     `json:"duration_ms"`
}

// ResultRepository persists run outputs
// 구현: s0_data.ResultRepository (pgx)
type ResultRepository interface {
	SaveRun(ctx context.Context, run RunRecord) error
	SaveReturns(ctx context.Context, runID, job string, table *ReturnTable) error
	SaveMatrix(ctx context.Context, runID, job string, matrix TransitionMatrix) error
	GetReturns(ctx context.Context, runID, job string) (*ReturnTable, error)
}

// ResultCache caches serialized run outputs by key
// 구현: pkg/redis.Cache
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}
