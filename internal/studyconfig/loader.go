package studyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
)

// Load reads YAML file and returns Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, data, nil
}

// Parse decodes and validates a study file
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	return HashJob(cfg)
}

// HashJob hashes any job configuration the same way (단일 커맨드 실행의 run id)
func HashJob(v interface{}) (string, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewRunRecord creates the persisted record of one job of the study
func NewRunRecord(runID, job string, jobConfig interface{}, started time.Time) (contracts.RunRecord, error) {
	raw, err := json.Marshal(jobConfig)
	if err != nil {
		return contracts.RunRecord{}, fmt.Errorf("encode %s config: %w", job, err)
	}
	return contracts.RunRecord{
		RunID:      runID,
		Job:        job,
		ConfigJSON: raw,
		StartedAt:  started,
		Duration:   time.Since(started).Milliseconds(),
	}, nil
}
