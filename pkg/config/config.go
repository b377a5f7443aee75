package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DateLayout is the layout used for every date-valued setting
const DateLayout = "2006-01-02"

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env string // development, research, production

	// Data
	Data DataConfig

	// Evaluation window (published benchmark 호환: 1963-07 ~ 2022-12)
	Window WindowConfig

	// Worker pool size for parallel descriptive statistics
	Workers int

	// Database (optional result persistence)
	Database DatabaseConfig

	// Redis (optional result cache)
	Redis RedisConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DataConfig holds input and output locations
type DataConfig struct {
	Dir       string // raw + processed CSV 위치
	OutputDir string // 결과 테이블 출력 위치

	MonthlyFile   string // processed monthly panel
	SnapshotFile  string // processed June snapshot (CCM merged)
	BenchmarkFile string // published factor returns (YYYYMM, percent)

	// CRSP processing window
	CRSPStart time.Time
	CRSPEnd   time.Time
}

// WindowConfig is the evaluation window applied to every output series
type WindowConfig struct {
	Start time.Time
	End   time.Time
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL     string
	Enabled bool

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	dataDir := getEnv("DATA_DIR", "data")

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Data: DataConfig{
			Dir:           dataDir,
			OutputDir:     getEnv("OUTPUT_DIR", "output"),
			MonthlyFile:   getEnv("MONTHLY_FILE", filepath.Join(dataDir, "processed_crsp_data.csv")),
			SnapshotFile:  getEnv("SNAPSHOT_FILE", filepath.Join(dataDir, "processed_crsp_jun1.csv")),
			BenchmarkFile: getEnv("BENCHMARK_FILE", filepath.Join(dataDir, "raw_factors.csv")),
			CRSPStart:     getEnvAsDate("CRSP_START", "1958-07-01"),
			CRSPEnd:       getEnvAsDate("CRSP_END", "2022-12-30"),
		},

		Window: WindowConfig{
			Start: getEnvAsDate("WINDOW_START", "1963-07-01"),
			End:   getEnvAsDate("WINDOW_END", "2022-12-31"),
		},

		Workers: getEnvAsInt("WORKERS", 8),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Enabled:         getEnvAsBool("DB_ENABLED", false),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_TTL", "24h"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are consistent
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "research" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, research, production")
	}

	// DB는 선택 사항이지만 켜져 있으면 URL 필수
	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when DB_ENABLED=true")
	}

	if !c.Window.Start.Before(c.Window.End) {
		return fmt.Errorf("WINDOW_START (%s) must be before WINDOW_END (%s)",
			c.Window.Start.Format(DateLayout), c.Window.End.Format(DateLayout))
	}

	if !c.Data.CRSPStart.Before(c.Data.CRSPEnd) {
		return fmt.Errorf("CRSP_START must be before CRSP_END")
	}

	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}
	// --config 로 지정한 파일이 우선
	if explicit := os.Getenv("ENV_FILE"); explicit != "" {
		paths = append([]string{explicit}, paths...)
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsDate parses YYYY-MM-DD, falling back to the default on error
func getEnvAsDate(key string, defaultValue string) time.Time {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	date, err := time.Parse(DateLayout, valueStr)
	if err != nil {
		date, _ = time.Parse(DateLayout, defaultValue)
	}

	return date
}
