package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
)

var (
	checkRuns int
	checkData bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "입력 파일, DB, Redis 상태 확인",
	Long: `실행 환경을 점검합니다.

확인 항목:
- 가공 입력 파일 (월별 패널, 6월 스냅샷, 벤치마크)
- 원천 WRDS 파일 (process 입력)
- PostgreSQL 연결, 풀 통계, 최근 실행 기록
- Redis 캐시 활성 여부
- (--data) 입력 커버리지 품질 게이트

Example:
  go run ./cmd/quant check
  go run ./cmd/quant check --runs 20
  go run ./cmd/quant check --data`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().IntVar(&checkRuns, "runs", 10, "표시할 최근 실행 기록 수")
	checkCmd.Flags().BoolVar(&checkData, "data", false, "입력 파일을 읽어 커버리지 점검")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	d, err := initDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	PrintJobHeader(JobMetadata{Job: "Environment check", Window: windowPeriod(d.window()), Detail: "ENV=" + d.cfg.Env})

	fmt.Println("📁 Input files")
	raw := s0_data.DefaultRawFiles(d.cfg.Data.Dir)
	PrintKeyValues([][2]string{
		{"monthly", fileStatus(d.cfg.Data.MonthlyFile)},
		{"snapshot", fileStatus(d.cfg.Data.SnapshotFile)},
		{"benchmark", fileStatus(d.cfg.Data.BenchmarkFile)},
		{"raw fundamentals", fileStatus(raw.Fundamentals)},
		{"raw stock months", fileStatus(raw.StockMonths)},
		{"raw names", fileStatus(raw.Names)},
		{"raw delistings", fileStatus(raw.Delistings)},
		{"raw links", fileStatus(raw.Links)},
	})

	if checkData {
		if err := printCoverage(cmd, d); err != nil {
			return err
		}
	}

	fmt.Println("\n🗄  Result persistence")
	if d.db == nil {
		PrintInfo("disabled (DB_ENABLED=false)")
	} else {
		stats := d.db.Stats()
		PrintKeyValues([][2]string{
			{"max connections", fmt.Sprint(stats.MaxConns)},
			{"total connections", fmt.Sprint(stats.TotalConns)},
			{"idle connections", fmt.Sprint(stats.IdleConns)},
		})
		runs, err := d.repo.ListRuns(ctx, checkRuns)
		if err != nil {
			return err
		}
		rows := make([][2]string, 0, len(runs))
		for _, r := range runs {
			rows = append(rows, [2]string{shortID(r.RunID) + " " + r.Job, fmt.Sprintf("%s (%dms)", r.StartedAt.Format(time.RFC3339), r.Duration)})
		}
		if len(rows) > 0 {
			PrintKeyValues(rows)
		}
	}

	fmt.Println("\n⚡ Result cache")
	if d.cache == nil {
		PrintInfo("disabled (REDIS_ENABLED=false)")
	} else {
		PrintSuccess(fmt.Sprintf("redis %s:%s (ttl %s)", d.cfg.Redis.Host, d.cfg.Redis.Port, d.redis.TTL()))
	}
	return nil
}

// printCoverage loads the processed inputs and prints the quality gate result
func printCoverage(cmd *cobra.Command, d *deps) error {
	ds, err := s0_data.NewLoader(d.log).LoadAll(cmd.Context(), d.cfg.Data)
	if err != nil {
		return err
	}
	snap := d.qualityCheck(ds)

	fmt.Println("\n🔎 Data quality")
	items := make([]string, 0, len(snap.Coverage))
	for k := range snap.Coverage {
		items = append(items, k)
	}
	sort.Strings(items)
	rows := [][2]string{
		{"monthly rows", fmt.Sprint(snap.MonthlyRows)},
		{"snapshot rows", fmt.Sprint(snap.SnapshotRows)},
		{"entities", fmt.Sprint(snap.Entities)},
	}
	for _, k := range items {
		rows = append(rows, [2]string{k, fmt.Sprintf("%.1f%%", 100*snap.Coverage[k])})
	}
	rows = append(rows, [2]string{"score", fmt.Sprintf("%.3f", snap.QualityScore)})
	PrintKeyValues(rows)

	if snap.Passed {
		PrintSuccess("quality gate passed")
	} else {
		PrintWarning(fmt.Sprintf("quality gate failed: %v", snap.Failures))
	}
	return nil
}

// fileStatus reports whether a file exists and its size
func fileStatus(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "❌ " + path
	}
	return fmt.Sprintf("✅ %s (%.1f MB)", path, float64(info.Size())/(1<<20))
}
