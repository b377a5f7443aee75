package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// JobMetadata holds job execution metadata
type JobMetadata struct {
	Job    string
	RunID  string  // Optional
	Window *Period // Optional
	Detail string  // Optional
}

// Period represents a date range
type Period struct {
	StartDate string
	EndDate   string
}

// windowPeriod formats an evaluation window; 0 경계는 "-"
func windowPeriod(w contracts.Window) *Period {
	p := &Period{StartDate: "-", EndDate: "-"}
	if !w.Start.IsZero() {
		p.StartDate = w.Start.Format("2006-01-02")
	}
	if !w.End.IsZero() {
		p.EndDate = w.End.Format("2006-01-02")
	}
	return p
}

// PrintJobHeader prints a formatted job header
func PrintJobHeader(meta JobMetadata) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", meta.Job)
	PrintSeparator()
	if meta.RunID != "" {
		fmt.Printf("  Run ID    : %s\n", shortID(meta.RunID))
	}
	if meta.Window != nil {
		fmt.Printf("  Window    : %s ~ %s\n", meta.Window.StartDate, meta.Window.EndDate)
	}
	if meta.Detail != "" {
		fmt.Printf("  Detail    : %s\n", meta.Detail)
	}
	PrintSeparator()
}

// PrintProgress prints a progress step with counter
// Example: [sorts] BE_ME_q10_nyse [1/3]
func PrintProgress(tag string, message string, current int, total int) {
	fmt.Printf("[%s] %s [%d/%d]\n", tag, message, current, total)
}

// PrintJobCompletion prints job completion message
func PrintJobCompletion(job string, started time.Time) {
	fmt.Println()
	fmt.Printf("✅ %s completed in %.2fs\n", job, time.Since(started).Seconds())
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintKeyValues prints key-value pairs as a borderless two-column table
func PrintKeyValues(rows [][2]string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	for _, r := range rows {
		tw.AppendRow(table.Row{"  " + r[0], r[1]})
	}
	tw.Render()
}

// shortID trims a config hash for display
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
