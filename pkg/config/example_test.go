package config_test

import (
	"fmt"

	"github.com/aidanvyas/asset-pricing-code/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	// Access configuration values
	fmt.Printf("Environment: %s\n", cfg.Env)
	fmt.Printf("Monthly panel: %s\n", cfg.Data.MonthlyFile)
	fmt.Printf("Window: %s ~ %s\n", cfg.Window.Start.Format(config.DateLayout), cfg.Window.End.Format(config.DateLayout))
	fmt.Printf("Result persistence: %v\n", cfg.Database.Enabled)
}
