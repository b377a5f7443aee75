package database_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aidanvyas/asset-pricing-code/pkg/config"
	"github.com/aidanvyas/asset-pricing-code/pkg/database"
)

// Example demonstrates opening the result database from the environment
func Example() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(context.Background(), cfg.Database)
	if err != nil {
		log.Printf("Result persistence unavailable: %v", err)
		return
	}
	defer db.Close()

	stats := db.Stats()
	fmt.Printf("Max connections: %d\n", stats.MaxConns)
}
