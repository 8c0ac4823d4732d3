package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"wavecrest-planner/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/migrate <command>")
		fmt.Println("Commands:")
		fmt.Println("  init   - Create indexes and seed the content pillar catalogue")
		fmt.Println("  check  - Print document counts per collection")
		os.Exit(1)
	}

	command := os.Args[1]

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to MongoDB
	client, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.DBName)

	switch command {
	case "init":
		if err := initDatabase(db); err != nil {
			log.Fatalf("Init failed: %v", err)
		}
		fmt.Println("Database initialized successfully!")

	case "check":
		if err := checkDatabase(db); err != nil {
			log.Fatalf("Check failed: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func initDatabase(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Println("Creating indexes...")
	if err := config.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	fmt.Println("Seeding content pillars...")
	n, err := config.SeedPillars(ctx, db)
	if err != nil {
		return err
	}
	fmt.Printf("   %d pillar(s) inserted or updated\n", n)
	return nil
}

func checkDatabase(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	counts, err := config.CollectionCounts(ctx, db)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("   %-22s %d\n", name, counts[name])
	}
	return nil
}
