// Command main runs the database seeder for CityPulse.
package main

import (
	"flag"
	"log"

	"citypulse/internal/config"
	"citypulse/internal/database"
	"citypulse/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of reporter profiles to create")
	numIssues := flag.Int("issues", 120, "Number of issues to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d issues, clean=%v\n", *numUsers, *numIssues, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
		log.Println("Database cleared")
	}

	if err := s.Run(*numUsers, *numIssues); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✅ Seeding complete")
}
