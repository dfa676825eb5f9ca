package main

import (
	"log"

	"github.com/oggyb/amica/internal/config"
	"github.com/oggyb/amica/internal/db"
)

func main() {
	cfg := config.New()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	if err := db.SeedTestData(database); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Println("Seeding complete.")
}
