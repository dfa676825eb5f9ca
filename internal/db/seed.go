package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SeedTestData resets the database and populates it with demo profiles,
// matches, and dialogue turns.
//
// Behavior:
//  1. Clears existing data in `messages`, `matches`, and `profiles`.
//  2. Creates 20 profiles (10 male, 10 female) with simple attributes.
//  3. Generates ~10 matches, every other one mutual, one of them paid.
//  4. Writes a short seeded dialogue for the first few users.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped for SQLite).
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"messages", "matches", "profiles"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences (only for MySQL)
	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE messages AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE matches AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name = 'messages'")
		db.Exec("DELETE FROM sqlite_sequence WHERE name = 'matches'")
	}

	log.Println("Cleared existing data")

	// --- Seed Profiles (10 male, 10 female) ---
	cities := []string{"Москва", "Санкт-Петербург", "Казань", "Новосибирск"}
	for i := 1; i <= 20; i++ {
		gender := "male"
		if i > 10 {
			gender = "female"
		}
		number := i
		profile := Profile{
			UserID:   fmt.Sprintf("%d", 100000+i),
			Username: fmt.Sprintf("user%d", i),
			Gender:   gender,
			Bio:      fmt.Sprintf("Демо-анкета №%d", i),
			Attributes: datatypes.JSONMap{
				"age":  18 + r.Intn(20),
				"city": cities[r.Intn(len(cities))],
			},
			ProfileNumber: &number,
		}
		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Println("Seeded 20 profiles.")

	// --- Seed Matches ---
	for i := 1; i <= 10; i++ {
		maleIdx := r.Intn(10) + 1
		femaleIdx := r.Intn(10) + 11

		match := Match{
			MaleID:         fmt.Sprintf("%d", 100000+maleIdx),
			FemaleID:       fmt.Sprintf("%d", 100000+femaleIdx),
			MaleUsername:   fmt.Sprintf("user%d", maleIdx),
			FemaleUsername: fmt.Sprintf("user%d", femaleIdx),
			Mutual:         i%2 == 0,
		}
		if match.Mutual && i == 10 {
			now := time.Now().UTC()
			match.Paid = true
			match.PaidAt = &now
		}
		if err := db.Create(&match).Error; err != nil {
			return fmt.Errorf("failed to seed match: %w", err)
		}
	}
	log.Println("Seeded 10 matches.")

	// --- Seed Dialogues ---
	for i := 1; i <= 3; i++ {
		userID := fmt.Sprintf("%d", 100000+i)
		turns := []Message{
			{UserID: userID, Role: RoleUser, Content: "Привет!"},
			{UserID: userID, Role: RoleAssistant, Content: "Привет! Рад знакомству. Как проходит день?"},
		}
		if err := db.Create(&turns).Error; err != nil {
			return fmt.Errorf("failed to seed dialogue: %w", err)
		}
	}
	log.Println("Seeded demo dialogues.")

	return nil
}
