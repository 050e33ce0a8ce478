package database

import (
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// SeedUsers creates the demo caregiver + patient pair used for first-run
// testing, linked so the caregiver dashboard has someone to show.
func SeedUsers(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding demo users...")

	caregiverPassword, err := bcrypt.GenerateFromPassword([]byte("caregiver123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	patientPassword, err := bcrypt.GenerateFromPassword([]byte("patient123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	caregiverID := uuid.New().String()
	patientID := uuid.New().String()

	users := []struct {
		id, email, password, name, role string
	}{
		{caregiverID, "caregiver@caremind.app", string(caregiverPassword), "Dewi Lestari", "caregiver"},
		{patientID, "patient@caremind.app", string(patientPassword), "Ibu Sari", "patient"},
	}

	for _, u := range users {
		_, err := db.Exec(`
			INSERT INTO users (id, email, password, name, role)
			VALUES ($1, $2, $3, $4, $5)
		`, u.id, u.email, u.password, u.name, u.role)
		if err != nil {
			return err
		}
	}

	if _, err := db.Exec(`
		INSERT INTO caregiver_patients (caregiver_id, patient_id)
		VALUES ($1, $2)
	`, caregiverID, patientID); err != nil {
		return err
	}

	log.Printf("✅ Seeded caregiver %s watching patient %s", caregiverID, patientID)
	return nil
}
