package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("🔌 Connecting to Postgres...")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Create users table
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('patient', 'caregiver')),
			photo_url TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create caregiver_patients link table (which caregiver watches whom)
		`CREATE TABLE IF NOT EXISTS caregiver_patients (
			id SERIAL PRIMARY KEY,
			caregiver_id TEXT NOT NULL,
			patient_id TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			UNIQUE(caregiver_id, patient_id),
			FOREIGN KEY (caregiver_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (patient_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create safe_zones table (one circular geofence per patient)
		`CREATE TABLE IF NOT EXISTS safe_zones (
			patient_id TEXT PRIMARY KEY,
			center_latitude DOUBLE PRECISION NOT NULL,
			center_longitude DOUBLE PRECISION NOT NULL,
			radius_meters DOUBLE PRECISION NOT NULL CHECK(radius_meters > 0),
			updated_by_user_id TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (patient_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (updated_by_user_id) REFERENCES users(id) ON DELETE SET NULL
		)`,

		// Create patient_current_location table (latest position per patient)
		// Exactly 1 row per patient, updated via UPSERT. Live tracking goes
		// over WebSocket - this row is the fallback for reconnects.
		`CREATE TABLE IF NOT EXISTS patient_current_location (
			patient_id TEXT PRIMARY KEY,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			accuracy DOUBLE PRECISION,
			timestamp BIGINT NOT NULL,
			in_zone BOOLEAN,
			distance_meters DOUBLE PRECISION,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (patient_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create zone_events table (safe-zone boundary crossings)
		`CREATE TABLE IF NOT EXISTS zone_events (
			id TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL,
			event_type TEXT NOT NULL CHECK(event_type IN ('exit', 'enter')),
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			distance_meters DOUBLE PRECISION NOT NULL,
			occurred_at BIGINT NOT NULL,
			FOREIGN KEY (patient_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create posts table (family feed)
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL,
			content TEXT NOT NULL,
			photo_url TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (author_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS post_likes (
			id SERIAL PRIMARY KEY,
			post_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			UNIQUE(post_id, user_id),
			FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS post_comments (
			id SERIAL PRIMARY KEY,
			post_id TEXT NOT NULL,
			author_id TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE,
			FOREIGN KEY (author_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create reminders table
		`CREATE TABLE IF NOT EXISTS reminders (
			id TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL,
			created_by_user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			notes TEXT,
			remind_at BIGINT NOT NULL,
			repeat TEXT NOT NULL DEFAULT 'none' CHECK(repeat IN ('none', 'daily', 'weekly')),
			status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'sent', 'completed')),
			completed_at BIGINT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (patient_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (created_by_user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create quiz_people table (familiar faces for the guess-who quiz)
		`CREATE TABLE IF NOT EXISTS quiz_people (
			id TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL,
			name TEXT NOT NULL,
			relation TEXT NOT NULL,
			photo_url TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (patient_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create recall_messages table (recall-memory chat history)
		`CREATE TABLE IF NOT EXISTS recall_messages (
			id SERIAL PRIMARY KEY,
			patient_id TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('user', 'assistant')),
			content TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (patient_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create FCM tokens table
		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create indexes
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_caregiver_patients_caregiver ON caregiver_patients(caregiver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_caregiver_patients_patient ON caregiver_patients(patient_id)`,
		`CREATE INDEX IF NOT EXISTS idx_zone_events_patient ON zone_events(patient_id)`,
		`CREATE INDEX IF NOT EXISTS idx_zone_events_occurred_at ON zone_events(occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_post_likes_post ON post_likes(post_id)`,
		`CREATE INDEX IF NOT EXISTS idx_post_comments_post ON post_comments(post_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_patient ON reminders(patient_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(status, remind_at)`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_people_patient ON quiz_people(patient_id)`,
		`CREATE INDEX IF NOT EXISTS idx_recall_messages_patient ON recall_messages(patient_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_tokens(user_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_fcm_tokens_token ON fcm_tokens(token)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}
