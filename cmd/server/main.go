package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"caremind-backend/internal/database"
	"caremind-backend/internal/directory"
	"caremind-backend/internal/handlers"
	"caremind-backend/internal/middleware"
	"caremind-backend/internal/services"
	"caremind-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 CAREMIND BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	// Connect to database
	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("   This is usually caused by:")
		log.Println("   1. Wrong DATABASE_URL format")
		log.Println("   2. PostgreSQL service is down")
		log.Println("   3. Network connectivity issue")
		log.Println("   4. Invalid credentials")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	// Run migrations
	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ Database migrations failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	// Seed database
	log.Println("🌱 Seeding database with initial data...")
	if err := database.SeedUsers(db); err != nil {
		log.Fatalf("❌ User seeding failed: %v", err)
	}
	log.Println("✅ Users seeded successfully")

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials (for Railway/cloud deployments)
	var fcmService *services.FCMService
	fcmCredsBase64 := os.Getenv("FIREBASE_CREDENTIALS_BASE64")

	if fcmCredsBase64 != "" {
		// Use base64-encoded credentials (Railway-friendly)
		fcmService, err = services.NewFCMServiceFromBase64(fcmCredsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		// Fall back to file path (local development)
		fcmCredentialsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
		if fcmCredentialsFile == "" {
			fcmCredentialsFile = "./firebase-service-account.json"
		}

		fcmService, err = services.NewFCMService(fcmCredentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	}

	// Initialize recall companion (optional, needs GEMINI_API_KEY)
	recallService, err := services.NewRecallService()
	if err != nil {
		log.Printf("⚠️  Recall companion disabled: %v", err)
		recallService = nil
	} else {
		log.Println("✅ Recall companion initialized")
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()

	// Wire the tracking pipeline: directory -> tracking service -> hub
	dir := directory.NewPostgresDirectory(db)
	tracking := services.NewTrackingService(db, dir, fcmService, wsHub)
	wsHub.SetLocationSink(tracking)

	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	// Start reminder dispatcher
	notifier := services.NewReminderNotifier(db, fcmService)
	go notifier.Run(context.Background())
	log.Println("✅ Reminder dispatcher started")

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Authentication routes (no auth required)
	r.Post("/api/auth/register", handlers.Register(db))
	r.Post("/api/auth/login", handlers.Login(db))

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Geocoding endpoints (no auth required)
		r.Post("/geocoding/reverse", handlers.ReverseGeocode())
		r.Post("/geocoding/forward", handlers.Geocode())

		// Authenticated endpoints (any role)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			// Auth status endpoint
			r.Get("/auth/status", handlers.GetAuthStatus(db))

			// Family feed
			r.Get("/posts", handlers.GetPosts(db))
			r.Post("/posts", handlers.CreatePost(db))
			r.Delete("/posts/{id}", handlers.DeletePost(db))
			r.Post("/posts/{id}/like", handlers.ToggleLike(db))
			r.Get("/posts/{id}/comments", handlers.GetComments(db))
			r.Post("/posts/{id}/comments", handlers.CreateComment(db))

			// Reminders
			r.Get("/reminders", handlers.GetReminders(db, dir))
			r.Post("/reminders", handlers.CreateReminder(db, dir))
			r.Patch("/reminders/{id}", handlers.UpdateReminder(db, dir))
			r.Post("/reminders/{id}/complete", handlers.CompleteReminder(db, dir))
			r.Delete("/reminders/{id}", handlers.DeleteReminder(db, dir))

			// Guess-who quiz
			r.Get("/quiz/people", handlers.GetQuizPeople(db, dir))
			r.Get("/quiz/round", handlers.GetQuizRound(db))

			// FCM token registration
			r.Post("/fcm-token", handlers.RegisterFCMToken(db))
		})

		// Patient endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole("patient"))

			// Location reporting (fallback for clients without WebSocket)
			r.Post("/patient/location", handlers.ReportLocation(tracking))
			r.Get("/patient/safe-zone", handlers.GetMySafeZone(dir))

			// Recall companion
			r.Post("/recall/chat", handlers.RecallChat(db, recallService))
			r.Get("/recall/history", handlers.GetRecallHistory(db))
		})

		// Caregiver endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole("caregiver"))

			r.Get("/caregiver/patients", handlers.GetPatients(db, dir, tracking))
			r.Get("/caregiver/patients/{id}/location", handlers.GetPatientLocation(dir, tracking))
			r.Get("/caregiver/patients/{id}/safe-zone", handlers.GetSafeZone(db, dir))
			r.Put("/caregiver/patients/{id}/safe-zone", handlers.PutSafeZone(db, dir))
			r.Get("/caregiver/patients/{id}/zone-events", handlers.GetZoneEvents(db, dir))

			// Quiz people management
			r.Post("/quiz/people", handlers.AddQuizPerson(db, dir))
			r.Delete("/quiz/people/{id}", handlers.DeleteQuizPerson(db, dir))
		})
	})

	// Get port
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Printf("⚠️  PORT not set, using default: %s", port)
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Start server
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}
