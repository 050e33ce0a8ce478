package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"caremind-backend/internal/directory"
	"caremind-backend/internal/middleware"
	"caremind-backend/internal/models"
	"caremind-backend/internal/safezone"
	"caremind-backend/internal/services"
	"caremind-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

// PatientSummary is one row in the caregiver's patient list: the person,
// their safe zone (if authored) and their latest known position.
type PatientSummary struct {
	ID       string                  `json:"id"`
	Name     string                  `json:"name"`
	PhotoURL *string                 `json:"photo_url,omitempty"`
	SafeZone *safezone.SafeZone      `json:"safe_zone,omitempty"`
	Location *models.PatientLocation `json:"location,omitempty"`
}

type SafeZoneRequest struct {
	CenterLatitude  float64 `json:"center_latitude"`
	CenterLongitude float64 `json:"center_longitude"`
	RadiusMeters    float64 `json:"radius_meters"`
}

// GetPatients returns the caregiver's linked patients with zones and last
// positions.
func GetPatients(db *sqlx.DB, dir *directory.PostgresDirectory, tracking *services.TrackingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		persons, err := dir.ListMonitored(r.Context(), claims.UserID)
		if err != nil {
			log.Printf("❌ Failed to list patients for caregiver %s: %v", claims.UserID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load patients")
			return
		}

		summaries := make([]PatientSummary, 0, len(persons))
		for _, person := range persons {
			summary := PatientSummary{
				ID:       person.ID,
				Name:     person.DisplayName,
				SafeZone: person.SafeZone,
			}

			var photoURL *string
			if err := db.Get(&photoURL, "SELECT photo_url FROM users WHERE id = $1", person.ID); err == nil {
				summary.PhotoURL = photoURL
			}

			location, err := tracking.Current(r.Context(), person.ID)
			if err == nil {
				summary.Location = &location
			}

			summaries = append(summaries, summary)
		}

		utils.RespondJSON(w, http.StatusOK, summaries)
	}
}

// GetSafeZone returns a patient's safe zone, or 404 when none exists yet.
func GetSafeZone(db *sqlx.DB, dir *directory.PostgresDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		patientID := chi.URLParam(r, "id")

		linked, err := dir.IsLinked(r.Context(), claims.UserID, patientID)
		if err != nil {
			log.Printf("❌ Failed to check caregiver link: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load safe zone")
			return
		}
		if !linked {
			utils.RespondError(w, http.StatusForbidden, "Not assigned to this patient")
			return
		}

		zone, err := dir.GetSafeZone(r.Context(), patientID)
		if err != nil {
			log.Printf("❌ Failed to load safe zone for %s: %v", patientID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load safe zone")
			return
		}
		if zone == nil {
			utils.RespondError(w, http.StatusNotFound, "No safe zone configured")
			return
		}

		utils.RespondJSON(w, http.StatusOK, zone)
	}
}

// GetMySafeZone returns the authenticated patient's own zone. Used by the
// patient app to classify its own position locally between syncs.
func GetMySafeZone(dir *directory.PostgresDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		zone, err := dir.GetSafeZone(r.Context(), claims.UserID)
		if err != nil {
			log.Printf("❌ Failed to load safe zone for %s: %v", claims.UserID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load safe zone")
			return
		}
		if zone == nil {
			utils.RespondError(w, http.StatusNotFound, "No safe zone configured")
			return
		}

		utils.RespondJSON(w, http.StatusOK, zone)
	}
}

// PutSafeZone creates or replaces a patient's safe zone. Caregiver only, and
// only for linked patients. Invalid zones are rejected before anything is
// written.
func PutSafeZone(db *sqlx.DB, dir *directory.PostgresDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		patientID := chi.URLParam(r, "id")

		linked, err := dir.IsLinked(r.Context(), claims.UserID, patientID)
		if err != nil {
			log.Printf("❌ Failed to check caregiver link: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to save safe zone")
			return
		}
		if !linked {
			utils.RespondError(w, http.StatusForbidden, "Not assigned to this patient")
			return
		}

		var req SafeZoneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		zone := safezone.SafeZone{
			Center: safezone.Coordinate{
				Latitude:  req.CenterLatitude,
				Longitude: req.CenterLongitude,
			},
			RadiusMeters: req.RadiusMeters,
		}

		saved, err := dir.UpdateSafeZone(r.Context(), patientID, zone)
		if err != nil {
			var validationErr *safezone.ValidationError
			if errors.As(err, &validationErr) {
				utils.RespondError(w, http.StatusBadRequest, validationErr.Error())
				return
			}
			log.Printf("❌ Failed to save safe zone for %s: %v", patientID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to save safe zone")
			return
		}

		now := time.Now().Unix()
		if _, err := db.Exec(`UPDATE safe_zones SET updated_by_user_id = $1, updated_at = $2 WHERE patient_id = $3`,
			claims.UserID, now, patientID); err != nil {
			log.Printf("⚠️ Failed to record safe zone author: %v", err)
		}

		log.Printf("✅ Safe zone saved for patient %s by %s (radius: %.0fm)", patientID, claims.UserID, saved.RadiusMeters)
		utils.RespondJSON(w, http.StatusOK, saved)
	}
}

// GetZoneEvents returns recent boundary crossings for a linked patient.
func GetZoneEvents(db *sqlx.DB, dir *directory.PostgresDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		patientID := chi.URLParam(r, "id")

		linked, err := dir.IsLinked(r.Context(), claims.UserID, patientID)
		if err != nil {
			log.Printf("❌ Failed to check caregiver link: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load events")
			return
		}
		if !linked {
			utils.RespondError(w, http.StatusForbidden, "Not assigned to this patient")
			return
		}

		var events []models.ZoneEvent
		err = db.Select(&events, `
			SELECT id, patient_id, event_type, latitude, longitude, distance_meters, occurred_at
			FROM zone_events WHERE patient_id = $1
			ORDER BY occurred_at DESC LIMIT 50
		`, patientID)
		if err != nil {
			log.Printf("❌ Failed to load zone events for %s: %v", patientID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load events")
			return
		}

		responses := make([]models.ZoneEventResponse, len(events))
		for i := range events {
			responses[i] = events[i].ToResponse()
		}

		utils.RespondJSON(w, http.StatusOK, responses)
	}
}
