package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"caremind-backend/internal/directory"
	"caremind-backend/internal/middleware"
	"caremind-backend/internal/services"
	"caremind-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

type LocationReportRequest struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp *int64   `json:"timestamp,omitempty"`
}

// ReportLocation ingests a position report from the authenticated patient.
// Fallback for clients without a live WebSocket connection.
func ReportLocation(tracking *services.TrackingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req LocationReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
			utils.RespondError(w, http.StatusBadRequest, "Coordinates out of range")
			return
		}

		recordedAt := time.Now().Unix()
		if req.Timestamp != nil {
			recordedAt = *req.Timestamp
		}

		location, err := tracking.Report(r.Context(), claims.UserID, req.Latitude, req.Longitude, req.Accuracy, recordedAt)
		if err != nil {
			log.Printf("❌ Failed to store location for patient %s: %v", claims.UserID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to store location")
			return
		}

		utils.RespondJSON(w, http.StatusOK, location)
	}
}

// GetPatientLocation returns the latest stored position for a linked patient.
func GetPatientLocation(dir *directory.PostgresDirectory, tracking *services.TrackingService) http.HandlerFunc {
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
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load location")
			return
		}
		if !linked {
			utils.RespondError(w, http.StatusForbidden, "Not assigned to this patient")
			return
		}

		location, err := tracking.Current(r.Context(), patientID)
		if errors.Is(err, sql.ErrNoRows) {
			utils.RespondError(w, http.StatusNotFound, "No location reported yet")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to load location for %s: %v", patientID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load location")
			return
		}

		utils.RespondJSON(w, http.StatusOK, location)
	}
}
