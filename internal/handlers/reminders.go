package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"caremind-backend/internal/directory"
	"caremind-backend/internal/middleware"
	"caremind-backend/internal/models"
	"caremind-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CreateReminderRequest struct {
	PatientID string  `json:"patient_id"`
	Title     string  `json:"title"`
	Notes     *string `json:"notes,omitempty"`
	RemindAt  int64   `json:"remind_at"`
	Repeat    string  `json:"repeat"`
}

type UpdateReminderRequest struct {
	Title    *string `json:"title,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	RemindAt *int64  `json:"remind_at,omitempty"`
	Repeat   *string `json:"repeat,omitempty"`
}

// reminderAccess checks whether a user may touch a reminder's patient:
// the patient themselves, or a linked caregiver.
func reminderAccess(r *http.Request, dir *directory.PostgresDirectory, userID, patientID string) (bool, error) {
	if userID == patientID {
		return true, nil
	}
	return dir.IsLinked(r.Context(), userID, patientID)
}

// GetReminders lists reminders for a patient, soonest first.
func GetReminders(db *sqlx.DB, dir *directory.PostgresDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		patientID := r.URL.Query().Get("patient_id")
		if patientID == "" {
			patientID = claims.UserID
		}

		allowed, err := reminderAccess(r, dir, claims.UserID, patientID)
		if err != nil {
			log.Printf("❌ Failed to check reminder access: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load reminders")
			return
		}
		if !allowed {
			utils.RespondError(w, http.StatusForbidden, "Not assigned to this patient")
			return
		}

		var reminders []models.Reminder
		err = db.Select(&reminders, `
			SELECT * FROM reminders
			WHERE patient_id = $1 AND status != 'completed'
			ORDER BY remind_at ASC
		`, patientID)
		if err != nil {
			log.Printf("❌ Failed to load reminders: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load reminders")
			return
		}

		responses := make([]models.ReminderResponse, len(reminders))
		for i := range reminders {
			responses[i] = reminders[i].ToResponse()
		}

		utils.RespondJSON(w, http.StatusOK, responses)
	}
}

// CreateReminder adds a reminder for a patient.
func CreateReminder(db *sqlx.DB, dir *directory.PostgresDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req CreateReminderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.PatientID == "" {
			req.PatientID = claims.UserID
		}
		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" {
			utils.RespondError(w, http.StatusBadRequest, "Title is required")
			return
		}
		if req.RemindAt <= 0 {
			utils.RespondError(w, http.StatusBadRequest, "remind_at is required")
			return
		}
		if req.Repeat == "" {
			req.Repeat = string(models.RepeatNone)
		}
		switch models.ReminderRepeat(req.Repeat) {
		case models.RepeatNone, models.RepeatDaily, models.RepeatWeekly:
		default:
			utils.RespondError(w, http.StatusBadRequest, "Repeat must be 'none', 'daily' or 'weekly'")
			return
		}

		allowed, err := reminderAccess(r, dir, claims.UserID, req.PatientID)
		if err != nil {
			log.Printf("❌ Failed to check reminder access: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create reminder")
			return
		}
		if !allowed {
			utils.RespondError(w, http.StatusForbidden, "Not assigned to this patient")
			return
		}

		now := time.Now().Unix()
		reminder := models.Reminder{
			ID:              uuid.New().String(),
			PatientID:       req.PatientID,
			CreatedByUserID: claims.UserID,
			Title:           req.Title,
			Notes:           req.Notes,
			RemindAt:        req.RemindAt,
			Repeat:          models.ReminderRepeat(req.Repeat),
			Status:          models.ReminderPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		_, err = db.Exec(`
			INSERT INTO reminders (id, patient_id, created_by_user_id, title, notes, remind_at, repeat, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, reminder.ID, reminder.PatientID, reminder.CreatedByUserID, reminder.Title, reminder.Notes,
			reminder.RemindAt, reminder.Repeat, reminder.Status, reminder.CreatedAt, reminder.UpdatedAt)
		if err != nil {
			log.Printf("❌ Failed to create reminder: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create reminder")
			return
		}

		log.Printf("⏰ Reminder created for patient %s: %s", reminder.PatientID, reminder.Title)
		utils.RespondJSON(w, http.StatusCreated, reminder.ToResponse())
	}
}

// UpdateReminder edits an existing reminder. Re-arms it when the time moves.
func UpdateReminder(db *sqlx.DB, dir *directory.PostgresDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		reminderID := chi.URLParam(r, "id")

		var reminder models.Reminder
		if err := db.Get(&reminder, `SELECT * FROM reminders WHERE id = $1`, reminderID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Reminder not found")
			return
		}

		allowed, err := reminderAccess(r, dir, claims.UserID, reminder.PatientID)
		if err != nil {
			log.Printf("❌ Failed to check reminder access: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update reminder")
			return
		}
		if !allowed {
			utils.RespondError(w, http.StatusForbidden, "Not assigned to this patient")
			return
		}

		var req UpdateReminderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				utils.RespondError(w, http.StatusBadRequest, "Title cannot be empty")
				return
			}
			reminder.Title = title
		}
		if req.Notes != nil {
			reminder.Notes = req.Notes
		}
		if req.RemindAt != nil {
			reminder.RemindAt = *req.RemindAt
			reminder.Status = models.ReminderPending
		}
		if req.Repeat != nil {
			switch models.ReminderRepeat(*req.Repeat) {
			case models.RepeatNone, models.RepeatDaily, models.RepeatWeekly:
				reminder.Repeat = models.ReminderRepeat(*req.Repeat)
			default:
				utils.RespondError(w, http.StatusBadRequest, "Repeat must be 'none', 'daily' or 'weekly'")
				return
			}
		}
		reminder.UpdatedAt = time.Now().Unix()

		_, err = db.Exec(`
			UPDATE reminders
			SET title = $1, notes = $2, remind_at = $3, repeat = $4, status = $5, updated_at = $6
			WHERE id = $7
		`, reminder.Title, reminder.Notes, reminder.RemindAt, reminder.Repeat, reminder.Status, reminder.UpdatedAt, reminder.ID)
		if err != nil {
			log.Printf("❌ Failed to update reminder: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update reminder")
			return
		}

		utils.RespondJSON(w, http.StatusOK, reminder.ToResponse())
	}
}

// CompleteReminder marks a reminder as done.
func CompleteReminder(db *sqlx.DB, dir *directory.PostgresDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		reminderID := chi.URLParam(r, "id")

		var reminder models.Reminder
		if err := db.Get(&reminder, `SELECT * FROM reminders WHERE id = $1`, reminderID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Reminder not found")
			return
		}

		allowed, err := reminderAccess(r, dir, claims.UserID, reminder.PatientID)
		if err != nil {
			log.Printf("❌ Failed to check reminder access: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to complete reminder")
			return
		}
		if !allowed {
			utils.RespondError(w, http.StatusForbidden, "Not assigned to this patient")
			return
		}

		now := time.Now().Unix()
		reminder.Status = models.ReminderCompleted
		reminder.CompletedAt = &now
		reminder.UpdatedAt = now

		_, err = db.Exec(`
			UPDATE reminders SET status = $1, completed_at = $2, updated_at = $3 WHERE id = $4
		`, reminder.Status, reminder.CompletedAt, reminder.UpdatedAt, reminder.ID)
		if err != nil {
			log.Printf("❌ Failed to complete reminder: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to complete reminder")
			return
		}

		utils.RespondJSON(w, http.StatusOK, reminder.ToResponse())
	}
}

// DeleteReminder removes a reminder.
func DeleteReminder(db *sqlx.DB, dir *directory.PostgresDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		reminderID := chi.URLParam(r, "id")

		var reminder models.Reminder
		if err := db.Get(&reminder, `SELECT * FROM reminders WHERE id = $1`, reminderID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Reminder not found")
			return
		}

		allowed, err := reminderAccess(r, dir, claims.UserID, reminder.PatientID)
		if err != nil {
			log.Printf("❌ Failed to check reminder access: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete reminder")
			return
		}
		if !allowed {
			utils.RespondError(w, http.StatusForbidden, "Not assigned to this patient")
			return
		}

		if _, err := db.Exec(`DELETE FROM reminders WHERE id = $1`, reminderID); err != nil {
			log.Printf("❌ Failed to delete reminder: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete reminder")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}
