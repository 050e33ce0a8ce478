package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
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

// Minimum number of registered faces needed before a round can be built
// (one answer plus at least two distractors).
const minQuizPeople = 3

type AddQuizPersonRequest struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	Relation  string `json:"relation"`
	PhotoURL  string `json:"photo_url"`
}

// BuildQuizRound picks a person at random and builds a multiple-choice
// question around them. Choices hold the answer plus up to three distractor
// names, shuffled.
func BuildQuizRound(people []models.QuizPerson, rng *rand.Rand) (models.QuizRound, error) {
	if len(people) < minQuizPeople {
		return models.QuizRound{}, fmt.Errorf("need at least %d people, have %d", minQuizPeople, len(people))
	}

	subject := people[rng.Intn(len(people))]

	choices := []string{subject.Name}
	for _, i := range rng.Perm(len(people)) {
		if len(choices) == 4 {
			break
		}
		if people[i].ID == subject.ID {
			continue
		}
		choices = append(choices, people[i].Name)
	}

	rng.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})

	return models.QuizRound{
		PersonID: subject.ID,
		PhotoURL: subject.PhotoURL,
		Relation: subject.Relation,
		Choices:  choices,
		Answer:   subject.Name,
	}, nil
}

// GetQuizPeople lists the familiar faces registered for a patient.
func GetQuizPeople(db *sqlx.DB, dir *directory.PostgresDirectory) http.HandlerFunc {
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
			log.Printf("❌ Failed to check quiz access: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load people")
			return
		}
		if !allowed {
			utils.RespondError(w, http.StatusForbidden, "Not assigned to this patient")
			return
		}

		var people []models.QuizPerson
		err = db.Select(&people, `
			SELECT * FROM quiz_people WHERE patient_id = $1 ORDER BY created_at ASC
		`, patientID)
		if err != nil {
			log.Printf("❌ Failed to load quiz people: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load people")
			return
		}

		utils.RespondJSON(w, http.StatusOK, people)
	}
}

// AddQuizPerson registers a familiar face. Caregiver only.
func AddQuizPerson(db *sqlx.DB, dir *directory.PostgresDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req AddQuizPersonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		req.Relation = strings.TrimSpace(req.Relation)
		if req.Name == "" || req.Relation == "" || req.PhotoURL == "" {
			utils.RespondError(w, http.StatusBadRequest, "Name, relation and photo_url are required")
			return
		}

		linked, err := dir.IsLinked(r.Context(), claims.UserID, req.PatientID)
		if err != nil {
			log.Printf("❌ Failed to check caregiver link: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to add person")
			return
		}
		if !linked {
			utils.RespondError(w, http.StatusForbidden, "Not assigned to this patient")
			return
		}

		person := models.QuizPerson{
			ID:        uuid.New().String(),
			PatientID: req.PatientID,
			Name:      req.Name,
			Relation:  req.Relation,
			PhotoURL:  req.PhotoURL,
			CreatedAt: time.Now().Unix(),
		}

		_, err = db.Exec(`
			INSERT INTO quiz_people (id, patient_id, name, relation, photo_url, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, person.ID, person.PatientID, person.Name, person.Relation, person.PhotoURL, person.CreatedAt)
		if err != nil {
			log.Printf("❌ Failed to add quiz person: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to add person")
			return
		}

		utils.RespondJSON(w, http.StatusCreated, person)
	}
}

// DeleteQuizPerson removes a registered face. Caregiver only.
func DeleteQuizPerson(db *sqlx.DB, dir *directory.PostgresDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		personID := chi.URLParam(r, "id")

		var person models.QuizPerson
		if err := db.Get(&person, `SELECT * FROM quiz_people WHERE id = $1`, personID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Person not found")
			return
		}

		linked, err := dir.IsLinked(r.Context(), claims.UserID, person.PatientID)
		if err != nil {
			log.Printf("❌ Failed to check caregiver link: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete person")
			return
		}
		if !linked {
			utils.RespondError(w, http.StatusForbidden, "Not assigned to this patient")
			return
		}

		if _, err := db.Exec(`DELETE FROM quiz_people WHERE id = $1`, personID); err != nil {
			log.Printf("❌ Failed to delete quiz person: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete person")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}

// GetQuizRound builds one guess-who question for the authenticated patient.
func GetQuizRound(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var people []models.QuizPerson
		err := db.Select(&people, `
			SELECT * FROM quiz_people WHERE patient_id = $1
		`, claims.UserID)
		if err != nil {
			log.Printf("❌ Failed to load quiz people: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to build round")
			return
		}

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		round, err := BuildQuizRound(people, rng)
		if err != nil {
			utils.RespondError(w, http.StatusConflict, "Not enough people registered for a quiz round")
			return
		}

		utils.RespondJSON(w, http.StatusOK, round)
	}
}
