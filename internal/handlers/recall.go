package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"caremind-backend/internal/middleware"
	"caremind-backend/internal/models"
	"caremind-backend/internal/services"
	"caremind-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// Number of past turns handed to the model as conversation context.
const recallHistoryLimit = 20

type RecallChatRequest struct {
	Message string `json:"message"`
}

type RecallChatResponse struct {
	Reply string `json:"reply"`
}

// RecallChat runs one turn of the recall-memory conversation for the
// authenticated patient. Both sides of the exchange are persisted.
func RecallChat(db *sqlx.DB, recall *services.RecallService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if recall == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Recall chat is not configured")
			return
		}

		var req RecallChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Message = strings.TrimSpace(req.Message)
		if req.Message == "" {
			utils.RespondError(w, http.StatusBadRequest, "Message cannot be empty")
			return
		}

		var patientName string
		if err := db.Get(&patientName, `SELECT name FROM users WHERE id = $1`, claims.UserID); err != nil {
			log.Printf("❌ Failed to load patient name: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to chat")
			return
		}

		memories, err := loadMemories(db, claims.UserID)
		if err != nil {
			log.Printf("❌ Failed to load memories: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to chat")
			return
		}

		history, err := loadRecallHistory(db, claims.UserID)
		if err != nil {
			log.Printf("❌ Failed to load chat history: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to chat")
			return
		}

		reply, err := recall.Chat(r.Context(), patientName, memories, history, req.Message)
		if err != nil {
			log.Printf("❌ Recall chat failed: %v", err)
			utils.RespondError(w, http.StatusBadGateway, "The companion is unavailable right now")
			return
		}

		now := time.Now().Unix()
		_, err = db.Exec(`
			INSERT INTO recall_messages (patient_id, role, content, created_at)
			VALUES ($1, 'user', $2, $3), ($1, 'assistant', $4, $3)
		`, claims.UserID, req.Message, now, reply)
		if err != nil {
			log.Printf("⚠️ Failed to persist recall turn: %v", err)
		}

		utils.RespondJSON(w, http.StatusOK, RecallChatResponse{Reply: reply})
	}
}

// GetRecallHistory returns the patient's recent conversation, oldest first.
func GetRecallHistory(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var messages []models.RecallMessage
		err := db.Select(&messages, `
			SELECT * FROM (
				SELECT * FROM recall_messages WHERE patient_id = $1
				ORDER BY created_at DESC, id DESC LIMIT $2
			) recent ORDER BY created_at ASC, id ASC
		`, claims.UserID, recallHistoryLimit)
		if err != nil {
			log.Printf("❌ Failed to load recall history: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load history")
			return
		}

		responses := make([]models.RecallMessageResponse, len(messages))
		for i := range messages {
			responses[i] = messages[i].ToResponse()
		}

		utils.RespondJSON(w, http.StatusOK, responses)
	}
}

// loadMemories collects the facts the companion may lean on: the familiar
// faces registered for the quiz, phrased as short sentences.
func loadMemories(db *sqlx.DB, patientID string) ([]string, error) {
	var people []models.QuizPerson
	err := db.Select(&people, `
		SELECT * FROM quiz_people WHERE patient_id = $1 ORDER BY created_at ASC
	`, patientID)
	if err != nil {
		return nil, err
	}

	memories := make([]string, len(people))
	for i, p := range people {
		memories[i] = fmt.Sprintf("%s is their %s", p.Name, p.Relation)
	}
	return memories, nil
}

func loadRecallHistory(db *sqlx.DB, patientID string) ([]services.RecallTurn, error) {
	var messages []models.RecallMessage
	err := db.Select(&messages, `
		SELECT * FROM (
			SELECT * FROM recall_messages WHERE patient_id = $1
			ORDER BY created_at DESC, id DESC LIMIT $2
		) recent ORDER BY created_at ASC, id ASC
	`, patientID, recallHistoryLimit)
	if err != nil {
		return nil, err
	}

	turns := make([]services.RecallTurn, len(messages))
	for i, m := range messages {
		turns[i] = services.RecallTurn{Role: m.Role, Content: m.Content}
	}
	return turns, nil
}
