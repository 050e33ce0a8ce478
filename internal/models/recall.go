package models

import "time"

// RecallMessage is one turn of the recall-memory conversation.
type RecallMessage struct {
	ID        int    `json:"id" db:"id"`
	PatientID string `json:"patient_id" db:"patient_id"`
	Role      string `json:"role" db:"role"` // "user" or "assistant"
	Content   string `json:"content" db:"content"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

type RecallMessageResponse struct {
	ID           int    `json:"id"`
	Role         string `json:"role"`
	Content      string `json:"content"`
	CreatedAtISO string `json:"created_at_iso"`
}

func (m *RecallMessage) ToResponse() RecallMessageResponse {
	return RecallMessageResponse{
		ID:           m.ID,
		Role:         m.Role,
		Content:      m.Content,
		CreatedAtISO: time.Unix(m.CreatedAt, 0).Format(time.RFC3339),
	}
}
