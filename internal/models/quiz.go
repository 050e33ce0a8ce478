package models

// QuizPerson is a familiar face registered for a patient's guess-who quiz.
type QuizPerson struct {
	ID        string `json:"id" db:"id"`
	PatientID string `json:"patient_id" db:"patient_id"`
	Name      string `json:"name" db:"name"`
	Relation  string `json:"relation" db:"relation"` // e.g. "daughter", "neighbor"
	PhotoURL  string `json:"photo_url" db:"photo_url"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

// QuizRound is one guess-who question: a photo plus shuffled name choices.
type QuizRound struct {
	PersonID string   `json:"person_id"`
	PhotoURL string   `json:"photo_url"`
	Relation string   `json:"relation"`
	Choices  []string `json:"choices"`
	Answer   string   `json:"answer"`
}
