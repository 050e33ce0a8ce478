package models

import "time"

type ReminderRepeat string

const (
	RepeatNone   ReminderRepeat = "none"
	RepeatDaily  ReminderRepeat = "daily"
	RepeatWeekly ReminderRepeat = "weekly"
)

type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderSent      ReminderStatus = "sent"
	ReminderCompleted ReminderStatus = "completed"
)

type Reminder struct {
	ID              string         `json:"id" db:"id"`
	PatientID       string         `json:"patient_id" db:"patient_id"`
	CreatedByUserID string         `json:"created_by_user_id" db:"created_by_user_id"`
	Title           string         `json:"title" db:"title"`
	Notes           *string        `json:"notes,omitempty" db:"notes"`
	RemindAt        int64          `json:"remind_at" db:"remind_at"`
	Repeat          ReminderRepeat `json:"repeat" db:"repeat"`
	Status          ReminderStatus `json:"status" db:"status"`
	CompletedAt     *int64         `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt       int64          `json:"created_at" db:"created_at"`
	UpdatedAt       int64          `json:"updated_at" db:"updated_at"`
}

type ReminderResponse struct {
	ID              string         `json:"id"`
	PatientID       string         `json:"patient_id"`
	CreatedByUserID string         `json:"created_by_user_id"`
	Title           string         `json:"title"`
	Notes           *string        `json:"notes,omitempty"`
	RemindAtISO     string         `json:"remind_at_iso"`
	Repeat          ReminderRepeat `json:"repeat"`
	Status          ReminderStatus `json:"status"`
	CompletedAtISO  *string        `json:"completed_at_iso,omitempty"`
}

func (r *Reminder) ToResponse() ReminderResponse {
	resp := ReminderResponse{
		ID:              r.ID,
		PatientID:       r.PatientID,
		CreatedByUserID: r.CreatedByUserID,
		Title:           r.Title,
		Notes:           r.Notes,
		RemindAtISO:     time.Unix(r.RemindAt, 0).Format(time.RFC3339),
		Repeat:          r.Repeat,
		Status:          r.Status,
	}

	if r.CompletedAt != nil {
		iso := time.Unix(*r.CompletedAt, 0).Format(time.RFC3339)
		resp.CompletedAtISO = &iso
	}

	return resp
}

// NextOccurrence advances a repeating reminder past `now`. Returns false
// for one-shot reminders.
func (r *Reminder) NextOccurrence(now int64) (int64, bool) {
	var step int64
	switch r.Repeat {
	case RepeatDaily:
		step = 24 * 60 * 60
	case RepeatWeekly:
		step = 7 * 24 * 60 * 60
	default:
		return 0, false
	}

	next := r.RemindAt
	for next <= now {
		next += step
	}
	return next, true
}
