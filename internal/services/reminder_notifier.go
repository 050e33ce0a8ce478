package services

import (
	"context"
	"log"
	"time"

	"caremind-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// ReminderNotifier polls for due reminders and pushes them to the
// patient's registered devices. One-shot reminders are marked sent;
// repeating reminders are advanced to their next occurrence.
type ReminderNotifier struct {
	db       *sqlx.DB
	fcm      *FCMService
	interval time.Duration
}

func NewReminderNotifier(db *sqlx.DB, fcm *FCMService) *ReminderNotifier {
	return &ReminderNotifier{
		db:       db,
		fcm:      fcm,
		interval: 30 * time.Second,
	}
}

// Run blocks until ctx is cancelled, dispatching due reminders each tick.
func (n *ReminderNotifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	log.Printf("⏰ Reminder notifier started (interval: %s)", n.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("⏰ Reminder notifier stopped")
			return
		case <-ticker.C:
			n.dispatchDue(ctx)
		}
	}
}

func (n *ReminderNotifier) dispatchDue(ctx context.Context) {
	now := time.Now().Unix()

	var due []models.Reminder
	err := n.db.SelectContext(ctx, &due, `
		SELECT * FROM reminders
		WHERE status = 'pending' AND remind_at <= $1
		ORDER BY remind_at ASC
	`, now)
	if err != nil {
		log.Printf("❌ Error querying due reminders: %v", err)
		return
	}

	for i := range due {
		reminder := &due[i]
		n.push(ctx, reminder)

		if next, ok := reminder.NextOccurrence(now); ok {
			_, err = n.db.ExecContext(ctx, `
				UPDATE reminders SET remind_at = $1, updated_at = $2 WHERE id = $3
			`, next, now, reminder.ID)
		} else {
			_, err = n.db.ExecContext(ctx, `
				UPDATE reminders SET status = 'sent', updated_at = $1 WHERE id = $2
			`, now, reminder.ID)
		}
		if err != nil {
			log.Printf("❌ Error advancing reminder %s: %v", reminder.ID, err)
		}
	}

	if len(due) > 0 {
		log.Printf("⏰ Dispatched %d due reminders", len(due))
	}
}

func (n *ReminderNotifier) push(ctx context.Context, reminder *models.Reminder) {
	if n.fcm == nil {
		return
	}

	var tokens []string
	err := n.db.SelectContext(ctx, &tokens,
		"SELECT token FROM fcm_tokens WHERE user_id = $1", reminder.PatientID)
	if err != nil {
		log.Printf("❌ Error fetching FCM tokens for %s: %v", reminder.PatientID, err)
		return
	}

	notes := ""
	if reminder.Notes != nil {
		notes = *reminder.Notes
	}

	for _, token := range tokens {
		if err := n.fcm.SendReminderNotification(token, reminder.Title, notes); err != nil {
			log.Printf("⚠️ Failed to push reminder %s: %v", reminder.ID, err)
		}
	}
}
