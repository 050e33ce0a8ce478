package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextOccurrence(t *testing.T) {
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC).Unix()
	day := int64(24 * 60 * 60)

	t.Run("one-shot reminders never repeat", func(t *testing.T) {
		r := Reminder{RemindAt: base, Repeat: RepeatNone}

		_, ok := r.NextOccurrence(base + day)
		assert.False(t, ok)
	})

	t.Run("daily advances past now", func(t *testing.T) {
		r := Reminder{RemindAt: base, Repeat: RepeatDaily}

		next, ok := r.NextOccurrence(base)
		assert.True(t, ok)
		assert.Equal(t, base+day, next)
	})

	t.Run("daily skips missed days", func(t *testing.T) {
		r := Reminder{RemindAt: base, Repeat: RepeatDaily}

		// Three and a half days late
		next, ok := r.NextOccurrence(base + 3*day + day/2)
		assert.True(t, ok)
		assert.Equal(t, base+4*day, next)
	})

	t.Run("weekly steps in whole weeks", func(t *testing.T) {
		r := Reminder{RemindAt: base, Repeat: RepeatWeekly}

		next, ok := r.NextOccurrence(base + day)
		assert.True(t, ok)
		assert.Equal(t, base+7*day, next)
	})
}
