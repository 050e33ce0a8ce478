package handlers

import (
	"math/rand"
	"testing"

	"caremind-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quizPeople(names ...string) []models.QuizPerson {
	people := make([]models.QuizPerson, len(names))
	for i, name := range names {
		people[i] = models.QuizPerson{
			ID:        name + "-id",
			PatientID: "patient-1",
			Name:      name,
			Relation:  "friend",
			PhotoURL:  "https://photos.example/" + name + ".jpg",
		}
	}
	return people
}

func TestBuildQuizRound(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	t.Run("needs enough people", func(t *testing.T) {
		_, err := BuildQuizRound(quizPeople("Ana", "Budi"), rng)
		require.Error(t, err)
	})

	t.Run("answer is always among the choices", func(t *testing.T) {
		people := quizPeople("Ana", "Budi", "Citra", "Dewi", "Eko")

		for i := 0; i < 50; i++ {
			round, err := BuildQuizRound(people, rng)
			require.NoError(t, err)

			assert.Contains(t, round.Choices, round.Answer)
			assert.LessOrEqual(t, len(round.Choices), 4)
			assert.GreaterOrEqual(t, len(round.Choices), 3)
		}
	})

	t.Run("choices are distinct names", func(t *testing.T) {
		people := quizPeople("Ana", "Budi", "Citra", "Dewi")

		for i := 0; i < 50; i++ {
			round, err := BuildQuizRound(people, rng)
			require.NoError(t, err)

			seen := make(map[string]bool)
			for _, choice := range round.Choices {
				assert.False(t, seen[choice], "duplicate choice %q", choice)
				seen[choice] = true
			}
		}
	})

	t.Run("round carries the subject's photo and relation", func(t *testing.T) {
		people := quizPeople("Ana", "Budi", "Citra")

		round, err := BuildQuizRound(people, rng)
		require.NoError(t, err)

		var subject models.QuizPerson
		for _, p := range people {
			if p.ID == round.PersonID {
				subject = p
			}
		}
		require.NotEmpty(t, subject.ID)
		assert.Equal(t, subject.PhotoURL, round.PhotoURL)
		assert.Equal(t, subject.Relation, round.Relation)
		assert.Equal(t, subject.Name, round.Answer)
	})

	t.Run("with exactly three people every name appears", func(t *testing.T) {
		people := quizPeople("Ana", "Budi", "Citra")

		round, err := BuildQuizRound(people, rng)
		require.NoError(t, err)

		assert.ElementsMatch(t, []string{"Ana", "Budi", "Citra"}, round.Choices)
	})
}
