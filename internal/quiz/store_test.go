package quiz

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/models"
)

func testQuestions(n int) []models.QuizQuestion {
	questions := make([]models.QuizQuestion, 0, n)
	for i := 1; i <= n; i++ {
		questions = append(questions, models.QuizQuestion{
			ID:            fmt.Sprintf("q-%d", i),
			Type:          models.QuestionTypeMultipleChoice,
			Question:      fmt.Sprintf("Question %d?", i),
			Options:       []string{"w", "x", "y", "z"},
			CorrectAnswer: "A",
			Explanation:   "because",
		})
	}
	return questions
}

func TestAnswerGradesAndIsIdempotent(t *testing.T) {
	store := NewStore()
	batch := store.Add(testQuestions(4))

	st, err := store.Answer(batch.ID, "q-1", "a")
	require.NoError(t, err)
	assert.True(t, st.IsAnswered)
	assert.True(t, st.IsCorrect)
	assert.Equal(t, "A", st.SelectedAnswer)

	// A second answer does not change the recorded result.
	st, err = store.Answer(batch.ID, "q-1", "B")
	require.NoError(t, err)
	assert.True(t, st.IsCorrect)
	assert.Equal(t, "A", st.SelectedAnswer)

	st, err = store.Answer(batch.ID, "q-2", "B")
	require.NoError(t, err)
	assert.False(t, st.IsCorrect)
}

func TestAnswerNormalizesTrueFalse(t *testing.T) {
	store := NewStore()
	batch := store.Add([]models.QuizQuestion{{
		ID:            "q-1",
		Type:          models.QuestionTypeTrueFalse,
		Question:      "It moved?",
		CorrectAnswer: "true",
		Explanation:   "yes",
	}})

	st, err := store.Answer(batch.ID, "q-1", "True")
	require.NoError(t, err)
	assert.True(t, st.IsCorrect)
	assert.Equal(t, "true", st.SelectedAnswer)
}

func TestAnswerUnknownIDs(t *testing.T) {
	store := NewStore()
	batch := store.Add(testQuestions(2))

	_, err := store.Answer("nope", "q-1", "A")
	assert.Error(t, err)

	_, err = store.Answer(batch.ID, "q-99", "A")
	assert.Error(t, err)
}

func TestScoreRoundsPercentage(t *testing.T) {
	store := NewStore()
	batch := store.Add(testQuestions(3))

	_, err := store.Answer(batch.ID, "q-1", "A")
	require.NoError(t, err)
	_, err = store.Answer(batch.ID, "q-2", "B")
	require.NoError(t, err)

	// 1 of 3 correct: 33.33 rounds to 33.
	assert.Equal(t, 33, batch.Score())
	assert.Equal(t, 2, batch.Answered())
	assert.Equal(t, 1, batch.Correct())

	_, err = store.Answer(batch.ID, "q-3", "A")
	require.NoError(t, err)
	// 2 of 3 correct: 66.67 rounds to 67.
	assert.Equal(t, 67, batch.Score())
}

func TestBatchGroups(t *testing.T) {
	store := NewStore()
	batch := store.Add(testQuestions(8))

	groups := batch.Groups()
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Questions, 5)
	assert.Len(t, groups[1].Questions, 3)
}

func TestDeleteRemovesBatch(t *testing.T) {
	store := NewStore()
	batch := store.Add(testQuestions(1))
	store.Delete(batch.ID)

	_, err := store.Get(batch.ID)
	assert.Error(t, err)
}
