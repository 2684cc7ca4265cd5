package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/models"
)

func TestMeetingProducesPDF(t *testing.T) {
	record := &models.MeetingRecord{
		ID:        "meeting-2026-03-14T09-26-53-589Z",
		Title:     "Launch Planning",
		Timestamp: "2026-03-14T09:26:53.589Z",
		Text:      "we moved the launch to May",
		Segments: []models.Segment{
			{Start: 0, End: 4.2, Text: "we moved the launch"},
			{Start: 4.2, End: 7.9, Text: "to May"},
		},
		Summary:     []string{"Launch moved to May"},
		ActionItems: []string{"Update the plan"},
		Sentiment:   models.Sentiment{Overall: "positive", Positive: 0.8, Negative: 0.1},
	}

	data, err := Meeting(record)
	require.NoError(t, err)
	assert.True(t, len(data) > 0)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestMeetingHandlesEmptyRecord(t *testing.T) {
	data, err := Meeting(&models.MeetingRecord{ID: "meeting-x"})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestQuizProducesPDF(t *testing.T) {
	questions := []models.QuizQuestion{
		{
			ID:            "q-1",
			Type:          models.QuestionTypeMultipleChoice,
			Question:      "When is the launch?",
			Options:       []string{"May", "June", "July", "August"},
			CorrectAnswer: "A",
			Explanation:   "It moved to May.",
		},
		{
			ID:            "q-2",
			Type:          models.QuestionTypeTrueFalse,
			Question:      "The plan needs an update.",
			CorrectAnswer: "true",
			Explanation:   "An action item says so.",
		},
	}

	// One wrong answer, one unanswered: both render alongside the score.
	data, err := Quiz(QuizResult{
		Title:     "Launch Quiz",
		Date:      "Mar 14, 2026 9:26 AM",
		Questions: questions,
		States: map[string]*models.QuestionState{
			"q-1": {SelectedAnswer: "B", IsAnswered: true, IsCorrect: false},
		},
		Correct: 0,
		Score:   0,
	})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestQuizHandlesMissingStates(t *testing.T) {
	data, err := Quiz(QuizResult{Questions: []models.QuizQuestion{
		{ID: "q-1", Type: models.QuestionTypeTrueFalse, Question: "Yes?", CorrectAnswer: "true", Explanation: "Because."},
	}})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestMeetingRendersNonASCIITranscript(t *testing.T) {
	data, err := Meeting(&models.MeetingRecord{
		ID:    "meeting-x",
		Title: "Réunion de café",
		Text:  "décidé — voilà",
	})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}
