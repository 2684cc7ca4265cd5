package quiz

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/llm"
	"github.com/meetscribe/backend/internal/models"
)

type fakeChat struct {
	args json.RawMessage
	err  error
}

func (f *fakeChat) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	return "", f.err
}

func (f *fakeChat) CompleteFunction(ctx context.Context, req llm.CompletionRequest, fn llm.FunctionSpec) (json.RawMessage, error) {
	return f.args, f.err
}

const longTranscript = "We reviewed the quarterly numbers, agreed to move the launch to May, and assigned the rollout plan to the platform team."

func defaultConfig() models.QuizConfig {
	return models.QuizConfig{NumQuestions: 5, Difficulty: models.DifficultyMedium}
}

func rawBatch(questions ...map[string]interface{}) json.RawMessage {
	out, _ := json.Marshal(map[string]interface{}{"questions": questions})
	return out
}

func validMC() map[string]interface{} {
	return map[string]interface{}{
		"type":          "multiple-choice",
		"question":      "When is the launch?",
		"options":       []string{"A. May", "B. June", "C. July", "D. August"},
		"correctAnswer": "a",
		"explanation":   "The launch moved to May.",
	}
}

func validTF() map[string]interface{} {
	return map[string]interface{}{
		"type":          "true-false",
		"question":      "The rollout was assigned to the platform team.",
		"correctAnswer": "True",
		"explanation":   "It was assigned in the meeting.",
	}
}

func TestGenerateRejectsEmptyTranscript(t *testing.T) {
	engine := NewEngine(&fakeChat{}, nil)

	_, err := engine.Generate(context.Background(), "   ", defaultConfig())
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindInput))
	assert.Contains(t, err.Error(), "no transcript text")
}

func TestGenerateRejectsShortTranscript(t *testing.T) {
	engine := NewEngine(&fakeChat{}, nil)

	_, err := engine.Generate(context.Background(), strings.Repeat("a", 40), defaultConfig())
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindInput))
	assert.Contains(t, err.Error(), "too short")
}

func TestGenerateRejectsBadConfig(t *testing.T) {
	engine := NewEngine(&fakeChat{}, nil)

	_, err := engine.Generate(context.Background(), longTranscript, models.QuizConfig{NumQuestions: 3, Difficulty: models.DifficultyEasy})
	assert.True(t, errs.IsKind(err, errs.KindInput))

	_, err = engine.Generate(context.Background(), longTranscript, models.QuizConfig{NumQuestions: 25, Difficulty: models.DifficultyEasy})
	assert.True(t, errs.IsKind(err, errs.KindInput))

	_, err = engine.Generate(context.Background(), longTranscript, models.QuizConfig{NumQuestions: 5, Difficulty: "brutal"})
	assert.True(t, errs.IsKind(err, errs.KindInput))
}

func TestGenerateNormalizesQuestions(t *testing.T) {
	engine := NewEngine(&fakeChat{args: rawBatch(validMC(), validTF())}, nil)

	questions, err := engine.Generate(context.Background(), longTranscript, defaultConfig())
	require.NoError(t, err)
	require.Len(t, questions, 2)

	mc := questions[0]
	assert.Equal(t, "q-1", mc.ID)
	assert.Equal(t, "A", mc.CorrectAnswer)
	assert.Equal(t, []string{"May", "June", "July", "August"}, mc.Options)

	tf := questions[1]
	assert.Equal(t, "q-2", tf.ID)
	assert.Equal(t, "true", tf.CorrectAnswer)
	assert.Nil(t, tf.Options)
}

func TestGenerateDropsInvalidQuestionsAndRenumbers(t *testing.T) {
	batch := make([]map[string]interface{}, 0, 10)
	for i := 0; i < 10; i++ {
		q := validMC()
		if i == 2 {
			q["options"] = []string{"only", "two"}
		}
		if i == 7 {
			q["correctAnswer"] = "E"
		}
		batch = append(batch, q)
	}
	engine := NewEngine(&fakeChat{args: rawBatch(batch...)}, nil)

	questions, err := engine.Generate(context.Background(), longTranscript, models.QuizConfig{NumQuestions: 10, Difficulty: models.DifficultyMedium})
	require.NoError(t, err)
	require.Len(t, questions, 8)
	for i, q := range questions {
		assert.Equal(t, "q-"+string(rune('1'+i)), q.ID)
	}
}

func TestGenerateFailsWhenNothingValidSurvives(t *testing.T) {
	bad := validMC()
	bad["explanation"] = ""
	engine := NewEngine(&fakeChat{args: rawBatch(bad)}, nil)

	_, err := engine.Generate(context.Background(), longTranscript, defaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid questions were generated")
}

func TestGeneratePropagatesQuotaErrors(t *testing.T) {
	engine := NewEngine(&fakeChat{err: errs.Quota("API quota exceeded. Please check your OpenAI billing.", nil)}, nil)

	_, err := engine.Generate(context.Background(), longTranscript, defaultConfig())
	require.Error(t, err)
	assert.True(t, errs.IsQuota(err))
}

func TestGroupQuestions(t *testing.T) {
	questions := make([]models.QuizQuestion, 8)
	groups := GroupQuestions(questions, 5)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Questions, 5)
	assert.Len(t, groups[1].Questions, 3)

	assert.Nil(t, GroupQuestions(nil, 5))
	assert.Len(t, GroupQuestions(questions[:5], 5), 1)
}
