// Package quiz generates comprehension quizzes from meeting transcripts
// through a forced function call, and grades answers against them.
package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/llm"
	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/structured"
)

const (
	// MinTranscriptChars is the minimum transcript length worth quizzing on.
	MinTranscriptChars = 50
	// MinQuestions and MaxQuestions bound a generation request.
	MinQuestions = 5
	MaxQuestions = 20
)

const generationSystemPrompt = `You are an expert at creating educational quizzes from meeting transcripts. Create questions that test understanding of the key points, decisions, and facts discussed.

Rules:
- Multiple-choice questions have exactly 4 options and the correct answer is the letter A, B, C, or D.
- True/false questions have no options and the correct answer is "true" or "false".
- Every question includes a brief explanation of the correct answer.
- Questions must be answerable from the transcript alone.
- Mix multiple-choice and true/false questions.`

// optionPrefix matches a redundant "A. " style letter prefix the model
// sometimes bakes into option text.
var optionPrefix = regexp.MustCompile(`^[A-D]\.\s*`)

// createQuestionsFn is the function whose arguments carry the generated
// batch.
var createQuestionsFn = llm.FunctionSpec{
	Name:        "createQuestions",
	Description: "Create quiz questions from the meeting transcript",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"questions": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"type": map[string]interface{}{
							"type": "string",
							"enum": []string{"multiple-choice", "true-false"},
						},
						"question": map[string]interface{}{"type": "string"},
						"options": map[string]interface{}{
							"type":  "array",
							"items": map[string]interface{}{"type": "string"},
						},
						"correctAnswer": map[string]interface{}{"type": "string"},
						"explanation":   map[string]interface{}{"type": "string"},
					},
					"required": []string{"type", "question", "correctAnswer", "explanation"},
				},
			},
		},
		"required": []string{"questions"},
	},
}

// rawQuestion is the loosely-typed question as the model emits it.
type rawQuestion struct {
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Engine generates quiz question batches.
type Engine struct {
	chat   llm.Chat
	logger *zap.Logger
}

// NewEngine creates a quiz engine backed by the given chat model.
func NewEngine(chat llm.Chat, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{chat: chat, logger: logger}
}

// Generate produces a batch of validated questions from the transcript.
// Individual malformed questions are dropped; the call fails only when the
// input is unusable, the service errs, or nothing valid survives.
func (e *Engine) Generate(ctx context.Context, transcript string, cfg models.QuizConfig) ([]models.QuizQuestion, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, errs.Input("no transcript text provided")
	}
	if len(transcript) < MinTranscriptChars {
		return nil, errs.Input("transcript is too short to generate meaningful questions")
	}
	if cfg.NumQuestions < MinQuestions || cfg.NumQuestions > MaxQuestions {
		return nil, errs.Inputf("number of questions must be between %d and %d", MinQuestions, MaxQuestions)
	}
	switch cfg.Difficulty {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		return nil, errs.Inputf("unknown difficulty %q", cfg.Difficulty)
	}

	prompt := fmt.Sprintf("Create %d %s-difficulty quiz questions from this meeting transcript:\n\n%s",
		cfg.NumQuestions, cfg.Difficulty, transcript)

	args, err := e.chat.CompleteFunction(ctx, llm.CompletionRequest{
		System:      generationSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.7,
		MaxTokens:   4000,
	}, createQuestionsFn)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Questions []rawQuestion `json:"questions"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return nil, errs.Service("quiz generation returned malformed arguments", err)
	}

	questions := make([]models.QuizQuestion, 0, len(payload.Questions))
	for i, raw := range payload.Questions {
		q, err := normalizeQuestion(raw, len(questions)+1)
		if err != nil {
			e.logger.Warn("dropping invalid generated question", zap.Int("index", i), zap.Error(err))
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, errs.Service("no valid questions were generated", nil)
	}
	return questions, nil
}

// normalizeQuestion repairs the loose shape the model emits: answers take
// canonical casing, redundant letter prefixes are stripped from options,
// and the id is reassigned from the question's position in the batch.
func normalizeQuestion(raw rawQuestion, n int) (models.QuizQuestion, error) {
	q := models.QuizQuestion{
		ID:          fmt.Sprintf("q-%d", n),
		Type:        raw.Type,
		Question:    strings.TrimSpace(raw.Question),
		Explanation: strings.TrimSpace(raw.Explanation),
	}
	switch raw.Type {
	case models.QuestionTypeMultipleChoice:
		q.CorrectAnswer = strings.ToUpper(strings.TrimSpace(raw.CorrectAnswer))
		q.Options = make([]string, 0, len(raw.Options))
		for _, opt := range raw.Options {
			q.Options = append(q.Options, optionPrefix.ReplaceAllString(strings.TrimSpace(opt), ""))
		}
	case models.QuestionTypeTrueFalse:
		q.CorrectAnswer = strings.ToLower(strings.TrimSpace(raw.CorrectAnswer))
		q.Options = nil
	}
	if err := structured.ValidateQuestion(q); err != nil {
		return models.QuizQuestion{}, err
	}
	return q, nil
}

// GroupQuestions splits a batch into presentation groups of the given
// size, the last group holding the remainder.
func GroupQuestions(questions []models.QuizQuestion, size int) []models.QuestionGroup {
	if size <= 0 || len(questions) == 0 {
		return nil
	}
	groups := make([]models.QuestionGroup, 0, (len(questions)+size-1)/size)
	for start := 0; start < len(questions); start += size {
		end := start + size
		if end > len(questions) {
			end = len(questions)
		}
		groups = append(groups, models.QuestionGroup{Questions: questions[start:end]})
	}
	return groups
}
