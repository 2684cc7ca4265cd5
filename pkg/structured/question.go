package structured

import (
	"fmt"

	"github.com/meetscribe/backend/internal/models"
)

var mcLetters = map[string]bool{"A": true, "B": true, "C": true, "D": true}

// ValidateQuestion strictly checks one normalized quiz question against the
// generation contract. Multiple-choice questions carry exactly 4 options
// and a letter answer; true-false questions carry no options and a
// lowercase true/false answer. Callers drop questions that fail rather
// than aborting the whole batch.
func ValidateQuestion(q models.QuizQuestion) error {
	if q.ID == "" {
		return fmt.Errorf("question has no id")
	}
	if q.Question == "" {
		return fmt.Errorf("question text is empty")
	}
	if q.Explanation == "" {
		return fmt.Errorf("question has no explanation")
	}
	switch q.Type {
	case models.QuestionTypeMultipleChoice:
		if len(q.Options) != 4 {
			return fmt.Errorf("multiple-choice question has %d options, want 4", len(q.Options))
		}
		for i, opt := range q.Options {
			if opt == "" {
				return fmt.Errorf("option %d is empty", i)
			}
		}
		if !mcLetters[q.CorrectAnswer] {
			return fmt.Errorf("multiple-choice answer %q is not one of A-D", q.CorrectAnswer)
		}
	case models.QuestionTypeTrueFalse:
		if q.Options != nil {
			return fmt.Errorf("true-false question must not carry options")
		}
		if q.CorrectAnswer != "true" && q.CorrectAnswer != "false" {
			return fmt.Errorf("true-false answer %q is not true/false", q.CorrectAnswer)
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	return nil
}
