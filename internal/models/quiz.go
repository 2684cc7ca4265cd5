package models

// Question types produced by the quiz generation contract.
const (
	QuestionTypeMultipleChoice = "multiple-choice"
	QuestionTypeTrueFalse      = "true-false"
)

// Quiz difficulties accepted by the quiz generation contract.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// QuizQuestion is one validated, normalized question from a generated
// batch. IDs are assigned sequentially (q-1, q-2, ...) at normalization
// time, replacing whatever the service proposed. Options is present with
// exactly 4 entries for multiple-choice and absent for true-false.
type QuizQuestion struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// QuestionState records the single grading outcome for a question. Created
// on first answer submission and immutable afterwards.
type QuestionState struct {
	SelectedAnswer string `json:"selectedAnswer"`
	IsAnswered     bool   `json:"isAnswered"`
	IsCorrect      bool   `json:"isCorrect"`
}

// QuestionGroup is a fixed-size display partition of a question batch.
type QuestionGroup struct {
	Questions []QuizQuestion `json:"questions"`
}

// QuizConfig is the generation request: 5-20 questions at one of the three
// difficulties.
type QuizConfig struct {
	NumQuestions int    `json:"numQuestions"`
	Difficulty   string `json:"difficulty"`
}
