package quiz

import (
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/models"
)

// GroupSize is how many questions each presentation group holds.
const GroupSize = 5

// Batch is one generated quiz together with its answer state.
type Batch struct {
	ID        string                           `json:"id"`
	Questions []models.QuizQuestion            `json:"questions"`
	States    map[string]*models.QuestionState `json:"states"`
}

// Answered counts the questions answered so far.
func (b *Batch) Answered() int {
	n := 0
	for _, st := range b.States {
		if st.IsAnswered {
			n++
		}
	}
	return n
}

// Correct counts the questions answered correctly so far.
func (b *Batch) Correct() int {
	n := 0
	for _, st := range b.States {
		if st.IsAnswered && st.IsCorrect {
			n++
		}
	}
	return n
}

// Score is the percentage of correct answers over all questions in the
// batch, rounded to the nearest integer.
func (b *Batch) Score() int {
	if len(b.Questions) == 0 {
		return 0
	}
	return int(math.Round(float64(b.Correct()) / float64(len(b.Questions)) * 100))
}

// Groups returns the batch's questions split into presentation groups.
func (b *Batch) Groups() []models.QuestionGroup {
	return GroupQuestions(b.Questions, GroupSize)
}

// Store holds generated quiz batches in memory, keyed by batch id.
type Store struct {
	mu      sync.Mutex
	batches map[string]*Batch
}

// NewStore creates an empty quiz store.
func NewStore() *Store {
	return &Store{batches: make(map[string]*Batch)}
}

// Add registers a generated batch and returns it with a fresh id.
func (s *Store) Add(questions []models.QuizQuestion) *Batch {
	b := &Batch{
		ID:        uuid.New().String(),
		Questions: questions,
		States:    make(map[string]*models.QuestionState, len(questions)),
	}
	for _, q := range questions {
		b.States[q.ID] = &models.QuestionState{}
	}
	s.mu.Lock()
	s.batches[b.ID] = b
	s.mu.Unlock()
	return b
}

// Get returns the batch with the given id.
func (s *Store) Get(batchID string) (*Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[batchID]
	if !ok {
		return nil, errs.Inputf("unknown quiz %q", batchID)
	}
	return b, nil
}

// Delete drops a batch.
func (s *Store) Delete(batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.batches, batchID)
}

// Answer records an answer for one question. The first answer wins: a
// question already answered keeps its original selection and result.
func (s *Store) Answer(batchID, questionID, selected string) (*models.QuestionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[batchID]
	if !ok {
		return nil, errs.Inputf("unknown quiz %q", batchID)
	}
	st, ok := b.States[questionID]
	if !ok {
		return nil, errs.Inputf("unknown question %q", questionID)
	}
	if st.IsAnswered {
		return st, nil
	}

	var question *models.QuizQuestion
	for i := range b.Questions {
		if b.Questions[i].ID == questionID {
			question = &b.Questions[i]
			break
		}
	}
	if question == nil {
		return nil, errs.Inputf("unknown question %q", questionID)
	}

	normalized := normalizeAnswer(question.Type, selected)
	st.SelectedAnswer = normalized
	st.IsAnswered = true
	st.IsCorrect = normalized == question.CorrectAnswer
	return st, nil
}

func normalizeAnswer(questionType, selected string) string {
	selected = strings.TrimSpace(selected)
	if questionType == models.QuestionTypeTrueFalse {
		return strings.ToLower(selected)
	}
	return strings.ToUpper(selected)
}
