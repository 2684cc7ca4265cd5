package quiz

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/export"
	"github.com/meetscribe/backend/internal/meetings"
	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/response"
)

// Handler handles quiz HTTP endpoints.
type Handler struct {
	engine *Engine
	store  *Store
	repo   *meetings.Store
	logger *zap.Logger
}

// NewHandler creates a quiz handler.
func NewHandler(engine *Engine, store *Store, repo *meetings.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, store: store, repo: repo, logger: logger}
}

// batchView is the API shape of a quiz batch.
type batchView struct {
	ID       string                           `json:"id"`
	Groups   []models.QuestionGroup           `json:"groups"`
	States   map[string]*models.QuestionState `json:"states"`
	Answered int                              `json:"answered"`
	Correct  int                              `json:"correct"`
	Score    int                              `json:"score"`
}

func viewOf(b *Batch) batchView {
	return batchView{
		ID:       b.ID,
		Groups:   b.Groups(),
		States:   b.States,
		Answered: b.Answered(),
		Correct:  b.Correct(),
		Score:    b.Score(),
	}
}

// Generate handles POST /meetings/:id/quiz.
func (h *Handler) Generate(c *gin.Context) {
	record, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	cfg := models.QuizConfig{NumQuestions: 10, Difficulty: models.DifficultyMedium}
	var body struct {
		NumQuestions *int    `json:"numQuestions"`
		Difficulty   *string `json:"difficulty"`
	}
	if err := c.ShouldBindJSON(&body); err == nil {
		if body.NumQuestions != nil {
			cfg.NumQuestions = *body.NumQuestions
		}
		if body.Difficulty != nil {
			cfg.Difficulty = *body.Difficulty
		}
	}

	questions, err := h.engine.Generate(c.Request.Context(), record.Text, cfg)
	if err != nil {
		response.Error(c, err)
		return
	}
	batch := h.store.Add(questions)
	h.logger.Info("quiz generated", zap.String("meeting_id", record.ID), zap.String("quiz_id", batch.ID), zap.Int("questions", len(questions)))
	response.Created(c, viewOf(batch))
}

// Get handles GET /quizzes/:id.
func (h *Handler) Get(c *gin.Context) {
	batch, err := h.store.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.OK(c, viewOf(batch))
}

// Answer handles POST /quizzes/:id/answers.
func (h *Handler) Answer(c *gin.Context) {
	var body struct {
		QuestionID string `json:"questionId"`
		Answer     string `json:"answer"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.QuestionID == "" {
		response.BadRequest(c, "questionId and answer are required")
		return
	}

	state, err := h.store.Answer(c.Param("id"), body.QuestionID, body.Answer)
	if err != nil {
		response.Error(c, err)
		return
	}
	batch, err := h.store.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.OK(c, gin.H{
		"state":    state,
		"answered": batch.Answered(),
		"correct":  batch.Correct(),
		"score":    batch.Score(),
	})
}

// Delete handles DELETE /quizzes/:id.
func (h *Handler) Delete(c *gin.Context) {
	h.store.Delete(c.Param("id"))
	response.NoContent(c)
}

// Export handles GET /quizzes/:id/export. Streams the graded quiz as a
// PDF: score, each question with the selected and correct answers, and
// the explanations.
func (h *Handler) Export(c *gin.Context) {
	batch, err := h.store.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	data, err := export.Quiz(export.QuizResult{
		Title:     "Quiz Results",
		Date:      time.Now().Format("Jan 2, 2006 3:04 PM"),
		Questions: batch.Questions,
		States:    batch.States,
		Correct:   batch.Correct(),
		Score:     batch.Score(),
	})
	if err != nil {
		h.logger.Error("quiz export failed", zap.Error(err), zap.String("quiz_id", batch.ID))
		response.Internal(c, "failed to export quiz")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "quiz-"+batch.ID+".pdf"))
	c.Data(200, "application/pdf", data)
}
