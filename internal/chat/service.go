// Package chat answers follow-up questions about a finished meeting using
// its transcript as context.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/llm"
	"github.com/meetscribe/backend/internal/models"
)

const answerSystemPrompt = "You are a helpful assistant answering questions about a meeting. Base every answer strictly on the transcript provided. If the transcript does not contain the answer, say so."

const concisenessInstruction = "Please provide the most concise answer possible. Use phrases instead of sentences. Omit unnecessary words and explanations. Be direct and to the point."

// leadIns are sentence openers trimmed from answers so they read as
// terse notes rather than prose.
var leadIns = map[string]bool{
	"i": true, "the": true, "it": true, "this": true, "that": true,
	"these": true, "those": true, "we": true, "they": true,
}

// Service answers questions and keeps a per-session message log.
type Service struct {
	chat   llm.Chat
	logger *zap.Logger

	mu   sync.Mutex
	logs map[string][]models.ChatMessage
}

// NewService creates a chat service.
func NewService(chat llm.Chat, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{chat: chat, logger: logger, logs: make(map[string][]models.ChatMessage)}
}

// Ask answers a question about the transcript and records the exchange in
// the session's message log. While the model is working the entry is in the
// thinking state; on failure the entry is removed so the log only ever
// holds answered questions and the one in flight.
func (s *Service) Ask(ctx context.Context, sessionID, transcript, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errs.Input("question is empty")
	}
	if strings.TrimSpace(transcript) == "" {
		return "", errs.Input("no transcript available to answer questions about")
	}

	id := s.appendThinking(sessionID, question)

	answer, err := s.answer(ctx, transcript, question)
	if err != nil {
		s.remove(sessionID, id)
		return "", err
	}

	s.complete(sessionID, id, answer)
	return answer, nil
}

// Messages returns a copy of the session's message log in order.
func (s *Service) Messages(sessionID string) []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.logs[sessionID]
	out := make([]models.ChatMessage, len(log))
	copy(out, log)
	return out
}

// Clear drops the session's message log.
func (s *Service) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, sessionID)
}

func (s *Service) answer(ctx context.Context, transcript, question string) (string, error) {
	prompt := concisenessInstruction + "\n\nMeeting transcript:\n" + transcript + "\n\nQuestion: " + question
	raw, err := s.chat.Complete(ctx, llm.CompletionRequest{
		System:      answerSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		return "", err
	}
	answer := TrimLeadIn(strings.TrimSpace(raw))
	if answer == "" {
		return "", errs.Service("model returned an empty answer", nil)
	}
	return answer, nil
}

// Entries are addressed by id, not index: concurrent questions on one
// session may complete or fail in any order, and a removal shifts the
// positions of everything after it.
func (s *Service) appendThinking(sessionID, question string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.logs[sessionID] = append(s.logs[sessionID], models.ChatMessage{
		ID:       id,
		Question: question,
		Status:   models.ChatStatusThinking,
	})
	return id
}

func (s *Service) complete(sessionID, id, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.logs[sessionID]
	for i := range log {
		if log[i].ID == id {
			log[i].Answer = answer
			log[i].Status = models.ChatStatusComplete
			return
		}
	}
}

func (s *Service) remove(sessionID, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.logs[sessionID]
	for i := range log {
		if log[i].ID == id {
			s.logs[sessionID] = append(log[:i], log[i+1:]...)
			return
		}
	}
}

// TrimLeadIn strips a single leading pronoun or article token so short
// answers read like notes ("The launch moved to May" -> "launch moved to
// May"). Single-word answers are kept as-is.
func TrimLeadIn(answer string) string {
	fields := strings.Fields(answer)
	if len(fields) < 2 {
		return answer
	}
	first := strings.ToLower(strings.Trim(fields[0], ",.:;"))
	if !leadIns[first] {
		return answer
	}
	return strings.Join(fields[1:], " ")
}
