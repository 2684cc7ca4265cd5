package meetings

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/llm"
	"github.com/meetscribe/backend/internal/models"
)

// FallbackTitle is used when title generation fails or produces nothing.
const FallbackTitle = "Meeting Summary"

const titleSystemPrompt = "You generate short meeting titles. Respond with a title of at most 6 words that captures the main topic. No quotes, no punctuation at the end."

// Store assembles finished meeting records and persists them through a
// Repository, generating ids, timestamps, and titles along the way.
type Store struct {
	repo   Repository
	chat   llm.Chat
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a meeting store. chat may be nil, in which case every
// record gets the fallback title.
func NewStore(repo Repository, chat llm.Chat, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{repo: repo, chat: chat, logger: logger, now: time.Now}
}

// SaveNew builds a record from the pipeline's outputs, titles it, and
// persists it at the head of the history.
func (s *Store) SaveNew(ctx context.Context, transcript *models.Transcript, analysis *models.Analysis) (*models.MeetingRecord, error) {
	ts := s.now().UTC().Format("2006-01-02T15:04:05.000Z")
	record := models.MeetingRecord{
		ID:          "meeting-" + sanitizeID(ts),
		Title:       s.generateTitle(ctx, analysis.Summary),
		Timestamp:   ts,
		Text:        transcript.Text,
		Segments:    transcript.Segments,
		Summary:     analysis.Summary,
		ActionItems: analysis.ActionItems,
		Sentiment:   analysis.Sentiment,
	}
	if err := s.repo.Save(ctx, record); err != nil {
		return nil, err
	}
	s.logger.Info("meeting saved", zap.String("meeting_id", record.ID), zap.String("title", record.Title))
	return &record, nil
}

// List returns the history newest-first. Titles from older records are
// re-sanitized on the way out.
func (s *Store) List(ctx context.Context) ([]models.MeetingRecord, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Title = sanitizeTitle(records[i].Title)
	}
	return records, nil
}

// Get returns one meeting by id.
func (s *Store) Get(ctx context.Context, id string) (*models.MeetingRecord, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	record.Title = sanitizeTitle(record.Title)
	return record, nil
}

// Delete removes one meeting by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// generateTitle asks the model for a short title based on the summary.
// Any failure degrades to the fallback title; a missing title never blocks
// persistence.
func (s *Store) generateTitle(ctx context.Context, summary []string) string {
	if s.chat == nil || len(summary) == 0 {
		return FallbackTitle
	}
	raw, err := s.chat.Complete(ctx, llm.CompletionRequest{
		System:      titleSystemPrompt,
		Prompt:      "Meeting summary:\n" + strings.Join(summary, "\n"),
		Temperature: 0.7,
		MaxTokens:   30,
	})
	if err != nil {
		s.logger.Warn("title generation failed, using fallback", zap.Error(err))
		return FallbackTitle
	}
	title := sanitizeTitle(raw)
	if title == "" {
		return FallbackTitle
	}
	if words := strings.Fields(title); len(words) > 6 {
		title = strings.Join(words[:6], " ")
	}
	return title
}

// sanitizeID makes an ISO timestamp filesystem- and URL-safe.
func sanitizeID(ts string) string {
	return strings.NewReplacer(":", "-", ".", "-").Replace(ts)
}

// sanitizeTitle strips the quote characters the model tends to add,
// wherever they appear.
func sanitizeTitle(title string) string {
	title = strings.ReplaceAll(title, `"`, "")
	title = strings.ReplaceAll(title, "'", "")
	return strings.TrimSpace(title)
}
