// Package pipeline runs the recording pipeline: transcribe the audio,
// analyze the transcript, persist the meeting. The session machine runs it
// inline; the worker runs it for queued uploads. Both publish the same
// progress and terminal events.
package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/analysis"
	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/meetings"
	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/internal/realtime"
	"github.com/meetscribe/backend/internal/transcription"
)

// Events receives pipeline events for a session. *realtime.Hub satisfies it.
type Events interface {
	BroadcastAndPublish(sessionID, event string, payload interface{})
}

// ProgressEvent is the payload of progress events.
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
}

// CompletedEvent is the payload of the completed event.
type CompletedEvent struct {
	Meeting *models.MeetingRecord `json:"meeting"`
}

// FailedEvent is the payload of the failed event.
type FailedEvent struct {
	Error string `json:"error"`
}

// Pipeline wires the stages together.
type Pipeline struct {
	transcriber *transcription.Adapter
	analyzer    *analysis.Engine
	store       *meetings.Store
	events      Events
	logger      *zap.Logger
}

// New creates a pipeline. events may be nil when nothing subscribes.
func New(transcriber *transcription.Adapter, analyzer *analysis.Engine, store *meetings.Store, events Events, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		transcriber: transcriber,
		analyzer:    analyzer,
		store:       store,
		events:      events,
		logger:      logger,
	}
}

// Run processes one recording end to end and returns the persisted
// meeting. Progress and the terminal completed/failed event are published
// for the session as the run advances.
func (p *Pipeline) Run(ctx context.Context, sessionID string, audio models.Audio, withTimestamps bool) (*models.MeetingRecord, error) {
	record, err := p.run(ctx, sessionID, audio, withTimestamps)
	if err != nil {
		p.publish(sessionID, realtime.EventFailed, FailedEvent{Error: err.Error()})
		return nil, err
	}
	p.publish(sessionID, realtime.EventCompleted, CompletedEvent{Meeting: record})
	return record, nil
}

func (p *Pipeline) run(ctx context.Context, sessionID string, audio models.Audio, withTimestamps bool) (*models.MeetingRecord, error) {
	transcript, err := p.transcriber.Transcribe(ctx, audio, withTimestamps, func(progress transcription.Progress) {
		p.publish(sessionID, realtime.EventProgress, ProgressEvent{Stage: progress.Stage, Percent: progress.Percent})
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return nil, errs.Input("no speech was detected in the recording")
	}

	result, err := p.analyzer.Analyze(ctx, transcript.Text)
	if err != nil {
		return nil, err
	}

	record, err := p.store.SaveNew(ctx, transcript, result)
	if err != nil {
		return nil, err
	}
	p.logger.Info("pipeline finished", zap.String("session_id", sessionID), zap.String("meeting_id", record.ID))
	return record, nil
}

func (p *Pipeline) publish(sessionID, event string, payload interface{}) {
	if p.events == nil {
		return
	}
	p.events.BroadcastAndPublish(sessionID, event, payload)
}
