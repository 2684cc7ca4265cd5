// Package worker drains pipeline jobs from the queue: fetch the uploaded
// audio from S3, run the recording pipeline, and clean up the object.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/internal/pipeline"
	"github.com/meetscribe/backend/pkg/queue"
	"github.com/meetscribe/backend/pkg/storage"
)

// PipelineProcessor processes queued recording jobs.
type PipelineProcessor struct {
	pipeline *pipeline.Pipeline
	s3       *storage.S3
	queue    *queue.Queue
	logger   *zap.Logger
}

// NewPipelineProcessor creates a pipeline job processor.
func NewPipelineProcessor(p *pipeline.Pipeline, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *PipelineProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineProcessor{pipeline: p, s3: s3, queue: q, logger: logger}
}

// Process executes one pipeline job. The stored audio object is deleted
// once the pipeline finishes, whatever the outcome; retries re-upload
// nothing and a job whose object is gone is treated as done.
func (p *PipelineProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypePipeline {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.PipelinePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	body, contentType, _, err := p.s3.GetObjectStream(ctx, payload.ObjectKey)
	if err != nil {
		p.logger.Warn("audio object missing, dropping job", zap.String("object_key", payload.ObjectKey), zap.Error(err))
		return nil
	}
	data, err := io.ReadAll(body)
	_ = body.Close()
	if err != nil {
		return fmt.Errorf("read audio object: %w", err)
	}
	if payload.ContentType != "" {
		contentType = payload.ContentType
	}

	audio := models.Audio{Filename: payload.Filename, ContentType: contentType, Data: data}
	_, runErr := p.pipeline.Run(ctx, payload.SessionID, audio, payload.WithTimestamps)

	if runErr == nil || !retryable(runErr) {
		if delErr := p.s3.DeleteObject(ctx, payload.ObjectKey); delErr != nil {
			p.logger.Warn("delete audio object failed", zap.String("object_key", payload.ObjectKey), zap.Error(delErr))
		}
	}
	if runErr != nil {
		return fmt.Errorf("pipeline run: %w", runErr)
	}

	p.logger.Info("pipeline job completed", zap.String("job_id", job.ID), zap.String("session_id", payload.SessionID))
	return nil
}

// retryable reports whether a failed run is worth retrying. Bad input
// (silence, unsupported format) and missing configuration fail the same
// way every attempt.
func retryable(err error) bool {
	switch errs.KindOf(err) {
	case errs.KindInput, errs.KindConfiguration, errs.KindValidation:
		return false
	}
	return true
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *PipelineProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if !retryable(err) {
				continue
			}
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
