package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/internal/realtime"
	"github.com/meetscribe/backend/internal/transcription"
	"github.com/meetscribe/backend/pkg/queue"
	"github.com/meetscribe/backend/pkg/response"
	"github.com/meetscribe/backend/pkg/storage"
)

// Handler handles session HTTP endpoints.
type Handler struct {
	manager *Manager
	s3      *storage.S3              // optional: durable upload path
	queue   *queue.Queue             // optional: hand uploads to the worker
	sub     realtime.RedisSubscriber // optional: observe worker outcomes
	logger  *zap.Logger
}

// NewHandler creates a session handler. s3, q, and sub may be nil; uploads
// are then processed in-process instead of through the worker.
func NewHandler(manager *Manager, s3 *storage.S3, q *queue.Queue, sub realtime.RedisSubscriber, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{manager: manager, s3: s3, queue: q, sub: sub, logger: logger}
}

// Create handles POST /sessions.
func (h *Handler) Create(c *gin.Context) {
	m := h.manager.Create()
	response.Created(c, m.Snapshot())
}

// Get handles GET /sessions/:id.
func (h *Handler) Get(c *gin.Context) {
	m, err := h.manager.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.OK(c, m.Snapshot())
}

// Remove handles DELETE /sessions/:id.
func (h *Handler) Remove(c *gin.Context) {
	h.manager.Remove(c.Param("id"))
	response.NoContent(c)
}

// StartRecording handles POST /sessions/:id/recording/start.
func (h *Handler) StartRecording(c *gin.Context) {
	m, err := h.manager.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	var body struct {
		IncludeSystemAudio bool `json:"includeSystemAudio"`
	}
	_ = c.ShouldBindJSON(&body)

	if err := m.StartRecording(body.IncludeSystemAudio); err != nil {
		if errors.Is(err, ErrBusy) {
			response.Conflict(c, err.Error())
			return
		}
		response.Error(c, err)
		return
	}
	response.OK(c, m.Snapshot())
}

// StopRecording handles POST /sessions/:id/recording/stop. The pipeline
// runs in the background; progress and the outcome arrive over the
// session's WebSocket stream, and the snapshot reflects them for polling.
func (h *Handler) StopRecording(c *gin.Context) {
	m, err := h.manager.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		if _, err := m.StopRecording(ctx); err != nil {
			h.logger.Warn("pipeline run failed", zap.String("session_id", m.ID()), zap.Error(err))
		}
	}()
	response.OK(c, gin.H{"status": "processing"})
}

// CancelRecording handles POST /sessions/:id/recording/cancel.
func (h *Handler) CancelRecording(c *gin.Context) {
	m, err := h.manager.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	if err := m.CancelRecording(); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m.Snapshot())
}

// Upload handles POST /sessions/:id/upload (multipart). With S3 and the
// queue configured the audio is stored durably and handed to the worker;
// otherwise it is processed in-process.
func (h *Handler) Upload(c *gin.Context) {
	m, err := h.manager.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > storage.MaxAudioFileSize {
		response.BadRequest(c, "file size must be less than 25MB")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(fileHeader.Filename)
	}
	if !storage.ValidateAudioFileType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported file format; upload one of: FLAC, M4A, MP3, MP4, MPEG, MPGA, OGA, OGG, WAV, or WEBM")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read upload")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.Internal(c, "failed to read upload")
		return
	}

	withTimestamps := c.PostForm("withTimestamps") == "true"
	audio := models.Audio{Filename: fileHeader.Filename, ContentType: contentType, Data: data}

	if h.s3 != nil && h.queue != nil {
		h.uploadViaWorker(c, m, audio, withTimestamps)
		return
	}

	if err := m.begin(); err != nil {
		response.Conflict(c, err.Error())
		return
	}
	// begin claimed the machine; run the rest out of band.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		if _, err := m.runClaimed(ctx, audio, withTimestamps); err != nil {
			h.logger.Warn("pipeline run failed", zap.String("session_id", m.ID()), zap.Error(err))
		}
	}()
	response.OK(c, gin.H{"status": "processing"})
}

// PresignUpload handles POST /sessions/:id/uploads/presign. Returns a
// pre-signed PUT URL so the client can upload audio straight to S3,
// bypassing the API server for large files.
func (h *Handler) PresignUpload(c *gin.Context) {
	m, err := h.manager.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	if h.s3 == nil || h.queue == nil {
		response.ServiceUnavailable(c, "direct uploads are not configured")
		return
	}
	var body struct {
		Filename    string `json:"filename"`
		ContentType string `json:"contentType"`
		Size        int64  `json:"size"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Filename == "" {
		response.BadRequest(c, "filename is required")
		return
	}
	if body.Size > storage.MaxAudioFileSize {
		response.BadRequest(c, "file size must be less than 25MB")
		return
	}
	contentType := body.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(body.Filename)
	}
	if !storage.ValidateAudioFileType(contentType, body.Filename) {
		response.BadRequest(c, "unsupported file format; upload one of: FLAC, M4A, MP3, MP4, MPEG, MPGA, OGA, OGG, WAV, or WEBM")
		return
	}

	key := storage.AudioKey(m.ID(), uuid.New().String(), body.Filename)
	expires := h.s3.PresignExpire()
	url, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), key, contentType, expires)
	if err != nil {
		h.logger.Error("presign upload URL failed", zap.Error(err), zap.String("session_id", m.ID()))
		response.Internal(c, "failed to create the upload URL")
		return
	}
	response.OK(c, gin.H{
		"url":         url,
		"objectKey":   key,
		"contentType": contentType,
		"expiresIn":   int(expires.Seconds()),
	})
}

// Process handles POST /sessions/:id/process: enqueues a pipeline job for
// an audio object the client already uploaded via a pre-signed URL.
func (h *Handler) Process(c *gin.Context) {
	m, err := h.manager.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	if h.s3 == nil || h.queue == nil {
		response.ServiceUnavailable(c, "direct uploads are not configured")
		return
	}
	var body struct {
		ObjectKey      string `json:"objectKey"`
		Filename       string `json:"filename"`
		WithTimestamps bool   `json:"withTimestamps"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ObjectKey == "" {
		response.BadRequest(c, "objectKey is required")
		return
	}
	if err := m.MarkUploading(); err != nil {
		response.Conflict(c, err.Error())
		return
	}

	if h.sub != nil {
		h.watchOutcome(m)
	}

	filename := body.Filename
	if filename == "" {
		filename = path.Base(body.ObjectKey)
	}
	err = h.queue.EnqueuePipeline(c.Request.Context(), queue.PipelinePayload{
		SessionID:      m.ID(),
		ObjectKey:      body.ObjectKey,
		ContentType:    storage.ContentTypeForFilename(filename),
		Filename:       filename,
		WithTimestamps: body.WithTimestamps,
	})
	if err != nil {
		m.Fail("failed to queue the recording for processing")
		h.logger.Error("enqueue pipeline job failed", zap.Error(err), zap.String("session_id", m.ID()))
		response.Internal(c, "failed to queue the recording for processing")
		return
	}
	m.MarkProcessing()
	response.OK(c, gin.H{"status": "processing", "objectKey": body.ObjectKey})
}

// uploadViaWorker stores the audio in S3 and enqueues a pipeline job. The
// worker publishes the outcome on the session channel; a one-shot
// subscription mirrors it into the machine.
func (h *Handler) uploadViaWorker(c *gin.Context, m *Machine, audio models.Audio, withTimestamps bool) {
	if err := m.MarkUploading(); err != nil {
		response.Conflict(c, err.Error())
		return
	}

	key := storage.AudioKey(m.ID(), uuid.New().String(), audio.Filename)
	if _, err := h.s3.Upload(c.Request.Context(), key, audio.ContentType, bytes.NewReader(audio.Data), audio.Size()); err != nil {
		m.Fail("failed to store the uploaded audio")
		h.logger.Error("audio upload to S3 failed", zap.Error(err), zap.String("session_id", m.ID()))
		response.Internal(c, "failed to store the uploaded audio")
		return
	}

	if h.sub != nil {
		h.watchOutcome(m)
	}

	err := h.queue.EnqueuePipeline(c.Request.Context(), queue.PipelinePayload{
		SessionID:      m.ID(),
		ObjectKey:      key,
		ContentType:    audio.ContentType,
		Filename:       audio.Filename,
		WithTimestamps: withTimestamps,
	})
	if err != nil {
		m.Fail("failed to queue the recording for processing")
		h.logger.Error("enqueue pipeline job failed", zap.Error(err), zap.String("session_id", m.ID()))
		response.Internal(c, "failed to queue the recording for processing")
		return
	}
	m.MarkProcessing()
	response.OK(c, gin.H{"status": "processing", "objectKey": key})
}

// watchOutcome mirrors the worker's terminal event into the machine, then
// drops the subscription.
func (h *Handler) watchOutcome(m *Machine) {
	var cancel func()
	var err error
	cancel, err = h.sub.SubscribeSession(m.ID(), func(event string, payload []byte) {
		switch event {
		case realtime.EventProgress:
			var p transcription.Progress
			if json.Unmarshal(payload, &p) == nil {
				m.SetProgress(p)
			}
			return
		case realtime.EventCompleted:
			var body struct {
				Meeting *models.MeetingRecord `json:"meeting"`
			}
			if jsonErr := json.Unmarshal(payload, &body); jsonErr == nil && body.Meeting != nil {
				m.Complete(body.Meeting)
			}
		case realtime.EventFailed:
			var body struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(payload, &body)
			m.Fail(body.Error)
		default:
			return
		}
		if cancel != nil {
			cancel()
		}
	})
	if err != nil {
		h.logger.Warn("could not watch worker outcome", zap.Error(err), zap.String("session_id", m.ID()))
	}
}

// LoadMeeting handles POST /sessions/:id/meetings/:meetingID/load.
func (h *Handler) LoadMeeting(c *gin.Context) {
	m, err := h.manager.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	record, err := m.LoadMeeting(c.Request.Context(), c.Param("meetingID"))
	if err != nil {
		if errors.Is(err, ErrBusy) {
			response.Conflict(c, err.Error())
			return
		}
		response.NotFound(c, err.Error())
		return
	}
	response.OK(c, record)
}

// CloseMeeting handles POST /sessions/:id/meetings/close.
func (h *Handler) CloseMeeting(c *gin.Context) {
	m, err := h.manager.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	m.CloseMeeting()
	response.OK(c, m.Snapshot())
}

// DeleteMeeting handles DELETE /sessions/:id/meetings/:meetingID.
func (h *Handler) DeleteMeeting(c *gin.Context) {
	m, err := h.manager.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	if err := m.DeleteMeeting(c.Request.Context(), c.Param("meetingID")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
