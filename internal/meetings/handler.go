package meetings

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/export"
	"github.com/meetscribe/backend/internal/transcription"
	"github.com/meetscribe/backend/pkg/response"
)

// Handler handles meeting history HTTP endpoints.
type Handler struct {
	store  *Store
	logger *zap.Logger
}

// NewHandler creates a meetings handler.
func NewHandler(store *Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// List handles GET /meetings.
func (h *Handler) List(c *gin.Context) {
	records, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list meetings failed", zap.Error(err))
		response.Internal(c, "failed to list meetings")
		return
	}
	response.OK(c, records)
}

// Get handles GET /meetings/:id.
func (h *Handler) Get(c *gin.Context) {
	record, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.OK(c, record)
}

// Delete handles DELETE /meetings/:id.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.NoContent(c)
}

// Transcript handles GET /meetings/:id/transcript. With ?timestamps=true
// and stored segments, the transcript is rendered one line per segment.
func (h *Handler) Transcript(c *gin.Context) {
	record, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	text := record.Text
	if c.Query("timestamps") == "true" && len(record.Segments) > 0 {
		text = transcription.FormatTimestamped(record.Transcript())
	}
	response.OK(c, gin.H{"meetingId": record.ID, "transcript": text})
}

// Export handles GET /meetings/:id/export. Streams the meeting as a PDF.
func (h *Handler) Export(c *gin.Context) {
	record, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	data, err := export.Meeting(record)
	if err != nil {
		h.logger.Error("meeting export failed", zap.Error(err), zap.String("meeting_id", record.ID))
		response.Internal(c, "failed to export meeting")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.ID+".pdf"))
	c.Data(200, "application/pdf", data)
}
