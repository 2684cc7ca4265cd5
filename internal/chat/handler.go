package chat

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/internal/session"
	"github.com/meetscribe/backend/pkg/response"
)

// Handler handles transcript Q&A HTTP endpoints. Questions run against the
// session's active meeting.
type Handler struct {
	svc     *Service
	manager *session.Manager
	logger  *zap.Logger
}

// NewHandler creates a chat handler.
func NewHandler(svc *Service, manager *session.Manager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, manager: manager, logger: logger}
}

func (h *Handler) activeMeeting(c *gin.Context) (*models.MeetingRecord, bool) {
	m, err := h.manager.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return nil, false
	}
	record := m.ActiveMeeting()
	if record == nil {
		response.BadRequest(c, "no meeting is open in this session")
		return nil, false
	}
	return record, true
}

// Ask handles POST /sessions/:id/chat.
func (h *Handler) Ask(c *gin.Context) {
	record, ok := h.activeMeeting(c)
	if !ok {
		return
	}
	var body struct {
		Question string `json:"question"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "question is required")
		return
	}

	answer, err := h.svc.Ask(c.Request.Context(), c.Param("id"), record.Text, body.Question)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"question": body.Question, "answer": answer})
}

// Messages handles GET /sessions/:id/chat.
func (h *Handler) Messages(c *gin.Context) {
	if _, err := h.manager.Get(c.Param("id")); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.OK(c, h.svc.Messages(c.Param("id")))
}

// Clear handles DELETE /sessions/:id/chat.
func (h *Handler) Clear(c *gin.Context) {
	if _, err := h.manager.Get(c.Param("id")); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	h.svc.Clear(c.Param("id"))
	response.NoContent(c)
}
