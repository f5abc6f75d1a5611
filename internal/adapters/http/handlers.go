package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/minhtq/quizchat/internal/app"
	"github.com/minhtq/quizchat/internal/config"
	"github.com/minhtq/quizchat/internal/domain"
	"github.com/minhtq/quizchat/internal/protocol"
	"github.com/minhtq/quizchat/internal/storage"
)

// Handlers serves the backfill and discussion-registry REST surface.
type Handlers struct {
	cfg      *config.Config
	store    storage.Store
	presence *app.Presence
}

func NewHandlers(cfg *config.Config, store storage.Store, presence *app.Presence) *Handlers {
	return &Handlers{cfg: cfg, store: store, presence: presence}
}

type chatMessageDTO struct {
	ID        string        `json:"id"`
	UserID    domain.UserID `json:"userId"`
	UserName  string        `json:"userName"`
	Content   string        `json:"content"`
	Timestamp string        `json:"timestamp"`
}

type privateMessageDTO struct {
	ID           string        `json:"id"`
	FromUserID   domain.UserID `json:"fromUserId"`
	FromUserName string        `json:"fromUserName"`
	ToUserID     domain.UserID `json:"toUserId"`
	Content      string        `json:"content"`
	Timestamp    string        `json:"timestamp"`
}

type discussionMessageDTO struct {
	ID        string        `json:"id"`
	QuizID    string        `json:"quizId"`
	UserID    domain.UserID `json:"userId"`
	UserName  string        `json:"userName"`
	Content   string        `json:"content"`
	Timestamp string        `json:"timestamp"`
}

type discussionDTO struct {
	ID              string        `json:"id"`
	QuizID          string        `json:"quizId"`
	QuizTitle       string        `json:"quizTitle"`
	QuizDescription string        `json:"quizDescription,omitempty"`
	AddedBy         domain.UserID `json:"addedBy"`
	AddedByName     string        `json:"addedByName"`
	AddedAt         string        `json:"addedAt"`
	MessageCount    int64         `json:"messageCount"`
}

func discussionToDTO(e *storage.DiscussionEntry) discussionDTO {
	return discussionDTO{
		ID:              e.ID,
		QuizID:          e.QuizID,
		QuizTitle:       e.QuizTitle,
		QuizDescription: e.QuizDescription,
		AddedBy:         e.AddedBy,
		AddedByName:     e.AddedByName,
		AddedAt:         protocol.FormatTime(e.AddedAt),
		MessageCount:    e.MessageCount,
	}
}

func (h *Handlers) limit(c *gin.Context) int {
	limit := h.cfg.HistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > h.cfg.HistoryMaxLimit {
		limit = h.cfg.HistoryMaxLimit
	}
	return limit
}

// GET /api/chat/messages?limit=N
func (h *Handlers) ListChatMessages(c *gin.Context) {
	messages, err := h.store.ListChat(c.Request.Context(), h.limit(c))
	if err != nil {
		h.internalError(c, err)
		return
	}
	out := make([]chatMessageDTO, 0, len(messages))
	for _, m := range messages {
		out = append(out, chatMessageDTO{
			ID:        m.ID,
			UserID:    m.UserID,
			UserName:  m.UserName,
			Content:   m.Content,
			Timestamp: protocol.FormatTime(m.Timestamp),
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// GET /api/chat/private/:userId?limit=N
func (h *Handlers) ListPrivateThread(c *gin.Context) {
	user := currentUser(c)
	other := domain.UserID(c.Param("userId"))
	messages, err := h.store.ListPrivateThread(c.Request.Context(), user.ID, other, h.limit(c))
	if err != nil {
		h.internalError(c, err)
		return
	}
	out := make([]privateMessageDTO, 0, len(messages))
	for _, m := range messages {
		out = append(out, privateMessageDTO{
			ID:           m.ID,
			FromUserID:   m.FromUserID,
			FromUserName: m.FromUserName,
			ToUserID:     m.ToUserID,
			Content:      m.Content,
			Timestamp:    protocol.FormatTime(m.Timestamp),
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// GET /api/chat/online
func (h *Handlers) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.presence.Snapshot(domain.RoomGlobal)})
}

// DELETE /api/chat/private/:userId deletes the calling user's thread with
// that user.
func (h *Handlers) DeletePrivateThread(c *gin.Context) {
	user := currentUser(c)
	other := domain.UserID(c.Param("userId"))
	deleted, err := h.store.DeletePrivateThread(c.Request.Context(), user.ID, other)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// DELETE /api/chat/messages/:messageId (admin only)
func (h *Handlers) DeleteChatMessage(c *gin.Context) {
	if !currentUser(c).IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}
	err := h.store.DeleteChatMessage(c.Request.Context(), c.Param("messageId"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// DELETE /api/chat/messages (admin only)
func (h *Handlers) DeleteAllChatMessages(c *gin.Context) {
	if !currentUser(c).IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}
	deleted, err := h.store.DeleteAllChat(c.Request.Context())
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

type addDiscussionRequest struct {
	QuizID string `json:"quizId" binding:"required"`
}

// POST /api/discussions
func (h *Handlers) AddDiscussion(c *gin.Context) {
	var req addDiscussionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid quizId"})
		return
	}
	entry, err := h.store.AddDiscussion(c.Request.Context(), req.QuizID, currentUser(c).ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
	case errors.Is(err, storage.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "quiz already in discussion"})
	case err != nil:
		h.internalError(c, err)
	default:
		c.JSON(http.StatusCreated, discussionToDTO(entry))
	}
}

// GET /api/discussions?page=&size=
func (h *Handlers) ListDiscussions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	result, err := h.store.ListDiscussions(c.Request.Context(), page, size)
	if err != nil {
		h.internalError(c, err)
		return
	}
	items := make([]discussionDTO, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, discussionToDTO(&result.Items[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": result.Total,
		"page":  result.Page,
		"size":  result.Size,
		"pages": result.Pages,
	})
}

// GET /api/discussions/:quizId
func (h *Handlers) GetDiscussion(c *gin.Context) {
	entry, err := h.store.GetDiscussion(c.Request.Context(), c.Param("quizId"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "discussion not found"})
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, discussionToDTO(entry))
}

// DELETE /api/discussions/:quizId removes the entry and all its messages.
// Only the original adder or an admin may do it.
func (h *Handlers) RemoveDiscussion(c *gin.Context) {
	quizID := c.Param("quizId")
	entry, err := h.store.GetDiscussion(c.Request.Context(), quizID)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "discussion not found"})
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}
	user := currentUser(c)
	if entry.AddedBy != user.ID && !user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the discussion owner"})
		return
	}
	if err := h.store.RemoveDiscussion(c.Request.Context(), quizID); err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}

// GET /api/discussions/:quizId/messages?limit=N
func (h *Handlers) ListDiscussionMessages(c *gin.Context) {
	quizID := c.Param("quizId")
	if _, err := h.store.GetDiscussion(c.Request.Context(), quizID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "discussion not found"})
			return
		}
		h.internalError(c, err)
		return
	}
	messages, err := h.store.ListDiscussionMessages(c.Request.Context(), quizID, h.limit(c))
	if err != nil {
		h.internalError(c, err)
		return
	}
	out := make([]discussionMessageDTO, 0, len(messages))
	for _, m := range messages {
		out = append(out, discussionMessageDTO{
			ID:        m.ID,
			QuizID:    m.QuizID,
			UserID:    m.UserID,
			UserName:  m.UserName,
			Content:   m.Content,
			Timestamp: protocol.FormatTime(m.Timestamp),
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// GET /api/discussions/:quizId/online
func (h *Handlers) DiscussionOnlineUsers(c *gin.Context) {
	room := domain.DiscussionRoom(c.Param("quizId"))
	c.JSON(http.StatusOK, gin.H{"users": h.presence.Snapshot(room)})
}

func (h *Handlers) internalError(c *gin.Context, err error) {
	log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("handler error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
