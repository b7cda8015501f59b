package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"homefront-backend/internal/model"
	"homefront-backend/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// EnsureSession resolves or creates the session; an empty body mints a new
// one.
func (h *ChatHandler) EnsureSession(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	// Empty request body means a brand-new session.
	_ = c.ShouldBindJSON(&req)

	session, err := h.chatService.EnsureSession(req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.NewSessionResponse(session))
}

// ListSessions returns lightweight summaries of every stored session, most
// recently active first.
func (h *ChatHandler) ListSessions(c *gin.Context) {
	sessions, err := h.chatService.ListSessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	summaries := make([]model.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, model.NewSessionSummary(session))
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": summaries,
		"count":    len(summaries),
	})
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	session, err := h.chatService.GetSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.NewSessionResponse(session))
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.chatService.SubmitMessage(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if reply == nil {
		// Empty message with no staged photos: nothing happened.
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, model.SendMessageResponse{
		SessionID: req.SessionID,
		Reply:     *reply,
	})
}

func (h *ChatHandler) ResetSession(c *gin.Context) {
	var req model.ResetSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.chatService.ResetSession(c.Request.Context(), req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.NewSessionResponse(session))
}

// AttachPhotos stages multipart uploads for the next message. Files past
// the staging cap are dropped silently.
func (h *ChatHandler) AttachPhotos(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var uploads []model.PhotoUpload
	for _, file := range form.File["photos"] {
		opened, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		content, err := io.ReadAll(opened)
		opened.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		uploads = append(uploads, model.PhotoUpload{
			Name:    file.Filename,
			Size:    file.Size,
			Content: content,
		})
	}

	pending, err := h.chatService.AttachPhotos(c.Request.Context(), sessionID, uploads)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":     sessionID,
		"pending_photos": pending,
	})
}

func (h *ChatHandler) RemovePendingPhoto(c *gin.Context) {
	sessionID := c.Param("session_id")
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a number"})
		return
	}

	if err := h.chatService.RemovePendingPhoto(c.Request.Context(), sessionID, index); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Photo removed"})
}

func (h *ChatHandler) UpdateContact(c *gin.Context) {
	var req model.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.chatService.UpdateContact(req.SessionID, req.Contact)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.NewSessionResponse(session))
}

func (h *ChatHandler) AddJobItem(c *gin.Context) {
	var req model.AddJobItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.chatService.AddJobItem(req.SessionID, req.Name, req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.NewSessionResponse(session))
}

func (h *ChatHandler) RemoveJobItem(c *gin.Context) {
	var req model.RemoveJobItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.chatService.RemoveJobItem(req.SessionID, req.ItemID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.NewSessionResponse(session))
}
