package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"lexilingua-backend/models"
	"lexilingua-backend/service"

	"github.com/gin-gonic/gin"
)

// ChatHandler handles HTTP requests for the document Q&A
type ChatHandler struct {
	sessions     *service.SessionService
	maxAudioSize int64
}

// NewChatHandler creates a new chat handler
func NewChatHandler(sessions *service.SessionService, maxAudioSize int64) *ChatHandler {
	if maxAudioSize <= 0 {
		maxAudioSize = 10 << 20
	}
	return &ChatHandler{sessions: sessions, maxAudioSize: maxAudioSize}
}

// ChatRequest represents the request body for a typed question
type ChatRequest struct {
	Message string `json:"message"`
}

// Chat handles POST /api/sessions/:id/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	result, err := h.sessions.Chat(c.Request.Context(), id, req.Message)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// VoiceChat handles POST /api/sessions/:id/chat/voice
//
// Expects a multipart "audio" part and an optional "language" field that
// overrides the session language for recognition.
func (h *ChatHandler) VoiceChat(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_AUDIO", "Audio recording is required")
		return
	}
	if fileHeader.Size > h.maxAudioSize {
		respondError(c, http.StatusBadRequest, "AUDIO_TOO_LARGE",
			fmt.Sprintf("Audio size exceeds maximum of %d bytes", h.maxAudioSize))
		return
	}

	var lang *models.Language
	if raw := strings.TrimSpace(c.PostForm("language")); raw != "" {
		parsed, ok := parseLanguage(c, raw)
		if !ok {
			return
		}
		lang = &parsed
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_OPEN_ERROR", err.Error())
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, h.maxAudioSize+1))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_READ_ERROR", err.Error())
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	result, err := h.sessions.VoiceChat(c.Request.Context(), id, audio, mimeType, lang)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// ClearHistory handles DELETE /api/sessions/:id/chat
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.ClearHistory(id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Chat history cleared"})
}
