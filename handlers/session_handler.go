package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"lexilingua-backend/logger"
	"lexilingua-backend/models"
	"lexilingua-backend/service"

	"github.com/gin-gonic/gin"
)

// SessionHandler handles HTTP requests for session lifecycle and documents
type SessionHandler struct {
	sessions    *service.SessionService
	log         *logger.Logger
	maxFileSize int64
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *service.SessionService, log *logger.Logger, maxFileSize int64) *SessionHandler {
	if maxFileSize <= 0 {
		maxFileSize = 10 << 20
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SessionHandler{sessions: sessions, log: log, maxFileSize: maxFileSize}
}

// LanguageRequest selects an answer language by key ("tamil") or code ("ta")
type LanguageRequest struct {
	Language string `json:"language"`
}

func parseLanguage(c *gin.Context, raw string) (models.Language, bool) {
	if strings.TrimSpace(raw) == "" {
		return models.DefaultLanguage, true
	}
	lang, err := models.ParseLanguage(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "UNSUPPORTED_LANGUAGE", err.Error())
		return models.Language{}, false
	}
	return lang, true
}

// ListLanguages handles GET /api/languages
func (h *SessionHandler) ListLanguages(c *gin.Context) {
	respondOK(c, http.StatusOK, gin.H{
		"languages": models.Languages(),
		"default":   models.DefaultLanguage,
	})
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req LanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	lang, ok := parseLanguage(c, req.Language)
	if !ok {
		return
	}
	respondOK(c, http.StatusCreated, h.sessions.Create(lang))
}

// GetSession handles GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	snap, err := h.sessions.Get(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, snap)
}

// DeleteSession handles DELETE /api/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Session deleted successfully"})
}

// ResetSession handles POST /api/sessions/:id/reset
func (h *SessionHandler) ResetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	snap, err := h.sessions.Reset(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, snap)
}

// SetLanguage handles PUT /api/sessions/:id/language
func (h *SessionHandler) SetLanguage(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req LanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if strings.TrimSpace(req.Language) == "" {
		respondError(c, http.StatusBadRequest, "MISSING_LANGUAGE", "language is required")
		return
	}
	lang, ok := parseLanguage(c, req.Language)
	if !ok {
		return
	}
	snap, err := h.sessions.SetLanguage(id, lang)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, snap)
}

// UploadDocument handles POST /api/sessions/:id/document
func (h *SessionHandler) UploadDocument(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "File is required")
		return
	}
	if fileHeader.Size > h.maxFileSize {
		respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize))
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		respondError(c, http.StatusBadRequest, "INVALID_FILE_TYPE", "Only PDF documents are supported")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_OPEN_ERROR", err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_READ_ERROR", err.Error())
		return
	}
	if int64(len(data)) > h.maxFileSize {
		respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize))
		return
	}

	snap, err := h.sessions.UploadDocument(c.Request.Context(), id, filepath.Base(fileHeader.Filename), data)
	if err != nil {
		h.log.Warn("document upload rejected", "session_id", id, "filename", fileHeader.Filename, "error", err)
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, snap)
}

// GetDocument handles GET /api/sessions/:id/document
func (h *SessionHandler) GetDocument(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	file, reader, err := h.sessions.OpenDocument(c.Request.Context(), id)
	if err != nil {
		var ie *service.InputError
		if errors.Is(err, service.ErrSessionNotFound) || errors.As(err, &ie) {
			respondServiceError(c, err)
			return
		}
		h.log.Error("document download failed", "session_id", id, "error", err)
		respondError(c, http.StatusInternalServerError, "DOWNLOAD_FAILED",
			fmt.Sprintf("Failed to download file: %v", err))
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.DataFromReader(http.StatusOK, file.Size, file.MimeType, reader, nil)
}
