package handlers

import (
	"context"
	"net/http"
	"strconv"

	"lexilingua-backend/models"
	"lexilingua-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLister reads back completion audit rows.
type AuditLister interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.CompletionAudit, error)
}

// AuditHandler handles HTTP requests for completion audit rows
type AuditHandler struct {
	sessions *service.SessionService
	audits   AuditLister
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(sessions *service.SessionService, audits AuditLister) *AuditHandler {
	return &AuditHandler{sessions: sessions, audits: audits}
}

// ListCompletions handles GET /api/sessions/:id/completions
func (h *AuditHandler) ListCompletions(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if _, err := h.sessions.Get(id); err != nil {
		respondServiceError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	audits, err := h.audits.ListBySession(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", err.Error())
		return
	}
	respondOK(c, http.StatusOK, gin.H{"completions": audits})
}
