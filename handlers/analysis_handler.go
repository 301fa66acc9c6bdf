package handlers

import (
	"net/http"

	"lexilingua-backend/service"

	"github.com/gin-gonic/gin"
)

// AnalysisHandler handles HTTP requests for document analysis
type AnalysisHandler struct {
	sessions *service.SessionService
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(sessions *service.SessionService) *AnalysisHandler {
	return &AnalysisHandler{sessions: sessions}
}

// CheckLegality handles POST /api/sessions/:id/legality
func (h *AnalysisHandler) CheckLegality(c *gin.Context) {
	if !h.sessions.Features().LegalityCheck {
		respondServiceError(c, service.ErrFeatureDisabled)
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}
	verdict, err := h.sessions.CheckLegality(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, verdict)
}

// Analyze handles POST /api/sessions/:id/analyze
//
// Degraded tasks still answer 200 with their default result and a warning.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	result, err := h.sessions.Analyze(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// ExtractEntities handles POST /api/sessions/:id/entities
func (h *AnalysisHandler) ExtractEntities(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	result, err := h.sessions.ExtractEntities(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}
