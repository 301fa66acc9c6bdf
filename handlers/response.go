package handlers

import (
	"context"
	"errors"
	"net/http"

	"lexilingua-backend/extraction"
	"lexilingua-backend/llm"
	"lexilingua-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// inputCodes names the blocking notices shown to the user.
var inputCodes = []struct {
	reason error
	code   string
}{
	{service.ErrNotLegalDocument, "NOT_LEGAL_DOCUMENT"},
	{service.ErrNoDocument, "NO_DOCUMENT"},
	{service.ErrNoExtractableText, "NO_EXTRACTABLE_TEXT"},
	{service.ErrEmptyMessage, "EMPTY_MESSAGE"},
	{service.ErrSpeechNotUnderstood, "SPEECH_NOT_UNDERSTOOD"},
	{extraction.ErrNotPDF, "NOT_PDF"},
}

// respondServiceError maps a service error onto the response envelope.
func respondServiceError(c *gin.Context, err error) {
	var inputErr *service.InputError
	var parseErr *service.ParseError
	var shapeErr *service.ShapeError

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrFeatureDisabled):
		respondError(c, http.StatusNotFound, "FEATURE_DISABLED", err.Error())
	case errors.Is(err, service.ErrSessionBusy):
		respondError(c, http.StatusConflict, "SESSION_BUSY", err.Error())
	case errors.Is(err, service.ErrSessionReset):
		respondError(c, http.StatusConflict, "SESSION_RESET", err.Error())
	case errors.As(err, &inputErr):
		code := "INVALID_INPUT"
		for _, ic := range inputCodes {
			if errors.Is(inputErr.Reason, ic.reason) {
				code = ic.code
				break
			}
		}
		respondError(c, http.StatusUnprocessableEntity, code, inputErr.Error())
	case llm.IsTransportError(err):
		respondError(c, http.StatusBadGateway, "LLM_UNAVAILABLE", err.Error())
	case errors.As(err, &parseErr), errors.As(err, &shapeErr):
		respondError(c, http.StatusBadGateway, "LLM_BAD_RESPONSE", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusGatewayTimeout, "REQUEST_CANCELLED", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// sessionID parses the :id path parameter, writing a 400 when it is malformed.
func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_SESSION_ID", "Invalid session id format")
		return uuid.Nil, false
	}
	return id, true
}
