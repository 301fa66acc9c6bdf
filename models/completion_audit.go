package models

import (
	"time"

	"github.com/google/uuid"
)

// CompletionOutcome classifies how a remote completion ended.
type CompletionOutcome string

const (
	OutcomeOK             CompletionOutcome = "ok"
	OutcomeTransportError CompletionOutcome = "transport_error"
	OutcomeParseError     CompletionOutcome = "parse_error"
	OutcomeShapeError     CompletionOutcome = "shape_error"
	OutcomeCacheHit       CompletionOutcome = "cache_hit"
)

// CompletionAudit records metadata about one completion call. Document text and
// model output are never stored.
type CompletionAudit struct {
	ID            uuid.UUID         `json:"id"`
	SessionID     uuid.UUID         `json:"session_id"`
	Task          string            `json:"task"`
	Provider      string            `json:"provider"`
	Model         string            `json:"model"`
	Language      string            `json:"language"`
	PromptChars   int               `json:"prompt_chars"`
	ResponseChars int               `json:"response_chars"`
	LatencyMS     int64             `json:"latency_ms"`
	Outcome       CompletionOutcome `json:"outcome"`
	ErrorMessage  *string           `json:"error_message,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}
