package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"lexilingua-backend/llm"
	"lexilingua-backend/logger"
	"lexilingua-backend/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ChatFallbackReply is the assistant turn recorded when no reply could be generated.
const ChatFallbackReply = "Sorry, I could not generate a response right now. Please try again."

// AuditRecorder persists completion metadata.
type AuditRecorder interface {
	Record(ctx context.Context, audit *models.CompletionAudit) error
}

// AnalysisService runs the prompt, completion, extraction and normalization
// pipeline for every task.
//
// Every operation is total: it always returns a usable result. A non-nil error
// reports why that result is the default (*llm.TransportError, *ParseError,
// *ShapeError) or why nothing was attempted (*InputError).
type AnalysisService struct {
	completer    llm.Completer
	cache        ResultCache
	audit        AuditRecorder
	log          *logger.Logger
	tracer       trace.Tracer
	statuteHints bool
	now          func() time.Time
}

// AnalysisServiceOption is a functional option for AnalysisService
type AnalysisServiceOption func(*AnalysisService)

func WithCompleter(c llm.Completer) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.completer = c
	}
}

func WithResultCache(c ResultCache) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.cache = c
	}
}

func WithAuditRecorder(r AuditRecorder) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.audit = r
	}
}

func WithAnalysisLogger(l *logger.Logger) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.log = l
	}
}

// WithStatuteHints enables the IPC 420/406 hints on fraud and breach risks.
func WithStatuteHints(enabled bool) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.statuteHints = enabled
	}
}

func WithClock(now func() time.Time) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.now = now
	}
}

func NewAnalysisService(opts ...AnalysisServiceOption) *AnalysisService {
	s := &AnalysisService{
		cache:  NoopCache(),
		log:    logger.Nop(),
		tracer: otel.Tracer("lexilingua-backend/service"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckLegality asks whether doc is a legal document. Failures yield a
// not-legal verdict.
func (s *AnalysisService) CheckLegality(ctx context.Context, sessionID uuid.UUID, doc models.DocumentContext) (models.LegalityVerdict, error) {
	if !doc.HasText() {
		return models.LegalityVerdict{}, inputError(ErrNoExtractableText, "")
	}
	return runStructured(ctx, s, sessionID, TaskLegality, doc, models.LegalityVerdict{}, NormalizeLegality)
}

// AnalyzeRisks identifies legal risks. Failures yield an empty list.
func (s *AnalysisService) AnalyzeRisks(ctx context.Context, sessionID uuid.UUID, doc models.DocumentContext) ([]models.RiskFinding, error) {
	empty := []models.RiskFinding{}
	if err := requireUsable(doc); err != nil {
		return empty, err
	}
	opts := NormalizeOptions{Language: doc.Language, StatuteHints: s.statuteHints}
	return runStructured(ctx, s, sessionID, TaskRisks, doc, empty, func(v any) ([]models.RiskFinding, error) {
		return NormalizeRisks(v, opts)
	})
}

// Summarize produces a summary and key points. Failures yield the
// insufficient-text marker.
func (s *AnalysisService) Summarize(ctx context.Context, sessionID uuid.UUID, doc models.DocumentContext) (models.DocumentSummary, error) {
	if !doc.HasText() {
		return models.EmptySummary(), inputError(ErrNoExtractableText, "")
	}
	return runStructured(ctx, s, sessionID, TaskSummary, doc, models.EmptySummary(), NormalizeSummary)
}

// ExtractEntities lists named entities. Failures yield an empty list.
func (s *AnalysisService) ExtractEntities(ctx context.Context, sessionID uuid.UUID, doc models.DocumentContext) ([]models.Entity, error) {
	empty := []models.Entity{}
	if !doc.HasText() {
		return empty, inputError(ErrNoExtractableText, "")
	}
	return runStructured(ctx, s, sessionID, TaskEntities, doc, empty, NormalizeEntities)
}

// ChatRequest is one user question about the document.
type ChatRequest struct {
	SessionID uuid.UUID
	Document  models.DocumentContext
	History   []models.ChatTurn
	Risks     []models.RiskFinding
	Query     string
}

// Chat answers a question grounded in the document. Failures yield ChatFallbackReply.
func (s *AnalysisService) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if strings.TrimSpace(req.Query) == "" {
		return ChatFallbackReply, inputError(ErrEmptyMessage, "")
	}
	if err := requireUsable(req.Document); err != nil {
		return ChatFallbackReply, err
	}
	prompt, err := BuildPrompt(TaskChat, req.Document, PromptExtras{
		Query:   req.Query,
		History: req.History,
		Risks:   req.Risks,
	})
	if err != nil {
		return ChatFallbackReply, err
	}
	profile, _ := ProfileFor(TaskChat)

	raw, call := s.complete(ctx, req.SessionID, TaskChat, req.Document.Language, prompt, profile.Sampling)
	if call.err != nil {
		s.finish(ctx, call, models.OutcomeTransportError, call.err)
		return ChatFallbackReply, call.err
	}
	s.finish(ctx, call, models.OutcomeOK, nil)
	return strings.TrimSpace(raw), nil
}

func requireUsable(doc models.DocumentContext) error {
	if !doc.HasText() {
		return inputError(ErrNoExtractableText, "")
	}
	if doc.Blocked() {
		return inputError(ErrNotLegalDocument, doc.Legality.Reason)
	}
	return nil
}

// runStructured is the shared pipeline for tasks whose reply is JSON.
func runStructured[T any](
	ctx context.Context,
	s *AnalysisService,
	sessionID uuid.UUID,
	task Task,
	doc models.DocumentContext,
	fallback T,
	normalize func(any) (T, error),
) (T, error) {
	profile, err := ProfileFor(task)
	if err != nil {
		return fallback, err
	}
	prompt, err := BuildPrompt(task, doc, PromptExtras{})
	if err != nil {
		return fallback, err
	}

	var key string
	if profile.Cacheable {
		key = CacheKey(task, truncateRunes(doc.Text, profile.CharBudget), doc.Language)
		if b, ok := s.cache.Get(ctx, key); ok {
			var cached T
			if err := json.Unmarshal(b, &cached); err == nil {
				s.recordCacheHit(ctx, sessionID, task, doc.Language, len(prompt))
				return cached, nil
			}
		}
	}

	raw, call := s.complete(ctx, sessionID, task, doc.Language, prompt, profile.Sampling)
	if call.err != nil {
		s.finish(ctx, call, models.OutcomeTransportError, call.err)
		return fallback, call.err
	}

	parsed, err := ExtractJSON(raw, profile.Shape)
	if err != nil {
		s.finish(ctx, call, models.OutcomeParseError, err)
		return fallback, err
	}

	result, err := normalize(parsed)
	if err != nil {
		s.finish(ctx, call, models.OutcomeShapeError, err)
		return fallback, err
	}
	s.finish(ctx, call, models.OutcomeOK, nil)

	if key != "" {
		if b, err := json.Marshal(result); err == nil {
			s.cache.Set(ctx, key, b)
		}
	}
	return result, nil
}

// completionCall tracks one in-flight completion until its outcome is known.
type completionCall struct {
	audit *models.CompletionAudit
	span  trace.Span
	start time.Time
	err   error
}

func (s *AnalysisService) complete(ctx context.Context, sessionID uuid.UUID, task Task, lang models.Language, prompt string, sampling llm.SamplingConfig) (string, *completionCall) {
	provider, model := "unknown", "unknown"
	if d, ok := s.completer.(llm.Describer); ok {
		provider, model = d.Provider(), d.Model()
	}

	ctx, span := s.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.task", string(task)),
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
		attribute.String("llm.language", lang.Code),
		attribute.Int("llm.prompt_chars", len(prompt)),
	))

	call := &completionCall{
		span:  span,
		start: s.now(),
		audit: &models.CompletionAudit{
			SessionID:   sessionID,
			Task:        string(task),
			Provider:    provider,
			Model:       model,
			Language:    lang.Code,
			PromptChars: len(prompt),
		},
	}

	if s.completer == nil {
		call.err = &llm.TransportError{Provider: provider, Err: errors.New("completion client not configured")}
		return "", call
	}

	raw, err := s.completer.Complete(ctx, prompt, sampling)
	if err != nil {
		var te *llm.TransportError
		if !errors.As(err, &te) {
			err = &llm.TransportError{Provider: provider, Err: err}
		}
		call.err = err
		return "", call
	}
	call.audit.ResponseChars = len(raw)
	return raw, call
}

func (s *AnalysisService) finish(ctx context.Context, call *completionCall, outcome models.CompletionOutcome, err error) {
	latency := s.now().Sub(call.start)
	call.audit.LatencyMS = latency.Milliseconds()
	call.audit.Outcome = outcome
	call.audit.CreatedAt = s.now()

	call.span.SetAttributes(attribute.String("llm.outcome", string(outcome)))
	if err != nil {
		msg := err.Error()
		call.audit.ErrorMessage = &msg
		call.span.RecordError(err)
		call.span.SetStatus(codes.Error, msg)
		s.log.Warn("completion degraded",
			"task", call.audit.Task,
			"session_id", call.audit.SessionID,
			"outcome", outcome,
			"latency_ms", call.audit.LatencyMS,
			"error", err,
		)
	} else {
		s.log.Info("completion finished",
			"task", call.audit.Task,
			"session_id", call.audit.SessionID,
			"latency_ms", call.audit.LatencyMS,
			"response_chars", call.audit.ResponseChars,
		)
	}
	call.span.End()

	if s.audit != nil {
		if aerr := s.audit.Record(context.WithoutCancel(ctx), call.audit); aerr != nil {
			s.log.Warn("failed to record completion audit", "task", call.audit.Task, "error", aerr)
		}
	}
}

func (s *AnalysisService) recordCacheHit(ctx context.Context, sessionID uuid.UUID, task Task, lang models.Language, promptChars int) {
	s.log.Debug("result cache hit", "task", task, "session_id", sessionID)
	if s.audit == nil {
		return
	}
	provider, model := "unknown", "unknown"
	if d, ok := s.completer.(llm.Describer); ok {
		provider, model = d.Provider(), d.Model()
	}
	audit := &models.CompletionAudit{
		SessionID:   sessionID,
		Task:        string(task),
		Provider:    provider,
		Model:       model,
		Language:    lang.Code,
		PromptChars: promptChars,
		Outcome:     models.OutcomeCacheHit,
		CreatedAt:   s.now(),
	}
	if err := s.audit.Record(context.WithoutCancel(ctx), audit); err != nil {
		s.log.Warn("failed to record completion audit", "task", task, "error", err)
	}
}
