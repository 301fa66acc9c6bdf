package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"lexilingua-backend/extraction"
	"lexilingua-backend/llm"
	"lexilingua-backend/logger"
	"lexilingua-backend/models"
	"lexilingua-backend/speech"
	"lexilingua-backend/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrSessionReset means the session was reset or given a new document while a
	// request was running; the request's results were discarded.
	ErrSessionReset = errors.New("session was reset while the request was running")

	ErrSpeechNotUnderstood = errors.New("could not understand the audio, please try again")
)

// Features toggles the optional tasks.
type Features struct {
	LegalityCheck bool
	Summary       bool
	Entities      bool
}

// Warning reports a task that fell back to its default result.
type Warning struct {
	Task    Task   `json:"task"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func warningFor(task Task, err error) Warning {
	kind := "transport"
	var pe *ParseError
	var se *ShapeError
	switch {
	case errors.As(err, &pe):
		kind = "parse"
	case errors.As(err, &se):
		kind = "shape"
	}
	return Warning{Task: task, Kind: kind, Message: err.Error()}
}

// isModelFailure reports whether err came from the completion itself rather
// than from the session or the caller's context.
func isModelFailure(err error) bool {
	var te *llm.TransportError
	var pe *ParseError
	var se *ShapeError
	return errors.As(err, &te) || errors.As(err, &pe) || errors.As(err, &se)
}

// sessionState is everything a reset throws away. It is replaced as a whole,
// never field by field, when the session is reset or gets a new document.
type sessionState struct {
	doc      models.DocumentContext
	risks    []models.RiskFinding
	summary  *models.DocumentSummary
	entities []models.Entity
	history  *models.ChatHistory
}

// Session is one user's workspace. lock admits one completion at a time.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	lock *semaphore.Weighted

	mu       sync.Mutex
	state    *sessionState
	lastUsed time.Time
	// epoch moves on every reset or delete so a running upload can tell its
	// staged file is stale.
	epoch uint64
}

// SessionSnapshot is a read-only copy of a session for callers.
type SessionSnapshot struct {
	ID        uuid.UUID               `json:"id"`
	Language  models.Language         `json:"language"`
	Document  *models.DocumentFile    `json:"document,omitempty"`
	HasText   bool                    `json:"has_text"`
	Legality  *models.LegalityVerdict `json:"legality,omitempty"`
	Risks     []models.RiskFinding    `json:"risks"`
	Metrics   models.RiskMetrics      `json:"metrics"`
	Summary   *models.DocumentSummary `json:"summary,omitempty"`
	Entities  []models.Entity         `json:"entities,omitempty"`
	History   []models.ChatTurn       `json:"history"`
	CreatedAt time.Time               `json:"created_at"`
	LastUsed  time.Time               `json:"last_used"`
}

// AnalysisResult is the outcome of Analyze.
type AnalysisResult struct {
	Legality *models.LegalityVerdict `json:"legality,omitempty"`
	Risks    []models.RiskFinding    `json:"risks"`
	Metrics  models.RiskMetrics      `json:"metrics"`
	Summary  *models.DocumentSummary `json:"summary,omitempty"`
	Warnings []Warning               `json:"warnings,omitempty"`
}

// ChatResult is the outcome of a chat turn.
type ChatResult struct {
	Transcript string            `json:"transcript,omitempty"`
	Reply      models.ChatTurn   `json:"reply"`
	History    []models.ChatTurn `json:"history"`
	Warnings   []Warning         `json:"warnings,omitempty"`
}

// SessionService owns all sessions and serializes completions per session.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	analysis      *AnalysisService
	extractor     extraction.Extractor
	transcriber   speech.Transcriber
	storage       storage.Storage
	features      Features
	historyLimit  int
	promptHistory int
	queueWait     time.Duration
	idleTTL       time.Duration
	log           *logger.Logger
	now           func() time.Time
}

// SessionServiceOption is a functional option for SessionService
type SessionServiceOption func(*SessionService)

func WithAnalysisService(a *AnalysisService) SessionServiceOption {
	return func(s *SessionService) {
		s.analysis = a
	}
}

func WithExtractor(e extraction.Extractor) SessionServiceOption {
	return func(s *SessionService) {
		s.extractor = e
	}
}

func WithTranscriber(t speech.Transcriber) SessionServiceOption {
	return func(s *SessionService) {
		s.transcriber = t
	}
}

func WithStorage(st storage.Storage) SessionServiceOption {
	return func(s *SessionService) {
		s.storage = st
	}
}

func WithFeatures(f Features) SessionServiceOption {
	return func(s *SessionService) {
		s.features = f
	}
}

// WithHistory sets how many turns a session keeps and how many go into a prompt.
func WithHistory(limit, inPrompt int) SessionServiceOption {
	return func(s *SessionService) {
		s.historyLimit = limit
		s.promptHistory = inPrompt
	}
}

// WithQueueWait bounds how long a request waits behind another one in the same session.
func WithQueueWait(d time.Duration) SessionServiceOption {
	return func(s *SessionService) {
		s.queueWait = d
	}
}

func WithIdleTTL(d time.Duration) SessionServiceOption {
	return func(s *SessionService) {
		s.idleTTL = d
	}
}

func WithSessionLogger(l *logger.Logger) SessionServiceOption {
	return func(s *SessionService) {
		s.log = l
	}
}

func WithSessionClock(now func() time.Time) SessionServiceOption {
	return func(s *SessionService) {
		s.now = now
	}
}

func NewSessionService(opts ...SessionServiceOption) *SessionService {
	s := &SessionService{
		sessions:      make(map[uuid.UUID]*Session),
		transcriber:   speech.Disabled{},
		features:      Features{LegalityCheck: true, Summary: true, Entities: true},
		historyLimit:  models.DefaultHistoryLimit,
		promptHistory: 10,
		queueWait:     time.Minute,
		idleTTL:       2 * time.Hour,
		log:           logger.Nop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.analysis == nil {
		s.analysis = NewAnalysisService(WithAnalysisLogger(s.log))
	}
	return s
}

func (s *SessionService) Features() Features {
	return s.features
}

func (s *SessionService) freshState(lang models.Language) *sessionState {
	return &sessionState{
		doc:     models.DocumentContext{Language: lang},
		history: models.NewChatHistory(s.historyLimit),
	}
}

// Create opens a new empty session.
func (s *SessionService) Create(lang models.Language) SessionSnapshot {
	if lang.IsZero() {
		lang = models.DefaultLanguage
	}
	now := s.now()
	sess := &Session{
		ID:        uuid.New(),
		CreatedAt: now,
		lock:      semaphore.NewWeighted(1),
		state:     s.freshState(lang),
		lastUsed:  now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.log.Info("session created", "session_id", sess.ID, "language", lang.Code)
	return s.snapshot(sess)
}

func (s *SessionService) lookup(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionService) Get(id uuid.UUID) (SessionSnapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return s.snapshot(sess), nil
}

func (s *SessionService) snapshot(sess *Session) SessionSnapshot {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	st := sess.state
	snap := SessionSnapshot{
		ID:        sess.ID,
		Language:  st.doc.Language,
		HasText:   st.doc.HasText(),
		Risks:     append([]models.RiskFinding{}, st.risks...),
		Metrics:   models.ComputeRiskMetrics(st.risks),
		History:   st.history.Turns(),
		CreatedAt: sess.CreatedAt,
		LastUsed:  sess.lastUsed,
	}
	if st.doc.File != nil {
		f := *st.doc.File
		snap.Document = &f
	}
	if st.doc.Legality != nil {
		v := *st.doc.Legality
		snap.Legality = &v
	}
	if st.summary != nil {
		sum := *st.summary
		snap.Summary = &sum
	}
	if st.entities != nil {
		snap.Entities = append([]models.Entity{}, st.entities...)
	}
	return snap
}

// Delete drops the session and its staged files.
func (s *SessionService) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.mu.Lock()
	sess.epoch++
	sess.mu.Unlock()
	s.discardFiles(ctx, id)
	s.log.Info("session deleted", "session_id", id)
	return nil
}

// Reset replaces the session's whole context with a fresh default in one step.
// The id and the selected language survive. A request running at the time of
// the reset has its results discarded.
func (s *SessionService) Reset(ctx context.Context, id uuid.UUID) (SessionSnapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionSnapshot{}, err
	}

	sess.mu.Lock()
	sess.state = s.freshState(sess.state.doc.Language)
	sess.epoch++
	sess.lastUsed = s.now()
	sess.mu.Unlock()

	s.discardFiles(ctx, id)
	s.log.Info("session reset", "session_id", id)
	return s.snapshot(sess), nil
}

func (s *SessionService) discardFiles(ctx context.Context, id uuid.UUID) {
	if s.storage == nil {
		return
	}
	if err := s.storage.DeleteSession(context.WithoutCancel(ctx), id); err != nil {
		s.log.Warn("failed to delete staged files", "session_id", id, "error", err)
	}
}

// SetLanguage switches the answer language. Results computed in the previous
// language are dropped; the document and chat history are kept.
func (s *SessionService) SetLanguage(id uuid.UUID, lang models.Language) (SessionSnapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionSnapshot{}, err
	}

	sess.mu.Lock()
	old := sess.state
	if old.doc.Language != lang {
		sess.state = &sessionState{
			doc:     old.doc.WithLanguage(lang),
			history: old.history,
		}
	}
	sess.lastUsed = s.now()
	sess.mu.Unlock()

	return s.snapshot(sess), nil
}

// UploadDocument extracts the text of a PDF, stages the file and makes it the
// session's document. Previous results and chat history are discarded. Uploads
// take the session slot, so they never overlap a completion or each other.
func (s *SessionService) UploadDocument(ctx context.Context, id uuid.UUID, filename string, data []byte) (SessionSnapshot, error) {
	if _, err := s.lookup(id); err != nil {
		return SessionSnapshot{}, err
	}
	if s.extractor == nil {
		return SessionSnapshot{}, errors.New("document extractor not set")
	}

	extracted, err := s.extractor.Extract(ctx, data)
	switch {
	case errors.Is(err, extraction.ErrNoText):
		return SessionSnapshot{}, inputError(ErrNoExtractableText, "")
	case errors.Is(err, extraction.ErrNotPDF):
		return SessionSnapshot{}, inputError(extraction.ErrNotPDF, "")
	case err != nil:
		return SessionSnapshot{}, fmt.Errorf("failed to extract document text: %w", err)
	}

	var snap SessionSnapshot
	err = s.withLock(ctx, id, func(sess *Session, _ *sessionState) error {
		sess.mu.Lock()
		epoch := sess.epoch
		sess.mu.Unlock()

		file := &models.DocumentFile{
			ID:        uuid.New(),
			Filename:  filename,
			MimeType:  "application/pdf",
			Size:      int64(len(data)),
			Pages:     extracted.Pages,
			CreatedAt: s.now(),
		}
		if s.storage != nil {
			path, err := s.storage.Upload(ctx, id, file.ID, filename, bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("failed to stage document: %w", err)
			}
			file.StoragePath = path
		}

		sess.mu.Lock()
		if sess.epoch != epoch {
			sess.mu.Unlock()
			s.deleteFile(ctx, id, file.StoragePath)
			return ErrSessionReset
		}
		var previous string
		if sess.state.doc.File != nil {
			previous = sess.state.doc.File.StoragePath
		}
		lang := sess.state.doc.Language
		next := s.freshState(lang)
		next.doc = models.DocumentContext{Text: extracted.Text, Language: lang, File: file}
		sess.state = next
		sess.lastUsed = s.now()
		sess.mu.Unlock()

		s.deleteFile(ctx, id, previous)
		snap = s.snapshot(sess)
		return nil
	})
	if err != nil {
		return SessionSnapshot{}, err
	}

	s.log.Info("document uploaded",
		"session_id", id,
		"filename", filename,
		"pages", extracted.Pages,
		"chars", len([]rune(extracted.Text)),
	)
	return snap, nil
}

func (s *SessionService) deleteFile(ctx context.Context, id uuid.UUID, storagePath string) {
	if s.storage == nil || storagePath == "" {
		return
	}
	if err := s.storage.Delete(context.WithoutCancel(ctx), storagePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("failed to delete staged file", "session_id", id, "path", storagePath, "error", err)
	}
}

// OpenDocument streams the staged copy of the session's current document.
// The caller closes the reader.
func (s *SessionService) OpenDocument(ctx context.Context, id uuid.UUID) (models.DocumentFile, io.ReadCloser, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return models.DocumentFile{}, nil, err
	}

	sess.mu.Lock()
	var file models.DocumentFile
	staged := sess.state.doc.File != nil && sess.state.doc.File.StoragePath != ""
	if staged {
		file = *sess.state.doc.File
	}
	sess.lastUsed = s.now()
	sess.mu.Unlock()

	if !staged || s.storage == nil {
		return models.DocumentFile{}, nil, inputError(ErrNoDocument, "")
	}
	rc, err := s.storage.Download(ctx, file.StoragePath)
	if err != nil {
		return models.DocumentFile{}, nil, fmt.Errorf("failed to download document: %w", err)
	}
	return file, rc, nil
}

// withLock runs fn while holding the session's completion slot. fn receives the
// state as it was when the slot was acquired.
func (s *SessionService) withLock(ctx context.Context, id uuid.UUID, fn func(sess *Session, st *sessionState) error) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.queueWait)
	defer cancel()
	if err := sess.lock.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrSessionBusy
	}
	defer sess.lock.Release(1)

	sess.mu.Lock()
	st := sess.state
	sess.lastUsed = s.now()
	sess.mu.Unlock()

	return fn(sess, st)
}

// commit applies update if st is still the session's current state.
func (s *SessionService) commit(sess *Session, st *sessionState, update func()) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != st {
		return ErrSessionReset
	}
	update()
	sess.lastUsed = s.now()
	return nil
}

// CheckLegality runs the legality pre-check and stores a successful verdict.
func (s *SessionService) CheckLegality(ctx context.Context, id uuid.UUID) (models.LegalityVerdict, error) {
	var verdict models.LegalityVerdict
	err := s.withLock(ctx, id, func(sess *Session, st *sessionState) error {
		if !st.doc.HasText() {
			return inputError(ErrNoDocument, "")
		}
		v, err := s.legality(ctx, sess, st)
		verdict = v
		return err
	})
	return verdict, err
}

// legality must run under the session lock.
func (s *SessionService) legality(ctx context.Context, sess *Session, st *sessionState) (models.LegalityVerdict, error) {
	v, err := s.analysis.CheckLegality(ctx, sess.ID, st.doc)
	if err != nil {
		return v, fmt.Errorf("legality check failed: %w", err)
	}
	if err := s.commit(sess, st, func() { st.doc = st.doc.WithLegality(v) }); err != nil {
		return v, err
	}
	return v, nil
}

// Analyze runs the legality pre-check when enabled and not yet done, then risk
// analysis and the summary. A non-legal document blocks with an *InputError.
// Degraded tasks are reported as warnings next to their default results. When
// the pre-check itself fails, the result is the empty risk list and a legality
// warning; the verdict is not stored.
func (s *SessionService) Analyze(ctx context.Context, id uuid.UUID) (AnalysisResult, error) {
	result := AnalysisResult{Risks: []models.RiskFinding{}}
	err := s.withLock(ctx, id, func(sess *Session, st *sessionState) error {
		if !st.doc.HasText() {
			return inputError(ErrNoDocument, "")
		}

		if s.features.LegalityCheck && st.doc.Legality == nil {
			if _, err := s.legality(ctx, sess, st); err != nil {
				if !isModelFailure(err) {
					return err
				}
				// The verdict stays unknown, so nothing downstream runs.
				result.Warnings = append(result.Warnings, warningFor(TaskLegality, err))
				return nil
			}
		}
		if st.doc.Legality != nil {
			v := *st.doc.Legality
			result.Legality = &v
		}
		if st.doc.Blocked() {
			return inputError(ErrNotLegalDocument, st.doc.Legality.Reason)
		}

		doc := st.doc
		risks, err := s.analysis.AnalyzeRisks(ctx, sess.ID, doc)
		if err != nil {
			result.Warnings = append(result.Warnings, warningFor(TaskRisks, err))
		}
		result.Risks = models.SortBySeverity(risks)
		result.Metrics = models.ComputeRiskMetrics(risks)

		if s.features.Summary {
			summary, err := s.analysis.Summarize(ctx, sess.ID, doc)
			if err != nil {
				result.Warnings = append(result.Warnings, warningFor(TaskSummary, err))
			}
			result.Summary = &summary
		}

		return s.commit(sess, st, func() {
			st.risks = result.Risks
			if result.Summary != nil {
				sum := *result.Summary
				st.summary = &sum
			}
		})
	})
	return result, err
}

// EntitiesResult is the outcome of ExtractEntities.
type EntitiesResult struct {
	Entities []models.Entity `json:"entities"`
	Warnings []Warning       `json:"warnings,omitempty"`
}

func (s *SessionService) ExtractEntities(ctx context.Context, id uuid.UUID) (EntitiesResult, error) {
	result := EntitiesResult{Entities: []models.Entity{}}
	if !s.features.Entities {
		return result, ErrFeatureDisabled
	}
	err := s.withLock(ctx, id, func(sess *Session, st *sessionState) error {
		if !st.doc.HasText() {
			return inputError(ErrNoDocument, "")
		}
		entities, err := s.analysis.ExtractEntities(ctx, sess.ID, st.doc)
		if err != nil {
			result.Warnings = append(result.Warnings, warningFor(TaskEntities, err))
		}
		result.Entities = entities
		return s.commit(sess, st, func() { st.entities = entities })
	})
	return result, err
}

// Chat answers a typed question and records both turns.
func (s *SessionService) Chat(ctx context.Context, id uuid.UUID, message string) (ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatResult{}, inputError(ErrEmptyMessage, "")
	}

	var result ChatResult
	err := s.withLock(ctx, id, func(sess *Session, st *sessionState) error {
		if !st.doc.HasText() {
			return inputError(ErrNoDocument, "please upload and analyze a legal document first")
		}
		if st.doc.Blocked() {
			return inputError(ErrNotLegalDocument, st.doc.Legality.Reason)
		}

		sess.mu.Lock()
		recent := st.history.Recent(s.promptHistory)
		risks := append([]models.RiskFinding{}, st.risks...)
		sess.mu.Unlock()

		reply, err := s.analysis.Chat(ctx, ChatRequest{
			SessionID: sess.ID,
			Document:  st.doc,
			History:   recent,
			Risks:     risks,
			Query:     message,
		})
		if err != nil {
			var ie *InputError
			if errors.As(err, &ie) {
				return err
			}
			result.Warnings = append(result.Warnings, warningFor(TaskChat, err))
		}

		userTurn := models.ChatTurn{Role: models.RoleUser, Content: message, CreatedAt: s.now()}
		result.Reply = models.ChatTurn{Role: models.RoleAssistant, Content: reply, CreatedAt: s.now()}
		return s.commit(sess, st, func() {
			st.history.Append(userTurn)
			st.history.Append(result.Reply)
			result.History = st.history.Turns()
		})
	})
	return result, err
}

// VoiceChat transcribes a recorded question and answers it like a typed one.
// lang overrides the session language for recognition when set.
func (s *SessionService) VoiceChat(ctx context.Context, id uuid.UUID, audio []byte, mimeType string, lang *models.Language) (ChatResult, error) {
	snap, err := s.Get(id)
	if err != nil {
		return ChatResult{}, err
	}
	recognition := snap.Language
	if lang != nil && !lang.IsZero() {
		recognition = *lang
	}

	transcript, err := s.transcriber.Transcribe(ctx, audio, mimeType, recognition.SpeechCode())
	switch {
	case errors.Is(err, speech.ErrNotUnderstood), errors.Is(err, speech.ErrEmptyAudio):
		return ChatResult{}, inputError(ErrSpeechNotUnderstood, "")
	case errors.Is(err, speech.ErrDisabled):
		return ChatResult{}, ErrFeatureDisabled
	case err != nil:
		return ChatResult{}, fmt.Errorf("speech recognition failed: %w", err)
	}

	result, err := s.Chat(ctx, id, transcript)
	result.Transcript = transcript
	return result, err
}

// ClearHistory empties the session's chat history.
func (s *SessionService) ClearHistory(id uuid.UUID) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	sess.state.history.Clear()
	sess.lastUsed = s.now()
	sess.mu.Unlock()
	return nil
}

// Sweep removes sessions idle for longer than the idle TTL and returns how many
// were removed. Sessions with a request in flight are skipped.
func (s *SessionService) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.RLock()
	var stale []*Session
	for _, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastUsed.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			stale = append(stale, sess)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, sess := range stale {
		if !sess.lock.TryAcquire(1) {
			continue
		}
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		s.mu.Unlock()
		sess.lock.Release(1)

		s.discardFiles(ctx, sess.ID)
		removed++
	}
	if removed > 0 {
		s.log.Info("expired idle sessions", "count", removed)
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *SessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
