package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"lexilingua-backend/extraction"
	"lexilingua-backend/llm"
	"lexilingua-backend/models"

	"github.com/google/uuid"
)

type stubReply struct {
	text string
	err  error
}

// stubCompleter answers by task, recognized from the prompt text. When gate is
// set every call signals started and then waits for gate to be closed.
type stubCompleter struct {
	mu      sync.Mutex
	replies map[Task]stubReply
	calls   map[Task]int
	prompts []string

	started chan struct{}
	gate    chan struct{}
}

func newStubCompleter(replies map[Task]stubReply) *stubCompleter {
	return &stubCompleter{replies: replies, calls: make(map[Task]int)}
}

func (c *stubCompleter) Complete(ctx context.Context, prompt string, _ llm.SamplingConfig) (string, error) {
	task := taskOf(prompt)

	c.mu.Lock()
	c.calls[task]++
	c.prompts = append(c.prompts, prompt)
	reply, ok := c.replies[task]
	started, gate := c.started, c.gate
	c.mu.Unlock()

	if gate != nil {
		if started != nil {
			started <- struct{}{}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if !ok {
		return "", errors.New("no scripted reply for " + string(task))
	}
	return reply.text, reply.err
}

func (c *stubCompleter) Provider() string { return "stub" }
func (c *stubCompleter) Model() string    { return "stub-model" }

func (c *stubCompleter) set(task Task, r stubReply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies[task] = r
}

func (c *stubCompleter) callCount(task Task) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[task]
}

func (c *stubCompleter) lastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.prompts) == 0 {
		return ""
	}
	return c.prompts[len(c.prompts)-1]
}

func taskOf(prompt string) Task {
	switch {
	case strings.HasPrefix(prompt, "You are a document classifier"):
		return TaskLegality
	case strings.HasPrefix(prompt, "You are a senior legal analyst"):
		return TaskRisks
	case strings.HasPrefix(prompt, "You are a legal expert"):
		return TaskSummary
	case strings.HasPrefix(prompt, "You are a named entity recognition expert"):
		return TaskEntities
	default:
		return TaskChat
	}
}

type memAudit struct {
	mu     sync.Mutex
	audits []models.CompletionAudit
}

func (m *memAudit) Record(_ context.Context, a *models.CompletionAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	m.audits = append(m.audits, *a)
	return nil
}

func (m *memAudit) outcomes() []models.CompletionOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CompletionOutcome, len(m.audits))
	for i, a := range m.audits {
		out[i] = a.Outcome
	}
	return out
}

type stubExtractor struct {
	doc extraction.Document
	err error
}

func (e stubExtractor) Extract(context.Context, []byte) (extraction.Document, error) {
	return e.doc, e.err
}

type stubTranscriber struct {
	text string
	err  error
	got  string
}

func (t *stubTranscriber) Transcribe(_ context.Context, _ []byte, _ string, languageCode string) (string, error) {
	t.got = languageCode
	return t.text, t.err
}

const (
	legalReply    = `{"is_legal": true, "reason": "A residential lease agreement"}`
	notLegalReply = `{"is_legal": false, "reason": "This is a cooking recipe"}`
	risksReply    = "Here are the risks:\n" + `{"risks":[
		{"risk name":"Security deposit forfeiture","description":"Deposit kept on any breach","severity":6,"impact":3,"ipc_sections":[]},
		{"risk name":"Fraudulent rent hikes","description":"Landlord may raise rent","severity":9,"impact":5,"ipc_sections":[{"section":"IPC 415","description":"Cheating"}]}
	]}`
	summaryReply  = `{"summary":"A lease between a landlord and a tenant.","key_points":["Rent is monthly","Deposit is refundable"]}`
	entitiesReply = `[{"text":"Chennai","label":"LOCATION"},{"text":"Ravi Kumar","label":"PERSON"}]`
)

func leaseDoc() models.DocumentContext {
	return models.DocumentContext{
		Text:     "This lease agreement is made between Ravi Kumar and Meena Iyer in Chennai.",
		Language: models.English,
	}
}
