package service

import (
	"errors"
	"fmt"
	"strings"

	"lexilingua-backend/llm"
	"lexilingua-backend/models"
)

// Task names one kind of request sent to the model.
type Task string

const (
	TaskLegality Task = "legality"
	TaskRisks    Task = "risks"
	TaskSummary  Task = "summary"
	TaskEntities Task = "entities"
	TaskChat     Task = "chat"
)

// NoIPCSection is the sentinel section used when no statute applies to a risk.
const NoIPCSection = "No IPC sections directly applicable"

// TaskProfile is the fixed per-task contract: how much document goes in, what
// comes back, and how the model is sampled.
type TaskProfile struct {
	Task       Task
	Shape      Shape
	CharBudget int
	Sampling   llm.SamplingConfig
	Cacheable  bool
}

var taskProfiles = map[Task]TaskProfile{
	TaskLegality: {Task: TaskLegality, Shape: ShapeObject, CharBudget: 2000, Sampling: llm.SamplingConfig{Temperature: 0.3, MaxTokens: 500}, Cacheable: true},
	TaskRisks:    {Task: TaskRisks, Shape: ShapeObject, CharBudget: 4000, Sampling: llm.SamplingConfig{Temperature: 0.3, MaxTokens: 4096}, Cacheable: true},
	TaskSummary:  {Task: TaskSummary, Shape: ShapeObject, CharBudget: 4000, Sampling: llm.SamplingConfig{Temperature: 0.5, MaxTokens: 1500}, Cacheable: true},
	TaskEntities: {Task: TaskEntities, Shape: ShapeArray, CharBudget: 10000, Sampling: llm.SamplingConfig{Temperature: 0.5, MaxTokens: 1500}, Cacheable: true},
	TaskChat:     {Task: TaskChat, CharBudget: 2000, Sampling: llm.SamplingConfig{Temperature: 0.7, MaxTokens: 500}},
}

// ProfileFor returns the profile of a known task.
func ProfileFor(task Task) (TaskProfile, error) {
	p, ok := taskProfiles[task]
	if !ok {
		return TaskProfile{}, fmt.Errorf("unknown task: %q", task)
	}
	return p, nil
}

// PromptExtras carries the chat-only inputs.
type PromptExtras struct {
	Query   string
	History []models.ChatTurn
	Risks   []models.RiskFinding
}

// BuildPrompt renders the prompt for task against doc. It is pure: the same
// inputs always produce the same string.
func BuildPrompt(task Task, doc models.DocumentContext, extra PromptExtras) (string, error) {
	profile, err := ProfileFor(task)
	if err != nil {
		return "", err
	}
	lang := doc.Language
	if lang.IsZero() {
		lang = models.DefaultLanguage
	}
	text := truncateRunes(doc.Text, profile.CharBudget)

	label := languageLabel(lang)

	switch task {
	case TaskLegality:
		return fmt.Sprintf(legalityTemplate, text, label), nil
	case TaskRisks:
		return fmt.Sprintf(risksTemplate, label, NoIPCSection, text), nil
	case TaskSummary:
		return fmt.Sprintf(summaryTemplate, label, models.InsufficientTextMarker, text), nil
	case TaskEntities:
		return fmt.Sprintf(entitiesTemplate, label, labelList(), text), nil
	case TaskChat:
		if strings.TrimSpace(extra.Query) == "" {
			return "", errors.New("chat prompt needs a query")
		}
		return fmt.Sprintf(chatTemplate,
			label,
			text,
			riskDigest(extra.Risks),
			historyDigest(extra.History),
			extra.Query,
		), nil
	}
	return "", fmt.Errorf("unknown task: %q", task)
}

// languageLabel renders a language as "தமிழ் (ta)".
func languageLabel(lang models.Language) string {
	return fmt.Sprintf("%s (%s)", lang.Name, lang.Code)
}

const legalityTemplate = `You are a document classifier for a legal assistant.
Decide whether the text below is a legal document: a contract, agreement, deed, lease, notice,
court filing, affidavit, power of attorney, statute, policy or terms of service.

TEXT:
%s

Respond ONLY with a JSON object in this exact format and nothing else:
{"is_legal": true or false, "reason": "one short sentence in %s"}`

const risksTemplate = `You are a senior legal analyst specialising in Indian law, fluent in %[1]s.
Identify the legal risks in the document below, referencing the Indian Penal Code (IPC),
the Indian Contract Act, the IT Act or other Indian laws as applicable.
Write every value in %[1]s but keep the field names in English.

For each risk provide:
- "risk name": a short title
- "category": contractual, financial, compliance, liability, property, employment or other
- "description": what the risk is, in 2-3 sentences
- "why_it_matters": the practical consequence for the reader
- "mitigation": a concrete step under Indian law that reduces the risk
- "occurrence": a verbatim quote of the document text where the risk appears
- "severity": integer from 1 (minor) to 10 (critical)
- "impact": integer from 1 (minimal) to 5 (severe)
- "ipc_sections": relevant sections as {"section": "IPC 420", "description": "..."}, e.g. IPC 420 for fraud or IPC 406 for criminal breach of trust

Edge cases:
- If the text is too short or unclear, return an empty risks list.
- If no IPC sections apply, use [{"section": "%[2]s", "description": "..."}].

DOCUMENT:
%[3]s

Respond ONLY with a JSON object in this exact format:
{"risks": [{"risk name": "", "category": "", "description": "", "why_it_matters": "", "mitigation": "", "occurrence": "", "severity": 0, "impact": 0, "ipc_sections": [{"section": "", "description": ""}]}]}`

const summaryTemplate = `You are a legal expert fluent in %[1]s, specialising in Indian law.
Summarise the legal document below. Write a summary of 5 to 7 sentences and list 5 to 7 key points, all in %[1]s.
If the text is too short or unclear, use "%[2]s" as the summary and an empty key_points list.

DOCUMENT:
%[3]s

Respond ONLY with a JSON object in this exact format:
{"summary": "", "key_points": ["", ""]}`

const entitiesTemplate = `You are a named entity recognition expert fluent in %[1]s.
Extract the named entities from the legal document below. Analyse the text in %[1]s and return
each entity's text in the original language of the document.
Use only these labels: %[2]s.
If no entities are found, or the text is too short or unclear, return an empty array.

DOCUMENT:
%[3]s

Respond ONLY with a JSON array in this exact format:
[{"text": "entity text", "label": "PERSON"}]`

const chatTemplate = `You are Lexi, a legal assistant fluent in %[1]s, specialising in Indian law.
Answer the user's question about one document. Answer entirely in %[1]s.

DOCUMENT EXCERPT:
%[2]s

IDENTIFIED RISKS:
%[3]s

CONVERSATION SO FAR:
%[4]s

USER QUERY:
%[5]s

Rules:
- Answer only from the document, the identified risks and the conversation so far.
- Keep the answer to 1-3 sentences and under 100 words.
- If the query relates to a risk, mention the risk's name and its mitigation.
- If the query is ambiguous, ask for clarification.
- If the query is unrelated to the legal domain, reply with "This query is not relevant to the legal domain. Please ask about legal risks or document content." translated into %[1]s.`

func labelList() string {
	labels := models.EntityLabels()
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = string(l)
	}
	return strings.Join(parts, ", ")
}

func riskDigest(risks []models.RiskFinding) string {
	if len(risks) == 0 {
		return "No identified risks"
	}
	var sb strings.Builder
	for i, r := range risks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = "Unnamed"
		}
		fmt.Fprintf(&sb, "- %s (Severity: %d/10): %s", name, r.Severity, r.Description)
	}
	return sb.String()
}

func historyDigest(turns []models.ChatTurn) string {
	if len(turns) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteByte('\n')
		}
		role := "User"
		if t.Role == models.RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(&sb, "%s: %s", role, t.Content)
	}
	return sb.String()
}

// truncateRunes cuts s to at most n characters without splitting a code point.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
