package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"lexilingua-backend/models"
)

// NormalizeOptions parameterizes risk normalization.
type NormalizeOptions struct {
	Language models.Language
	// StatuteHints appends well-known IPC sections to fraud and breach risks when
	// the model cited sections but missed the obvious one.
	StatuteHints bool
}

type statuteHint struct {
	keyword     string
	section     string
	description string
}

var statuteHints = []statuteHint{
	{keyword: "fraud", section: "IPC 420", description: "Fraud under Indian law in %s"},
	{keyword: "breach", section: "IPC 406", description: "Criminal breach of trust in %s"},
}

// NormalizeRisks coerces a parsed risks reply into well-formed findings.
// The top level must be an object; a missing risks list yields no findings.
func NormalizeRisks(v any, opts NormalizeOptions) ([]models.RiskFinding, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return []models.RiskFinding{}, &ShapeError{Task: TaskRisks, Want: "object", Got: kindOf(v)}
	}
	rawList, present := obj["risks"]
	if !present || rawList == nil {
		return []models.RiskFinding{}, nil
	}
	list, ok := rawList.([]any)
	if !ok {
		return []models.RiskFinding{}, &ShapeError{Task: TaskRisks, Want: "risks array", Got: kindOf(rawList)}
	}

	out := make([]models.RiskFinding, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, NormalizeRisk(riskFromMap(m), opts))
	}
	return out, nil
}

// NormalizeRisk fills the gaps of a single finding. It is idempotent.
func NormalizeRisk(r models.RiskFinding, opts NormalizeOptions) models.RiskFinding {
	lang := opts.Language
	if lang.IsZero() {
		lang = models.DefaultLanguage
	}

	sections := make([]models.LawReference, 0, len(r.IPCSections))
	for _, s := range r.IPCSections {
		if strings.TrimSpace(s.Section) == "" && strings.TrimSpace(s.Description) == "" {
			continue
		}
		sections = append(sections, s)
	}

	switch {
	case len(sections) == 0:
		sections = []models.LawReference{{
			Section:     NoIPCSection,
			Description: fmt.Sprintf("No relevant IPC sections identified in %s", lang.Name),
		}}
	case opts.StatuteHints && !hasSentinel(sections):
		sections = applyStatuteHints(r.Name, sections, lang)
	}
	r.IPCSections = sections
	return r
}

func hasSentinel(sections []models.LawReference) bool {
	for _, s := range sections {
		if strings.Contains(s.Section, "No IPC") {
			return true
		}
	}
	return false
}

func applyStatuteHints(name string, sections []models.LawReference, lang models.Language) []models.LawReference {
	lower := strings.ToLower(name)
	for _, h := range statuteHints {
		if !strings.Contains(lower, h.keyword) {
			continue
		}
		for _, s := range sections {
			if strings.EqualFold(strings.TrimSpace(s.Section), h.section) {
				return sections
			}
		}
		return append(sections, models.LawReference{
			Section:     h.section,
			Description: fmt.Sprintf(h.description, lang.Name),
		})
	}
	return sections
}

func riskFromMap(m map[string]any) models.RiskFinding {
	name := stringField(m, "risk name")
	if name == "" {
		name = stringField(m, "name")
	}
	return models.RiskFinding{
		Name:         name,
		Category:     stringField(m, "category"),
		Description:  stringField(m, "description"),
		WhyItMatters: stringField(m, "why_it_matters"),
		Mitigation:   stringField(m, "mitigation"),
		Occurrence:   stringField(m, "occurrence"),
		Severity:     toInt(m["severity"]),
		Impact:       toInt(m["impact"]),
		IPCSections:  lawReferences(m["ipc_sections"]),
	}
}

func lawReferences(v any) []models.LawReference {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]models.LawReference, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case map[string]any:
			out = append(out, models.LawReference{
				Section:     stringField(t, "section"),
				Description: stringField(t, "description"),
			})
		case string:
			out = append(out, models.LawReference{Section: t})
		}
	}
	return out
}

// NormalizeSummary coerces a parsed summary reply.
func NormalizeSummary(v any) (models.DocumentSummary, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return models.EmptySummary(), &ShapeError{Task: TaskSummary, Want: "object", Got: kindOf(v)}
	}
	s := models.DocumentSummary{
		Summary:   strings.TrimSpace(stringField(obj, "summary")),
		KeyPoints: []string{},
	}
	if s.Summary == "" {
		s.Summary = models.InsufficientTextMarker
	}
	if list, ok := obj["key_points"].([]any); ok {
		for _, item := range list {
			if p := strings.TrimSpace(toString(item)); p != "" {
				s.KeyPoints = append(s.KeyPoints, p)
			}
		}
	}
	return s, nil
}

// NormalizeEntities coerces a parsed entity array. Records are passed through
// without repair; non-object items are dropped.
func NormalizeEntities(v any) ([]models.Entity, error) {
	list, ok := v.([]any)
	if !ok {
		return []models.Entity{}, &ShapeError{Task: TaskEntities, Want: "array", Got: kindOf(v)}
	}
	out := make([]models.Entity, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, models.Entity{
			Text:  stringField(m, "text"),
			Label: models.EntityLabel(stringField(m, "label")),
		})
	}
	return out, nil
}

// NormalizeLegality coerces a parsed legality reply. Anything but an explicit
// true is treated as not legal.
func NormalizeLegality(v any) (models.LegalityVerdict, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return models.LegalityVerdict{}, &ShapeError{Task: TaskLegality, Want: "object", Got: kindOf(v)}
	}
	verdict := models.LegalityVerdict{Reason: stringField(obj, "reason")}
	switch t := obj["is_legal"].(type) {
	case bool:
		verdict.IsLegal = t
	case string:
		verdict.IsLegal = strings.EqualFold(strings.TrimSpace(t), "true")
	}
	return verdict, nil
}

func stringField(m map[string]any, key string) string {
	return toString(m[key])
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool, float64, int:
		return fmt.Sprint(t)
	default:
		return ""
	}
}

// toInt reads a whole number from a JSON scalar, rounding fractions. Anything
// unparsable is 0.
func toInt(v any) int {
	var f float64
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		parsed, err := t.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = t
	case int:
		return t
	case string:
		s := strings.TrimSpace(t)
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0
	}
	return int(math.Round(f))
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
