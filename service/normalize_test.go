package service

import (
	"encoding/json"
	"testing"

	"lexilingua-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseObject(t *testing.T, s string) any {
	t.Helper()
	v, err := ExtractJSON(s, ShapeObject)
	require.NoError(t, err)
	return v
}

func TestNormalizeRisksShape(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		wantCount int
		wantErr   bool
	}{
		{name: "array top level", value: []any{}, wantErr: true},
		{name: "string top level", value: "risks", wantErr: true},
		{name: "missing risks", value: map[string]any{"other": true}},
		{name: "null risks", value: map[string]any{"risks": nil}},
		{name: "risks not a list", value: map[string]any{"risks": "none"}, wantErr: true},
		{
			name: "non-object items skipped",
			value: map[string]any{"risks": []any{
				"just text",
				json.Number("3"),
				map[string]any{"risk name": "Auto renewal"},
			}},
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeRisks(tt.value, NormalizeOptions{})
			require.NotNil(t, got)
			assert.Len(t, got, tt.wantCount)
			if tt.wantErr {
				var se *ShapeError
				assert.ErrorAs(t, err, &se)
				assert.Equal(t, TaskRisks, se.Task)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNormalizeRisksFields(t *testing.T) {
	v := parseObject(t, `{"risks":[
		{"risk name":"Unlimited liability","category":"liability","description":"No cap","why_it_matters":"Exposure",
		 "mitigation":"Add a cap","occurrence":"Clause 9","severity":9,"impact":5,
		 "ipc_sections":[{"section":"IPC 406","description":"Criminal breach of trust"}]},
		{"name":"Vague term","severity":"6","impact":2.6,"ipc_sections":["IPC 415"]},
		{"risk name":"Out of range","severity":14,"impact":-2}
	]}`)

	got, err := NormalizeRisks(v, NormalizeOptions{Language: models.English})
	require.NoError(t, err)
	require.Len(t, got, 3)

	first := got[0]
	assert.Equal(t, "Unlimited liability", first.Name)
	assert.Equal(t, "liability", first.Category)
	assert.Equal(t, "Exposure", first.WhyItMatters)
	assert.Equal(t, "Add a cap", first.Mitigation)
	assert.Equal(t, "Clause 9", first.Occurrence)
	assert.Equal(t, 9, first.Severity)
	assert.Equal(t, 5, first.Impact)
	assert.Equal(t, []models.LawReference{{Section: "IPC 406", Description: "Criminal breach of trust"}}, first.IPCSections)

	second := got[1]
	assert.Equal(t, "Vague term", second.Name)
	assert.Equal(t, 6, second.Severity)
	assert.Equal(t, 3, second.Impact)
	assert.Equal(t, []models.LawReference{{Section: "IPC 415"}}, second.IPCSections)

	// Values outside the documented ranges pass through unchanged.
	third := got[2]
	assert.Equal(t, 14, third.Severity)
	assert.Equal(t, -2, third.Impact)
}

func TestNormalizeRiskSentinel(t *testing.T) {
	tests := []struct {
		name     string
		sections []models.LawReference
		lang     models.Language
		wantDesc string
	}{
		{name: "nil sections", lang: models.English, wantDesc: "No relevant IPC sections identified in English"},
		{name: "only blank sections", sections: []models.LawReference{{Section: " ", Description: ""}}, lang: models.Tamil, wantDesc: "No relevant IPC sections identified in தமிழ்"},
		{name: "zero language falls back to default", wantDesc: "No relevant IPC sections identified in English"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeRisk(models.RiskFinding{Name: "x", IPCSections: tt.sections}, NormalizeOptions{Language: tt.lang})
			require.Len(t, got.IPCSections, 1)
			assert.Equal(t, NoIPCSection, got.IPCSections[0].Section)
			assert.Equal(t, tt.wantDesc, got.IPCSections[0].Description)
		})
	}
}

func TestNormalizeRiskStatuteHints(t *testing.T) {
	cited := []models.LawReference{{Section: "IPC 415", Description: "Cheating"}}

	tests := []struct {
		name    string
		risk    models.RiskFinding
		hints   bool
		wantLen int
		wantAdd string
	}{
		{name: "fraud gets IPC 420", risk: models.RiskFinding{Name: "Fraudulent inducement", IPCSections: cited}, hints: true, wantLen: 2, wantAdd: "IPC 420"},
		{name: "breach gets IPC 406", risk: models.RiskFinding{Name: "Breach of deposit terms", IPCSections: cited}, hints: true, wantLen: 2, wantAdd: "IPC 406"},
		{name: "hints disabled", risk: models.RiskFinding{Name: "Fraud", IPCSections: cited}, wantLen: 1},
		{name: "unrelated name", risk: models.RiskFinding{Name: "Late payment", IPCSections: cited}, hints: true, wantLen: 1},
		{
			name:    "already cited",
			risk:    models.RiskFinding{Name: "Fraud", IPCSections: []models.LawReference{{Section: "ipc 420"}}},
			hints:   true,
			wantLen: 1,
		},
		{
			name:    "sentinel is left alone",
			risk:    models.RiskFinding{Name: "Fraud", IPCSections: []models.LawReference{{Section: NoIPCSection}}},
			hints:   true,
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeRisk(tt.risk, NormalizeOptions{Language: models.English, StatuteHints: tt.hints})
			require.Len(t, got.IPCSections, tt.wantLen)
			if tt.wantAdd != "" {
				assert.Equal(t, tt.wantAdd, got.IPCSections[len(got.IPCSections)-1].Section)
			}
		})
	}
}

func TestNormalizeRiskIdempotent(t *testing.T) {
	risks := []models.RiskFinding{
		{Name: "Fraud in billing", IPCSections: []models.LawReference{{Section: "IPC 415"}}},
		{Name: "Breach of trust"},
		{Name: "Termination", IPCSections: []models.LawReference{{}, {Section: "IPC 506"}}},
		{Name: "Penalty", IPCSections: []models.LawReference{{Section: NoIPCSection, Description: "none"}}},
	}

	for _, hints := range []bool{false, true} {
		opts := NormalizeOptions{Language: models.Hindi, StatuteHints: hints}
		for _, r := range risks {
			once := NormalizeRisk(r, opts)
			assert.Equal(t, once, NormalizeRisk(once, opts), "risk %q hints=%v", r.Name, hints)
			assert.NotEmpty(t, once.IPCSections)
		}
	}
}

func TestNormalizeSummary(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    models.DocumentSummary
		wantErr bool
	}{
		{
			name:  "complete",
			value: parseObject(t, `{"summary":" A lease. ","key_points":["Rent is due monthly"," ",null,"Deposit is refundable"]}`),
			want:  models.DocumentSummary{Summary: "A lease.", KeyPoints: []string{"Rent is due monthly", "Deposit is refundable"}},
		},
		{
			name:  "missing summary uses marker",
			value: parseObject(t, `{"key_points":"not a list"}`),
			want:  models.EmptySummary(),
		},
		{
			name:    "wrong top level",
			value:   []any{"a"},
			want:    models.EmptySummary(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSummary(tt.value)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				var se *ShapeError
				assert.ErrorAs(t, err, &se)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNormalizeEntities(t *testing.T) {
	v, err := ExtractJSON(`[{"text":"Chennai","label":"LOCATION"},{"text":"1 April 2024","label":"DATE"},{"text":"Rs 5,000","label":"MONEY"},"stray"]`, ShapeArray)
	require.NoError(t, err)

	got, err := NormalizeEntities(v)
	require.NoError(t, err)
	assert.Equal(t, []models.Entity{
		{Text: "Chennai", Label: models.LabelLocation},
		{Text: "1 April 2024", Label: models.LabelDate},
		{Text: "Rs 5,000", Label: "MONEY"},
	}, got)
	assert.False(t, got[2].Known())

	got, err = NormalizeEntities(map[string]any{"entities": []any{}})
	var se *ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, TaskEntities, se.Task)
	assert.Empty(t, got)
}

func TestNormalizeLegality(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    bool
		reason  string
		wantErr bool
	}{
		{name: "legal", raw: `{"is_legal":true,"reason":"A rental agreement"}`, want: true, reason: "A rental agreement"},
		{name: "not legal", raw: `{"is_legal":false,"reason":"A recipe"}`, reason: "A recipe"},
		{name: "string true", raw: `{"is_legal":" TRUE "}`, want: true},
		{name: "string yes is not true", raw: `{"is_legal":"yes"}`},
		{name: "missing flag", raw: `{"reason":"unsure"}`, reason: "unsure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeLegality(parseObject(t, tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.IsLegal)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}

	got, err := NormalizeLegality([]any{true})
	var se *ShapeError
	assert.ErrorAs(t, err, &se)
	assert.False(t, got.IsLegal)
}

func TestToInt(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{json.Number("8"), 8},
		{json.Number("7.5"), 8},
		{json.Number("1e400"), 0},
		{float64(3.2), 3},
		{"  5 ", 5},
		{"6.6", 7},
		{"high", 0},
		{true, 0},
		{nil, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toInt(tt.in), "input %#v", tt.in)
	}
}
