package service

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeStrict(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestExtractJSONRecoversPayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		shape   Shape
		payload string
	}{
		{
			name:    "bare object",
			raw:     `{"summary":"ok","key_points":[]}`,
			shape:   ShapeObject,
			payload: `{"summary":"ok","key_points":[]}`,
		},
		{
			name:    "preamble and trailer",
			raw:     "Here is the analysis you asked for:\n{\"risks\":[{\"risk name\":\"Late fee\",\"severity\":8}]}\nLet me know if you need more.",
			shape:   ShapeObject,
			payload: `{"risks":[{"risk name":"Late fee","severity":8}]}`,
		},
		{
			name:    "markdown fence",
			raw:     "```json\n[{\"text\":\"Ravi Kumar\",\"label\":\"PERSON\"}]\n```",
			shape:   ShapeArray,
			payload: `[{"text":"Ravi Kumar","label":"PERSON"}]`,
		},
		{
			name:    "closing delimiter inside a string",
			raw:     `Result: {"reason":"clause } is odd","is_legal":true}`,
			shape:   ShapeObject,
			payload: `{"reason":"clause } is odd","is_legal":true}`,
		},
		{
			name:    "unicode values",
			raw:     "பதில்: {\"summary\":\"ஒப்பந்தம்\",\"key_points\":[\"வாடகை\"]}",
			shape:   ShapeObject,
			payload: `{"summary":"ஒப்பந்தம்","key_points":["வாடகை"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.raw, tt.shape)
			require.NoError(t, err)
			assert.Equal(t, decodeStrict(t, tt.payload), got)
		})
	}
}

func TestExtractJSONNumbersStayExact(t *testing.T) {
	got, err := ExtractJSON(`{"severity": 7, "impact": 4.5}`, ShapeObject)
	require.NoError(t, err)

	obj := got.(map[string]any)
	assert.Equal(t, json.Number("7"), obj["severity"])
	assert.Equal(t, json.Number("4.5"), obj["impact"])
}

func TestExtractJSONFailures(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		shape Shape
	}{
		{name: "empty reply", raw: "", shape: ShapeObject},
		{name: "prose only", raw: "I cannot help with that.", shape: ShapeObject},
		{name: "closing before opening", raw: "} and then {", shape: ShapeObject},
		{name: "array expected but object given", raw: `{"text":"x"}`, shape: ShapeArray},
		{name: "truncated object", raw: `{"risks":[{"risk name":"x"}`, shape: ShapeObject},
		{name: "malformed inside delimiters", raw: `{risks: none}`, shape: ShapeObject},
		{name: "two top-level values", raw: `{"a":1} and also {"b":2}`, shape: ShapeObject},
		{name: "bracket in prose before payload", raw: `See note [1]: [{"text":"x","label":"DATE"}]`, shape: ShapeArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.raw, tt.shape)
			assert.Nil(t, got)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.shape, pe.Shape)
		})
	}
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "object", ShapeObject.String())
	assert.Equal(t, "array", ShapeArray.String())
}
