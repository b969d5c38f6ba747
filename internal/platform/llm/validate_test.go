package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	return &Schema{
		Name: "test-review",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"score":     map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
				"strengths": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": 2},
				"mastery":   map[string]any{"type": "string", "enum": []any{"not_yet", "meets", "exceeds"}},
			},
			"required": []any{"score", "strengths"},
		},
	}
}

func TestValidateResponse(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"valid", `{"score":80,"strengths":["a","b"],"mastery":"meets"}`, true},
		{"missing required", `{"score":80}`, false},
		{"too few items", `{"score":80,"strengths":["a"]}`, false},
		{"out of range", `{"score":140,"strengths":["a","b"]}`, false},
		{"bad enum", `{"score":80,"strengths":["a","b"],"mastery":"great"}`, false},
		{"not json", `score: 80`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateResponse(testSchema(), json.RawMessage(tc.raw))
			if tc.valid {
				require.NoError(t, err)
				return
			}
			var inv *ErrInvalidResponse
			require.ErrorAs(t, err, &inv)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(extractJSON(json.RawMessage("```json\n{\"a\":1}\n```"))))
	assert.Equal(t, `{"a":1}`, string(extractJSON(json.RawMessage("  {\"a\":1} "))))
	assert.Equal(t, `{"a":{"b":2}}`, string(extractJSON(json.RawMessage("Here you go: {\"a\":{\"b\":2}} thanks"))))
	assert.Equal(t, "no json", string(extractJSON(json.RawMessage("no json"))))
}
