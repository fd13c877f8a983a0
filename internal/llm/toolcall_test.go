package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractToolCall(t *testing.T) {
	tests := []struct {
		name string
		text string
		args string
		ok   bool
	}{
		{"tool and args", `{"tool": "check_availability", "args": {"check_in_date": "2026-12-15"}}`, `{"check_in_date": "2026-12-15"}`, true},
		{"wrapped in prose", "Claro!\n```json\n{\"name\": \"check_availability\", \"arguments\": {}}\n```", `{}`, true},
		{"string encoded arguments", `{"function": "check_availability", "parameters": "{\"check_in_date\":\"2026-12-15\"}"}`, `{"check_in_date":"2026-12-15"}`, true},
		{"no args", `{"tool": "check_availability"}`, `{}`, true},
		{"undeclared tool", `{"tool": "drop_tables", "args": {}}`, "", false},
		{"plain text", "Olá, tudo bem?", "", false},
		{"broken json", `{"tool": "check_availability"`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, ok := ExtractToolCall(tt.text, testTools)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, "check_availability", call.Name)
				assert.JSONEq(t, tt.args, string(call.Arguments))
			}
		})
	}
}
