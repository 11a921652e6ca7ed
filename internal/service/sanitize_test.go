package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text untouched",
			input:    "Жила-была лиса",
			expected: "Жила-была лиса",
		},
		{
			name:     "script block removed with its body",
			input:    "Привет <script>alert('x')</script> мир",
			expected: "Привет  мир",
		},
		{
			name:     "script with attributes removed",
			input:    `до<script type="text/javascript">document.cookie</script>после`,
			expected: "допосле",
		},
		{
			name:     "regular tags stripped, text kept",
			input:    "<b>Жирный</b> и <i>курсив</i>",
			expected: "Жирный и курсив",
		},
		{
			name:     "multiline tag stripped",
			input:    "a<div\nclass=\"x\">b</div>c",
			expected: "abc",
		},
		{
			name:     "whitespace trimmed",
			input:    "  текст  ",
			expected: "текст",
		},
		{
			name:     "empty after cleaning",
			input:    "<script>evil()</script>",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeText(tt.input))
		})
	}
}

func TestContainsRejectedContent(t *testing.T) {
	rejected := []string{
		"что-то <script src='x'>",
		"ссылка javascript:void(0)",
		"JAVASCRIPT:alert(1)",
		"img onerror=hack()",
		"onclick = doEvil",
		"вызов eval (payload)",
		"alert('вам спам')",
		"document.location",
		"window.open",
	}
	for _, input := range rejected {
		assert.True(t, ContainsRejectedContent(input), "should reject: %q", input)
	}

	accepted := []string{
		"Про храброго зайца",
		"Сказка о window и doors", // window без точки не код
		"evaluation of the story",
		"conference call",
	}
	for _, input := range accepted {
		assert.False(t, ContainsRejectedContent(input), "should accept: %q", input)
	}
}
