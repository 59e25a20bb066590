package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbserve/ml"
)

func TestParseInput(t *testing.T) {
	text, err := parseInput("application/json", []byte(`{"text": "free money now", "extra": 1}`))
	require.NoError(t, err)
	assert.Equal(t, "free money now", text)

	text, err = parseInput("Application/JSON; charset=UTF-8", []byte(`{"text": ""}`))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestParseInputErrorsAreInvalidInput(t *testing.T) {
	bodies := map[string]string{
		"text/plain":       `{"text": "x"}`,
		"application/json": `[1, 2]`,
	}
	for contentType, body := range bodies {
		_, err := parseInput(contentType, []byte(body))
		require.Error(t, err)
		assert.Equal(t, ml.KindInvalidInput, ml.KindOf(err))
	}

	_, err := parseInput("application/json", []byte(`null`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required key")
}
