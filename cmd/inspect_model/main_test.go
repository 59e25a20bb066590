package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "spam", formatLabel("spam"))
	assert.Equal(t, "1", formatLabel(json.Number("1")))
	assert.Equal(t, "true", formatLabel(true))
}
