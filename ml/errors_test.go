package ml

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	invalid := InvalidInput("missing required key %q", "text")
	assert.Equal(t, KindInvalidInput, KindOf(invalid))
	assert.Equal(t, `missing required key "text"`, invalid.Error())

	wrapped := fmt.Errorf("request: %w", invalid)
	assert.Equal(t, KindInvalidInput, KindOf(wrapped))

	assert.Equal(t, KindArtifact, KindOf(ArtifactError(errors.New("boom"))))
	assert.Equal(t, KindArtifact, KindOf(errors.New("untagged")))
	assert.Nil(t, ArtifactError(nil))
}
