package http

import (
	"bytes"
	"encoding/json"
	"mime"

	"nbserve/ml"
)

const (
	contentTypeJSON = "application/json"
	textKey         = "text"
)

// parseInput 从请求体中取出待分类文本
func parseInput(contentType string, body []byte) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != contentTypeJSON {
		return "", ml.InvalidInput("unsupported content type: %q", contentType)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", ml.InvalidInput("invalid JSON body: %v", err)
	}
	raw, ok := payload[textKey]
	if !ok {
		return "", ml.InvalidInput("missing required key %q", textKey)
	}

	var text string
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", ml.InvalidInput("key %q must be a string", textKey)
	}
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", ml.InvalidInput("key %q must be a string", textKey)
	}
	return text, nil
}
