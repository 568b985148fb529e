package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"gemchat/pkg/chattypes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_RecordsExchangeWithoutCredentials(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`, nil)
	capture := NewCapture()
	client := NewClient(Options{BaseURL: srv.URL, Capture: capture})

	_, err := client.Complete(context.Background(), request(chattypes.Turn{Role: "user", Text: "hi"}))
	require.NoError(t, err)

	raw := capture.Last()
	require.NotEmpty(t, raw)
	assert.NotContains(t, raw, "test-key")

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	assert.Contains(t, data, "http_request")
	assert.Contains(t, data, "timing")

	response := data["http_response"].(map[string]interface{})
	assert.EqualValues(t, 200, response["status_code"])

	capture.Clear()
	assert.Empty(t, capture.Last())
}

func TestSanitizeHeaders(t *testing.T) {
	headers := http.Header{
		"X-Goog-Api-Key": []string{"secret-value-1234"},
		"Authorization":  []string{"Bearer abc"},
		"Content-Type":   []string{"application/json"},
	}
	sanitized := sanitizeHeaders(headers)

	assert.Equal(t, []string{masked}, sanitized["X-Goog-Api-Key"])
	assert.Equal(t, []string{masked}, sanitized["Authorization"])
	assert.Equal(t, []string{"application/json"}, sanitized["Content-Type"])
}

func TestRedactURL(t *testing.T) {
	u, err := url.Parse("https://example.com/v1beta/models/m:generateContent?key=secret&alt=json")
	require.NoError(t, err)

	redacted := redactURL(u)
	assert.NotContains(t, redacted, "secret")
	assert.Contains(t, redacted, "alt=json")
	assert.Equal(t, "secret", u.Query().Get("key"))
}
