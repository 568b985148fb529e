package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"gemchat/internal/logger"
)

const masked = "***[MASKED]***"

// Capture records the most recent HTTP exchange made through its transport.
// Credentials are masked before anything is stored.
type Capture struct {
	mu   sync.RWMutex
	last string
}

// NewCapture creates an empty Capture.
func NewCapture() *Capture {
	return &Capture{}
}

// Transport wraps base with request/response capture.
func (c *Capture) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &captureTransport{base: base, capture: c}
}

// Last returns the captured exchange as JSON, or "" if nothing was captured.
func (c *Capture) Last() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Clear drops the captured exchange.
func (c *Capture) Clear() {
	c.set("")
}

func (c *Capture) set(data string) {
	c.mu.Lock()
	c.last = data
	c.mu.Unlock()
}

type captureTransport struct {
	base    http.RoundTripper
	capture *Capture
}

// RoundTrip implements http.RoundTripper.
func (ct *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	startTime := time.Now()

	requestData, err := captureRequest(req)
	if err != nil {
		logger.Error("Failed to capture request", "error", err)
	}

	resp, err := ct.base.RoundTrip(req)
	endTime := time.Now()

	var responseData map[string]interface{}
	if err != nil {
		responseData = map[string]interface{}{"error": err.Error()}
	} else if responseData, err = captureResponse(resp); err != nil {
		logger.Error("Failed to capture response", "error", err)
		responseData = map[string]interface{}{"error": "failed to capture response data"}
		err = nil
	}

	ct.store(requestData, responseData, startTime, endTime)
	return resp, err
}

func captureRequest(req *http.Request) (map[string]interface{}, error) {
	requestData := map[string]interface{}{
		"method":  req.Method,
		"url":     redactURL(req.URL),
		"headers": sanitizeHeaders(req.Header),
	}
	if req.Body == nil {
		return requestData, nil
	}

	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		return requestData, fmt.Errorf("failed to read request body: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	if len(bodyBytes) > 0 {
		requestData["body"] = decodeBody(bodyBytes)
	}
	return requestData, nil
}

func captureResponse(resp *http.Response) (map[string]interface{}, error) {
	responseData := map[string]interface{}{
		"status_code": resp.StatusCode,
		"status":      resp.Status,
		"headers":     sanitizeHeaders(resp.Header),
	}
	if resp.Body == nil {
		return responseData, nil
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return responseData, fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	if len(bodyBytes) > 0 {
		responseData["body"] = decodeBody(bodyBytes)
	}
	return responseData, nil
}

func decodeBody(body []byte) interface{} {
	var jsonBody interface{}
	if err := json.Unmarshal(body, &jsonBody); err == nil {
		return jsonBody
	}
	return string(body)
}

func (ct *captureTransport) store(requestData, responseData map[string]interface{}, startTime, endTime time.Time) {
	debugData := map[string]interface{}{
		"http_request":  requestData,
		"http_response": responseData,
		"timing": map[string]interface{}{
			"request_time":  startTime.Format(time.RFC3339),
			"response_time": endTime.Format(time.RFC3339),
			"duration_ms":   endTime.Sub(startTime).Milliseconds(),
		},
	}

	jsonData, err := json.Marshal(debugData)
	if err != nil {
		logger.Error("Failed to marshal debug data", "error", err)
		ct.capture.set(`{"error": "failed to marshal debug data"}`)
		return
	}
	ct.capture.set(string(jsonData))
	logger.Debug("Debug data captured", "data_length", len(jsonData))
}

func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	redacted := *u
	query := redacted.Query()
	if query.Has("key") {
		query.Set("key", masked)
		redacted.RawQuery = query.Encode()
	}
	return redacted.String()
}

// sanitizeHeaders masks credential headers entirely.
func sanitizeHeaders(headers http.Header) map[string][]string {
	sanitized := make(map[string][]string, len(headers))
	for name, values := range headers {
		lowerName := strings.ToLower(name)
		if strings.Contains(lowerName, "authorization") ||
			strings.Contains(lowerName, "api-key") ||
			strings.Contains(lowerName, "token") {
			sanitized[name] = []string{masked}
			continue
		}
		sanitized[name] = values
	}
	return sanitized
}
