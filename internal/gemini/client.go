// Package gemini implements chattypes.Completer on the Gemini generate-content API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"gemchat/internal/logger"
	"gemchat/pkg/chattypes"

	"google.golang.org/genai"
)

var (
	// ErrMissingAPIKey is returned when a request carries no credential.
	ErrMissingAPIKey = errors.New("gemini API key not configured")

	// ErrInvalidResponse is returned when a reply has no candidates[0].content.parts[0].
	ErrInvalidResponse = errors.New("invalid response from gemini")

	// ErrRequestFailed wraps transport errors and non-2xx replies.
	ErrRequestFailed = errors.New("gemini request failed")
)

var _ chattypes.Completer = (*Client)(nil)

// Options configure a Client. Zero values use the public endpoint and the default transport.
type Options struct {
	// BaseURL overrides the API endpoint, e.g. for a proxy or a test server.
	BaseURL string
	// HTTPClient is used for all requests when set.
	HTTPClient *http.Client
	// Capture records request/response pairs when set.
	Capture *Capture
}

// Client sends conversations to Gemini. One genai client is created lazily per
// API key, since the key is part of the active selection and may change.
type Client struct {
	opts    Options
	mu      sync.Mutex
	clients map[string]*genai.Client
}

// NewClient creates a Client with lazy initialization.
func NewClient(opts Options) *Client {
	return &Client{
		opts:    opts,
		clients: make(map[string]*genai.Client),
	}
}

func (c *Client) clientFor(ctx context.Context, apiKey string) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[apiKey]; ok {
		return client, nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.opts.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: c.opts.BaseURL}
	}

	httpClient := c.opts.HTTPClient
	if c.opts.Capture != nil {
		base := http.DefaultTransport
		if httpClient != nil && httpClient.Transport != nil {
			base = httpClient.Transport
		}
		httpClient = &http.Client{Transport: c.opts.Capture.Transport(base)}
		logger.Debug("Gemini client initialized with debug transport", "provider", "gemini")
	} else {
		logger.Debug("Gemini client initialized", "provider", "gemini")
	}
	clientConfig.HTTPClient = httpClient

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	c.clients[apiKey] = client
	return client, nil
}

// Complete sends req.Turns to req.Model and returns the reply text.
func (c *Client) Complete(ctx context.Context, req chattypes.CompletionRequest) (string, error) {
	if req.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	client, err := c.clientFor(ctx, req.APIKey)
	if err != nil {
		return "", err
	}

	contents := convertTurns(req.Turns)
	logger.Debug("Gemini request starting", "model", req.Model, "content_count", len(contents))

	result, err := client.Models.GenerateContent(ctx, req.Model, contents, nil)
	if err != nil {
		logger.Error("Gemini request failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	text, err := replyText(result)
	if err != nil {
		return "", err
	}
	logger.Debug("Gemini response received", "content_length", len(text))
	return text, nil
}

// convertTurns maps turns to genai contents. Roles are already remote roles.
func convertTurns(turns []chattypes.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		contents = append(contents, &genai.Content{
			Role:  turn.Role,
			Parts: []*genai.Part{{Text: turn.Text}},
		})
	}
	return contents
}

// replyText extracts the text of the first candidate. Thought parts are skipped.
// The first remaining part must carry text; function calls and empty parts
// are ErrInvalidResponse.
func replyText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		return "", ErrInvalidResponse
	}
	candidate := result.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", ErrInvalidResponse
	}

	var text strings.Builder
	first := true
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if first && part.Text == "" {
			return "", ErrInvalidResponse
		}
		first = false
		text.WriteString(part.Text)
	}
	if first {
		return "", ErrInvalidResponse
	}
	return text.String(), nil
}
