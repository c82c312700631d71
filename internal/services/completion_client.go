package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	DefaultCompletionBase  = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultCompletionModel = "gemini-2.5-flash"
)

// OpenAIClient talks to any OpenAI-compatible chat/completions endpoint.
type OpenAIClient struct {
	client   HTTPClient
	endpoint string
	apiKey   string
	model    string
}

// NewOpenAIClient uses http.DefaultClient when client is nil, so no timeout is
// imposed beyond the transport defaults.
func NewOpenAIClient(client HTTPClient, base, apiKey, model string) *OpenAIClient {
	if client == nil {
		client = http.DefaultClient
	}
	if strings.TrimSpace(base) == "" {
		base = DefaultCompletionBase
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultCompletionModel
	}
	return &OpenAIClient{
		client:   client,
		endpoint: normalizeOpenAIEndpoint(base),
		apiKey:   strings.TrimSpace(apiKey),
		model:    model,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("missing API key")
	}
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(pb))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cc); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return cc.Choices[0].Message.Content, nil
}

func normalizeOpenAIEndpoint(base string) string {
	endpoint := strings.TrimRight(strings.TrimSpace(base), "/")
	switch {
	case strings.HasSuffix(endpoint, "/chat/completions"):
		return endpoint
	case strings.HasSuffix(endpoint, "/v1"), strings.HasSuffix(endpoint, "/openai"):
		return endpoint + "/chat/completions"
	default:
		return endpoint + "/v1/chat/completions"
	}
}
