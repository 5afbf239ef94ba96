package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"portfolio-api/internal/config"
	"portfolio-api/internal/models"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "portfolio-api/0.1"
)

// OpenRouter implements Attempter against an OpenRouter-compatible
// chat/completions endpoint.
type OpenRouter struct {
	apiKey    string
	referer   string
	title     string
	maxTokens int
	chatURL   string
	client    *http.Client
}

// NewOpenRouter creates an attempter from chat configuration.
func NewOpenRouter(cfg config.ChatConfig, client *http.Client) *OpenRouter {
	if client == nil {
		client = http.DefaultClient
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	return &OpenRouter{
		apiKey:    cfg.APIKey,
		referer:   cfg.Referer,
		title:     cfg.Title,
		maxTokens: cfg.MaxTokens,
		chatURL:   baseURL + "/chat/completions",
		client:    client,
	}
}

type chatPayload struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	Messages  []models.Message `json:"messages"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message models.Message `json:"message"`
}

// Attempt issues one completion request for the given candidate model.
// HTTP 401 maps to ErrAuthRejected; every other failure mode, including a
// response without choices, is a recoverable per-candidate error.
func (o *OpenRouter) Attempt(ctx context.Context, model string, messages []models.Message) (string, error) {
	httpReq, err := o.newRequest(ctx, chatPayload{
		Model:     model,
		MaxTokens: o.maxTokens,
		Messages:  messages,
	})
	if err != nil {
		return "", err
	}

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat request for model %s failed: %w", model, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusUnauthorized {
		return "", ErrAuthRejected
	}
	if httpResp.StatusCode >= 400 {
		return "", parseAPIError(model, httpResp)
	}

	var providerResp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&providerResp); err != nil {
		return "", fmt.Errorf("decode response for model %s: %w", model, err)
	}

	if len(providerResp.Choices) == 0 {
		return "", fmt.Errorf("model %s response did not include choices", model)
	}
	return providerResp.Choices[0].Message.Content, nil
}

func (o *OpenRouter) newRequest(ctx context.Context, payload chatPayload) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.chatURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.referer != "" {
		req.Header.Set("HTTP-Referer", o.referer)
	}
	if o.title != "" {
		req.Header.Set("X-Title", o.title)
	}

	return req, nil
}

type apiErrorResponse struct {
	Error apiErrorObject `json:"error"`
}

type apiErrorObject struct {
	Message string `json:"message"`
	Code    any    `json:"code"`
}

func parseAPIError(model string, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("model %s: upstream status %d and failed to read body: %w", model, resp.StatusCode, err)
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("model %s: upstream status %d: %s", model, resp.StatusCode, apiErr.Error.Message)
	}

	return fmt.Errorf("model %s: upstream status %d: %s", model, resp.StatusCode, strings.TrimSpace(string(body)))
}

var _ Attempter = (*OpenRouter)(nil)
