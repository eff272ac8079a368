// Package llm calls an OpenAI-compatible chat endpoint to transform
// extracted content (summaries, rewrites, custom instructions). The
// wire format is small enough that net/http plus encoding/json beats
// pulling in a provider SDK.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/2501Pr0ject/Scrapinium-sub000/config"
	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// Client is a lightweight OpenAI-compatible chat client.
type Client struct {
	httpClient *http.Client
	cfg        config.TransformConfig
}

// NewClient builds a transform client from config. Pass nil to use a
// default http.Client bound by the configured timeout.
func NewClient(httpClient *http.Client, cfg config.TransformConfig) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{httpClient: httpClient, cfg: cfg}
}

// Enabled reports whether a transform endpoint is configured.
func (c *Client) Enabled() bool {
	return c.cfg.BaseURL != ""
}

// Usage reports token consumption of one transform call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

const systemPrompt = `You are a content transformation assistant. Apply the user's instruction to the provided article content and return only the transformed text, without preamble or commentary.`

// Transform applies instruction to content using the configured model.
// Content beyond the configured prompt budget is truncated; the caller
// receives the transformed text plus token usage.
func (c *Client) Transform(ctx context.Context, content, instruction, model string) (string, *Usage, error) {
	if model == "" {
		model = c.cfg.Model
	}
	if c.cfg.MaxPromptChars > 0 && len(content) > c.cfg.MaxPromptChars {
		content = content[:c.cfg.MaxPromptChars]
	}

	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Instruction: %s\n\nContent:\n%s", instruction, content)},
		},
		Temperature: 0.3,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, models.NewTaskError(models.ErrKindTransform, "transform request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, models.NewTaskError(models.ErrKindTransform, "failed to read transform response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", nil, classifyError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", nil, models.NewTaskError(models.ErrKindTransform, "failed to parse transform response", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", nil, models.NewTaskError(models.ErrKindTransform, "transform returned no choices", nil)
	}

	out := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if out == "" {
		return "", nil, models.NewTaskError(models.ErrKindTransform, "transform returned empty content", nil)
	}

	return out, &Usage{
		PromptTokens:     chatResp.Usage.PromptTokens,
		CompletionTokens: chatResp.Usage.CompletionTokens,
		TotalTokens:      chatResp.Usage.TotalTokens,
	}, nil
}

// Ping checks reachability of the transform endpoint for health
// reporting. Any HTTP response counts as reachable.
func (c *Client) Ping(ctx context.Context) bool {
	if !c.Enabled() {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/models", nil)
	if err != nil {
		return false
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

func classifyError(statusCode int, body []byte) *models.TaskError {
	var errResp chatErrorResponse
	msg := "transform API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}
	return models.NewTaskError(models.ErrKindTransform,
		fmt.Sprintf("transform API returned %d: %s", statusCode, msg), nil)
}
