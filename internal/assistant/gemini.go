package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s"

// ErrNoAPIKey indicates the assistant is running without a configured key.
var ErrNoAPIKey = errors.New("assistant: GEMINI_API_KEY not configured")

// GeminiClient talks to the Google Gemini REST API over plain net/http.
type GeminiClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGeminiClient builds the client. model is typically "gemini-1.5-flash".
// An empty apiKey leaves the client in disabled mode.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Enabled reports whether an API key is configured.
func (c *GeminiClient) Enabled() bool {
	return c.apiKey != ""
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  genConfig       `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type genConfig struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	Temperature      float32 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Turn is one prior message replayed to the model.
type Turn struct {
	Role string
	Text string
}

// Complete runs a chat completion. history carries the most recent turns,
// oldest first.
func (c *GeminiClient) Complete(ctx context.Context, system string, history []Turn, user string) (string, error) {
	return c.generate(ctx, system, history, user, "")
}

// CompleteJSON runs a completion constrained to pure JSON output.
func (c *GeminiClient) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	return c.generate(ctx, system, nil, user, "application/json")
}

func (c *GeminiClient) generate(ctx context.Context, system string, history []Turn, user, mimeType string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	payload := geminiRequest{
		GenerationConfig: genConfig{
			ResponseMIMEType: mimeType,
			Temperature:      0.2,
			MaxOutputTokens:  1024,
		},
	}
	if system != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	for _, turn := range history {
		role := "user"
		if turn.Role == RoleAssistant {
			role = "model"
		}
		payload.Contents = append(payload.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: turn.Text}}})
	}
	payload.Contents = append(payload.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: user}}})

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("assistant: marshal request: %w", err)
	}

	url := fmt.Sprintf(geminiBaseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("assistant: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("assistant: request cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("assistant: call failed: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return "", fmt.Errorf("assistant: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp geminiResponse
		if jsonErr := json.Unmarshal(rawBody, &errResp); jsonErr == nil && errResp.Error != nil {
			return "", fmt.Errorf("assistant: gemini error %d: %s", errResp.Error.Code, errResp.Error.Message)
		}
		return "", fmt.Errorf("assistant: gemini HTTP %d", resp.StatusCode)
	}

	var gemResp geminiResponse
	if err := json.Unmarshal(rawBody, &gemResp); err != nil {
		return "", fmt.Errorf("assistant: decode response: %w", err)
	}
	if len(gemResp.Candidates) == 0 || len(gemResp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("assistant: gemini returned an empty response")
	}
	return strings.TrimSpace(gemResp.Candidates[0].Content.Parts[0].Text), nil
}
