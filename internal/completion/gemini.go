package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Gemini client defaults.
const (
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel    = "gemini-1.5-flash"
	defaultGeminiTimeout  = 30 * time.Second
	defaultMaxBodySize    = 1 << 20

	// errorBodyLimit caps how much of an error response is kept in APIError.
	errorBodyLimit = 512
)

// APIError is returned when the Gemini API answers with a non-200 status.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API returned status %d: %s", e.StatusCode, e.Body)
}

// GeminiClient calls the generateContent method of the Generative Language API.
type GeminiClient struct {
	httpClient  *http.Client
	apiKey      string
	endpoint    string
	model       string
	timeout     time.Duration
	maxBodySize int64
	logger      *slog.Logger
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *GeminiClient) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithEndpoint sets the API base URL.
func WithEndpoint(endpoint string) GeminiOption {
	return func(g *GeminiClient) {
		if endpoint != "" {
			g.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithModel sets the model name.
func WithModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		if model != "" {
			g.model = model
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) GeminiOption {
	return func(g *GeminiClient) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMaxBodySize caps the number of response bytes read.
func WithMaxBodySize(n int64) GeminiOption {
	return func(g *GeminiClient) {
		if n > 0 {
			g.maxBodySize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GeminiOption {
	return func(g *GeminiClient) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGeminiClient creates a client authenticated with apiKey.
func NewGeminiClient(apiKey string, opts ...GeminiOption) *GeminiClient {
	g := &GeminiClient{
		httpClient:  &http.Client{},
		apiKey:      apiKey,
		endpoint:    DefaultGeminiEndpoint,
		model:       DefaultGeminiModel,
		timeout:     defaultGeminiTimeout,
		maxBodySize: defaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns "gemini".
func (g *GeminiClient) Name() string {
	return "gemini"
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Complete sends prompt to the model and returns the text of the first candidate.
func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	data, err := json.Marshal(generateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generateContent request: %w", err)
	}

	reqURL := g.endpoint + "/models/" + url.PathEscape(g.model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create generateContent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	g.logger.Debug("calling model", "model", g.model, "prompt_bytes", len(prompt))
	start := time.Now()

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call gemini API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > errorBodyLimit {
			body = body[:errorBodyLimit]
		}
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out generateContentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	g.logger.Debug("model answered",
		"model", g.model,
		"candidates", len(out.Candidates),
		"elapsed", time.Since(start),
	)

	if len(out.Candidates) == 0 {
		if reason := out.PromptFeedback.BlockReason; reason != "" {
			return "", fmt.Errorf("%w: prompt blocked (%s)", ErrEmptyCompletion, reason)
		}
		return "", ErrEmptyCompletion
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: finish reason %s", ErrEmptyCompletion, out.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}
