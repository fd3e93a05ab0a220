package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/skillforge-api/internal/config"
	"github.com/phrazzld/skillforge-api/internal/generation"
)

const systemPrompt = "You are a corporate learning designer. You always answer with a single valid JSON object."

// Generator calls an OpenAI-compatible chat completions endpoint.
type Generator struct {
	logger      *slog.Logger
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	temperature float32
	maxTokens   int

	preferred []string

	mu       sync.Mutex
	resolved string
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a generator from the LLM configuration. The model is
// resolved lazily against the provider's model list on first use.
func NewGenerator(logger *slog.Logger, cfg config.LLMConfig, httpClient *http.Client) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.OpenAIBaseURL == "" {
		return nil, fmt.Errorf("%w: openai base URL cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &Generator{
		logger:      logger.With("component", "openai_generator"),
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		apiKey:      cfg.OpenAIAPIKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		preferred:   append([]string{cfg.ModelName}, cfg.FallbackModels...),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

// GenerateCourse makes a single chat completion call and parses the reply.
func (g *Generator) GenerateCourse(ctx context.Context, prompt string) (*generation.CourseDraft, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt cannot be empty", generation.ErrGenerationFailed)
	}

	model := g.model(ctx)
	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    g.temperature,
		MaxTokens:      g.maxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	start := time.Now()
	raw, err := g.doOnce(ctx, http.MethodPost, "/chat/completions", req)
	if err != nil {
		g.logger.ErrorContext(ctx, "chat completion failed",
			"model", model,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return nil, classify(err)
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode completion: %v", generation.ErrInvalidResponse, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in completion", generation.ErrInvalidResponse)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return nil, fmt.Errorf("%w: completion stopped by content filter", generation.ErrContentBlocked)
	}

	g.logger.InfoContext(ctx, "chat completion successful",
		"model", model,
		"response_length", len(choice.Message.Content),
		"duration_ms", time.Since(start).Milliseconds())

	return generation.ParseCourseDraft(choice.Message.Content)
}

// model returns the first preferred model the provider lists, falling back
// to the first listed model. If the list cannot be fetched the configured
// model is used and resolution is retried on the next call.
func (g *Generator) model(ctx context.Context) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resolved != "" {
		return g.resolved
	}

	raw, err := g.doOnce(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		g.logger.WarnContext(ctx, "could not list models, using configured model",
			"model", g.preferred[0],
			"error", err)
		return g.preferred[0]
	}

	var list modelList
	if err := json.Unmarshal(raw, &list); err != nil || len(list.Data) == 0 {
		g.logger.WarnContext(ctx, "model list unusable, using configured model", "model", g.preferred[0])
		return g.preferred[0]
	}

	available := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		available = append(available, m.ID)
	}

	g.resolved = available[0]
	for _, want := range g.preferred {
		if slices.Contains(available, want) {
			g.resolved = want
			break
		}
	}

	if g.resolved != g.preferred[0] {
		g.logger.WarnContext(ctx, "configured model unavailable, using substitute",
			"configured", g.preferred[0],
			"model", g.resolved)
	}
	return g.resolved
}

func (g *Generator) doOnce(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// classify maps transport failures onto generation sentinels: throttling,
// server errors and network failures are transient, other HTTP errors are not.
func classify(err error) error {
	var he *httpError
	if errors.As(err, &he) {
		if he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500 {
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
		return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}
	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}
