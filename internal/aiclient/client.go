// Package aiclient talks to an OpenAI-compatible chat completions endpoint.
package aiclient

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

// Defaults used when the corresponding Config field is zero.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-3.5-turbo"
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)

// Client is the AI backend used to execute cells. Implementations hold no
// document or cell state.
type Client interface {
	// Generate sends prompt with an optional context text.
	Generate(ctx context.Context, prompt, contextText string) (Response, error)
	// ExplainCode asks for an explanation of code written in language.
	ExplainCode(ctx context.Context, code, language string) (Response, error)
	// CompleteCode asks for a completion of code written in language.
	CompleteCode(ctx context.Context, code, language string) (Response, error)
}

// Config holds the backend settings.
type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Usage is the token accounting reported by the backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the result of one successful call.
type Response struct {
	ID      string
	Content string
	Model   string
	Usage   Usage
	Latency time.Duration
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OpenAI is the HTTP implementation of Client.
type OpenAI struct {
	cfg    Config
	http   Doer
	logger *slog.Logger
}

var _ Client = (*OpenAI)(nil)

// Option configures an OpenAI client.
type Option func(*OpenAI)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(d Doer) Option {
	return func(o *OpenAI) { o.http = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *OpenAI) { o.logger = l.With(slog.String("component", "aiclient")) }
}

// New returns an HTTP client for cfg, filling zero fields with defaults.
func New(cfg Config, opts ...Option) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	o := &OpenAI{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: slog.Default().With(slog.String("component", "aiclient")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FromConfig returns an HTTP client when an API key is set and an
// Unconfigured client otherwise.
func FromConfig(cfg Config, opts ...Option) Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Unconfigured{}
	}
	return New(cfg, opts...)
}

// Generate implements Client.
func (o *OpenAI) Generate(ctx context.Context, prompt, contextText string) (Response, error) {
	if o.cfg.APIKey == "" {
		return Response{}, &Error{Kind: KindMissingCredential}
	}
	endpoint, err := o.endpoint()
	if err != nil {
		return Response{}, err
	}

	body, err := json.Marshal(chatRequest{
		Model:       o.cfg.Model,
		Messages:    buildMessages(prompt, contextText),
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return Response{}, &Error{Kind: KindEncoding, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, &Error{Kind: KindInvalidEndpoint, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.http.Do(req)
	if err != nil {
		return Response{}, &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &Error{Kind: KindTransport, Err: fmt.Errorf("read body: %w", err)}
	}
	latency := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := &Error{Kind: KindStatus, StatusCode: resp.StatusCode}
		var errResp ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != nil && errResp.Error.Message != "" {
			e.Message = errResp.Error.Message
			e.Type = errResp.Error.Type
			e.Code = errResp.Error.Code
		}
		o.logger.Warn("chat completion failed",
			slog.Int("status", resp.StatusCode),
			slog.String("message", e.Message))
		return Response{}, e
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return Response{}, &Error{Kind: KindDecode, Err: err}
	}
	if len(cr.Choices) == 0 {
		return Response{}, &Error{Kind: KindDecode, Err: fmt.Errorf("response has no choices")}
	}

	out := Response{
		ID:      cr.ID,
		Content: cr.Choices[0].Message.Content,
		Model:   cr.Model,
		Latency: latency,
	}
	if cr.Usage != nil {
		out.Usage = *cr.Usage
	}
	o.logger.Debug("chat completion",
		slog.String("model", out.Model),
		slog.Int("total_tokens", out.Usage.TotalTokens),
		slog.Duration("latency", latency))
	return out, nil
}

// ExplainCode implements Client.
func (o *OpenAI) ExplainCode(ctx context.Context, code, language string) (Response, error) {
	return o.Generate(ctx, explainPrompt(code, language), "")
}

// CompleteCode implements Client.
func (o *OpenAI) CompleteCode(ctx context.Context, code, language string) (Response, error) {
	return o.Generate(ctx, completePrompt(code, language), "")
}

func (o *OpenAI) endpoint() (string, error) {
	u, err := url.Parse(strings.TrimRight(o.cfg.BaseURL, "/") + "/chat/completions")
	if err != nil {
		return "", &Error{Kind: KindInvalidEndpoint, Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &Error{Kind: KindInvalidEndpoint, Err: fmt.Errorf("base url %q must be an absolute http(s) url", o.cfg.BaseURL)}
	}
	return u.String(), nil
}

// Unconfigured is the Client used when no API key is available. Every call
// fails with KindMissingCredential.
type Unconfigured struct{}

var _ Client = Unconfigured{}

func (Unconfigured) Generate(context.Context, string, string) (Response, error) {
	return Response{}, &Error{Kind: KindMissingCredential}
}

func (Unconfigured) ExplainCode(context.Context, string, string) (Response, error) {
	return Response{}, &Error{Kind: KindMissingCredential}
}

func (Unconfigured) CompleteCode(context.Context, string, string) (Response, error) {
	return Response{}, &Error{Kind: KindMissingCredential}
}
