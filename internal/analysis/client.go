// Package analysis talks to an OpenAI-compatible chat completion backend and
// turns its answers into relationship summaries and reply suggestions.
package analysis

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config configures the backend connection.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int // omitted from requests when <= 0
	Temperature float64
	Timeout     time.Duration
	// RequestsPerMinute caps outgoing calls; calls over budget fail with
	// FailureRateLimited. Zero means unlimited.
	RequestsPerMinute int
}

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 30 * time.Second
)

// Client performs single-attempt completion calls. It never retries.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewClient creates a client. A nil logger disables logging.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
		burst = cfg.RequestsPerMinute
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
		tracer:  otel.Tracer("github.com/matheus3301/lifechat/internal/analysis"),
	}
}

// Timeout is the default per-call deadline.
func (c *Client) Timeout() time.Duration { return c.cfg.Timeout }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Analyze sends one completion request and returns the completion text. Any
// error is a *Failure. timeout <= 0 uses the configured default.
func (c *Client) Analyze(ctx context.Context, systemPrompt, userPrompt string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	ctx, span := c.tracer.Start(ctx, "analysis.Analyze",
		trace.WithAttributes(attribute.String("model", c.cfg.Model)))
	defer span.End()

	text, err := c.analyze(ctx, systemPrompt, userPrompt, timeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("analysis call failed", zap.Error(err))
		return "", err
	}
	return text, nil
}

func (c *Client) analyze(ctx context.Context, systemPrompt, userPrompt string, timeout time.Duration) (string, error) {
	if c.cfg.APIKey == "" {
		return "", &Failure{Kind: FailureUnconfigured, Err: errors.New("no api key")}
	}
	if !c.limiter.Allow() {
		return "", &Failure{Kind: FailureRateLimited}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msgs := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: userPrompt})
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", &Failure{Kind: FailureTransport, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &Failure{Kind: FailureTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &Failure{Kind: FailureStatus, Status: resp.StatusCode}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return "", classifyTransport(ctx, err)
		}
		return "", &Failure{Kind: FailureDecode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", &Failure{Kind: FailureEmpty}
	}
	return out.Choices[0].Message.Content, nil
}

func classifyTransport(ctx context.Context, err error) *Failure {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: FailureTimeout, Err: err}
	}
	return &Failure{Kind: FailureTransport, Err: err}
}

// AnalyzeJSON calls Analyze and decodes the JSON object in the completion
// into out. A completion that does not decode is a FailureDecode.
func (c *Client) AnalyzeJSON(ctx context.Context, systemPrompt, userPrompt string, timeout time.Duration, out any) error {
	text, err := c.Analyze(ctx, systemPrompt, userPrompt, timeout)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(ExtractJSON(text)), out); err != nil {
		f := &Failure{Kind: FailureDecode, Err: err}
		c.logger.Warn("analysis completion did not decode", zap.Error(f))
		return f
	}
	return nil
}
