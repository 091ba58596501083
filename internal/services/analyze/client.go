package analyze

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

	"github.com/cenkalti/backoff/v4"

	"recap/internal/services"
	"recap/internal/transcript"
)

const (
	defaultHTTPTimeout   = 2 * time.Minute
	defaultRetryAttempts = 4
	jsonResponseType     = "json_object"
)

// Config captures the runtime settings required to talk to the content-analysis service.
type Config struct {
	BaseURL          string
	APIKey           string
	Model            string
	TimeoutSeconds   int
	RetryMaxAttempts int
}

// Client wraps the content-analysis completion endpoint. The service consumes
// the already-aligned transcript text, never raw audio, and returns the fixed
// enrichment schema. Any shape mismatch in the response is an analysis
// failure at this boundary: downstream code only ever sees a validated
// AnalysisResult.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an analysis client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = defaultRetryAttempts
	}
	client := &Client{
		cfg: Config{
			BaseURL:          strings.TrimSpace(cfg.BaseURL),
			APIKey:           strings.TrimSpace(cfg.APIKey),
			Model:            strings.TrimSpace(cfg.Model),
			TimeoutSeconds:   cfg.TimeoutSeconds,
			RetryMaxAttempts: cfg.RetryMaxAttempts,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// RenderTranscript formats segments as "[index] SpeakerLabel: text" lines,
// the shape the analysis prompt expects.
func RenderTranscript(segments []transcript.Segment, speakers []transcript.Speaker) string {
	names := make(map[string]string, len(speakers))
	for _, sp := range speakers {
		names[sp.ID] = sp.DisplayName
	}
	var sb strings.Builder
	for _, seg := range segments {
		name := names[seg.SpeakerID]
		if name == "" {
			name = seg.SpeakerID
		}
		fmt.Fprintf(&sb, "[%d] %s: %s\n", seg.Index, name, seg.Text)
	}
	return sb.String()
}

// Analyze submits the rendered transcript and speaker roster and returns the
// validated enrichment. Transient HTTP failures are retried with exponential
// backoff; schema violations are permanent failures for the call.
func (c *Client) Analyze(ctx context.Context, segments []transcript.Segment, speakers []transcript.Speaker) (transcript.AnalysisResult, error) {
	var empty transcript.AnalysisResult
	if len(segments) == 0 {
		return empty, services.Wrap(services.ErrValidation, "analyzing", "analyze", "segments required", nil)
	}
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrAnalysis, "analyzing", "analyze", "api key required", nil)
	}

	userPrompt := buildUserPrompt(segments, speakers)
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: analysisSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}

	var content string
	operation := func() error {
		body, err := c.sendOnce(ctx, payload)
		if err != nil {
			var statusErr *httpStatusError
			if errors.As(err, &statusErr) && statusErr.transient() {
				return err
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				return err
			}
			return backoff.Permanent(err)
		}
		content = body
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.cfg.RetryMaxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return empty, services.Wrap(services.ErrAnalysis, "analyzing", "analysis request", "", err)
	}

	result, err := decodeAnalysisPayload(content, len(segments), speakers)
	if err != nil {
		return empty, services.Wrap(services.ErrAnalysis, "analyzing", "decode payload", "", err)
	}
	return result, nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("analysis request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (e *httpStatusError) transient() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

func (c *Client) sendOnce(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", errors.New("empty completion content")
}

func buildUserPrompt(segments []transcript.Segment, speakers []transcript.Speaker) string {
	var sb strings.Builder
	sb.WriteString("Speakers:\n")
	for _, sp := range speakers {
		fmt.Fprintf(&sb, "- %s (%s)\n", sp.DisplayName, sp.ID)
	}
	sb.WriteString("\nTranscript:\n")
	sb.WriteString(RenderTranscript(segments, speakers))
	return sb.String()
}
