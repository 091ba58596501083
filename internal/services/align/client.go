package align

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"recap/internal/services"
	"recap/internal/transcript"
)

const defaultHTTPTimeout = 10 * time.Minute

// Config captures the runtime settings required to talk to the alignment service.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
}

// Client wraps the forced-alignment/diarization service. The service consumes
// raw audio and returns speaker-labeled utterances with seconds timestamps;
// it is treated as untrusted and unreliable, so callers route every Align
// invocation through the alignment circuit breaker.
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

// NewClient constructs an alignment client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Result is the alignment service's decoded response.
type Result struct {
	Utterances        []transcript.AlignedUtterance
	AverageConfidence float64
}

type alignRequest struct {
	AudioBase64 string `json:"audio_base64"`
	SpeakerHint int    `json:"speaker_hint,omitempty"`
}

type alignResponse struct {
	Segments []struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Text       string  `json:"text"`
		Speaker    string  `json:"speaker"`
		Confidence float64 `json:"confidence"`
	} `json:"segments"`
	AverageConfidence float64 `json:"average_confidence"`
}

// Align submits raw audio for forced alignment and diarization. A single
// attempt is made per invocation; retry and cooldown policy belongs to the
// circuit breaker guarding this scarce dependency.
func (c *Client) Align(ctx context.Context, audio []byte, speakerHint int) (Result, error) {
	var result Result
	if len(audio) == 0 {
		return result, services.Wrap(services.ErrValidation, "aligning", "align", "audio payload required", nil)
	}

	payload := alignRequest{
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
		SpeakerHint: speakerHint,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return result, services.Wrap(services.ErrAlignment, "aligning", "encode request", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/align", bytes.NewReader(encoded))
	if err != nil {
		return result, services.Wrap(services.ErrAlignment, "aligning", "new request", "", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, services.Wrap(services.ErrAlignment, "aligning", "http request", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, services.Wrap(services.ErrAlignment, "aligning", "read response", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		detail := fmt.Sprintf("http %d: %s", resp.StatusCode, summarizeBody(body))
		return result, services.Wrap(services.ErrAlignment, "aligning", "align request", detail, nil)
	}

	var decoded alignResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return result, services.Wrap(services.ErrAlignment, "aligning", "decode response", "", err)
	}
	if len(decoded.Segments) == 0 {
		return result, services.Wrap(services.ErrAlignment, "aligning", "decode response", "no segments returned", nil)
	}

	result.Utterances = make([]transcript.AlignedUtterance, 0, len(decoded.Segments))
	for _, seg := range decoded.Segments {
		result.Utterances = append(result.Utterances, transcript.AlignedUtterance{
			Start:      seg.Start,
			End:        seg.End,
			Text:       seg.Text,
			Speaker:    seg.Speaker,
			Confidence: seg.Confidence,
		})
	}
	result.AverageConfidence = decoded.AverageConfidence
	return result, nil
}

type healthResponse struct {
	Status string `json:"status"`
}

// Healthcheck verifies the alignment service is reachable and reports ready.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("alignment health: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("alignment health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("alignment health: http %d", resp.StatusCode)
	}
	var decoded healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("alignment health: decode response: %w", err)
	}
	if !strings.EqualFold(decoded.Status, "ok") {
		return fmt.Errorf("alignment health: unexpected status %q", decoded.Status)
	}
	return nil
}

// ConfidenceDistribution buckets per-segment confidences the way the service
// reports them: high is 0.8 and above, low is below 0.5.
type ConfidenceDistribution struct {
	High   int
	Medium int
	Low    int
}

// Distribution summarizes the result's per-segment confidence scores.
func (r Result) Distribution() ConfidenceDistribution {
	var dist ConfidenceDistribution
	for _, utt := range r.Utterances {
		switch {
		case utt.Confidence >= 0.8:
			dist.High++
		case utt.Confidence >= 0.5:
			dist.Medium++
		default:
			dist.Low++
		}
	}
	return dist
}

func summarizeBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(trimmed)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return trimmed
}
