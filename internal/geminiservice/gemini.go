package geminiservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// --- Gemini API Configuration ---
const (
	geminiAPIURL       = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s"
	defaultModel       = "gemini-2.5-flash"
	defaultAttempts    = 1
	maxAttemptsLimit   = 5
	initialBackoff     = 1 * time.Second
	requestTimeout     = 30 * time.Second
	structuredMimeType = "application/json"
)

// FailureKind classifies why a completion call failed. The orchestrators
// collapse every kind into their fallback value; the kind is kept for logs.
type FailureKind int

const (
	FailureUpstream FailureKind = iota
	FailureEmptyResponse
	FailureMalformedResponse
)

func (k FailureKind) String() string {
	switch k {
	case FailureUpstream:
		return "upstream_unavailable"
	case FailureEmptyResponse:
		return "empty_response"
	case FailureMalformedResponse:
		return "malformed_response"
	}
	return "unknown"
}

// CompletionError is the failure signalled by the Completer. The client never
// fabricates content on failure; fallback values are the flow orchestrator's job.
type CompletionError struct {
	Kind FailureKind
	Err  error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed (%s): %v", e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

func failure(kind FailureKind, format string, args ...interface{}) error {
	return &CompletionError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Attachment is an inline binary part (e.g. a user photo) sent with the prompt.
// Data holds the raw base64 payload exactly as extracted from the data URI.
type Attachment struct {
	MimeType string
	Data     string
}

var dataURIPattern = regexp.MustCompile(`^data:([^;]+);base64,(.+)$`)

// ParseDataURI extracts an inline attachment from a `data:<mime>;base64,<payload>`
// URI. A string that does not match the shape yields nil, never an error.
func ParseDataURI(uri string) *Attachment {
	m := dataURIPattern.FindStringSubmatch(uri)
	if m == nil {
		return nil
	}
	return &Attachment{MimeType: m[1], Data: m[2]}
}

// Request is a single structured-completion request: a prompt, the JSON
// schema the model must satisfy, and an optional inline attachment.
type Request struct {
	Prompt     string
	Schema     *GeminiSchema
	Attachment *Attachment
}

// Completer is the boundary to the external generative-text service.
// Implementations return the raw JSON text of the model's structured answer.
type Completer interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// --- Structs for Gemini API Request/Response ---

type geminiPayload struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string        `json:"responseMimeType"`
	ResponseSchema   *GeminiSchema `json:"response_schema,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Client calls the Gemini generateContent endpoint with structured output
// enabled. It is constructed once in main and injected into the flows; it
// holds no per-request state and is safe for concurrent use.
type Client struct {
	apiKey      string
	model       string
	maxAttempts int
	baseURL     string // overrides the real endpoint in tests
	httpClient  *http.Client
	log         *zerolog.Logger
}

// NewClient reads GEMINI_API_KEY, GEMINI_MODEL and GEMINI_MAX_ATTEMPTS from
// the environment. A single attempt per call is the default; raising the
// attempt count enables exponential backoff between tries.
func NewClient(log *zerolog.Logger) *Client {
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultModel
	}

	attempts := defaultAttempts
	if v := os.Getenv("GEMINI_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= maxAttemptsLimit {
			attempts = n
		} else {
			log.Warn().Str("value", v).Msg("Ignoring invalid GEMINI_MAX_ATTEMPTS")
		}
	}

	return &Client{
		apiKey:      os.Getenv("GEMINI_API_KEY"),
		model:       model,
		maxAttempts: attempts,
		httpClient:  &http.Client{Timeout: requestTimeout},
		log:         log,
	}
}

// Generate submits the request and returns the raw JSON string from the
// first candidate's text part. Every failure is a *CompletionError.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		c.log.Error().Msg("GEMINI_API_KEY environment variable is not set")
		return "", failure(FailureUpstream, "server is not configured for AI responses")
	}

	parts := []geminiPart{{Text: req.Prompt}}
	if req.Attachment != nil {
		parts = append(parts, geminiPart{InlineData: &inlineData{
			MimeType: req.Attachment.MimeType,
			Data:     req.Attachment.Data,
		}})
	}

	payload := geminiPayload{
		Contents: []geminiContent{{Parts: parts}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: structuredMimeType,
			ResponseSchema:   req.Schema,
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", failure(FailureUpstream, "failed to marshal payload: %w", err)
	}

	url := c.endpoint()
	var lastErr error

	for i := 0; i < c.maxAttempts; i++ {
		if i > 0 {
			time.Sleep(initialBackoff * time.Duration(math.Pow(2, float64(i-1))))
		}

		text, err := c.doAttempt(ctx, url, payloadBytes)
		if err == nil {
			return text, nil
		}

		var ce *CompletionError
		if errors.As(err, &ce) && ce.Kind != FailureUpstream {
			// Empty or malformed bodies are not transient; retrying wastes time.
			return "", err
		}

		lastErr = err
		c.log.Warn().Err(err).Int("attempt", i+1).Msg("Gemini call failed")
	}

	return "", failure(FailureUpstream, "gemini unavailable after %d attempt(s): %w", c.maxAttempts, lastErr)
}

func (c *Client) doAttempt(ctx context.Context, url string, payload []byte) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", failure(FailureUpstream, "failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", failure(FailureUpstream, "request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", failure(FailureUpstream, "API returned non-200 status: %s, body: %s", resp.Status, string(body))
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", failure(FailureMalformedResponse, "failed to decode response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", failure(FailureEmptyResponse, "no content found in gemini response")
	}

	text := geminiResp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", failure(FailureEmptyResponse, "empty text in gemini response")
	}

	return text, nil
}

func (c *Client) endpoint() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return fmt.Sprintf(geminiAPIURL, c.model, c.apiKey)
}
