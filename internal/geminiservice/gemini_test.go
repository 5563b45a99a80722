package geminiservice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func testClient(t *testing.T, handler http.HandlerFunc, attempts int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := zerolog.Nop()
	return &Client{
		apiKey:      "test-key",
		model:       defaultModel,
		maxAttempts: attempts,
		baseURL:     srv.URL,
		httpClient:  srv.Client(),
		log:         &logger,
	}
}

func candidateBody(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + text + `}]}}]}`
}

func failureKind(t *testing.T, err error) FailureKind {
	t.Helper()
	var ce *CompletionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompletionError, got %T: %v", err, err)
	}
	return ce.Kind
}

func TestGenerate_ExtractsCandidateText(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Write([]byte(candidateBody(`"{\"reply\":\"hola\"}"`)))
	}, 1)

	text, err := c.Generate(context.Background(), Request{Prompt: "p", Schema: ChatResponseSchema})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"reply":"hola"}` {
		t.Errorf("got text %q", text)
	}
}

func TestGenerate_Non200IsUpstreamFailure(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}, 1)

	_, err := c.Generate(context.Background(), Request{Prompt: "p"})
	if kind := failureKind(t, err); kind != FailureUpstream {
		t.Errorf("expected upstream failure, got %s", kind)
	}
}

func TestGenerate_EmptyCandidatesNotRetried(t *testing.T) {
	var calls int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"candidates":[]}`))
	}, 3)

	_, err := c.Generate(context.Background(), Request{Prompt: "p"})
	if kind := failureKind(t, err); kind != FailureEmptyResponse {
		t.Errorf("expected empty-response failure, got %s", kind)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("empty response was retried: %d calls", n)
	}
}

func TestGenerate_MalformedBodyNotRetried(t *testing.T) {
	var calls int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`<html>gateway error</html>`))
	}, 3)

	_, err := c.Generate(context.Background(), Request{Prompt: "p"})
	if kind := failureKind(t, err); kind != FailureMalformedResponse {
		t.Errorf("expected malformed-response failure, got %s", kind)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("malformed response was retried: %d calls", n)
	}
}

func TestGenerate_RetriesUpstreamFailures(t *testing.T) {
	var calls int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}, 2)

	_, err := c.Generate(context.Background(), Request{Prompt: "p"})
	if kind := failureKind(t, err); kind != FailureUpstream {
		t.Errorf("expected upstream failure, got %s", kind)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected 2 attempts, got %d", n)
	}
}

func TestGenerate_MissingAPIKeySkipsHTTP(t *testing.T) {
	var calls int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, 1)
	c.apiKey = ""

	_, err := c.Generate(context.Background(), Request{Prompt: "p"})
	if kind := failureKind(t, err); kind != FailureUpstream {
		t.Errorf("expected upstream failure, got %s", kind)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("request was sent despite missing key: %d calls", n)
	}
}

func TestNewClient_EnvConfiguration(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name         string
		model        string
		attempts     string
		wantModel    string
		wantAttempts int
	}{
		{"defaults", "", "", defaultModel, 1},
		{"custom model", "gemini-2.0-pro", "", "gemini-2.0-pro", 1},
		{"valid attempts", "", "3", defaultModel, 3},
		{"attempts below range", "", "0", defaultModel, 1},
		{"attempts above range", "", "99", defaultModel, 1},
		{"attempts not a number", "", "tres", defaultModel, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_MODEL", tt.model)
			t.Setenv("GEMINI_MAX_ATTEMPTS", tt.attempts)

			c := NewClient(&logger)
			if c.model != tt.wantModel {
				t.Errorf("model = %q, want %q", c.model, tt.wantModel)
			}
			if c.maxAttempts != tt.wantAttempts {
				t.Errorf("maxAttempts = %d, want %d", c.maxAttempts, tt.wantAttempts)
			}
		})
	}
}

func TestParseDataURI(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		wantMime string
		wantData string
	}{
		{"png", "data:image/png;base64,iVBORw0KGgo=", "image/png", "iVBORw0KGgo="},
		{"jpeg", "data:image/jpeg;base64,/9j/4AAQ", "image/jpeg", "/9j/4AAQ"},
		{"plain string", "just some text", "", ""},
		{"empty", "", "", ""},
		{"missing mime", "data:;base64,abcd", "", ""},
		{"missing payload", "data:image/png;base64,", "", ""},
		{"wrong scheme", "http://example.com/a.png", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att := ParseDataURI(tt.uri)
			if tt.wantMime == "" {
				if att != nil {
					t.Fatalf("expected nil attachment, got %+v", att)
				}
				return
			}
			if att == nil {
				t.Fatalf("expected attachment, got nil")
			}
			if att.MimeType != tt.wantMime || att.Data != tt.wantData {
				t.Errorf("got %q/%q, want %q/%q", att.MimeType, att.Data, tt.wantMime, tt.wantData)
			}
		})
	}
}
