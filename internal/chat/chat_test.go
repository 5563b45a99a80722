package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"zhi-server/internal/geminiservice"
)

// fakeCompleter stands in for the Gemini client in handler tests.
type fakeCompleter struct {
	resp    string
	err     error
	lastReq geminiservice.Request
}

func (f *fakeCompleter) Generate(ctx context.Context, req geminiservice.Request) (string, error) {
	f.lastReq = req
	return f.resp, f.err
}

func setupFlows(fake *fakeCompleter) {
	logger := zerolog.Nop()
	flows = geminiservice.NewFlows(fake, &logger)
}

func doJSON(t *testing.T, handler echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestChatHandler_Success(t *testing.T) {
	fake := &fakeCompleter{resp: `{"reply":"Cuéntame más sobre eso."}`}
	setupFlows(fake)

	rec := doJSON(t, ChatHandler, `{"userInput":"me siento solo"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out geminiservice.ChatOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if out.Reply != "Cuéntame más sobre eso." {
		t.Errorf("got reply %q", out.Reply)
	}
}

func TestChatHandler_UpstreamFailureStillReturns200(t *testing.T) {
	fake := &fakeCompleter{err: &geminiservice.CompletionError{Kind: geminiservice.FailureUpstream}}
	setupFlows(fake)

	rec := doJSON(t, ChatHandler, `{"userInput":"hola"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with fallback", rec.Code)
	}
	var out geminiservice.ChatOutput
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Reply != geminiservice.ChatFallbackReply {
		t.Errorf("got reply %q, want fallback", out.Reply)
	}
}

func TestChatHandler_MalformedBodyReturns400WithFallback(t *testing.T) {
	fake := &fakeCompleter{resp: `{"reply":"x"}`}
	setupFlows(fake)

	rec := doJSON(t, ChatHandler, `{"userInput": 5}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var out geminiservice.ChatOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("400 body is not a chat output: %v", err)
	}
	if out.Reply != geminiservice.ChatFallbackReply {
		t.Errorf("400 body reply = %q, want fallback", out.Reply)
	}
}

func TestChatHandler_ForwardsValidPhotoDataURI(t *testing.T) {
	fake := &fakeCompleter{resp: `{"reply":"bonita foto"}`}
	setupFlows(fake)

	doJSON(t, ChatHandler, `{"userInput":"mira","photoDataUri":"data:image/png;base64,iVBORw0KGgo="}`)

	if fake.lastReq.Attachment == nil {
		t.Fatalf("attachment was not forwarded")
	}
	if fake.lastReq.Attachment.MimeType != "image/png" {
		t.Errorf("mime = %q", fake.lastReq.Attachment.MimeType)
	}
}

func TestChatHandler_InvalidPhotoDataURIIgnored(t *testing.T) {
	fake := &fakeCompleter{resp: `{"reply":"te escucho"}`}
	setupFlows(fake)

	rec := doJSON(t, ChatHandler, `{"userInput":"mira","photoDataUri":"not a data uri"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if fake.lastReq.Attachment != nil {
		t.Errorf("unparseable URI produced attachment %+v", fake.lastReq.Attachment)
	}
}

func TestGenerateTitleHandler_Success(t *testing.T) {
	fake := &fakeCompleter{resp: `{"title":"Estrés laboral"}`}
	setupFlows(fake)

	rec := doJSON(t, GenerateTitleHandler, `{"messages":[{"role":"user","text":"odio mi trabajo"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out geminiservice.TitleOutput
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Title != "Estrés laboral" {
		t.Errorf("got title %q", out.Title)
	}
	if !strings.Contains(fake.lastReq.Prompt, "odio mi trabajo") {
		t.Errorf("posted messages missing from title prompt:\n%s", fake.lastReq.Prompt)
	}
}

func TestGenerateTitleHandler_MalformedBodyReturns400WithFallback(t *testing.T) {
	fake := &fakeCompleter{resp: `{"title":"x"}`}
	setupFlows(fake)

	rec := doJSON(t, GenerateTitleHandler, `{"messages":"nope"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var out geminiservice.TitleOutput
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Title != geminiservice.TitleFallback {
		t.Errorf("400 body title = %q, want fallback", out.Title)
	}
}

func TestExtractInsightsHandler_EchoesExistingOnFailure(t *testing.T) {
	fake := &fakeCompleter{err: &geminiservice.CompletionError{Kind: geminiservice.FailureUpstream}}
	setupFlows(fake)

	rec := doJSON(t, ExtractInsightsHandler, `{"messages":[],"existingInsights":["Vive en Quito","Estudia medicina"]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out geminiservice.InsightOutput
	json.Unmarshal(rec.Body.Bytes(), &out)
	if len(out.UpdatedInsights) != 2 || out.UpdatedInsights[0] != "Vive en Quito" {
		t.Errorf("existing insights not echoed: %v", out.UpdatedInsights)
	}
}

func TestExtractInsightsHandler_ForwardsPostedMessages(t *testing.T) {
	fake := &fakeCompleter{resp: `{"updatedInsights":["Cambió de trabajo"]}`}
	setupFlows(fake)

	rec := doJSON(t, ExtractInsightsHandler, `{"messages":[{"role":"user","text":"renuncié a mi trabajo ayer"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(fake.lastReq.Prompt, "renuncié a mi trabajo ayer") {
		t.Errorf("posted messages missing from insight prompt:\n%s", fake.lastReq.Prompt)
	}
}

func TestExtractInsightsHandler_MalformedBodyReturns400WithEmptyList(t *testing.T) {
	fake := &fakeCompleter{resp: `{"updatedInsights":[]}`}
	setupFlows(fake)

	rec := doJSON(t, ExtractInsightsHandler, `{"existingInsights":"todo"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"updatedInsights":[]}` {
		t.Errorf("400 body = %s", body)
	}
}
