package geminiservice

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

// fakeCompleter returns a canned response or error and records the request.
type fakeCompleter struct {
	resp    string
	err     error
	lastReq Request
	calls   int
}

func (f *fakeCompleter) Generate(ctx context.Context, req Request) (string, error) {
	f.calls++
	f.lastReq = req
	return f.resp, f.err
}

func testFlows(fake *fakeCompleter) *Flows {
	logger := zerolog.Nop()
	return NewFlows(fake, &logger)
}

func TestChat_Success(t *testing.T) {
	fake := &fakeCompleter{resp: `{"reply":"Te entiendo perfectamente."}`}
	out := testFlows(fake).Chat(context.Background(), ChatInput{UserInput: "hola"})

	if out.Reply != "Te entiendo perfectamente." {
		t.Errorf("got reply %q", out.Reply)
	}
}

func TestChat_FallbackOnUpstreamFailure(t *testing.T) {
	fake := &fakeCompleter{err: failure(FailureUpstream, "boom")}
	out := testFlows(fake).Chat(context.Background(), ChatInput{UserInput: "hola"})

	if out.Reply != ChatFallbackReply {
		t.Errorf("expected fallback reply, got %q", out.Reply)
	}
}

func TestChat_FallbackOnEmptyReplyField(t *testing.T) {
	fake := &fakeCompleter{resp: `{"reply":""}`}
	out := testFlows(fake).Chat(context.Background(), ChatInput{UserInput: "hola"})

	if out.Reply != ChatFallbackReply {
		t.Errorf("expected fallback for empty reply, got %q", out.Reply)
	}
}

func TestChat_FallbackOnTypeMismatch(t *testing.T) {
	fake := &fakeCompleter{resp: `{"reply":42}`}
	out := testFlows(fake).Chat(context.Background(), ChatInput{UserInput: "hola"})

	if out.Reply != ChatFallbackReply {
		t.Errorf("expected fallback for wrong type, got %q", out.Reply)
	}
}

func TestChat_FallbackOnMissingKey(t *testing.T) {
	fake := &fakeCompleter{resp: `{"respuesta":"hola"}`}
	out := testFlows(fake).Chat(context.Background(), ChatInput{UserInput: "hola"})

	if out.Reply != ChatFallbackReply {
		t.Errorf("expected fallback for missing key, got %q", out.Reply)
	}
}

func TestChat_ForwardsAttachment(t *testing.T) {
	fake := &fakeCompleter{resp: `{"reply":"veo tu foto"}`}
	att := &Attachment{MimeType: "image/jpeg", Data: "Zm9v"}

	testFlows(fake).Chat(context.Background(), ChatInput{UserInput: "mira", Attachment: att})

	if fake.lastReq.Attachment == nil || fake.lastReq.Attachment.MimeType != "image/jpeg" {
		t.Errorf("attachment not forwarded to completer: %+v", fake.lastReq.Attachment)
	}
	if fake.lastReq.Schema != ChatResponseSchema {
		t.Errorf("chat flow did not request the chat schema")
	}
}

func TestGenerateTitle_Success(t *testing.T) {
	fake := &fakeCompleter{resp: `{"title":"Manejando la ansiedad"}`}
	out := testFlows(fake).GenerateTitle(context.Background(), []ConversationTurn{{Role: "user", Text: "tengo ansiedad"}})

	if out.Title != "Manejando la ansiedad" {
		t.Errorf("got title %q", out.Title)
	}
}

func TestGenerateTitle_FallbackOnFailure(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeCompleter
	}{
		{"upstream error", &fakeCompleter{err: failure(FailureUpstream, "down")}},
		{"empty title", &fakeCompleter{resp: `{"title":""}`}},
		{"not json", &fakeCompleter{resp: `a plain sentence`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := testFlows(tt.fake).GenerateTitle(context.Background(), nil)
			if out.Title != TitleFallback {
				t.Errorf("expected %q, got %q", TitleFallback, out.Title)
			}
		})
	}
}

func TestExtractInsights_Success(t *testing.T) {
	fake := &fakeCompleter{resp: `{"updatedInsights":["Trabaja de noche","Vive con su madre"]}`}
	out := testFlows(fake).ExtractInsights(context.Background(), nil, []string{"Trabaja de noche"})

	if len(out.UpdatedInsights) != 2 || out.UpdatedInsights[1] != "Vive con su madre" {
		t.Errorf("got insights %v", out.UpdatedInsights)
	}
}

func TestExtractInsights_CapsAtMax(t *testing.T) {
	insights := "["
	for i := 0; i < 20; i++ {
		if i > 0 {
			insights += ","
		}
		insights += fmt.Sprintf(`"insight %d"`, i)
	}
	insights += "]"

	fake := &fakeCompleter{resp: `{"updatedInsights":` + insights + `}`}
	out := testFlows(fake).ExtractInsights(context.Background(), nil, nil)

	if len(out.UpdatedInsights) != MaxCoreInsights {
		t.Fatalf("expected %d insights, got %d", MaxCoreInsights, len(out.UpdatedInsights))
	}
	if out.UpdatedInsights[0] != "insight 0" || out.UpdatedInsights[14] != "insight 14" {
		t.Errorf("cap did not keep the first entries in order: %v", out.UpdatedInsights)
	}
}

func TestExtractInsights_EchoesExistingOnFailure(t *testing.T) {
	existing := []string{"Tiene dos hijos", "Cambió de trabajo en marzo"}

	tests := []struct {
		name string
		fake *fakeCompleter
	}{
		{"upstream error", &fakeCompleter{err: failure(FailureUpstream, "down")}},
		{"malformed", &fakeCompleter{resp: `not json at all`}},
		{"missing key", &fakeCompleter{resp: `{"insights":[]}`}},
		{"wrong type", &fakeCompleter{resp: `{"updatedInsights":"todo bien"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := testFlows(tt.fake).ExtractInsights(context.Background(), nil, existing)
			if len(out.UpdatedInsights) != len(existing) {
				t.Fatalf("expected %d echoed insights, got %v", len(existing), out.UpdatedInsights)
			}
			for i := range existing {
				if out.UpdatedInsights[i] != existing[i] {
					t.Errorf("insight %d changed: %q", i, out.UpdatedInsights[i])
				}
			}
		})
	}
}

func TestExtractInsights_FailureWithNilExistingReturnsEmptySlice(t *testing.T) {
	fake := &fakeCompleter{err: failure(FailureUpstream, "down")}
	out := testFlows(fake).ExtractInsights(context.Background(), nil, nil)

	if out.UpdatedInsights == nil {
		t.Fatalf("UpdatedInsights must never be nil")
	}
	if len(out.UpdatedInsights) != 0 {
		t.Errorf("expected empty slice, got %v", out.UpdatedInsights)
	}
}

func TestExtractInsights_NullResultBecomesEmptySlice(t *testing.T) {
	fake := &fakeCompleter{resp: `{"updatedInsights":null}`}
	out := testFlows(fake).ExtractInsights(context.Background(), nil, nil)

	if out.UpdatedInsights == nil || len(out.UpdatedInsights) != 0 {
		t.Errorf("expected empty slice for null result, got %v", out.UpdatedInsights)
	}
}
