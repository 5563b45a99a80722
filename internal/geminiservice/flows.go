package geminiservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const (
	// ChatFallbackReply is returned by the chat flow whenever the upstream
	// call fails. An emotionally supportive agent must never visibly error
	// out, so failures degrade to this fixed calming sentence.
	ChatFallbackReply = "Te escucho... entiendo que puede ser difícil... tómate tu tiempo, no hay prisa... estoy aquí para acompañarte."

	// TitleFallback is the title flow's fixed fallback value.
	TitleFallback = "Nueva conversación"

	// MaxCoreInsights caps the long-term memory list after every update.
	MaxCoreInsights = 15
)

// ChatOutput is the chat flow's result. Always structurally valid.
type ChatOutput struct {
	Reply string `json:"reply"`
}

// TitleOutput is the title flow's result. Always structurally valid.
type TitleOutput struct {
	Title string `json:"title"`
}

// InsightOutput is the extraction flow's result. UpdatedInsights is never nil.
type InsightOutput struct {
	UpdatedInsights []string `json:"updatedInsights"`
}

// Flows bundles the three LLM flows around one injected Completer. Each flow
// is total: for any input it returns a valid output, degrading to a fixed
// fallback on any upstream failure. Flows hold no session state; all context
// is caller-supplied and caller-persisted.
type Flows struct {
	completer Completer
	log       *zerolog.Logger
}

// NewFlows wires the flow orchestrators to a completion client.
func NewFlows(completer Completer, log *zerolog.Logger) *Flows {
	return &Flows{completer: completer, log: log}
}

// Chat produces Zhi's reply to a single user message plus caller context.
func (f *Flows) Chat(ctx context.Context, in ChatInput) ChatOutput {
	prompt := BuildChatPrompt(in)

	raw, err := f.completer.Generate(ctx, Request{
		Prompt:     prompt,
		Schema:     ChatResponseSchema,
		Attachment: in.Attachment,
	})
	if err != nil {
		f.logFailure("chat", err)
		return ChatOutput{Reply: ChatFallbackReply}
	}

	var out ChatOutput
	if err := decodeStrict(raw, []string{"reply"}, &out); err != nil || out.Reply == "" {
		f.logFailure("chat", err)
		return ChatOutput{Reply: ChatFallbackReply}
	}

	return out
}

// GenerateTitle summarizes a conversation into a 3-5 word title.
func (f *Flows) GenerateTitle(ctx context.Context, turns []ConversationTurn) TitleOutput {
	prompt := BuildTitlePrompt(turns)

	raw, err := f.completer.Generate(ctx, Request{
		Prompt: prompt,
		Schema: TitleResponseSchema,
	})
	if err != nil {
		f.logFailure("generate-title", err)
		return TitleOutput{Title: TitleFallback}
	}

	var out TitleOutput
	if err := decodeStrict(raw, []string{"title"}, &out); err != nil || out.Title == "" {
		f.logFailure("generate-title", err)
		return TitleOutput{Title: TitleFallback}
	}

	return out
}

// ExtractInsights updates the user's long-term memory list from new turns.
// Success caps the returned list at MaxCoreInsights, keeping the first
// entries in model order. Failure echoes the caller's existing insights
// unchanged: extraction must never erase previously accumulated memory.
func (f *Flows) ExtractInsights(ctx context.Context, turns []ConversationTurn, existingInsights []string) InsightOutput {
	prompt := BuildInsightPrompt(turns, existingInsights)

	raw, err := f.completer.Generate(ctx, Request{
		Prompt: prompt,
		Schema: InsightResponseSchema,
	})
	if err != nil {
		f.logFailure("extract-insights", err)
		return InsightOutput{UpdatedInsights: echoInsights(existingInsights)}
	}

	var out InsightOutput
	if err := decodeStrict(raw, []string{"updatedInsights"}, &out); err != nil {
		f.logFailure("extract-insights", err)
		return InsightOutput{UpdatedInsights: echoInsights(existingInsights)}
	}

	if out.UpdatedInsights == nil {
		out.UpdatedInsights = []string{}
	}
	if len(out.UpdatedInsights) > MaxCoreInsights {
		out.UpdatedInsights = out.UpdatedInsights[:MaxCoreInsights]
	}

	return out
}

// decodeStrict parses the model's raw JSON text into v, treating a missing
// required key or a JSON type mismatch the same as a malformed response.
func decodeStrict(raw string, required []string, v interface{}) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return failure(FailureMalformedResponse, "response is not a JSON object: %w", err)
	}

	for _, key := range required {
		if _, ok := probe[key]; !ok {
			return failure(FailureMalformedResponse, "response missing required field %q", key)
		}
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return failure(FailureMalformedResponse, "response field has wrong type: %w", err)
	}

	return nil
}

func echoInsights(existing []string) []string {
	if existing == nil {
		return []string{}
	}
	return existing
}

func (f *Flows) logFailure(flow string, err error) {
	kind := "unknown"
	var ce *CompletionError
	if errors.As(err, &ce) {
		kind = ce.Kind.String()
	}
	if err == nil {
		err = fmt.Errorf("schema-valid response with empty required field")
		kind = FailureMalformedResponse.String()
	}
	f.log.Error().Err(err).Str("flow", flow).Str("failure_kind", kind).Msg("Flow degraded to fallback")
}
