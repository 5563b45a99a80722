package chat

import (
	"strings"
	"testing"

	"zhi-server/internal/geminiservice"
)

func TestBuildTurnInput_FirstMessageHasEmptyHistory(t *testing.T) {
	in := buildTurnInput(userContext{}, nil, "hola, necesito hablar", "")

	if in.UserInput != "hola, necesito hablar" {
		t.Errorf("user input = %q", in.UserInput)
	}
	if in.ChatHistorySummary != "" {
		t.Errorf("first message produced a history summary: %q", in.ChatHistorySummary)
	}
}

func TestBuildTurnInput_HistoryExcludesCurrentMessage(t *testing.T) {
	prior := []geminiservice.ConversationTurn{
		{Role: "user", Text: "no puedo dormir"},
		{Role: "zhi", Text: "cuéntame qué te quita el sueño"},
	}

	in := buildTurnInput(userContext{}, prior, "creo que es el trabajo", "")

	want := "user: no puedo dormir\nzhi: cuéntame qué te quita el sueño"
	if in.ChatHistorySummary != want {
		t.Errorf("summary = %q, want %q", in.ChatHistorySummary, want)
	}
	if strings.Contains(in.ChatHistorySummary, "creo que es el trabajo") {
		t.Errorf("current message leaked into the history summary")
	}
}

func TestBuildTurnInput_CarriesUserContextAndAttachment(t *testing.T) {
	uc := userContext{
		Profile:  &geminiservice.UserProfileContext{Name: "Ana"},
		Insights: []string{"Vive sola"},
	}

	in := buildTurnInput(uc, nil, "mira esto", "data:image/png;base64,iVBORw0KGgo=")

	if in.UserProfile == nil || in.UserProfile.Name != "Ana" {
		t.Errorf("profile not carried: %+v", in.UserProfile)
	}
	if len(in.CoreInsights) != 1 || in.CoreInsights[0] != "Vive sola" {
		t.Errorf("insights not carried: %v", in.CoreInsights)
	}
	if in.Attachment == nil || in.Attachment.MimeType != "image/png" {
		t.Errorf("attachment not parsed: %+v", in.Attachment)
	}
}
