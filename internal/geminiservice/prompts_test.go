package geminiservice

import (
	"strings"
	"testing"
)

func TestBuildChatPrompt_ProfilePlaceholders(t *testing.T) {
	prompt := BuildChatPrompt(ChatInput{
		UserInput:   "hola",
		UserProfile: &UserProfileContext{},
	})

	wants := []string{
		"- Nombre del usuario: Desconocido",
		"- Objetivo principal del usuario: No especificado",
		"- Frecuencia de ánimo bajo: No especificada",
		"- Frecuencia de poco interés: No especificada",
		"- Nivel de energía reciente: No especificado",
	}
	for _, want := range wants {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing placeholder line %q", want)
		}
	}
}

func TestBuildChatPrompt_ProfileValuesOverridePlaceholders(t *testing.T) {
	prompt := BuildChatPrompt(ChatInput{
		UserInput: "hola",
		UserProfile: &UserProfileContext{
			Name:              "María",
			ObjetivoPrincipal: "Dormir mejor",
		},
	})

	if !strings.Contains(prompt, "- Nombre del usuario: María") {
		t.Errorf("prompt did not render provided name")
	}
	if !strings.Contains(prompt, "- Objetivo principal del usuario: Dormir mejor") {
		t.Errorf("prompt did not render provided goal")
	}
	if strings.Contains(prompt, "Desconocido") {
		t.Errorf("placeholder rendered despite provided name")
	}
}

func TestBuildChatPrompt_NoProfileOmitsBlock(t *testing.T) {
	prompt := BuildChatPrompt(ChatInput{UserInput: "hola"})

	if strings.Contains(prompt, "- Nombre del usuario:") {
		t.Errorf("profile block rendered without a profile")
	}
}

func TestBuildChatPrompt_SectionOrder(t *testing.T) {
	prompt := BuildChatPrompt(ChatInput{
		UserInput:          "me siento cansado",
		UserProfile:        &UserProfileContext{Name: "Ana"},
		ChatHistorySummary: "user: ayer dormí mal",
		CoreInsights:       []string{"Tiene un examen importante"},
		Attachment:         &Attachment{MimeType: "image/png", Data: "AAAA"},
	})

	markers := []string{
		"Identidad y Personalidad:",
		"- Nombre del usuario: Ana",
		"Contexto de conversaciones recientes:",
		"Core Insights",
		"Entrada del usuario: me siento cansado",
		"El usuario ha adjuntado una imagen",
		"Tu respuesta como Zhi:",
	}

	last := -1
	for _, marker := range markers {
		idx := strings.Index(prompt, marker)
		if idx < 0 {
			t.Fatalf("prompt missing section %q", marker)
		}
		if idx <= last {
			t.Errorf("section %q out of order", marker)
		}
		last = idx
	}
}

func TestBuildChatPrompt_Idempotent(t *testing.T) {
	in := ChatInput{
		UserInput:          "hola",
		UserProfile:        &UserProfileContext{Name: "Ana"},
		ChatHistorySummary: "user: hola",
		CoreInsights:       []string{"a", "b"},
	}

	if BuildChatPrompt(in) != BuildChatPrompt(in) {
		t.Errorf("same input produced different prompts")
	}
}

func TestBuildChatPrompt_NoAttachmentOmitsImageInstruction(t *testing.T) {
	prompt := BuildChatPrompt(ChatInput{UserInput: "hola"})

	if strings.Contains(prompt, "adjuntado una imagen") {
		t.Errorf("image instruction rendered without an attachment")
	}
}

func TestBuildTitlePrompt_EmptyTurns(t *testing.T) {
	prompt := BuildTitlePrompt(nil)

	if !strings.Contains(prompt, "Mensajes de la conversación:") {
		t.Errorf("prompt missing messages header")
	}
	if !strings.Contains(prompt, "Genera solo el título en formato JSON estricto.") {
		t.Errorf("prompt missing closing instruction")
	}
}

func TestBuildTitlePrompt_RendersTurnsInOrder(t *testing.T) {
	prompt := BuildTitlePrompt([]ConversationTurn{
		{Role: "user", Text: "no puedo dormir"},
		{Role: "zhi", Text: "te escucho"},
	})

	first := strings.Index(prompt, "- user: no puedo dormir")
	second := strings.Index(prompt, "- zhi: te escucho")
	if first < 0 || second < 0 {
		t.Fatalf("prompt missing turn lines:\n%s", prompt)
	}
	if second < first {
		t.Errorf("turns rendered out of order")
	}
}

func TestBuildInsightPrompt_ExistingInsights(t *testing.T) {
	prompt := BuildInsightPrompt(
		[]ConversationTurn{{Role: "user", Text: "renuncié a mi trabajo"}},
		[]string{"Le preocupa su estabilidad económica"},
	)

	if !strings.Contains(prompt, "Insights actuales del usuario:") {
		t.Errorf("prompt missing existing-insights header")
	}
	if !strings.Contains(prompt, "- Le preocupa su estabilidad económica") {
		t.Errorf("prompt missing existing insight bullet")
	}
}

func TestBuildInsightPrompt_NoExistingInsights(t *testing.T) {
	prompt := BuildInsightPrompt([]ConversationTurn{{Role: "user", Text: "hola"}}, nil)

	if strings.Contains(prompt, "Insights actuales del usuario:") {
		t.Errorf("existing-insights header rendered without insights")
	}
}

func TestBuildChatPrompt_PreservesUnicode(t *testing.T) {
	in := ChatInput{UserInput: "estoy muy triste 😔, ¿qué hago?"}
	prompt := BuildChatPrompt(in)

	if !strings.Contains(prompt, "Entrada del usuario: estoy muy triste 😔, ¿qué hago?") {
		t.Errorf("user input not preserved verbatim")
	}
}
