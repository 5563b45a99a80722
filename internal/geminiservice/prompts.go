package geminiservice

import (
	"fmt"
	"strings"
)

/* =================================================================================
						PROMPT ENGINEERING & GUARDRAILS
=================================================================================*/

// ConversationTurn is one chronological message of a conversation.
type ConversationTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// UserProfileContext carries the self-reported onboarding answers used to
// personalize the chat prompt. Every field is optional; missing fields are
// rendered with an explicit placeholder, never dropped from the template.
type UserProfileContext struct {
	Name                  string `json:"name,omitempty"`
	FrecuenciaAnimoBajo   string `json:"frecuenciaAnimoBajo,omitempty"`
	FrecuenciaPocoInteres string `json:"frecuenciaPocoInteres,omitempty"`
	NivelEnergia          string `json:"nivelEnergia,omitempty"`
	ObjetivoPrincipal     string `json:"objetivoPrincipal,omitempty"`
}

// ChatInput is the full context for one chat-reply prompt.
type ChatInput struct {
	UserInput          string
	UserProfile        *UserProfileContext
	ChatHistorySummary string
	CoreInsights       []string
	Attachment         *Attachment
}

// BuildChatPrompt renders the chat-reply prompt. The section order is fixed:
// persona and behavior rules, profile context, recent-history summary, core
// insights, the user's message, and the image instruction when an attachment
// is present. Optional sections are skipped, never reordered.
func BuildChatPrompt(in ChatInput) string {
	var parts []string

	parts = append(parts, "Identidad y Personalidad:")
	parts = append(parts, "Eres ZHI, un hombre joven adulto con formación en psicología clínica. Tu enfoque es humano, cálido y cercano.")
	parts = append(parts, "Tu tono es el de un amigo sabio y estable. Hablas en español latino.")
	parts = append(parts, "Reglas Estrictas de Comportamiento:")
	parts = append(parts, "- PROHIBICIÓN DE SALUDOS: Si hay historial de mensajes (ver 'Contexto de conversaciones recientes'), tienes PROHIBIDO saludar. No digas 'Hola', 'Bienvenido', 'Buen día' o similares. Empieza directamente con la validación emocional.")
	parts = append(parts, "- NO REPETICIÓN: No uses el nombre del usuario si ya lo usaste en los últimos mensajes del historial.")
	parts = append(parts, "- NATURALIDAD: Habla como si estuvieras en medio de una conversación continua. Ve directo al grano emocional.")
	parts = append(parts, "")
	parts = append(parts, "Estructura de cada Respuesta (Separa cada bloque con DOS saltos de línea):")
	parts = append(parts, "1. Validación emocional profunda: Empieza AQUÍ directamente. Sin introducciones.")
	parts = append(parts, "")
	parts = append(parts, "2. Una reflexión cercana: Sin tecnicismos.")
	parts = append(parts, "")
	parts = append(parts, "3. Una acción pequeña o pregunta de cierre (OPCIONAL): No sugerir siempre.")
	parts = append(parts, "Límites Éticos:")
	parts = append(parts, "- No diagnostiques.")
	parts = append(parts, "- No reemplaces a un profesional humano.")
	parts = append(parts, "- Si detectas riesgo serio, sugiere buscar ayuda humana con respeto.")
	parts = append(parts, "")
	parts = append(parts, "Aquí tienes algo de contexto sobre el usuario. Usa esta información para personalizar la conversación y entender mejor su situación.")

	if in.UserProfile != nil {
		up := in.UserProfile
		parts = append(parts, "")
		parts = append(parts, fmt.Sprintf("- Nombre del usuario: %s", orPlaceholder(up.Name, "Desconocido")))
		parts = append(parts, fmt.Sprintf("- Objetivo principal del usuario: %s", orPlaceholder(up.ObjetivoPrincipal, "No especificado")))
		parts = append(parts, fmt.Sprintf("- Frecuencia de ánimo bajo: %s", orPlaceholder(up.FrecuenciaAnimoBajo, "No especificada")))
		parts = append(parts, fmt.Sprintf("- Frecuencia de poco interés: %s", orPlaceholder(up.FrecuenciaPocoInteres, "No especificada")))
		parts = append(parts, fmt.Sprintf("- Nivel de energía reciente: %s", orPlaceholder(up.NivelEnergia, "No especificado")))
	}

	if in.ChatHistorySummary != "" {
		parts = append(parts, "")
		parts = append(parts, fmt.Sprintf("Contexto de conversaciones recientes: %s", in.ChatHistorySummary))
	}

	if len(in.CoreInsights) > 0 {
		parts = append(parts, "")
		parts = append(parts, "Core Insights (Conocimiento profundo del usuario a largo plazo):")
		for _, insight := range in.CoreInsights {
			parts = append(parts, fmt.Sprintf("- %s", insight))
		}
		parts = append(parts, "Usa esta información para darle continuidad a su proceso, recordar personas importantes o situaciones que te ha contado en el pasado.")
	}

	parts = append(parts, "")
	parts = append(parts, fmt.Sprintf("Entrada del usuario: %s", in.UserInput))

	if in.Attachment != nil {
		parts = append(parts, "")
		parts = append(parts, "El usuario ha adjuntado una imagen de forma nativa. Si la imagen adjunta es relevante para su estado emocional, coméntala de forma empática y no clínica.")
	}

	parts = append(parts, "")
	parts = append(parts, "Tu respuesta como Zhi:")

	return strings.Join(parts, "\n")
}

// BuildTitlePrompt renders the title-generation prompt: the instruction, a
// few-shot block of example titles, then the turns as "role: text" lines.
func BuildTitlePrompt(turns []ConversationTurn) string {
	var parts []string

	parts = append(parts, "Analiza los siguientes mensajes de una conversación y genera un título corto (3-5 palabras) que resuma el tema principal. El título debe ser conciso y relevante.")
	parts = append(parts, "")
	parts = append(parts, "Ejemplos:")
	parts = append(parts, "- \"Manejando la ansiedad laboral\"")
	parts = append(parts, "- \"Problemas para dormir\"")
	parts = append(parts, "- \"Reflexionando sobre el día\"")
	parts = append(parts, "")
	parts = append(parts, "Mensajes de la conversación:")

	for _, msg := range turns {
		parts = append(parts, fmt.Sprintf("- %s: %s", msg.Role, msg.Text))
	}

	parts = append(parts, "")
	parts = append(parts, "Genera solo el título en formato JSON estricto.")

	return strings.Join(parts, "\n")
}

// BuildInsightPrompt renders the insight-extraction prompt: the extraction
// rules, the existing insights as bullets (when any), then the new turns.
func BuildInsightPrompt(turns []ConversationTurn, existingInsights []string) string {
	var parts []string

	parts = append(parts, "Eres un asistente psicológico experto en extraer 'Core Insights' (puntos clave) de conversaciones terapéuticas.")
	parts = append(parts, "Tu objetivo es identificar información fundamental sobre la vida del usuario que Zhi debe recordar a largo plazo para ser más efectivo y empático.")
	parts = append(parts, "")
	parts = append(parts, "Reglas para los Insights:")
	parts = append(parts, "1. Deben ser breves (máximo 15 palabras por punto).")
	parts = append(parts, "2. Enfócate en: relaciones, trabajo, traumas, metas, valores y patrones emocionales.")
	parts = append(parts, "3. NO incluyas detalles triviales de una sola charla (ej: 'Hoy comió pizza').")
	parts = append(parts, "4. Mantén la confidencialidad y el tono respetuoso.")
	parts = append(parts, "5. Si hay insights existentes, actualízalos o añade nuevos basándote en la nueva conversación. No repitas información.")
	parts = append(parts, "")

	if len(existingInsights) > 0 {
		parts = append(parts, "Insights actuales del usuario:")
		for _, insight := range existingInsights {
			parts = append(parts, fmt.Sprintf("- %s", insight))
		}
		parts = append(parts, "")
	}

	parts = append(parts, "Nueva conversación:")
	for _, msg := range turns {
		parts = append(parts, fmt.Sprintf("- %s: %s", msg.Role, msg.Text))
	}

	parts = append(parts, "")
	parts = append(parts, "Genera la lista actualizada de insights en formato JSON estricto.")

	return strings.Join(parts, "\n")
}

func orPlaceholder(value, placeholder string) string {
	if value == "" {
		return placeholder
	}
	return value
}
