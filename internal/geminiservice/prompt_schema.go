package geminiservice

/* =================================================================================
							GEMINI SCHEMA DEFINITION
	These structures tell Gemini how to format its JSON response
=================================================================================*/

// GeminiSchema defines the structure for "Controlled Generation" (Structured Output).
// It maps to Google's generative-ai-go/genai Schema type.
type GeminiSchema struct {
	// Type defines the data type (e.g., "OBJECT", "ARRAY", "STRING").
	Type string `json:"type"`

	// Description explains the field's purpose to the AI, helping it generate better content.
	Description string `json:"description,omitempty"`

	// Properties maps field names to their child schemas (used when Type is "OBJECT").
	Properties map[string]*GeminiSchema `json:"properties,omitempty"` // Use pointer for recursion

	// Items defines the schema for elements within an array (used when Type is "ARRAY").
	Items *GeminiSchema `json:"items,omitempty"`

	// Required lists the field names that the AI MUST include in the response.
	Required []string `json:"required,omitempty"`

	// Enum lists valid specific string values for fields with restricted options.
	Enum []string `json:"enum,omitempty"`
}

// ChatResponseSchema constrains the chat flow to a single reply field.
var ChatResponseSchema = &GeminiSchema{
	Type: "OBJECT",
	Properties: map[string]*GeminiSchema{
		"reply": {
			Type:        "STRING",
			Description: "La respuesta de Zhi al usuario.",
		},
	},
	Required: []string{"reply"},
}

// TitleResponseSchema constrains the title flow to a single title field.
var TitleResponseSchema = &GeminiSchema{
	Type: "OBJECT",
	Properties: map[string]*GeminiSchema{
		"title": {
			Type:        "STRING",
			Description: "El título generado para la conversación.",
		},
	},
	Required: []string{"title"},
}

// InsightResponseSchema constrains the extraction flow to the updated insight list.
var InsightResponseSchema = &GeminiSchema{
	Type: "OBJECT",
	Properties: map[string]*GeminiSchema{
		"updatedInsights": {
			Type:        "ARRAY",
			Items:       &GeminiSchema{Type: "STRING"},
			Description: "Lista de insights clave extraídos y actualizados sobre la vida del usuario.",
		},
	},
	Required: []string{"updatedInsights"},
}
