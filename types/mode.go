package types

// Mode identifies the wire convention used to request structured output
// from the provider. It is chosen by the caller before the first attempt
// and never changes mid-loop.
type Mode string

const (
	// OpenAI-family modes.
	ModeToolCall         Mode = "tool_call"
	ModeParallelToolCall Mode = "parallel_tool_call"
	ModeFunctions        Mode = "functions" // legacy function-calling API
	ModeJSON             Mode = "json"
	ModeJSONSchema       Mode = "json_schema"

	// Anthropic-family modes.
	ModeAnthropicToolCall Mode = "anthropic_tool_call"
	ModeAnthropicJSON     Mode = "anthropic_json"

	// Gemini / Vertex modes.
	ModeGeminiToolCall Mode = "gemini_tool_call"
	ModeGeminiJSON     Mode = "gemini_json"
	ModeVertexJSON     Mode = "vertex_json"

	// Other provider variants.
	ModeMistralToolCall Mode = "mistral_tool_call"
	ModeCohereJSON      Mode = "cohere_json"

	// Prompt-level fallback: the model is asked to return a fenced
	// ```json block inside ordinary text.
	ModeMarkdownJSON Mode = "markdown_json"
)

// ModeFamily groups modes that share an extraction and reask shape.
type ModeFamily int

const (
	// FamilyTool covers modes where the candidate arrives as the
	// arguments payload of one or more tool/function calls.
	FamilyTool ModeFamily = iota

	// FamilyJSON covers modes where the entire text payload is the
	// candidate JSON document.
	FamilyJSON

	// FamilyMarkdown covers modes where the candidate is embedded in
	// free text, typically inside a fenced code block.
	FamilyMarkdown
)

// Family returns the extraction family of the mode.
func (m Mode) Family() ModeFamily {
	switch m {
	case ModeToolCall, ModeParallelToolCall, ModeFunctions,
		ModeAnthropicToolCall, ModeGeminiToolCall, ModeMistralToolCall:
		return FamilyTool
	case ModeJSON, ModeJSONSchema, ModeAnthropicJSON,
		ModeGeminiJSON, ModeVertexJSON, ModeCohereJSON:
		return FamilyJSON
	case ModeMarkdownJSON:
		return FamilyMarkdown
	default:
		// Unknown modes degrade to markdown scanning, the most
		// permissive extraction path.
		return FamilyMarkdown
	}
}

// Parallel reports whether the mode allows multiple candidates per response.
func (m Mode) Parallel() bool {
	return m == ModeParallelToolCall
}

// Valid reports whether m is one of the declared modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeToolCall, ModeParallelToolCall, ModeFunctions, ModeJSON,
		ModeJSONSchema, ModeAnthropicToolCall, ModeAnthropicJSON,
		ModeGeminiToolCall, ModeGeminiJSON, ModeVertexJSON,
		ModeMistralToolCall, ModeCohereJSON, ModeMarkdownJSON:
		return true
	}
	return false
}
