package apimodels

type GenerateResponse struct {
	// The parsed answer
	Output *ModelOutput `json:"output"`

	// Where the answer came from: "gemini" or the fallback provider name
	Source string `json:"source"`

	// Language-scoped code blocks of the chosen candidate, when requested
	Code *CodeBlocks `json:"code,omitempty"`

	// Metadata about the turn
	Metadata TurnMetadata `json:"metadata"`
}

type TurnMetadata struct {
	// Time taken for the turn
	Duration string `json:"duration"`

	// Model used by the fallback provider, empty for gemini
	Model string `json:"model,omitempty"`

	// Request/parse cycles attempted
	Attempts int `json:"attempts"`
}
