package models

type CreateSessionRequest struct {
	// Metadata continues an existing thread: [cid, rid, rcid], at most three
	Metadata []string `json:"metadata,omitempty"`
}

type MessageRequest struct {
	// Prompt is the user message sent to the chat front-end
	Prompt string `json:"prompt"`

	// CodeLanguage restricts code extraction of the answer to one language
	CodeLanguage string `json:"codeLanguage,omitempty"`
}

type ChooseRequest struct {
	// Index of the candidate to continue the conversation with
	Index int `json:"index"`
}

type CodeRequest struct {
	Text string `json:"text"`

	// Language is optional; when empty every fenced block is extracted
	Language string `json:"language,omitempty"`
}

type SessionResponse struct {
	ID       string   `json:"id"`
	Metadata []string `json:"metadata"`
}

type ImagesResponse struct {
	Dir   string   `json:"dir"`
	Saved []string `json:"saved"`
}

type ReplitRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`

	// Instructions shown to the user in the export, optional
	Instructions string `json:"instructions,omitempty"`
}

type ReplitResponse struct {
	Filename string `json:"filename"`
	Payload  string `json:"payload"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
