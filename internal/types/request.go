package types

// TextRequest is a chat-completion style generation request.
type TextRequest struct {
	Prompt            string `json:"prompt"`
	SystemInstruction string `json:"system_instruction,omitempty"`
	// ExpectJSON asks the provider to force structured (JSON) output.
	ExpectJSON bool `json:"expect_json,omitempty"`
}

// ImageRequest is a prompt-only image generation request.
type ImageRequest struct {
	Prompt string `json:"prompt"`
}
