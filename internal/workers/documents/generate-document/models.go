package generatedocument

import "cif-onboarding/internal/completion"

type Input struct {
	ClientID     string `json:"clientId"`
	DocumentType string `json:"documentType"`
	// Force generates the document even when required fields are missing.
	Force bool `json:"force,omitempty"`
}

type Output struct {
	Generated  bool              `json:"generated"`
	Message    string            `json:"message"`
	DocumentID string            `json:"documentId,omitempty"`
	Filename   string            `json:"filename,omitempty"`
	Completion completion.Result `json:"completion"`
}
