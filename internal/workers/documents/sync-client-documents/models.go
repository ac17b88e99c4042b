package syncclientdocuments

import "cif-onboarding/internal/completion"

type Input struct {
	ClientID string `json:"clientId"`
}

type Output struct {
	Documents      []completion.BoardEntry   `json:"documents"`
	GeneratedCount int                       `json:"generatedCount"`
	SignedCount    int                       `json:"signedCount"`
	MissingTypes   []completion.DocumentType `json:"missingTypes"`
}
