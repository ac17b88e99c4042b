package evaluatedocumentcompletion

import "cif-onboarding/internal/completion"

type Input struct {
	ClientID      string                 `json:"clientId"`
	ClientData    map[string]interface{} `json:"clientData,omitempty"`
	DocumentTypes []string               `json:"documentTypes,omitempty"`
}

type Output struct {
	Results          []completion.Result         `json:"results"`
	Summary          completion.Summary          `json:"summary"`
	MissingBySection []completion.SectionMissing `json:"missingBySection"`
	RiskSuggestion   *completion.RiskSuggestion  `json:"riskSuggestion,omitempty"`
}
