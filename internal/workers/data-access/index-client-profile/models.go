package indexclientprofile

import "cif-onboarding/internal/completion"

type Input struct {
	ClientID string `json:"clientId"`
}

type Output struct {
	Indexed    bool   `json:"indexed"`
	DocumentID string `json:"documentId"`
	Overall    int    `json:"overall"`
	Result     string `json:"result,omitempty"`
}

// ClientProfile is the search document stored per client.
type ClientProfile struct {
	ClientID         string                  `json:"clientId"`
	NumeroClient     string                  `json:"numeroClient,omitempty"`
	Nom              string                  `json:"nom,omitempty"`
	Prenom           string                  `json:"prenom,omitempty"`
	Email            string                  `json:"email,omitempty"`
	Statut           string                  `json:"statut,omitempty"`
	ProfilRisque     string                  `json:"profilRisque,omitempty"`
	Overall          int                     `json:"overall"`
	MandatoryReady   bool                    `json:"mandatoryReady"`
	ReadyDocuments   []string                `json:"readyDocuments"`
	MissingDocuments []string                `json:"missingDocuments"`
	Documents        []completion.BoardEntry `json:"documents"`
	IndexedAt        string                  `json:"indexedAt"`
}
