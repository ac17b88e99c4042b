package models

// Client statuses used when saving the onboarding form.
const (
	ClientStatusActive = "actif"
	ClientStatusDraft  = "brouillon"
)

// ClientSummary is a row of the client list.
type ClientSummary struct {
	ID                  string `json:"id" yaml:"id"`
	NumeroClient        string `json:"numero_client" yaml:"numero_client"`
	T1Nom               string `json:"t1_nom" yaml:"t1_nom"`
	T1Prenom            string `json:"t1_prenom" yaml:"t1_prenom"`
	T1Email             string `json:"t1_email,omitempty" yaml:"t1_email,omitempty"`
	T1Telephone         string `json:"t1_telephone,omitempty" yaml:"t1_telephone,omitempty"`
	ProfilRisqueCalcule string `json:"profil_risque_calcule,omitempty" yaml:"profil_risque_calcule,omitempty"`
	Statut              string `json:"statut" yaml:"statut"`
	CreatedAt           string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// ClientRecord keeps every backend column so it can be merged with the
// flattened form.
type ClientRecord map[string]interface{}

// ID returns the record id as a string.
func (c ClientRecord) ID() string {
	if v, ok := c["id"].(string); ok {
		return v
	}
	return ""
}

// FormData returns the nested onboarding form stored on the record, if any.
func (c ClientRecord) FormData() map[string]interface{} {
	if v, ok := c["form_data"].(map[string]interface{}); ok {
		return v
	}
	return nil
}

type ClientListParams struct {
	Limit  int
	Page   int
	Search string
	Statut string
}

type ClientList struct {
	Total   int             `json:"total" yaml:"total"`
	Page    int             `json:"page" yaml:"page"`
	Clients []ClientSummary `json:"clients" yaml:"clients"`
}

// ClientFormPayload is the body of POST /clients/form and PUT /clients/:id/form.
type ClientFormPayload struct {
	FormData map[string]interface{} `json:"form_data"`
	Statut   string                 `json:"statut"`
}
