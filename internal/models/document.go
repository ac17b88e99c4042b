package models

// Document is a generated file as listed by the backend.
type Document struct {
	ID             string `json:"id" yaml:"id"`
	ClientID       string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	TypeDocument   string `json:"type_document" yaml:"type_document"`
	NomFichier     string `json:"nom_fichier" yaml:"nom_fichier"`
	DateGeneration string `json:"date_generation" yaml:"date_generation"`
	DateSignature  string `json:"date_signature,omitempty" yaml:"date_signature,omitempty"`
	Signe          bool   `json:"signe" yaml:"signe"`
}

type GenerateRequest struct {
	ClientID     string `json:"client_id"`
	TypeDocument string `json:"type_document"`
}

type GenerateResponse struct {
	Success     bool   `json:"success" yaml:"success"`
	Message     string `json:"message,omitempty" yaml:"message,omitempty"`
	DocumentID  string `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	DownloadURL string `json:"download_url,omitempty" yaml:"download_url,omitempty"`
	Filename    string `json:"filename,omitempty" yaml:"filename,omitempty"`
}

// DownloadedFile is a document body with the filename announced by the backend.
type DownloadedFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
