package models

// User is an advisor or administrator account on the backend.
type User struct {
	ID         string `json:"id" yaml:"id"`
	Email      string `json:"email" yaml:"email"`
	Nom        string `json:"nom" yaml:"nom"`
	Prenom     string `json:"prenom" yaml:"prenom"`
	NomComplet string `json:"nom_complet,omitempty" yaml:"nom_complet,omitempty"`
	Role       string `json:"role" yaml:"role"`
	Actif      bool   `json:"actif" yaml:"actif"`
	CreatedAt  string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	MotDePasse string `json:"mot_de_passe"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	User         *User  `json:"user,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
