// Package completion maps regulatory document types to the flat client
// fields they require and measures how complete a client file is.
package completion

import (
	"errors"
	"fmt"
	"strings"

	"cif-onboarding/pkg/registry"
)

// DocumentType identifies a regulatory document.
type DocumentType string

const (
	DocDER                   DocumentType = "DER"
	DocQCC                   DocumentType = "QCC"
	DocProfilRisque          DocumentType = "PROFIL_RISQUE"
	DocLettreMission         DocumentType = "LETTRE_MISSION"
	DocDeclarationAdequation DocumentType = "DECLARATION_ADEQUATION"
	DocConventionRTO         DocumentType = "CONVENTION_RTO"
	DocRapportIAS            DocumentType = "RAPPORT_IAS"
)

var (
	ErrUnknownDocumentType = errors.New("UNKNOWN_DOCUMENT_TYPE")
	ErrInvalidRegistry     = errors.New("INVALID_REGISTRY")
)

// FieldRequirement is one required flat key with its display label.
type FieldRequirement struct {
	Key     string `json:"key" yaml:"key"`
	Label   string `json:"label" yaml:"label"`
	Section string `json:"section" yaml:"section"`
}

type DocumentDefinition struct {
	Type      DocumentType       `json:"type" yaml:"type"`
	Label     string             `json:"label" yaml:"label"`
	Mandatory bool               `json:"mandatory" yaml:"mandatory"`
	Fields    []FieldRequirement `json:"fields" yaml:"fields"`
}

// Registry is an ordered, read-only set of document definitions.
type Registry struct {
	defs  []DocumentDefinition
	index map[DocumentType]int
}

func field(key, label, section string) FieldRequirement {
	return FieldRequirement{Key: key, Label: label, Section: section}
}

var defaultDefinitions = []DocumentDefinition{
	{
		Type:      DocDER,
		Label:     "DER - Document d'Entrée en Relation",
		Mandatory: true,
		Fields: []FieldRequirement{
			field("t1_civilite", "Civilité", "Identité"),
			field("t1_nom", "Nom", "Identité"),
			field("t1_prenom", "Prénom", "Identité"),
			field("t1_email", "Email", "Contact"),
		},
	},
	{
		Type:      DocQCC,
		Label:     "QCC - Questionnaire Connaissance Client",
		Mandatory: true,
		Fields: []FieldRequirement{
			field("t1_civilite", "Civilité", "Titulaire 1 - Identité"),
			field("t1_nom", "Nom", "Titulaire 1 - Identité"),
			field("t1_prenom", "Prénom", "Titulaire 1 - Identité"),
			field("t1_date_naissance", "Date de naissance", "Titulaire 1 - Identité"),
			field("t1_lieu_naissance", "Lieu de naissance", "Titulaire 1 - Identité"),
			field("t1_nationalite", "Nationalité", "Titulaire 1 - Identité"),
			field("t1_piece_identite", "Type de pièce d'identité", "Titulaire 1 - Identité"),
			field("t1_numero_piece", "Numéro de pièce", "Titulaire 1 - Identité"),
			field("t1_date_validite_piece", "Date de validité", "Titulaire 1 - Identité"),
			field("t1_adresse", "Adresse", "Titulaire 1 - Contact"),
			field("t1_code_postal", "Code postal", "Titulaire 1 - Contact"),
			field("t1_ville", "Ville", "Titulaire 1 - Contact"),
			field("t1_pays_residence", "Pays de résidence", "Titulaire 1 - Contact"),
			field("t1_telephone", "Téléphone", "Titulaire 1 - Contact"),
			field("t1_email", "Email", "Titulaire 1 - Contact"),
			field("t1_situation_pro", "Situation professionnelle", "Titulaire 1 - Profession"),
			field("t1_profession", "Profession / Métier", "Titulaire 1 - Profession"),
			field("t1_residence_fiscale", "Pays de résidence fiscale", "Titulaire 1 - Fiscal"),
			field("situation_familiale", "Situation familiale", "Situation familiale"),
			field("revenus_annuels_foyer", "Revenus annuels nets du foyer", "Situation financière"),
			field("patrimoine_global", "Patrimoine global (hors dettes)", "Patrimoine"),
			field("origine_economique_epargne", "Origine: Épargne", "Origine des fonds"),
		},
	},
	{
		Type:      DocProfilRisque,
		Label:     "Profil de Risque",
		Mandatory: true,
		Fields: []FieldRequirement{
			field("t1_civilite", "Civilité", "Identification"),
			field("t1_nom", "Nom", "Identification"),
			field("t1_prenom", "Prénom", "Identification"),
			field("horizon_placement", "Horizon de placement", "Objectifs d'investissement"),
			field("besoin_liquidite", "Besoin de liquidité", "Objectifs d'investissement"),
			field("pourcentage_patrimoine_investi", "% du patrimoine total à investir", "Objectifs d'investissement"),
			field("placement_preference", "Quel placement vous convient le mieux?", "Tolérance au risque"),
			field("experience_baisse", "Avez-vous déjà subi une baisse sur un investissement?", "Tolérance au risque"),
			field("reaction_perte", "Réaction en cas de baisse", "Tolérance au risque"),
			field("reaction_hausse_20pct", "Réaction si +20% de gains", "Tolérance au risque"),
			field("pertes_maximales_acceptables", "Perte maximale acceptable", "Tolérance au risque"),
			field("profil_risque_calcule", "Profil de risque déterminé", "Conclusion - Profil de risque"),
		},
	},
	{
		Type:      DocLettreMission,
		Label:     "Lettre de Mission CIF",
		Mandatory: true,
		Fields: []FieldRequirement{
			field("t1_nom", "Nom", "Client"),
			field("t1_prenom", "Prénom", "Client"),
			field("t1_adresse", "Adresse", "Client"),
			field("type_mission", "Type de mission", "Mission"),
		},
	},
	{
		Type:      DocDeclarationAdequation,
		Label:     "Déclaration d'Adéquation",
		Mandatory: true,
		Fields: []FieldRequirement{
			field("t1_nom", "Nom", "Client"),
			field("t1_prenom", "Prénom", "Client"),
			field("profil_risque_calcule", "Profil de risque validé", "Profil"),
			field("produit_recommande", "Produit(s) recommandé(s)", "Recommandation"),
			field("justification_adequation", "Justification de l'adéquation", "Recommandation"),
		},
	},
	{
		Type:  DocConventionRTO,
		Label: "Convention RTO",
		Fields: []FieldRequirement{
			field("t1_nom", "Nom", "Client"),
			field("t1_prenom", "Prénom", "Client"),
			field("etablissement_teneur", "Établissement teneur de compte", "Compte"),
		},
	},
	{
		Type:  DocRapportIAS,
		Label: "Rapport Conseil IAS",
		Fields: []FieldRequirement{
			field("t1_nom", "Nom", "Client"),
			field("t1_prenom", "Prénom", "Client"),
			field("t1_date_naissance", "Date de naissance", "Client"),
			field("produit_assurance", "Produit d'assurance", "Produit"),
			field("compagnie_assurance", "Compagnie d'assurance", "Produit"),
			field("analyse_besoins", "Analyse des besoins", "Analyse"),
		},
	},
}

var defaultRegistry = mustRegistry(defaultDefinitions)

func mustRegistry(defs []DocumentDefinition) *Registry {
	r, err := NewRegistry(defs)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry returns the built-in document table.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// NewRegistry validates defs and returns a registry holding a private copy.
func NewRegistry(defs []DocumentDefinition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no document definitions", ErrInvalidRegistry)
	}

	r := &Registry{
		defs:  make([]DocumentDefinition, 0, len(defs)),
		index: make(map[DocumentType]int, len(defs)),
	}

	for _, def := range defs {
		if def.Type == "" {
			return nil, fmt.Errorf("%w: document type is empty", ErrInvalidRegistry)
		}
		if _, dup := r.index[def.Type]; dup {
			return nil, fmt.Errorf("%w: duplicate document type %s", ErrInvalidRegistry, def.Type)
		}

		seen := make(map[string]struct{}, len(def.Fields))
		for _, f := range def.Fields {
			if f.Key == "" {
				return nil, fmt.Errorf("%w: empty field key in %s", ErrInvalidRegistry, def.Type)
			}
			if _, dup := seen[f.Key]; dup {
				return nil, fmt.Errorf("%w: duplicate field %s in %s", ErrInvalidRegistry, f.Key, def.Type)
			}
			seen[f.Key] = struct{}{}
		}

		r.index[def.Type] = len(r.defs)
		r.defs = append(r.defs, copyDefinition(def))
	}

	return r, nil
}

// LoadRegistry reads a JSON document registry from disk.
func LoadRegistry(path string) (*Registry, error) {
	doc, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistry, err)
	}
	return FromDocument(doc)
}

// FromDocument converts the serialised registry form.
func FromDocument(doc *registry.DocumentRegistry) (*Registry, error) {
	defs := make([]DocumentDefinition, 0, len(doc.Documents))
	for _, d := range doc.Documents {
		def := DocumentDefinition{
			Type:      DocumentType(strings.ToUpper(strings.TrimSpace(d.Type))),
			Label:     d.Label,
			Mandatory: d.Mandatory,
		}
		for _, f := range d.Fields {
			def.Fields = append(def.Fields, FieldRequirement{Key: f.Key, Label: f.Label, Section: f.Section})
		}
		defs = append(defs, def)
	}
	return NewRegistry(defs)
}

// ToDocument converts the registry to its serialised form.
func (r *Registry) ToDocument(version string) *registry.DocumentRegistry {
	doc := &registry.DocumentRegistry{Version: version}
	for _, def := range r.defs {
		d := registry.Document{Type: string(def.Type), Label: def.Label, Mandatory: def.Mandatory}
		for _, f := range def.Fields {
			d.Fields = append(d.Fields, registry.Field{Key: f.Key, Label: f.Label, Section: f.Section})
		}
		doc.Documents = append(doc.Documents, d)
	}
	return doc
}

func copyDefinition(def DocumentDefinition) DocumentDefinition {
	out := def
	out.Fields = append([]FieldRequirement(nil), def.Fields...)
	return out
}

// Types returns the document types in registry order.
func (r *Registry) Types() []DocumentType {
	out := make([]DocumentType, len(r.defs))
	for i, def := range r.defs {
		out[i] = def.Type
	}
	return out
}

func (r *Registry) MandatoryTypes() []DocumentType {
	var out []DocumentType
	for _, def := range r.defs {
		if def.Mandatory {
			out = append(out, def.Type)
		}
	}
	return out
}

// Definitions returns a copy of every definition in registry order.
func (r *Registry) Definitions() []DocumentDefinition {
	out := make([]DocumentDefinition, len(r.defs))
	for i, def := range r.defs {
		out[i] = copyDefinition(def)
	}
	return out
}

func (r *Registry) Definition(t DocumentType) (DocumentDefinition, error) {
	i, ok := r.index[t]
	if !ok {
		return DocumentDefinition{}, fmt.Errorf("%w: %s", ErrUnknownDocumentType, t)
	}
	return copyDefinition(r.defs[i]), nil
}

func (r *Registry) RequiredFields(t DocumentType) ([]FieldRequirement, error) {
	def, err := r.Definition(t)
	if err != nil {
		return nil, err
	}
	return def.Fields, nil
}

// Label returns the display label, or the raw code for unknown types.
func (r *Registry) Label(t DocumentType) string {
	if i, ok := r.index[t]; ok {
		return r.defs[i].Label
	}
	return string(t)
}

func (r *Registry) Has(t DocumentType) bool {
	_, ok := r.index[t]
	return ok
}

// ParseDocumentType resolves a code against the default registry.
func ParseDocumentType(s string) (DocumentType, error) {
	return defaultRegistry.Parse(s)
}

// Parse resolves a code, ignoring case and surrounding whitespace.
func (r *Registry) Parse(s string) (DocumentType, error) {
	t := DocumentType(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Has(t) {
		return "", fmt.Errorf("%w: %q", ErrUnknownDocumentType, s)
	}
	return t, nil
}
