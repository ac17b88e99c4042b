package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// OnboardingFormSchema constrains the shape of the nested onboarding form.
// Business formats (email, phone, postcode, SIRET) are checked separately.
const OnboardingFormSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["titulaire1"],
  "definitions": {
    "titulaire": {
      "type": "object",
      "required": ["nom", "prenom"],
      "properties": {
        "civilite":        {"type": ["string", "null"]},
        "nom":             {"type": "string", "minLength": 1},
        "prenom":          {"type": "string", "minLength": 1},
        "email":           {"type": ["string", "null"]},
        "telephone":       {"type": ["string", "null"]},
        "codePostal":      {"type": ["string", "null"]},
        "usPerson":        {"type": ["boolean", "null"]},
        "chefEntreprise":  {"type": ["boolean", "null"]},
        "regimeProtection":{"type": ["boolean", "null"]}
      }
    },
    "list": {"type": ["array", "null"], "items": {"type": "object"}}
  },
  "properties": {
    "titulaire1":    {"$ref": "#/definitions/titulaire"},
    "hasTitulaire2": {"type": ["boolean", "null"]},
    "titulaire2":    {"type": ["object", "null"]},
    "situationFamiliale": {
      "type": ["object", "null"],
      "properties": {
        "nombreEnfants":        {"type": ["integer", "null"], "minimum": 0},
        "nombreEnfantsACharge": {"type": ["integer", "null"], "minimum": 0},
        "enfants":              {"$ref": "#/definitions/list"}
      }
    },
    "patrimoine": {
      "type": ["object", "null"],
      "properties": {
        "actifsFinanciers": {"$ref": "#/definitions/list"},
        "actifsImmobiliers": {"$ref": "#/definitions/list"},
        "emprunts":          {"$ref": "#/definitions/list"}
      }
    },
    "kyc": {
      "type": ["object", "null"],
      "properties": {
        "connaissanceInstruments": {"type": ["object", "null"]}
      }
    },
    "profilRisque": {
      "type": ["object", "null"],
      "properties": {
        "tolerancePerte": {"type": ["number", "string", "null"]}
      }
    },
    "rto": {
      "type": ["object", "null"],
      "properties": {
        "typeClient": {"enum": ["personne_physique", "personne_morale", "", null]},
        "comptes":    {"$ref": "#/definitions/list"}
      }
    }
  }
}`

var formSchema = gojsonschema.NewStringLoader(OnboardingFormSchema)

// ValidateForm checks the onboarding form against the schema, then the
// contact and company formats of each holder.
func ValidateForm(form map[string]interface{}) (*ValidationResult, error) {
	if form == nil {
		form = map[string]interface{}{}
	}

	result, err := gojsonschema.Validate(formSchema, gojsonschema.NewGoLoader(form))
	if err != nil {
		return nil, fmt.Errorf("validate form schema: %w", err)
	}

	var errs []ValidationError
	for _, re := range result.Errors() {
		errs = append(errs, schemaError(re))
	}

	holders := []string{"titulaire1"}
	if b, ok := form["hasTitulaire2"].(bool); ok && b {
		holders = append(holders, "titulaire2")
	}
	for _, key := range holders {
		if holder, ok := form[key].(map[string]interface{}); ok {
			errs = append(errs, validateHolder(key, holder)...)
		}
	}

	if rto, ok := form["rto"].(map[string]interface{}); ok {
		if pm, ok := rto["personneMorale"].(map[string]interface{}); ok {
			if v := nonEmpty(pm, "siret"); v != "" && !ValidateSiret(v) {
				errs = append(errs, ValidationError{Field: "rto.personneMorale.siret", Message: "numéro SIRET invalide", Code: CodeInvalidSiret})
			}
		}
	}

	return newResult(errs), nil
}

func schemaError(re gojsonschema.ResultError) ValidationError {
	field := re.Field()
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok {
			if field == gojsonschema.STRING_CONTEXT_ROOT || field == "" {
				field = prop
			} else {
				field = field + "." + prop
			}
			return ValidationError{Field: field, Message: "champ obligatoire", Code: CodeRequired}
		}
	}
	return ValidationError{Field: field, Message: re.Description(), Code: CodeSchemaViolation}
}

func validateHolder(prefix string, holder map[string]interface{}) []ValidationError {
	var errs []ValidationError
	add := func(field, msg, code string) {
		errs = append(errs, ValidationError{Field: prefix + "." + field, Message: msg, Code: code})
	}

	if v := nonEmpty(holder, "email"); v != "" && !ValidateEmail(v) {
		add("email", "adresse email invalide", CodeInvalidEmail)
	}
	for _, key := range []string{"telephone", "telephoneFixe"} {
		if v := nonEmpty(holder, key); v != "" && !ValidatePhone(v) {
			add(key, "numéro de téléphone invalide", CodeInvalidPhone)
		}
	}
	if v := nonEmpty(holder, "codePostal"); v != "" && !ValidatePostcode(v) {
		add("codePostal", "code postal invalide", CodeInvalidPostcode)
	}
	if v := nonEmpty(holder, "entrepriseSiret"); v != "" && !ValidateSiret(v) {
		add("entrepriseSiret", "numéro SIRET invalide", CodeInvalidSiret)
	}
	return errs
}

func nonEmpty(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
