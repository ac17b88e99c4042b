package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const (
	CodeSchemaViolation = "SCHEMA_VIOLATION"
	CodeRequired        = "REQUIRED_FIELD_MISSING"
	CodeInvalidEmail    = "INVALID_EMAIL"
	CodeInvalidPhone    = "INVALID_PHONE"
	CodeInvalidPostcode = "INVALID_POSTCODE"
	CodeInvalidSiret    = "INVALID_SIRET"
)

func newResult(errs []ValidationError) *ValidationResult {
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Field != errs[j].Field {
			return errs[i].Field < errs[j].Field
		}
		return errs[i].Code < errs[j].Code
	})
	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a field and everything nested under it.
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") || strings.HasPrefix(err.Field, field+"[") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneSeparators = regexp.MustCompile(`[\s.\-]`)
	// metropolitan numbers, +33, and Polynesian numbers with optional +689
	phonePattern    = regexp.MustCompile(`^(?:0[1-9]\d{8}|\+33[1-9]\d{8}|(?:\+?689)?[48]\d{7})$`)
	postcodePattern = regexp.MustCompile(`^\d{5}$`)
)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone accepts spaces, dots and dashes between digits.
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phoneSeparators.ReplaceAllString(phone, ""))
}

func ValidatePostcode(code string) bool {
	return postcodePattern.MatchString(strings.TrimSpace(code))
}

// ValidateSiret checks the 14 digit length and the Luhn key, doubling every
// second digit from the right.
func ValidateSiret(siret string) bool {
	cleaned := strings.ReplaceAll(siret, " ", "")
	if len(cleaned) != 14 {
		return false
	}

	sum := 0
	for i, r := range cleaned {
		if r < '0' || r > '9' {
			return false
		}
		digit := int(r - '0')
		if (len(cleaned)-1-i)%2 == 1 {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
	}
	return sum%10 == 0
}
