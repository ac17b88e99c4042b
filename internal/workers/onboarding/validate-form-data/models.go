package validateformdata

import "cif-onboarding/internal/common/validation"

type Input struct {
	ClientID string                 `json:"clientId,omitempty"`
	FormData map[string]interface{} `json:"formData"`
}

type Output struct {
	IsValid          bool                         `json:"isValid"`
	ValidationErrors []validation.ValidationError `json:"validationErrors"`
}
