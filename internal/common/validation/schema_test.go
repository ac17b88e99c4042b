package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("test@example.com"))
	assert.True(t, ValidateEmail("user@mail.company.fr"))
	assert.False(t, ValidateEmail("testexample.com"))
	assert.False(t, ValidateEmail("test@"))
	assert.False(t, ValidateEmail(""))
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"0612345678", true},
		{"0123456789", true},
		{"06 12 34 56 78", true},
		{"06.12.34.56.78", true},
		{"+33 6 12 34 56 78", true},
		{"87 12 34 56", true},
		{"+689 87 12 34 56", true},
		{"06123456", false},
		{"1612345678", false},
		{"abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePhone(tt.phone))
		})
	}
}

func TestValidatePostcode(t *testing.T) {
	assert.True(t, ValidatePostcode("75008"))
	assert.True(t, ValidatePostcode("98714"))
	assert.False(t, ValidatePostcode("7500"))
	assert.False(t, ValidatePostcode("75OO8"))
}

func TestValidateSiret(t *testing.T) {
	assert.True(t, ValidateSiret("73282932000074"))
	assert.True(t, ValidateSiret("732 829 320 00074"))
	assert.False(t, ValidateSiret("73282932000075"))
	assert.False(t, ValidateSiret("1234"))
	assert.False(t, ValidateSiret("7328293200007A"))
}

func decodeForm(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestValidateForm(t *testing.T) {
	tests := []struct {
		name       string
		form       string
		wantValid  bool
		wantFields []string
	}{
		{
			name:      "valid minimal form",
			form:      `{"titulaire1": {"nom": "Dupont", "prenom": "Jean", "email": "jean@dupont.fr", "telephone": "06 12 34 56 78", "codePostal": "69001"}}`,
			wantValid: true,
		},
		{
			name:       "missing first holder",
			form:       `{"hasTitulaire2": false}`,
			wantFields: []string{"titulaire1"},
		},
		{
			name:       "missing holder names",
			form:       `{"titulaire1": {"email": "jean@dupont.fr"}}`,
			wantFields: []string{"titulaire1.nom", "titulaire1.prenom"},
		},
		{
			name:       "bad contact formats",
			form:       `{"titulaire1": {"nom": "Dupont", "prenom": "Jean", "email": "jean", "telephone": "12", "codePostal": "690"}}`,
			wantFields: []string{"titulaire1.codePostal", "titulaire1.email", "titulaire1.telephone"},
		},
		{
			name:       "second holder checked only when flagged",
			form:       `{"titulaire1": {"nom": "A", "prenom": "B"}, "hasTitulaire2": true, "titulaire2": {"email": "nope"}}`,
			wantFields: []string{"titulaire2.email"},
		},
		{
			name:      "second holder ignored without flag",
			form:      `{"titulaire1": {"nom": "A", "prenom": "B"}, "titulaire2": {"email": "nope"}}`,
			wantValid: true,
		},
		{
			name:       "negative children count",
			form:       `{"titulaire1": {"nom": "A", "prenom": "B"}, "situationFamiliale": {"nombreEnfants": -1}}`,
			wantFields: []string{"situationFamiliale.nombreEnfants"},
		},
		{
			name:       "invalid company siret",
			form:       `{"titulaire1": {"nom": "A", "prenom": "B", "chefEntreprise": true, "entrepriseSiret": "12345678901234"}}`,
			wantFields: []string{"titulaire1.entrepriseSiret"},
		},
		{
			name:       "unknown rto client type",
			form:       `{"titulaire1": {"nom": "A", "prenom": "B"}, "rto": {"typeClient": "association"}}`,
			wantFields: []string{"rto.typeClient"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateForm(decodeForm(t, tt.form))
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid, result.GetErrorMessages())
			for _, f := range tt.wantFields {
				assert.True(t, result.HasErrors(f), "expected error on %s, got %v", f, result.GetErrorMessages())
			}
		})
	}
}

func TestValidationResult_GetErrorsForField(t *testing.T) {
	vr := newResult([]ValidationError{
		{Field: "titulaire1.email", Code: CodeInvalidEmail},
		{Field: "titulaire1", Code: CodeSchemaViolation},
		{Field: "titulaire10.nom", Code: CodeRequired},
	})
	assert.Len(t, vr.GetErrorsForField("titulaire1"), 2)
	assert.Equal(t, "titulaire1", vr.Errors[0].Field)
}
