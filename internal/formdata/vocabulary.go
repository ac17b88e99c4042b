package formdata

import "golang.org/x/text/unicode/norm"

// Translator maps a raw form value to its display form.
type Translator func(interface{}) interface{}

// Vocabulary is a code -> label table. Labels map to themselves so that
// already translated data is stable.
type Vocabulary map[string]string

var (
	Civilites = Vocabulary{
		"M":        "Monsieur",
		"Mme":      "Madame",
		"Monsieur": "Monsieur",
		"Madame":   "Madame",
	}

	SituationsFamiliales = Vocabulary{
		"marie":       "Marié(e)",
		"pacse":       "Pacsé(e)",
		"celibataire": "Célibataire",
		"veuf":        "Veuf(ve)",
		"divorce":     "Divorcé(e)",
		"union_libre": "Concubinage",
		"Marié(e)":    "Marié(e)",
		"Pacsé(e)":    "Pacsé(e)",
		"Célibataire": "Célibataire",
		"Veuf(ve)":    "Veuf(ve)",
		"Divorcé(e)":  "Divorcé(e)",
		"Concubinage": "Concubinage",
	}

	TranchesRevenus = Vocabulary{
		"<50000":        "< 50 000 €",
		"50000-100000":  "50 000 € - 100 000 €",
		"100001-150000": "100 001 € - 150 000 €",
		"150001-500000": "150 000 € - 500 000 €",
		">500000":       "> 500 000 €",
	}

	TranchesPatrimoine = Vocabulary{
		"<100000":         "< 100 000 €",
		"100001-300000":   "100 001 € - 300 000 €",
		"300001-500000":   "300 001 € - 500 000 €",
		"500001-1000000":  "500 001 € - 1 000 000 €",
		"1000001-5000000": "1 000 001 € - 5 000 000 €",
		">5000000":        "> 5 000 000 €",
	}

	HorizonsPlacement = Vocabulary{
		"court_terme":     "< 1 an",
		"moyen_terme":     "1 - 3 ans",
		"long_terme":      "3 - 5 ans",
		"tres_long_terme": "> 5 ans",
	}
)

// Lookup returns the label for code. Input is NFC-normalised first so a
// decomposed "Marié(e)" still matches.
func (v Vocabulary) Lookup(code string) (string, bool) {
	label, ok := v[norm.NFC.String(code)]
	return label, ok
}

// Translate maps string codes through the table. Unknown codes and
// non-string values are returned unchanged.
func (v Vocabulary) Translate(value interface{}) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}
	if label, ok := v.Lookup(s); ok {
		return label
	}
	return value
}

func MapCivilite(value interface{}) interface{}          { return Civilites.Translate(value) }
func MapSituationFamiliale(value interface{}) interface{} { return SituationsFamiliales.Translate(value) }
func MapTrancheRevenus(value interface{}) interface{}     { return TranchesRevenus.Translate(value) }
func MapTranchePatrimoine(value interface{}) interface{}  { return TranchesPatrimoine.Translate(value) }
func MapHorizonPlacement(value interface{}) interface{}   { return HorizonsPlacement.Translate(value) }
