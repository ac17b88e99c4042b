package completion

import (
	"fmt"
	"strings"
)

type RiskProfile string

const (
	RiskSecuritaire RiskProfile = "Sécuritaire"
	RiskPrudent     RiskProfile = "Prudent"
	RiskEquilibre   RiskProfile = "Équilibré"
	RiskDynamique   RiskProfile = "Dynamique"
)

// Scored answers of the risk questionnaire, keyed by flat field. Flattened
// forms render the whole-capital answer as "Maximum 100%".
var riskScales = map[string]map[string]int{
	"pertes_maximales_acceptables": {
		"Aucune":       0,
		"Maximum 10%":  1,
		"Maximum 25%":  2,
		"Maximum 50%":  3,
		"Jusqu'à 100%": 4,
		"Maximum 100%": 4,
	},
	"horizon_placement": {
		"< 1 an":    0,
		"1 - 3 ans": 1,
		"3 - 5 ans": 2,
		"> 5 ans":   3,
	},
	"reaction_perte": {
		"Vendre tout":     0,
		"Vendre partie":   1,
		"Ne rien changer": 2,
		"Investir plus":   3,
	},
}

// RiskSuggestion is the profile derived from the questionnaire answers.
// Answered counts the questions whose answer was recognised.
type RiskSuggestion struct {
	Score    int         `json:"score"`
	Profile  RiskProfile `json:"profile"`
	Answered int         `json:"answered"`
}

// SuggestRiskProfile scores the loss tolerance, horizon and loss reaction
// answers found in flat. Unknown answers score zero. It returns nil when
// none of the questions has a recognised answer.
func SuggestRiskProfile(flat map[string]interface{}) *RiskSuggestion {
	s := RiskSuggestion{}
	for field, scale := range riskScales {
		v, ok := flat[field]
		if !ok || v == nil {
			continue
		}
		answer := strings.ReplaceAll(strings.TrimSpace(fmt.Sprint(v)), "’", "'")
		if points, ok := scale[answer]; ok {
			s.Score += points
			s.Answered++
		}
	}
	if s.Answered == 0 {
		return nil
	}
	s.Profile = ProfileForScore(s.Score)
	return &s
}

func ProfileForScore(score int) RiskProfile {
	switch {
	case score <= 2:
		return RiskSecuritaire
	case score <= 5:
		return RiskPrudent
	case score <= 8:
		return RiskEquilibre
	default:
		return RiskDynamique
	}
}
