// Package formdata turns the nested onboarding form into the flat
// snake_case keys used by document templates and completion checks.
package formdata

import (
	"fmt"
	"sort"
	"strconv"
)

type mapping struct {
	src       string
	dst       string
	translate Translator
}

func m(src, dst string) mapping { return mapping{src: src, dst: dst} }

func mt(src, dst string, tr Translator) mapping { return mapping{src: src, dst: dst, translate: tr} }

// list keeps src only when it is a non-empty array.
type list struct {
	src string
	dst string
}

type section struct {
	name     string
	fields   []mapping
	lists    []list
	children []section
	extra    func(sub, out map[string]interface{})
}

var titulaire1Fields = []mapping{
	mt("civilite", "t1_civilite", MapCivilite),
	m("nom", "t1_nom"),
	m("nomJeuneFille", "t1_nom_naissance"),
	m("prenom", "t1_prenom"),
	m("dateNaissance", "t1_date_naissance"),
	m("lieuNaissance", "t1_lieu_naissance"),
	m("paysNaissance", "t1_pays_naissance"),
	m("nationalite", "t1_nationalite"),
	m("adresse", "t1_adresse"),
	m("codePostal", "t1_code_postal"),
	m("ville", "t1_ville"),
	m("pays", "t1_pays_residence"),
	m("telephone", "t1_telephone"),
	m("telephoneFixe", "t1_telephone_fixe"),
	m("email", "t1_email"),
	m("usPerson", "t1_us_person"),
	m("tin", "t1_tin"),
	m("residenceFiscale", "t1_residence_fiscale"),
	m("residenceFiscaleAutre", "t1_residence_fiscale_autre"),
	m("numeroFiscal", "t1_nif"),
	m("situationProfessionnelle", "t1_situation_pro"),
	m("profession", "t1_profession"),
	m("secteurActivite", "t1_secteur_activite"),
	m("employeur", "t1_employeur"),
	m("dateDebutActivite", "t1_date_debut_activite"),
	m("retraiteDepuis", "t1_retraite_depuis"),
	m("chomageDepuis", "t1_chomage_depuis"),
	m("ancienneProfession", "t1_ancienne_profession"),
	m("regimeProtection", "t1_regime_protection"),
	m("regimeProtectionType", "t1_regime_protection_type"),
	m("representantLegal", "t1_representant_legal"),
	m("representantLegalAdresse", "t1_representant_legal_adresse"),
	m("chefEntreprise", "t1_chef_entreprise"),
	m("entrepriseDenomination", "t1_entreprise_denomination"),
	m("entrepriseFormeJuridique", "t1_entreprise_forme_juridique"),
	m("entrepriseSiegeSocial", "t1_entreprise_siege_social"),
	m("entrepriseSiret", "t1_entreprise_siret"),
	m("entrepriseCapital", "t1_entreprise_capital"),
	m("entreprisePartsDetenues", "t1_entreprise_parts_detenues"),
}

var titulaire2Fields = []mapping{
	mt("civilite", "t2_civilite", MapCivilite),
	m("nom", "t2_nom"),
	m("nomJeuneFille", "t2_nom_naissance"),
	m("prenom", "t2_prenom"),
	m("dateNaissance", "t2_date_naissance"),
	m("lieuNaissance", "t2_lieu_naissance"),
	m("paysNaissance", "t2_pays_naissance"),
	m("nationalite", "t2_nationalite"),
	m("adresse", "t2_adresse"),
	m("codePostal", "t2_code_postal"),
	m("ville", "t2_ville"),
	m("pays", "t2_pays_residence"),
	m("telephone", "t2_telephone"),
	m("email", "t2_email"),
	m("usPerson", "t2_us_person"),
	m("residenceFiscale", "t2_residence_fiscale"),
	m("numeroFiscal", "t2_nif"),
	m("situationProfessionnelle", "t2_situation_pro"),
	m("profession", "t2_profession"),
	m("secteurActivite", "t2_secteur_activite"),
	m("employeur", "t2_employeur"),
	m("chefEntreprise", "t2_chef_entreprise"),
}

var sections = []section{
	{
		name: "situationFamiliale",
		fields: []mapping{
			mt("situation", "situation_familiale", MapSituationFamiliale),
			m("dateMariage", "date_mariage"),
			m("contratMariage", "contrat_mariage"),
			m("regimeMatrimonial", "regime_matrimonial"),
			m("datePacs", "date_pacs"),
			m("conventionPacs", "convention_pacs"),
			m("regimePacs", "regime_pacs"),
			m("dateDivorce", "date_divorce"),
			m("donationEntreEpoux", "donation_entre_epoux"),
			m("donationEntreEpouxDate", "donation_entre_epoux_date"),
			m("donationEntreEpouxMontant", "donation_entre_epoux_montant"),
			m("donationEnfants", "donation_enfants"),
			m("donationEnfantsDate", "donation_enfants_date"),
			m("donationEnfantsMontant", "donation_enfants_montant"),
			m("nombreEnfants", "nombre_enfants"),
			m("nombreEnfantsACharge", "enfants_a_charge"),
			m("informationsComplementaires", "informations_complementaires"),
		},
		lists: []list{{"enfants", "enfants"}},
	},
	{
		name: "situationFinanciere",
		fields: []mapping{
			mt("revenusAnnuelsFoyer", "revenus_annuels_foyer", MapTrancheRevenus),
			mt("patrimoineGlobal", "patrimoine_global", MapTranchePatrimoine),
			m("chargesAnnuellesPourcent", "charges_annuelles_pourcent"),
			m("chargesAnnuellesMontant", "charges_annuelles_montant"),
			m("capaciteEpargneMensuelle", "capacite_epargne_mensuelle"),
			m("patrimoineFinancierPourcent", "patrimoine_financier_pourcent"),
			m("patrimoineImmobilierPourcent", "patrimoine_immobilier_pourcent"),
			m("patrimoineProfessionnelPourcent", "patrimoine_professionnel_pourcent"),
			m("patrimoineAutresPourcent", "patrimoine_autres_pourcent"),
			m("impotRevenu", "impot_revenu"),
			m("impotFortuneImmobiliere", "impot_fortune_immobiliere"),
		},
	},
	{
		name: "origineFonds",
		fields: []mapping{
			m("nature", "origine_nature"),
			m("montantPrevu", "montant_investi_prevu"),
			m("origineRevenus", "origine_economique_revenus"),
			m("origineEpargne", "origine_economique_epargne"),
			m("origineHeritage", "origine_economique_heritage"),
			m("origineCessionPro", "origine_economique_cession"),
			m("origineCessionImmo", "origine_economique_vente_immo"),
			m("origineCessionMobiliere", "origine_economique_cession_mobiliere"),
			m("origineGainsJeu", "origine_economique_gains_jeu"),
			m("origineAssuranceVie", "origine_economique_assurance_vie"),
			m("origineAutres", "origine_economique_autre"),
			m("etablissementBancaireOrigine", "etablissement_bancaire_origine"),
		},
	},
	{
		name: "patrimoine",
		lists: []list{
			{"actifsFinanciers", "patrimoine_financier"},
			{"actifsImmobiliers", "patrimoine_immobilier"},
			{"actifsProfessionnels", "patrimoine_professionnel"},
			{"emprunts", "patrimoine_emprunts"},
			{"revenus", "patrimoine_revenus"},
			{"charges", "patrimoine_charges"},
		},
	},
	{
		name: "kyc",
		fields: []mapping{
			m("niveauEtudes", "niveau_etudes"),
			m("domaineEtudes", "domaine_etudes"),
			m("formationFinanciere", "formation_financiere"),
			m("formationFinanciereDetail", "formation_financiere_detail"),
			m("experienceProfessionnelleFinance", "experience_professionnelle_finance"),
			m("experienceFinanceDuree", "experience_finance_duree"),
			m("experienceFinancePoste", "experience_finance_poste"),
			m("anneesPremierInvestissement", "annees_premier_investissement"),
			m("montantMoyenOperation", "montant_moyen_operation"),
			m("gestionParProfessionnel", "gestion_mandat"),
			m("conseillerActuel", "gestion_conseiller"),
			m("sourcesPresse", "lecture_presse_financiere"),
			m("sourcesInternet", "sources_internet"),
			m("sourcesConseiller", "sources_conseiller"),
			m("sourcesBanque", "sources_banque"),
			m("sourcesEntourage", "sources_entourage"),
			m("sourcesReseauxSociaux", "sources_reseaux_sociaux"),
			m("comprendRisquePerte", "comprend_risque_perte"),
			m("comprendRisqueLiquidite", "comprend_risque_liquidite"),
			m("comprendRisqueChange", "comprend_risque_change"),
			m("comprendEffetLevier", "comprend_effet_levier"),
		},
		extra: flattenInstruments,
	},
	{
		name: "profilRisque",
		fields: []mapping{
			mt("horizonPlacement", "horizon_placement", MapHorizonPlacement),
			m("objectifPrincipal", "objectif_principal"),
			m("tolerancePerte", "tolerance_perte"),
			m("reactionBaisse", "reaction_perte"),
			m("partRisquee", "part_risquee"),
			m("importanceGarantieCapital", "importance_garantie_capital"),
			m("objectifRetraite", "objectif_retraite"),
			m("objectifTransmission", "objectif_transmission"),
			m("objectifProjetVie", "objectif_projet_vie"),
			m("objectifRevenuComplementaire", "objectif_revenus"),
			m("objectifOptimisationFiscale", "objectif_fiscal"),
			m("objectifEpargneSecurite", "objectif_preservation"),
			m("objectifAutre", "objectif_autre"),
			m("profilValide", "profil_risque_calcule"),
		},
		extra: flattenMaxLoss,
	},
	{
		name: "durabilite",
		fields: []mapping{
			m("interesseESG", "durabilite_integration"),
			m("niveauPreference", "durabilite_niveau_preference"),
			m("importanceEnvironnement", "durabilite_importance_environnement"),
			m("importanceSocial", "durabilite_importance_social"),
			m("importanceGouvernance", "durabilite_importance_gouvernance"),
			m("investissementImpact", "durabilite_impact"),
			m("investissementSolidaire", "durabilite_investissement_solidaire"),
			m("alignementTaxonomieMin", "durabilite_alignement_taxonomie_min"),
			m("prendreEnComptePAI", "durabilite_prise_compte_pai"),
			m("confirmationPreferences", "durabilite_confirmation"),
		},
		children: []section{{
			name: "exclusions",
			fields: []mapping{
				m("armement", "esg_exclusion_armement"),
				m("tabac", "esg_exclusion_tabac"),
				m("alcool", "esg_exclusion_alcool"),
				m("jeux_hasard", "esg_exclusion_jeux_hasard"),
				m("energies_fossiles", "esg_exclusion_energies_fossiles"),
				m("nucleaire", "esg_exclusion_nucleaire"),
				m("ogm", "esg_exclusion_ogm"),
				m("pornographie", "esg_exclusion_pornographie"),
				m("tests_animaux", "esg_exclusion_tests_animaux"),
				m("deforestation", "esg_exclusion_deforestation"),
			},
		}},
	},
	{
		name: "contexteMission",
		fields: []mapping{
			m("typePrestation", "type_prestation"),
			m("modeConseil", "mode_conseil"),
			m("instrumentsSouhaites", "instruments_souhaites"),
			m("remunerationMode", "remuneration_mode"),
			m("honorairesMontant", "honoraires_montant"),
			m("honorairesDescription", "honoraires_description"),
			m("frequenceSuivi", "frequence_suivi"),
			m("dateRemiseDER", "date_remise_der"),
			m("dateSignature", "date_signature"),
			m("lieuSignature", "lieu_signature"),
			m("nombreExemplaires", "nombre_exemplaires"),
		},
	},
	{
		name: "rto",
		fields: []mapping{
			m("typeClient", "rto_type_client"),
			m("estProfessionLiberal", "rto_profession_liberal"),
			m("siretProfessionnel", "rto_siret_professionnel"),
			m("activiteProfessionnelle", "rto_activite_professionnelle"),
			m("modesCommunication", "rto_modes_communication"),
			m("modesCommunicationAutre", "rto_modes_communication_autre"),
		},
		lists: []list{{"comptes", "rto_comptes"}},
		children: []section{{
			name: "personneMorale",
			fields: []mapping{
				m("raisonSociale", "rto_pm_raison_sociale"),
				m("objetSocial", "rto_pm_objet_social"),
				m("formeJuridique", "rto_pm_forme_juridique"),
				m("numeroRCS", "rto_pm_numero_rcs"),
				m("villeRCS", "rto_pm_ville_rcs"),
				m("siegeSocial", "rto_pm_siege_social"),
				m("codePostalSiege", "rto_pm_code_postal_siege"),
				m("villeSiege", "rto_pm_ville_siege"),
				m("representantCivilite", "rto_pm_representant_civilite"),
				m("representantNom", "rto_pm_representant_nom"),
				m("representantPrenom", "rto_pm_representant_prenom"),
				m("representantQualite", "rto_pm_representant_qualite"),
			},
		}},
	},
}

// Flatten converts a nested onboarding form into flat keys. Keys absent from
// the form are omitted; an explicit null is kept as nil. The input is not
// modified.
func Flatten(form map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	if form == nil {
		return out
	}

	if t1, ok := form["titulaire1"].(map[string]interface{}); ok {
		applyFields(t1, titulaire1Fields, out)
	}
	if hasT2, _ := form["hasTitulaire2"].(bool); hasT2 {
		if t2, ok := form["titulaire2"].(map[string]interface{}); ok {
			applyFields(t2, titulaire2Fields, out)
		}
	}

	for _, s := range sections {
		if sub, ok := form[s.name].(map[string]interface{}); ok {
			applySection(sub, s, out)
		}
	}

	return out
}

func applySection(sub map[string]interface{}, s section, out map[string]interface{}) {
	applyFields(sub, s.fields, out)

	for _, l := range s.lists {
		if items, ok := sub[l.src].([]interface{}); ok && len(items) > 0 {
			out[l.dst] = items
		}
	}

	for _, child := range s.children {
		if nested, ok := sub[child.name].(map[string]interface{}); ok {
			applySection(nested, child, out)
		}
	}

	if s.extra != nil {
		s.extra(sub, out)
	}
}

func applyFields(sub map[string]interface{}, fields []mapping, out map[string]interface{}) {
	for _, f := range fields {
		v, present := sub[f.src]
		if !present {
			continue
		}
		if f.translate != nil {
			v = f.translate(v)
		}
		out[f.dst] = v
	}
}

// flattenInstruments maps connaissanceInstruments.<type>.{niveau,frequence}
// to kyc_<type>_niveau and kyc_<type>_frequence.
func flattenInstruments(sub, out map[string]interface{}) {
	instruments, ok := sub["connaissanceInstruments"].(map[string]interface{})
	if !ok {
		return
	}
	for name, raw := range instruments {
		data, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if v, ok := data["niveau"]; ok {
			out["kyc_"+name+"_niveau"] = v
		}
		if v, ok := data["frequence"]; ok {
			out["kyc_"+name+"_frequence"] = v
		}
	}
}

// flattenMaxLoss renders tolerancePerte as "Maximum N%" when it is set.
func flattenMaxLoss(sub, out map[string]interface{}) {
	v, ok := sub["tolerancePerte"]
	if !ok || !truthy(v) {
		return
	}
	out["pertes_maximales_acceptables"] = fmt.Sprintf("Maximum %s%%", formatNumber(v))
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

func formatNumber(v interface{}) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// SortedKeys returns the keys of flat in lexical order.
func SortedKeys(flat map[string]interface{}) []string {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
