package completion

import (
	"cif-onboarding/internal/formdata"
	"cif-onboarding/internal/models"
)

// relationKeys are nested backend relations that never belong in the flat data.
var relationKeys = map[string]struct{}{
	"form_data":  {},
	"conseiller": {},
	"documents":  {},
	"produits":   {},
}

// MergeClientData overlays the backend client record on the flattened form.
// A client value wins only when it is filled, so an empty column never hides
// an answer given in the form. Neither input is modified.
func MergeClientData(flatForm, client map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(flatForm)+len(client))
	for k, v := range flatForm {
		merged[k] = v
	}

	for k, v := range client {
		if _, skip := relationKeys[k]; skip {
			continue
		}
		if IsFilled(client, k) {
			merged[k] = v
			continue
		}
		if _, present := merged[k]; !present {
			merged[k] = v
		}
	}

	return merged
}

// ClientFlatData flattens the form stored on a backend record and merges
// the record's own columns over it.
func ClientFlatData(record models.ClientRecord) map[string]interface{} {
	return MergeClientData(formdata.Flatten(record.FormData()), record)
}
