package flattenformdata

type Input struct {
	FormData   map[string]interface{} `json:"formData"`
	ClientData map[string]interface{} `json:"clientData,omitempty"`
}

type Output struct {
	FlatData   map[string]interface{} `json:"flatData"`
	FieldCount int                    `json:"fieldCount"`
}
