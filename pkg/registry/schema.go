// pkg/registry/schema.go
package registry

// DocumentRegistry is the on-disk definition of the regulatory documents
// and the flat client fields each one requires.
type DocumentRegistry struct {
	Version     string     `json:"version" yaml:"version"`
	LastUpdated string     `json:"lastUpdated" yaml:"lastUpdated"`
	Documents   []Document `json:"documents" yaml:"documents"`
}

type Document struct {
	Type      string  `json:"type" yaml:"type"`
	Label     string  `json:"label" yaml:"label"`
	Mandatory bool    `json:"mandatory" yaml:"mandatory"`
	Fields    []Field `json:"fields" yaml:"fields"`
}

type Field struct {
	Key     string `json:"key" yaml:"key"`
	Label   string `json:"label" yaml:"label"`
	Section string `json:"section" yaml:"section"`
}
