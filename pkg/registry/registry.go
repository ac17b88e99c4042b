// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

func LoadRegistry(path string) (*DocumentRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a JSON registry definition.
func Parse(data []byte) (*DocumentRegistry, error) {
	var reg DocumentRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode document registry: %w", err)
	}
	if len(reg.Documents) == 0 {
		return nil, fmt.Errorf("document registry has no documents")
	}
	return &reg, nil
}

func SaveRegistry(path string, reg *DocumentRegistry) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
