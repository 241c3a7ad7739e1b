package curriculum

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk YAML shape of a catalog.
type catalogFile struct {
	Modules []Module `yaml:"modules"`
}

// Load reads and validates a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Modules)
}
