package groove

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// templateFile is the on-disk shape of a groove template collection.
type templateFile struct {
	Templates []Template `yaml:"templates"`
}

// ReadTemplates parses a YAML groove template collection.
func ReadTemplates(r io.Reader) ([]Template, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("groove: reading templates: %w", err)
	}
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("groove: parsing templates: %w", err)
	}
	for i := range f.Templates {
		if f.Templates[i].Length <= 0 {
			return nil, fmt.Errorf("groove: template %q has non-positive length %d",
				f.Templates[i].Name, f.Templates[i].Length)
		}
	}
	return f.Templates, nil
}

// LoadTemplates reads a YAML groove template collection from a file.
func LoadTemplates(path string) ([]Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTemplates(f)
}
