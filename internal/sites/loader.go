package sites

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sites.yaml
var defaultTable []byte

type file struct {
	Sites []Descriptor `yaml:"sites"`
}

// Default returns the embedded site table.
func Default() ([]Descriptor, error) {
	return Parse(defaultTable)
}

// Load reads the site table at path, or the embedded default when path is
// empty.
func Load(path string) ([]Descriptor, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return Default()
	}

	content, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, fmt.Errorf("read site table: %w", err)
	}

	return Parse(content)
}

// Parse decodes and validates a YAML site table. Disabled sites are dropped.
func Parse(content []byte) ([]Descriptor, error) {
	var parsed file
	if err := yaml.Unmarshal(content, &parsed); err != nil {
		return nil, fmt.Errorf("decode site table: %w", err)
	}

	seen := make(map[string]struct{}, len(parsed.Sites))
	items := make([]Descriptor, 0, len(parsed.Sites))
	for index := range parsed.Sites {
		descriptor := parsed.Sites[index]
		if err := descriptor.normalizeAndValidate(); err != nil {
			return nil, fmt.Errorf("site #%d: %w", index+1, err)
		}
		if _, exists := seen[descriptor.Key]; exists {
			return nil, fmt.Errorf("site %q declared twice", descriptor.Key)
		}
		seen[descriptor.Key] = struct{}{}

		if !descriptor.isEnabled() {
			continue
		}
		items = append(items, descriptor)
	}

	return items, nil
}
