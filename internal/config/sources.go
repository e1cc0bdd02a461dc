package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceSpec describes one registered news origin. Kind selects the
// adapter (rss or agmarknet); Kerala marks origins whose coverage is
// state-focused, which feeds the relevance scorer.
type SourceSpec struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Kind   string `yaml:"kind"`
	Kerala bool   `yaml:"kerala"`
}

type SourceRegistry struct {
	Sources []SourceSpec `yaml:"sources"`
}

func LoadSources(path string) (SourceRegistry, error) {
	var registry SourceRegistry

	data, err := os.ReadFile(path)
	if err != nil {
		return registry, fmt.Errorf("read sources config: %w", err)
	}
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return registry, fmt.Errorf("parse sources config: %w", err)
	}

	seen := make(map[string]struct{}, len(registry.Sources))
	for _, src := range registry.Sources {
		if src.ID == "" || src.URL == "" {
			return registry, fmt.Errorf("source entry missing id or url: %+v", src)
		}
		if src.Kind != "rss" && src.Kind != "agmarknet" {
			return registry, fmt.Errorf("source %s has unknown kind %q", src.ID, src.Kind)
		}
		if _, dup := seen[src.ID]; dup {
			return registry, fmt.Errorf("duplicate source id %s", src.ID)
		}
		seen[src.ID] = struct{}{}
	}
	return registry, nil
}

// KeralaSourceIDs returns the IDs of state-focused origins.
func (r SourceRegistry) KeralaSourceIDs() []string {
	var ids []string
	for _, src := range r.Sources {
		if src.Kerala {
			ids = append(ids, src.ID)
		}
	}
	return ids
}
