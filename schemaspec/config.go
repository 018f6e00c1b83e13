package schemaspec

// This file contains the generator configuration: per resource extensions
// applied to a provider code spec.

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedExtension is returned when decoding an unknown extension type.
var ErrUnsupportedExtension = errors.New("unsupported extension")

// Resource is one resource of the generator configuration. Fields unknown to
// citriage are kept in Extra and end up in the generator config.
type Resource struct {
	Name                   string           `yaml:"name"`
	Extensions             Extensions       `yaml:"extensions,omitempty"`
	ProviderSpecAttributes []map[string]any `yaml:"provider_spec_attributes,omitempty"`
	Extra                  map[string]any   `yaml:",inline"`
}

type Config struct {
	Resources   []Resource `yaml:"resources"`
	DataSources []Resource `yaml:"data_sources,omitempty"`
}

// Resource returns the named resource.
func (c *Config) Resource(name string) (*Resource, error) {
	for i := range c.Resources {
		if c.Resources[i].Name == name {
			return &c.Resources[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, name)
}

// Extensions decodes a list of extensions using the "type" discriminator.
type Extensions []Extension

func (e *Extensions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: extensions must be a list", node.Line)
	}
	list := make(Extensions, 0, len(node.Content))
	for _, item := range node.Content {
		var header struct {
			Type string `yaml:"type"`
		}
		if err := item.Decode(&header); err != nil {
			return err
		}
		var ext Extension
		switch header.Type {
		case TypeIgnoreNested:
			var v IgnoreNested
			if err := item.Decode(&v); err != nil {
				return err
			}
			ext = v
		case TypeRenameAttribute:
			var v RenameAttribute
			if err := item.Decode(&v); err != nil {
				return err
			}
			ext = v
		case TypeChangeAttributeType:
			var v ChangeAttributeType
			if err := item.Decode(&v); err != nil {
				return err
			}
			if !v.NewValue.Valid() {
				return fmt.Errorf("line %d: invalid new_value %q", item.Line, v.NewValue)
			}
			ext = v
		default:
			return fmt.Errorf("line %d: %w: %q", item.Line, ErrUnsupportedExtension, header.Type)
		}
		list = append(list, ext)
	}
	*e = list
	return nil
}

func (e Extensions) MarshalYAML() (any, error) {
	out := make([]map[string]any, 0, len(e))
	for _, ext := range e {
		out = append(out, ext.fields())
	}
	return out, nil
}

// LoadConfig reads a generator configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse schema config: %w", err)
	}
	return &cfg, nil
}

// GeneratorConfig renders the configuration consumed by the code generator:
// every resource's Extra fields keyed by resource name.
func GeneratorConfig(cfg *Config, providerName string) ([]byte, error) {
	byName := func(resources []Resource) map[string]any {
		out := make(map[string]any, len(resources))
		for _, r := range resources {
			extra := r.Extra
			if extra == nil {
				extra = map[string]any{}
			}
			out[r.Name] = extra
		}
		return out
	}
	doc := map[string]any{
		"provider":     map[string]any{"name": providerName},
		"resources":    byName(cfg.Resources),
		"data_sources": byName(cfg.DataSources),
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generator config: %w", err)
	}
	return data, nil
}
