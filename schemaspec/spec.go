package schemaspec

// This file contains the provider code spec document, kept as a generic
// JSON tree so fields unknown to citriage survive a round trip.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrResourceNotFound   = errors.New("resource not found")
	ErrAttributeNotFound  = errors.New("attribute not found")
	ErrAttributeCollision = errors.New("attribute already exists")
)

// CodeSpec is a provider code spec document.
type CodeSpec struct {
	doc map[string]any
}

func LoadCodeSpec(path string) (*CodeSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read code spec: %w", err)
	}
	return ParseCodeSpec(data)
}

func ParseCodeSpec(data []byte) (*CodeSpec, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var doc map[string]any
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse code spec: %w", err)
	}
	return &CodeSpec{doc: doc}, nil
}

// Marshal renders the spec as indented JSON.
func (s *CodeSpec) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal code spec: %w", err)
	}
	return append(data, '\n'), nil
}

type specResource struct {
	name   string
	schema map[string]any
}

func (s *CodeSpec) resource(name string) (*specResource, error) {
	resources, _ := s.doc["resources"].([]any)
	for _, r := range resources {
		m, ok := r.(map[string]any)
		if !ok || m["name"] != name {
			continue
		}
		schema, ok := m["schema"].(map[string]any)
		if !ok {
			schema = map[string]any{}
			m["schema"] = schema
		}
		return &specResource{name: name, schema: schema}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, name)
}

// AttributeNames lists the top level attribute names of a resource.
func (s *CodeSpec) AttributeNames(resource string) ([]string, error) {
	r, err := s.resource(resource)
	if err != nil {
		return nil, err
	}
	return r.attributeNames(), nil
}

// Attribute returns the attribute at a dot separated name path.
func (s *CodeSpec) Attribute(resource, path string) (map[string]any, error) {
	r, err := s.resource(resource)
	if err != nil {
		return nil, err
	}
	return r.attribute(path)
}

func (r *specResource) attributes() []any {
	attributes, _ := r.schema["attributes"].([]any)
	return attributes
}

func (r *specResource) attributeNames() []string {
	var names []string
	for _, a := range r.attributes() {
		if m, ok := a.(map[string]any); ok {
			if name, ok := m["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

func (r *specResource) attribute(path string) (map[string]any, error) {
	current := r.attributes()
	var found map[string]any
	for _, part := range strings.Split(path, ".") {
		found = findByName(current, part)
		if found == nil {
			return nil, fmt.Errorf("%w: %s in resource %s", ErrAttributeNotFound, path, r.name)
		}
		current = nestedAttributes(found)
	}
	return found, nil
}

func findByName(list []any, name string) map[string]any {
	for _, item := range list {
		if m, ok := item.(map[string]any); ok && m["name"] == name {
			return m
		}
	}
	return nil
}

// nestedAttributes returns the attributes of a nested attribute, e.g. the
// "attributes" of {"single_nested": {"attributes": [...]}} or of
// {"list_nested": {"nested_object": {"attributes": [...]}}}.
func nestedAttributes(attribute map[string]any) []any {
	for key, value := range attribute {
		if key == "name" {
			continue
		}
		body, ok := value.(map[string]any)
		if !ok {
			continue
		}
		if attrs, ok := body["attributes"].([]any); ok {
			return attrs
		}
		if obj, ok := body["nested_object"].(map[string]any); ok {
			if attrs, ok := obj["attributes"].([]any); ok {
				return attrs
			}
		}
	}
	return nil
}

func (r *specResource) addAttributes(extra []map[string]any) error {
	existing := r.attributeNames()
	var collisions []string
	for _, attribute := range extra {
		name, _ := attribute["name"].(string)
		if name == "" {
			return fmt.Errorf("resource %s: provider spec attribute without name", r.name)
		}
		if slices.Contains(existing, name) {
			collisions = append(collisions, name)
		}
	}
	if len(collisions) > 0 {
		slices.Sort(collisions)
		return fmt.Errorf("%w: resource %s has %s", ErrAttributeCollision, r.name, strings.Join(collisions, ", "))
	}
	attributes := r.attributes()
	for _, attribute := range extra {
		attributes = append(attributes, attribute)
	}
	r.schema["attributes"] = attributes
	return nil
}

// Apply edits spec resource by resource in configuration order: explicit
// provider spec attributes first, then the extensions in list order. The first
// error stops the application.
func Apply(logger zerolog.Logger, cfg *Config, spec *CodeSpec) error {
	for _, resource := range cfg.Resources {
		r, err := spec.resource(resource.Name)
		if err != nil {
			return err
		}
		if len(resource.ProviderSpecAttributes) > 0 {
			if err := r.addAttributes(resource.ProviderSpecAttributes); err != nil {
				return err
			}
		}
		for _, ext := range resource.Extensions {
			if err := ext.apply(logger, r); err != nil {
				return fmt.Errorf("failed to apply %s to %s: %w", ext.fields()["type"], resource.Name, err)
			}
		}
	}
	return nil
}
