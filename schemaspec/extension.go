package schemaspec

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const (
	TypeIgnoreNested        = "ignore_nested"
	TypeRenameAttribute     = "rename_attribute"
	TypeChangeAttributeType = "change_attribute_type"
)

// Extension is one edit of a resource in the provider code spec. The set of
// implementations is closed: IgnoreNested, RenameAttribute and ChangeAttributeType.
type Extension interface {
	apply(logger zerolog.Logger, resource *specResource) error
	fields() map[string]any
}

// IgnoreNested removes every nested attribute with a given name. Only the
// wildcard form "*.<name>" is supported.
type IgnoreNested struct {
	Path string `yaml:"path"`
}

func (e IgnoreNested) apply(logger zerolog.Logger, resource *specResource) error {
	name, ok := strings.CutPrefix(e.Path, "*.")
	if !ok || name == "" || strings.Contains(name, "*") {
		return fmt.Errorf("resource %s: only wildcard paths of the form *.<name> are supported: %q", resource.name, e.Path)
	}
	removed := 0
	for _, attribute := range resource.attributes() {
		if m, ok := attribute.(map[string]any); ok {
			removed += removeNested(m, name)
		}
	}
	logger.Info().Str("resource", resource.name).Str("attribute", name).Int("removed", removed).Msg("Removed nested attributes")
	return nil
}

func (e IgnoreNested) fields() map[string]any {
	return map[string]any{"type": TypeIgnoreNested, "path": e.Path}
}

// RenameAttribute renames top level attributes.
type RenameAttribute struct {
	From string `yaml:"from_name"`
	To   string `yaml:"to_name"`
}

func (e RenameAttribute) apply(logger zerolog.Logger, resource *specResource) error {
	for _, attribute := range resource.attributes() {
		m, ok := attribute.(map[string]any)
		if !ok || m["name"] != e.From {
			continue
		}
		logger.Info().Str("resource", resource.name).Str("from", e.From).Str("to", e.To).Msg("Renaming attribute")
		m["name"] = e.To
	}
	return nil
}

func (e RenameAttribute) fields() map[string]any {
	return map[string]any{"type": TypeRenameAttribute, "from_name": e.From, "to_name": e.To}
}

// ComputedOptionalRequired is the requiredness of an attribute.
type ComputedOptionalRequired string

const (
	ComputedOptional ComputedOptionalRequired = "computed_optional"
	Required         ComputedOptionalRequired = "required"
	Computed         ComputedOptionalRequired = "computed"
	Optional         ComputedOptionalRequired = "optional"
)

func (c ComputedOptionalRequired) Valid() bool {
	switch c {
	case ComputedOptional, Required, Computed, Optional:
		return true
	}
	return false
}

const requirednessKey = "computed_optional_required"

// ChangeAttributeType sets the requiredness of the attribute at Path. Path
// is a dot separated list of attribute names, e.g. "replication_specs.zone_name".
type ChangeAttributeType struct {
	Path     string                   `yaml:"path"`
	NewValue ComputedOptionalRequired `yaml:"new_value"`
}

func (e ChangeAttributeType) apply(logger zerolog.Logger, resource *specResource) error {
	attribute, err := resource.attribute(e.Path)
	if err != nil {
		return err
	}
	typed, err := typeBody(attribute)
	if err != nil {
		return fmt.Errorf("resource %s attribute %s: %w", resource.name, e.Path, err)
	}
	old := typed[requirednessKey]
	if old == string(e.NewValue) {
		logger.Info().Str("resource", resource.name).Str("path", e.Path).Msg("No change")
		return nil
	}
	logger.Info().
		Str("resource", resource.name).
		Str("path", e.Path).
		Any("old", old).
		Str("new", string(e.NewValue)).
		Msg("Changing attribute type")
	typed[requirednessKey] = string(e.NewValue)
	return nil
}

func (e ChangeAttributeType) fields() map[string]any {
	return map[string]any{"type": TypeChangeAttributeType, "path": e.Path, "new_value": string(e.NewValue)}
}

// typeBody returns the body of the attribute's type key, e.g. the value of
// "string" in {"name": "x", "string": {"computed_optional_required": "required"}}.
func typeBody(attribute map[string]any) (map[string]any, error) {
	for key, value := range attribute {
		if key == "name" {
			continue
		}
		if body, ok := value.(map[string]any); ok {
			if _, ok := body[requirednessKey]; ok {
				return body, nil
			}
		}
	}
	return nil, fmt.Errorf("no %s found", requirednessKey)
}

// removeNested removes list elements named name anywhere below node and
// returns how many were removed. node itself is never removed.
func removeNested(node map[string]any, name string) int {
	removed := 0
	for key, value := range node {
		switch v := value.(type) {
		case map[string]any:
			removed += removeNested(v, name)
		case []any:
			kept := v[:0]
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					if m["name"] == name {
						removed++
						continue
					}
					removed += removeNested(m, name)
				}
				kept = append(kept, item)
			}
			node[key] = kept
		}
	}
	return removed
}
