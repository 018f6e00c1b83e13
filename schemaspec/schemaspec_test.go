package schemaspec

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const codeSpecJSON = `{
  "provider": {"name": "mongodbatlas"},
  "version": "0.1",
  "resources": [
    {
      "name": "project",
      "schema": {
        "attributes": [
          {"name": "name", "string": {"computed_optional_required": "required"}},
          {"name": "org_id", "string": {"computed_optional_required": "computed_optional"}},
          {
            "name": "limits",
            "list_nested": {
              "computed_optional_required": "optional",
              "nested_object": {
                "attributes": [
                  {"name": "links", "string": {"computed_optional_required": "computed"}},
                  {"name": "value", "int64": {"computed_optional_required": "required"}}
                ]
              }
            }
          },
          {
            "name": "settings",
            "single_nested": {
              "computed_optional_required": "computed",
              "attributes": [
                {"name": "links", "string": {"computed_optional_required": "computed"}}
              ]
            }
          },
          {"name": "links", "string": {"computed_optional_required": "computed"}}
        ]
      }
    }
  ]
}`

const configYAML = `
resources:
- name: project
  provider_spec_attributes:
    - name: tags
      map:
        computed_optional_required: computed_optional
        element_type:
          string: {}
        description: Map that contains key-value pairs
  extensions:
    - type: ignore_nested
      path: "*.links"
    - type: rename_attribute
      from_name: org_id
      to_name: organization_id
    - type: change_attribute_type
      path: limits.value
      new_value: optional
  schema:
    ignores: [pretty, envelope]
  read:
    path: /api/atlas/v2/groups/{groupId}
    method: GET
`

func parse(t *testing.T) (*Config, *CodeSpec) {
	t.Helper()
	cfg, err := ParseConfig([]byte(configYAML))
	require.NoError(t, err)
	spec, err := ParseCodeSpec([]byte(codeSpecJSON))
	require.NoError(t, err)
	return cfg, spec
}

func TestParseConfig(t *testing.T) {
	cfg, _ := parse(t)
	project, err := cfg.Resource("project")
	require.NoError(t, err)
	require.Equal(t, Extensions{
		IgnoreNested{Path: "*.links"},
		RenameAttribute{From: "org_id", To: "organization_id"},
		ChangeAttributeType{Path: "limits.value", NewValue: Optional},
	}, project.Extensions)
	require.Len(t, project.ProviderSpecAttributes, 1)
	require.Contains(t, project.Extra, "schema")
	require.Contains(t, project.Extra, "read")

	_, err = cfg.Resource("cluster")
	require.ErrorIs(t, err, ErrResourceNotFound)
}

func TestParseConfigRejectsUnknownExtension(t *testing.T) {
	_, err := ParseConfig([]byte(`
resources:
- name: project
  extensions:
    - type: drop_everything
`))
	require.ErrorIs(t, err, ErrUnsupportedExtension)

	_, err = ParseConfig([]byte(`
resources:
- name: project
  extensions:
    - type: change_attribute_type
      path: name
      new_value: sometimes
`))
	require.Error(t, err)
}

func TestApply(t *testing.T) {
	cfg, spec := parse(t)
	require.NoError(t, Apply(zerolog.Nop(), cfg, spec))

	names, err := spec.AttributeNames("project")
	require.NoError(t, err)
	// top level links survives, nested ones are gone
	require.Equal(t, []string{"name", "organization_id", "limits", "settings", "links", "tags"}, names)

	limits, err := spec.Attribute("project", "limits")
	require.NoError(t, err)
	require.Len(t, nestedAttributes(limits), 1)
	settings, err := spec.Attribute("project", "settings")
	require.NoError(t, err)
	require.Empty(t, nestedAttributes(settings))

	value, err := spec.Attribute("project", "limits.value")
	require.NoError(t, err)
	require.Equal(t, "optional", value["int64"].(map[string]any)["computed_optional_required"])

	out, err := spec.Marshal()
	require.NoError(t, err)
	require.Contains(t, string(out), `"organization_id"`)
	require.Contains(t, string(out), `"version": "0.1"`)
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr error
	}{
		{
			name: "missing resource",
			config: `
resources:
- name: cluster
`,
			wantErr: ErrResourceNotFound,
		},
		{
			name: "missing attribute",
			config: `
resources:
- name: project
  extensions:
    - type: change_attribute_type
      path: limits.missing
      new_value: required
`,
			wantErr: ErrAttributeNotFound,
		},
		{
			name: "colliding explicit attribute",
			config: `
resources:
- name: project
  provider_spec_attributes:
    - name: org_id
`,
			wantErr: ErrAttributeCollision,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.config))
			require.NoError(t, err)
			spec, err := ParseCodeSpec([]byte(codeSpecJSON))
			require.NoError(t, err)
			require.ErrorIs(t, Apply(zerolog.Nop(), cfg, spec), tt.wantErr)
		})
	}
}

func TestIgnoreNestedRequiresWildcard(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
resources:
- name: project
  extensions:
    - type: ignore_nested
      path: limits.links
`))
	require.NoError(t, err)
	_, spec := parse(t)
	require.Error(t, Apply(zerolog.Nop(), cfg, spec))
}

func TestChangeAttributeTypeUnchanged(t *testing.T) {
	_, spec := parse(t)
	cfg := &Config{Resources: []Resource{{
		Name:       "project",
		Extensions: Extensions{ChangeAttributeType{Path: "name", NewValue: Required}},
	}}}
	require.NoError(t, Apply(zerolog.Nop(), cfg, spec))
	name, err := spec.Attribute("project", "name")
	require.NoError(t, err)
	require.Equal(t, "required", name["string"].(map[string]any)["computed_optional_required"])
}

func TestGeneratorConfig(t *testing.T) {
	cfg, _ := parse(t)
	data, err := GeneratorConfig(cfg, "mongodbatlas")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Equal(t, map[string]any{"name": "mongodbatlas"}, doc["provider"])
	project := doc["resources"].(map[string]any)["project"].(map[string]any)
	require.Contains(t, project, "schema")
	require.NotContains(t, project, "extensions")
	require.NotContains(t, project, "name")
}

func TestExtensionsRoundTrip(t *testing.T) {
	cfg, _ := parse(t)
	project, err := cfg.Resource("project")
	require.NoError(t, err)
	data, err := yaml.Marshal(project.Extensions)
	require.NoError(t, err)

	var decoded Extensions
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	require.Equal(t, project.Extensions, decoded)
}
