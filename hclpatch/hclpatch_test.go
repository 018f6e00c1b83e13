package hclpatch

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const variablesTF = `variable "cluster_name" {
  type        = string
  description = "old cluster name"
}

variable "project_id" {
  type = string
}

variable "region" {
  type    = string
  default = "US_EAST_1"
}

resource "null_resource" "this" {
  description = "not a variable"
}
`

func TestUpdateDescriptions(t *testing.T) {
	out, existing, err := UpdateDescriptions(zerolog.Nop(), []byte(variablesTF), "variables.tf", map[string]string{
		"cluster_name": "Name of the cluster",
		"project_id":   "Atlas project \"id\"",
		"unknown":      "ignored",
	})
	require.NoError(t, err)
	require.Equal(t, map[string][]string{
		"cluster_name": {"old cluster name"},
		"project_id":   {""},
		"region":       {""},
	}, existing)

	got := string(out)
	require.Contains(t, got, `description = "Name of the cluster"`)
	require.Contains(t, got, `description = "Atlas project \"id\""`)
	require.NotContains(t, got, "old cluster name")
	require.Contains(t, got, `description = "not a variable"`)
	require.Contains(t, got, `default = "US_EAST_1"`)

	// applying the same descriptions again reports the new values
	_, existing, err = UpdateDescriptions(zerolog.Nop(), out, "variables.tf", map[string]string{})
	require.NoError(t, err)
	require.Equal(t, []string{"Name of the cluster"}, existing["cluster_name"])
	require.Equal(t, []string{`Atlas project "id"`}, existing["project_id"])
}

func TestUpdateDescriptionsInvalid(t *testing.T) {
	_, _, err := UpdateDescriptions(zerolog.Nop(), []byte(`variable "x" {`), "broken.tf", nil)
	require.Error(t, err)
}

func TestUpdateDescriptionsTemplateDescription(t *testing.T) {
	src := `variable "dynamic" {
  description = "Region ${var.suffix}"
}

variable "plain" {
  type = string
}
`
	out, existing, err := UpdateDescriptions(zerolog.Nop(), []byte(src), "variables.tf", map[string]string{
		"plain": "A plain variable",
	})
	require.NoError(t, err)
	require.Equal(t, []string{`"Region ${var.suffix}"`}, existing["dynamic"])
	require.Contains(t, string(out), `description = "Region ${var.suffix}"`)
	require.Contains(t, string(out), `description = "A plain variable"`)

	out, existing, err = UpdateDescriptions(zerolog.Nop(), []byte(src), "variables.tf", map[string]string{
		"dynamic": "Deployment region",
	})
	require.NoError(t, err)
	require.Equal(t, []string{`"Region ${var.suffix}"`}, existing["dynamic"])
	require.Contains(t, string(out), `description = "Deployment region"`)
	require.NotContains(t, string(out), "var.suffix")
}
