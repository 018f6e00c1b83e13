package hclpatch

// This file contains the rewriting of variable descriptions in Terraform files.

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/rs/zerolog"
	"github.com/zclconf/go-cty/cty"
)

const descriptionAttribute = "description"

// UpdateDescriptions sets the description of every variable block found in
// descriptions. Variables without a new description are left untouched.
// It returns the rewritten source and the previous descriptions by variable
// name, one entry per block ("" when a block had none). The output is
// formatted like terraform fmt.
func UpdateDescriptions(logger zerolog.Logger, src []byte, filename string, descriptions map[string]string) ([]byte, map[string][]string, error) {
	file, diags := hclwrite.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", filename, diags)
	}

	existing := make(map[string][]string)
	seen := make(map[string]bool)
	for _, block := range file.Body().Blocks() {
		if block.Type() != "variable" || len(block.Labels()) == 0 {
			continue
		}
		name := block.Labels()[0]
		seen[name] = true
		body := block.Body()

		old, err := readDescription(body)
		if err != nil {
			// keep the expression source, the block itself is only touched below
			logger.Warn().Err(err).Str("variable", name).Msg("Description is not a constant string")
		}
		existing[name] = append(existing[name], old)

		description := descriptions[name]
		if description == "" {
			logger.Warn().Str("variable", name).Msg("No description found for variable")
			continue
		}
		body.SetAttributeValue(descriptionAttribute, cty.StringVal(description))
	}

	var unused []string
	for name := range descriptions {
		if !seen[name] {
			unused = append(unused, name)
		}
	}
	if len(unused) > 0 {
		slices.Sort(unused)
		logger.Warn().Strs("variables", unused).Str("file", filename).Msg("Descriptions for unknown variables")
	}

	return hclwrite.Format(file.Bytes()), existing, nil
}

// readDescription evaluates the description attribute. A description that is
// not a constant string is returned as its source text together with an error.
func readDescription(body *hclwrite.Body) (string, error) {
	attr := body.GetAttribute(descriptionAttribute)
	if attr == nil {
		return "", nil
	}
	raw := strings.TrimSpace(string(attr.Expr().BuildTokens(nil).Bytes()))
	expr, diags := hclsyntax.ParseExpression([]byte(raw), descriptionAttribute, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return raw, fmt.Errorf("failed to parse description: %w", diags)
	}
	value, diags := expr.Value(nil)
	if diags.HasErrors() {
		return raw, fmt.Errorf("description is not a constant: %w", diags)
	}
	if value.IsNull() || !value.Type().Equals(cty.String) {
		return raw, fmt.Errorf("description is not a string")
	}
	return value.AsString(), nil
}
