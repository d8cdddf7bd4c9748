package modes

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// hclModeBlock is the block type that carries the mode name as a label:
//
//	mode "power save" { ... }
//
// Any other block type is itself the mode name:
//
//	powersave { ... }
const hclModeBlock = "mode"

// parseHCL decodes an HCL modes file. Top-level blocks are modes, their attributes are plugin
// values and nested blocks become lists of tables keyed by the block type. Top-level attributes
// are kept so that validation can reject them like any other non-table mode.
func parseHCL(data []byte, name string) (Document, error) {
	file, diags := hclsyntax.ParseConfig(data, name, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, errors.New("unexpected HCL body type")
	}

	doc := make(Document)
	for attrName, attr := range body.Attributes {
		value, err := hclAttributeValue(attr)
		if err != nil {
			return nil, err
		}
		doc[attrName] = value
	}

	for _, block := range body.Blocks {
		modeName, err := hclModeName(block)
		if err != nil {
			return nil, err
		}
		if _, exists := doc[modeName]; exists {
			return nil, fmt.Errorf("%s: duplicate mode %q", block.DefRange(), modeName)
		}

		table, err := hclBodyToMap(block.Body)
		if err != nil {
			return nil, fmt.Errorf("in mode %q: %w", modeName, err)
		}
		doc[modeName] = table
	}

	return doc, nil
}

func hclModeName(block *hclsyntax.Block) (string, error) {
	if block.Type == hclModeBlock {
		if len(block.Labels) != 1 {
			return "", fmt.Errorf("%s: %q blocks take exactly one label", block.DefRange(), hclModeBlock)
		}
		return block.Labels[0], nil
	}
	if len(block.Labels) != 0 {
		return "", fmt.Errorf("%s: block %q must not have labels", block.DefRange(), block.Type)
	}
	return block.Type, nil
}

func hclBodyToMap(body *hclsyntax.Body) (map[string]any, error) {
	out := make(map[string]any, len(body.Attributes))
	for name, attr := range body.Attributes {
		value, err := hclAttributeValue(attr)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}

	for _, block := range body.Blocks {
		if _, isAttr := body.Attributes[block.Type]; isAttr {
			return nil, fmt.Errorf("%s: %q is both an attribute and a block", block.DefRange(), block.Type)
		}
		table, err := hclBodyToMap(block.Body)
		if err != nil {
			return nil, fmt.Errorf("in block %q: %w", block.Type, err)
		}
		list, _ := out[block.Type].([]any)
		out[block.Type] = append(list, table)
	}

	return out, nil
}

func hclAttributeValue(attr *hclsyntax.Attribute) (any, error) {
	value, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	native, err := ctyToNative(value)
	if err != nil {
		return nil, fmt.Errorf("in attribute %q: %w", attr.Name, err)
	}
	return native, nil
}

// ctyToNative converts a cty.Value to the canonical Go value forms
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		list := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, native)
		}
		return list, nil

	case ty.IsObjectType() || ty.IsMapType():
		table := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in key %q: %w", key.AsString(), err)
			}
			table[key.AsString()] = native
		}
		return table, nil

	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
