package configs

import (
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// parseHCL reads files made of unlabeled blocks:
//
//	ssh {
//	  USER = "cc"
//	  PORT = 22
//	}
//
// Environment variables are available both as top-level variables and
// through the env object.
func parseHCL(data []byte, filename string) (Sections, error) {
	file, diags := hclsyntax.ParseConfig(data, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, errors.WithStack(diags)
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, errors.Errorf("%s: invalid body type", filename)
	}

	if len(body.Attributes) != 0 {
		names := lo.Keys(body.Attributes)
		sort.Strings(names)
		return nil, errors.Wrapf(ErrInvalidSection, "%s: %s: attribute %s outside of a section",
			filename, body.Attributes[names[0]].SrcRange, names[0])
	}

	ctx := evalContext()
	sections := Sections{}

	for _, block := range body.Blocks {
		if len(block.Labels) != 0 {
			return nil, errors.Wrapf(ErrInvalidSection, "%s: %s: sections take no labels",
				filename, block.DefRange())
		}
		if len(block.Body.Blocks) != 0 {
			return nil, errors.Wrapf(ErrInvalidSection, "%s: %s: nested blocks are not supported",
				filename, block.Body.Blocks[0].DefRange())
		}

		values, ok := sections[block.Type]
		if !ok {
			values = map[string]string{}
			sections[block.Type] = values
		}

		for name, attr := range block.Body.Attributes {
			value, diags := attr.Expr.Value(ctx)
			if diags.HasErrors() {
				return nil, errors.WithStack(diags)
			}

			str, err := toString(value)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: %s.%s", filename, block.Type, name)
			}
			values[name] = str
		}
	}

	return sections, nil
}

func evalContext() *hcl.EvalContext {
	vars := map[string]cty.Value{}
	env := map[string]cty.Value{}

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !hclsyntax.ValidIdentifier(key) {
			continue
		}
		env[key] = cty.StringVal(value)
		vars[key] = cty.StringVal(value)
	}
	vars["env"] = cty.ObjectVal(env)

	return &hcl.EvalContext{Variables: vars}
}

// toString flattens a value.  Lists become shell quoted words.
func toString(value cty.Value) (string, error) {
	if value.IsNull() {
		return "", nil
	}
	if !value.IsKnown() {
		return "", errors.Wrap(ErrInvalidType, "unknown value")
	}

	typ := value.Type()
	if typ.IsListType() || typ.IsTupleType() || typ.IsSetType() {
		words := []string{}
		for it := value.ElementIterator(); it.Next(); {
			_, elt := it.Element()
			word, err := toString(elt)
			if err != nil {
				return "", err
			}
			words = append(words, word)
		}
		return shellquote.Join(words...), nil
	}

	str, err := convert.Convert(value, cty.String)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidType, "%s", err)
	}
	return str.AsString(), nil
}
