package configs

import (
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Decode populates the `cty` tagged fields of the struct pointed to by out
// from a section.  Every tagged key must exist in the section.  Empty
// values decode to the zero value of the field and list fields are split
// like shell words.
func (c *Config) Decode(section string, out any) error {
	values, ok := c.sections[strings.ToLower(section)]
	if !ok {
		return errors.Wrapf(ErrInvalidSection, "%s", section)
	}

	typ, err := gocty.ImpliedType(out)
	if err != nil {
		return errors.WithStack(err)
	}
	if !typ.IsObjectType() {
		return errors.Wrapf(ErrInvalidType, "%s: cannot decode into %T", section, out)
	}

	attrs := map[string]cty.Value{}
	for name, attrType := range typ.AttributeTypes() {
		raw, ok := values[name]
		if !ok {
			return errors.Wrapf(ErrInvalidKey, "%s.%s", section, name)
		}

		value, err := toCty(raw, attrType)
		if err != nil {
			return errors.Wrapf(err, "%s.%s", section, name)
		}
		attrs[name] = value
	}

	err = gocty.FromCtyValue(cty.ObjectVal(attrs), out)
	if err != nil {
		return errors.Wrapf(ErrInvalidType, "%s: %s", section, err)
	}
	return nil
}

func toCty(raw string, typ cty.Type) (cty.Value, error) {
	switch {
	case typ.IsListType():
		words, err := shellquote.Split(raw)
		if err != nil {
			return cty.NilVal, errors.Wrapf(ErrInvalidType, "%s", err)
		}
		if len(words) == 0 {
			return cty.ListValEmpty(typ.ElementType()), nil
		}

		elts := []cty.Value{}
		for _, word := range words {
			elt, err := toCty(word, typ.ElementType())
			if err != nil {
				return cty.NilVal, err
			}
			elts = append(elts, elt)
		}
		return cty.ListVal(elts), nil
	case raw == "" && typ == cty.Number:
		return cty.Zero, nil
	case raw == "" && typ == cty.Bool:
		return cty.False, nil
	}

	value, err := convert.Convert(cty.StringVal(raw), typ)
	if err != nil {
		return cty.NilVal, errors.Wrapf(ErrInvalidType, "%q: %s", raw, err)
	}
	return value, nil
}
