package configs

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

// parseTOML reads files made of tables of scalar or array values.
func parseTOML(data []byte, filename string) (Sections, error) {
	raw := map[string]any{}
	_, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", filename)
	}

	sections := Sections{}
	for name, table := range raw {
		values, ok := table.(map[string]any)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidSection, "%s: %s is not a table", filename, name)
		}

		sections[name] = map[string]string{}
		for key, value := range values {
			str, err := tomlString(value)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: %s.%s", filename, name, key)
			}
			sections[name][key] = str
		}
	}

	return sections, nil
}

func tomlString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []any:
		words := []string{}
		for _, elt := range v {
			word, err := tomlString(elt)
			if err != nil {
				return "", err
			}
			words = append(words, word)
		}
		return shellquote.Join(words...), nil
	case map[string]any:
		return "", errors.Wrap(ErrInvalidType, "nested tables are not supported")
	default:
		return fmt.Sprint(v), nil
	}
}
