package configs

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/illikainen/go-utils/src/iofs"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Sections maps a section name to its keys.  Keys are upper case.
type Sections map[string]map[string]string

// Config is a default configuration with user overrides applied on top.
// Overrides may only change keys that the default defines.
type Config struct {
	sections Sections
	Path     string
	Override string
}

// Load reads the default configuration at path and applies the overrides
// in override, if that file exists.
func Load(path string, override string) (*Config, error) {
	exists, err := iofs.Exists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Wrapf(ErrMissing, "%s", path)
	}

	sections, err := ParseFile(path)
	if err != nil {
		return nil, err
	}

	config := &Config{sections: sections, Path: path}
	log.Debugf("loaded default configuration from %s", path)

	if override == "" {
		return config, nil
	}

	exists, err = iofs.Exists(override)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Debugf("%s does not exist, using defaults", override)
		return config, nil
	}

	overrides, err := ParseFile(override)
	if err != nil {
		return nil, err
	}

	err = config.Merge(overrides)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", override)
	}

	config.Override = override
	log.Debugf("applied overrides from %s", override)
	return config, nil
}

// New creates a configuration from in-memory defaults.
func New(defaults Sections) *Config {
	return &Config{sections: normalize(defaults)}
}

// ParseFile parses an HCL or TOML file depending on its extension.
func ParseFile(path string) (Sections, error) {
	data, err := iofs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

func Parse(data []byte, filename string) (Sections, error) {
	var sections Sections
	var err error

	switch ext := filepath.Ext(filename); ext {
	case ".hcl":
		sections, err = parseHCL(data, filename)
	case ".toml":
		sections, err = parseTOML(data, filename)
	default:
		return nil, errors.Errorf("%s: unsupported configuration format %q", filename, ext)
	}
	if err != nil {
		return nil, err
	}

	return expand(normalize(sections)), nil
}

// Merge applies overrides.  Every section and key in overrides must
// already exist.
func (c *Config) Merge(overrides Sections) error {
	overrides = normalize(overrides)

	for _, section := range lo.Keys(overrides) {
		if _, ok := c.sections[section]; !ok {
			return errors.Wrapf(ErrInvalidSection, "%s", section)
		}

		for key := range overrides[section] {
			if _, ok := c.sections[section][key]; !ok {
				return errors.Wrapf(ErrInvalidKey, "%s.%s", section, key)
			}
		}
	}

	for section, values := range overrides {
		for key, value := range values {
			c.sections[section][key] = value
		}
	}
	return nil
}

// Set overrides a single key.  The key must exist.
func (c *Config) Set(section string, key string, value string) error {
	return c.Merge(expand(Sections{section: {key: value}}))
}

func (c *Config) Get(section string, key string) (string, bool) {
	value, ok := c.sections[strings.ToLower(section)][strings.ToUpper(key)]
	return value, ok
}

func (c *Config) Section(section string) (map[string]string, error) {
	values, ok := c.sections[strings.ToLower(section)]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidSection, "%s", section)
	}
	return lo.Assign(values), nil
}

func (c *Config) Sections() []string {
	names := lo.Keys(c.sections)
	sort.Strings(names)
	return names
}

func normalize(in Sections) Sections {
	out := Sections{}
	for section, values := range in {
		section = strings.ToLower(section)
		if _, ok := out[section]; !ok {
			out[section] = map[string]string{}
		}
		for key, value := range values {
			out[section][strings.ToUpper(key)] = value
		}
	}
	return out
}

var envRegexp = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expand replaces $VAR and ${VAR} in every value with the variables that
// are set in the environment.  Anything else, including $$, $1 and
// references to unset variables, is kept as written.
func expand(in Sections) Sections {
	for _, values := range in {
		for key, value := range values {
			values[key] = expandEnv(value)
		}
	}
	return in
}

func expandEnv(s string) string {
	return envRegexp.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRegexp.FindStringSubmatch(ref)
		name := lo.Ternary(m[1] != "", m[1], m[2])
		if name == "" {
			return ref
		}
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return ref
	})
}
