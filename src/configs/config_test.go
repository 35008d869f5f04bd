package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestMergeOverridesCaseInsensitively(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "default.hcl", "section {\n  KEY = \"1\"\n}\n")
	override := writeFile(t, dir, "override.toml", "[section]\nkey = \"2\"\n")

	config, err := Load(def, override)
	require.NoError(t, err)

	value, ok := config.Get("section", "KEY")
	require.True(t, ok)
	assert.Equal(t, "2", value)
	assert.Equal(t, override, config.Override)
}

func TestOverrideUnknownKey(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "default.hcl", "section {\n  KEY = \"1\"\n}\n")
	override := writeFile(t, dir, "override.hcl", "section {\n  OTHER = \"x\"\n}\n")

	_, err := Load(def, override)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestOverrideUnknownSection(t *testing.T) {
	config := New(Sections{"section": {"KEY": "1"}})

	err := config.Merge(Sections{"other": {"KEY": "2"}})
	assert.True(t, errors.Is(err, ErrInvalidSection))

	err = config.Set("section", "missing", "2")
	assert.True(t, errors.Is(err, ErrInvalidKey))

	require.NoError(t, config.Set("SECTION", "key", "3"))
	value, _ := config.Get("section", "key")
	assert.Equal(t, "3", value)
}

func TestMissingFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "default.hcl"), "")
	assert.True(t, errors.Is(err, ErrMissing))

	def := writeFile(t, dir, "default.hcl", "section {\n  KEY = \"1\"\n}\n")
	config, err := Load(def, filepath.Join(dir, "missing.hcl"))
	require.NoError(t, err)
	assert.Empty(t, config.Override)

	value, _ := config.Get("section", "KEY")
	assert.Equal(t, "1", value)
}

func TestEnvironmentExpansion(t *testing.T) {
	t.Setenv("JARVIS_TEST_ROOT", "/scratch")
	dir := t.TempDir()

	def := writeFile(t, dir, "default.hcl", `
paths {
  A = "$JARVIS_TEST_ROOT/a"
  B = "${JARVIS_TEST_ROOT}/b"
  C = "${env.JARVIS_TEST_ROOT}/c"
}
`)
	config, err := Load(def, "")
	require.NoError(t, err)

	section, err := config.Section("paths")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"A": "/scratch/a",
		"B": "/scratch/b",
		"C": "/scratch/c",
	}, section)

	toml := writeFile(t, dir, "default.toml", "[paths]\na = \"${JARVIS_TEST_ROOT}/a\"\n")
	config, err = Load(toml, "")
	require.NoError(t, err)
	value, _ := config.Get("paths", "A")
	assert.Equal(t, "/scratch/a", value)
}

func TestExpansionKeepsShellReferences(t *testing.T) {
	t.Setenv("JARVIS_TEST_ROOT", "/scratch")
	require.NoError(t, os.Unsetenv("JARVIS_TEST_UNSET"))

	const cmd = `awk '{print $1}' f; for h in a b; do echo $h; done`

	hclSections, err := Parse([]byte(`
service {
  START_CMD = "awk '{print $1}' f; for h in a b; do echo $h; done"
  PASSWORD  = "pa$$w0rd"
  PATH      = "$JARVIS_TEST_ROOT/$JARVIS_TEST_UNSET/$$JARVIS_TEST_ROOT"
}
`), "default.hcl")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"START_CMD": cmd,
		"PASSWORD":  "pa$$w0rd",
		"PATH":      "/scratch/$JARVIS_TEST_UNSET/$$JARVIS_TEST_ROOT",
	}, hclSections["service"])

	tomlSections, err := Parse([]byte(`
[service]
start_cmd = "awk '{print $1}' f; for h in a b; do echo $h; done"
password = "pa$$w0rd"
path = "${JARVIS_TEST_ROOT}/${JARVIS_TEST_UNSET}"
`), "default.toml")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"START_CMD": cmd,
		"PASSWORD":  "pa$$w0rd",
		"PATH":      "/scratch/${JARVIS_TEST_UNSET}",
	}, tomlSections["service"])

	config := New(hclSections)
	require.NoError(t, config.Set("service", "start_cmd", "echo $h ${JARVIS_TEST_ROOT}"))
	value, _ := config.Get("service", "START_CMD")
	assert.Equal(t, "echo $h /scratch", value)
}

func TestValueTypes(t *testing.T) {
	sections, err := Parse([]byte(`
exec {
  RETRIES = 3
  SUDO    = true
  CPUS    = [0, 1]
  HOSTS   = ["node 1", "node2"]
}
`), "default.hcl")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"RETRIES": "3",
		"SUDO":    "true",
		"CPUS":    "0 1",
		"HOSTS":   "'node 1' node2",
	}, sections["exec"])

	sections, err = Parse([]byte("[exec]\nretries = 3\nsudo = true\ncpus = [0, 1]\n"), "x.toml")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"RETRIES": "3", "SUDO": "true", "CPUS": "0 1"}, sections["exec"])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"default.hcl", "KEY = \"1\"\n"},
		{"default.hcl", "section \"label\" {\n}\n"},
		{"default.hcl", "section {\n  inner {\n  }\n}\n"},
		{"default.hcl", "section {\n  KEY = \n"},
		{"default.toml", "key = \"1\"\n"},
		{"default.ini", "[section]\n"},
	}

	for _, test := range tests {
		_, err := Parse([]byte(test.data), test.name)
		assert.Error(t, err, test.data)
	}
}

type execSection struct {
	Retries  int      `cty:"RETRIES"`
	Delay    float64  `cty:"DELAY"`
	Sudo     bool     `cty:"SUDO"`
	Affinity []int    `cty:"AFFINITY"`
	Hosts    []string `cty:"HOSTS"`
	Dir      string   `cty:"DIR"`
}

func TestDecode(t *testing.T) {
	config := New(Sections{"exec": {
		"RETRIES":  "3",
		"DELAY":    "0.5",
		"SUDO":     "",
		"AFFINITY": "0 2",
		"HOSTS":    "'node 1' node2",
		"DIR":      "/opt",
		"UNUSED":   "x",
	}})

	var out execSection
	require.NoError(t, config.Decode("exec", &out))
	assert.Equal(t, execSection{
		Retries:  3,
		Delay:    0.5,
		Sudo:     false,
		Affinity: []int{0, 2},
		Hosts:    []string{"node 1", "node2"},
		Dir:      "/opt",
	}, out)

	require.NoError(t, config.Set("exec", "RETRIES", "many"))
	err := config.Decode("exec", &out)
	assert.True(t, errors.Is(err, ErrInvalidType))

	err = config.Decode("missing", &out)
	assert.True(t, errors.Is(err, ErrInvalidSection))

	config = New(Sections{"exec": {"RETRIES": "1"}})
	err = config.Decode("exec", &out)
	assert.True(t, errors.Is(err, ErrInvalidKey))
}
