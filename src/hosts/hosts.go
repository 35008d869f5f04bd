package hosts

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Local is the pseudo-host for the machine running jarvis.
const Local = "localhost"

// Hosts is an ordered set of host names with an optional alias table that
// maps names onto a canonical form.  The zero value is an empty set.
type Hosts struct {
	names   []string
	aliases map[string]string
}

func New(names ...string) Hosts {
	h := Hosts{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" && !lo.Contains(h.names, name) {
			h.names = append(h.names, name)
		}
	}
	return h
}

func Localhost() Hosts {
	return New(Local)
}

// WithAliases returns a copy of the set where every key of aliases resolves
// to its value.
func (h Hosts) WithAliases(aliases map[string]string) Hosts {
	out := Hosts{
		names:   h.List(),
		aliases: lo.Assign(h.aliases, aliases),
	}
	return out
}

// WithLocalAliases maps the loopback addresses and the hostname of this
// machine onto Local.
func (h Hosts) WithLocalAliases() Hosts {
	aliases := map[string]string{
		"127.0.0.1": Local,
		"::1":       Local,
	}
	if name, err := os.Hostname(); err == nil && name != "" {
		aliases[name] = Local
	}
	return h.WithAliases(aliases)
}

func (h Hosts) List() []string {
	return append([]string{}, h.names...)
}

func (h Hosts) Len() int {
	return len(h.names)
}

func (h Hosts) Canonical(name string) string {
	seen := []string{}
	for {
		alias, ok := h.aliases[name]
		if !ok || alias == name || lo.Contains(seen, alias) {
			return name
		}
		seen = append(seen, name)
		name = alias
	}
}

func (h Hosts) IsLocal(name string) bool {
	return h.Canonical(name) == Local
}

func (h Hosts) Contains(name string) bool {
	return lo.Contains(h.names, name)
}

// Without returns a copy of the set with the named hosts removed.
func (h Hosts) Without(names ...string) Hosts {
	return Hosts{
		names: lo.Filter(h.names, func(name string, _ int) bool {
			return !lo.Contains(names, name)
		}),
		aliases: h.aliases,
	}
}

// WithoutLocal removes the local pseudo-host and every alias of it.
func (h Hosts) WithoutLocal() Hosts {
	return Hosts{
		names: lo.Filter(h.names, func(name string, _ int) bool {
			return !h.IsLocal(name)
		}),
		aliases: h.aliases,
	}
}

func (h Hosts) Validate() error {
	if len(h.names) == 0 {
		return errors.Errorf("no hosts")
	}

	seen := []string{}
	for _, name := range h.names {
		if strings.ContainsAny(name, " \t\n") {
			return errors.Errorf("\"%s\" is not a valid host", name)
		}

		canonical := h.Canonical(name)
		if lo.Contains(seen, canonical) {
			return errors.Errorf("\"%s\" is not unique", name)
		}
		seen = append(seen, canonical)
	}
	return nil
}

func (h Hosts) String() string {
	return strings.Join(h.names, ",")
}
