package hosts

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var rangeRegexp = regexp.MustCompile(`^([^\[]*)\[([^\]]*)\](.*)$`)

// MaxExpansion bounds the number of hosts a single name may expand to.
const MaxExpansion = 65536

// Parse reads a hostfile: one host per line, '#' starts a comment, and a
// bracketed range such as node[01-04,7] expands to several hosts.
func Parse(text string) (Hosts, error) {
	names := []string{}
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.SplitN(line, "#", 2)[0])
		if line == "" {
			continue
		}

		for _, field := range strings.Fields(line) {
			expanded, err := Expand(field)
			if err != nil {
				return Hosts{}, errors.Wrapf(err, "line %d", i+1)
			}
			names = append(names, expanded...)
		}
	}
	return New(names...), nil
}

func Load(path string) (Hosts, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return Hosts{}, errors.WithStack(err)
	}

	h, err := Parse(string(data))
	if err != nil {
		return Hosts{}, errors.Wrap(err, path)
	}
	return h, nil
}

// Expand expands every bracketed range in name.
func Expand(name string) ([]string, error) {
	m := rangeRegexp.FindStringSubmatch(name)
	if m == nil {
		if strings.ContainsAny(name, "[]") {
			return nil, errors.Errorf("%s: unbalanced brackets", name)
		}
		return []string{name}, nil
	}

	prefix, spec, rest := m[1], m[2], m[3]
	suffixes, err := Expand(rest)
	if err != nil {
		return nil, err
	}

	out := []string{}
	for _, part := range strings.Split(spec, ",") {
		ids, err := expandRange(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		for _, id := range ids {
			if len(out)+len(suffixes) > MaxExpansion {
				return nil, errors.Errorf("%s: expands to more than %d hosts", name, MaxExpansion)
			}
			for _, suffix := range suffixes {
				out = append(out, prefix+id+suffix)
			}
		}
	}
	return out, nil
}

func expandRange(part string) ([]string, error) {
	bounds := strings.SplitN(part, "-", 2)
	if len(bounds) == 1 {
		if bounds[0] == "" {
			return nil, errors.Errorf("empty range")
		}
		return bounds, nil
	}

	first, err := strconv.Atoi(bounds[0])
	if err != nil {
		return nil, errors.Errorf("invalid range start %q", bounds[0])
	}
	last, err := strconv.Atoi(bounds[1])
	if err != nil {
		return nil, errors.Errorf("invalid range end %q", bounds[1])
	}
	if last < first {
		return nil, errors.Errorf("invalid range %s", part)
	}
	if last-first >= MaxExpansion {
		return nil, errors.Errorf("range %s has more than %d hosts", part, MaxExpansion)
	}

	width := 0
	if strings.HasPrefix(bounds[0], "0") && len(bounds[0]) > 1 {
		width = len(bounds[0])
	}

	out := make([]string, 0, last-first+1)
	for i := first; i <= last; i++ {
		out = append(out, fmt.Sprintf("%0*d", width, i))
	}
	return out, nil
}
