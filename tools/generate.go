//go:build generate

package main

import (
	"encoding/json"
	"os"
	"os/exec"
	"strings"

	"github.com/illikainen/go-utils/src/errorx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func main() {
	err := writeMetadata("src/metadata/metadata.json")
	if err != nil {
		log.Fatalf("%s", err)
	}
}

type metadata struct {
	Name    string
	Version string
	Commit  string
	Branch  string
}

// git returns the trimmed output of a git command, or an empty string
// outside of a checkout.
func git(args ...string) string {
	out, err := exec.Command("git", args...).Output() // #nosec G204
	if err != nil {
		log.Warnf("git %s: %s", strings.Join(args, " "), err)
		return ""
	}
	return strings.Trim(string(out), "\r\n")
}

func writeMetadata(file string) (err error) {
	data, err := json.MarshalIndent(metadata{
		Name:    "jarvis",
		Version: "0.0.0",
		Commit:  git("rev-parse", "HEAD"),
		Branch:  git("rev-parse", "--abbrev-ref", "HEAD"),
	}, "", "    ")
	if err != nil {
		return err
	}

	f, err := os.Create(file) // #nosec G304
	if err != nil {
		return err
	}
	defer errorx.Defer(f.Close, &err)

	data = append(data, '\n')
	n, err := f.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return errors.Errorf("invalid write")
	}

	return nil
}
