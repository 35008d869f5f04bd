package embeds

import (
	"embed"
	"io/fs"
	"path"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

//go:embed files/packages
var packages embed.FS

// ReadPackageConfig returns the default configuration shipped for a
// package type.
func ReadPackageConfig(typ string, name string) ([]byte, error) {
	log.Debugf("embeds: reading %s for %s", name, typ)

	data, err := fs.ReadFile(packages, path.Join("files", "packages", typ, name))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}
