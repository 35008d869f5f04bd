package launcher

import (
	"os"
	"path/filepath"

	"github.com/jarvis-cd/jarvis/src/metadata"

	"github.com/pkg/errors"
)

// Env holds the paths shared by every launcher of a process.
type Env struct {
	// PackagesDir holds one directory per package with its default
	// configuration.
	PackagesDir string

	// TmpDir is the parent of the scratch directory of each launcher.
	TmpDir string

	DryRun bool
}

func DefaultEnv() (Env, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return Env{}, errors.WithStack(err)
	}

	return Env{
		PackagesDir: filepath.Join(dir, metadata.Name(), "packages"),
		TmpDir:      filepath.Join(os.TempDir(), metadata.Name()),
	}, nil
}

func (e Env) Validate() error {
	if e.PackagesDir == "" {
		return errors.Errorf("no packages directory")
	}
	if e.TmpDir == "" {
		return errors.Errorf("no temporary directory")
	}
	return nil
}

// PackageDir is the directory with the configuration of a package.
func (e Env) PackageDir(name string) string {
	return filepath.Join(e.PackagesDir, name)
}
