package rootcmd

import (
	"fmt"
	"strings"

	"github.com/jarvis-cd/jarvis/src/launcher"
	"github.com/jarvis-cd/jarvis/src/metadata"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type Options struct {
	Env       launcher.Env
	Verbosity string
}

var options = Options{}

var command = &cobra.Command{
	Use:               metadata.Name(),
	Short:             "Run commands and manage package lifecycles on many hosts",
	Version:           metadata.VersionString(),
	PersistentPreRunE: preRun,
}

func Command() (*cobra.Command, *Options) {
	return command, &options
}

func init() {
	flags := command.PersistentFlags()
	flags.SortFlags = false

	env := lo.Must1(launcher.DefaultEnv())

	flags.StringVarP(&options.Env.PackagesDir, "packages-dir", "", env.PackagesDir,
		"Directory with the configuration of each package")
	flags.StringVarP(&options.Env.TmpDir, "tmp-dir", "", env.TmpDir,
		"Directory for the scratch directory of each package")
	flags.BoolVarP(&options.Env.DryRun, "dry-run", "d", false, "Show what would run without running it")

	levels := []string{}
	for _, level := range log.AllLevels {
		levels = append(levels, level.String())
	}
	flags.StringVarP(&options.Verbosity, "verbosity", "V", "info",
		fmt.Sprintf("Verbosity (%s)", strings.Join(levels, ", ")))

	flags.Bool("help", false, "Help for this command")
}

func preRun(_ *cobra.Command, _ []string) error {
	level, err := log.ParseLevel(options.Verbosity)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	return options.Env.Validate()
}
