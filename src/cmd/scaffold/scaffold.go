package scaffoldcmd

import (
	"fmt"

	rootcmd "github.com/jarvis-cd/jarvis/src/cmd/root"
	"github.com/jarvis-cd/jarvis/src/launcher"

	"github.com/spf13/cobra"
)

var command = &cobra.Command{
	Use:   "scaffold <package>",
	Short: "Write the default configuration of a package",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

var options struct {
	*rootcmd.Options
	provider string
	force    bool
}

func Command(opts *rootcmd.Options) *cobra.Command {
	options.Options = opts
	return command
}

func init() {
	flags := command.Flags()
	flags.SortFlags = false

	flags.StringVarP(&options.provider, "type", "t", "service", "Package type")
	flags.BoolVarP(&options.force, "force", "f", false, "Overwrite an existing configuration")
}

func run(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	provider, err := launcher.Lookup(options.provider)
	if err != nil {
		return err
	}

	path, err := launcher.Scaffold(options.Env, args[0], provider, options.force)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
	return err
}
