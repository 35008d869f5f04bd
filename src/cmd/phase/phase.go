package phasecmd

import (
	"fmt"
	"os"

	rootcmd "github.com/jarvis-cd/jarvis/src/cmd/root"
	"github.com/jarvis-cd/jarvis/src/launcher"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var descriptions = map[launcher.Phase]string{
	launcher.Init:    "Deploy and initialize a package",
	launcher.Start:   "Start a package",
	launcher.Stop:    "Stop a package",
	launcher.Clean:   "Remove the data of a package",
	launcher.Restart: "Stop and start a package",
	launcher.Reset:   "Stop, clean, initialize and start a package",
	launcher.Status:  "Show the status of a package",
	launcher.Setup:   "Initialize and start a package",
}

type options struct {
	*rootcmd.Options
	phase    launcher.Phase
	provider string
	config   string
}

// Command returns the subcommand that runs one lifecycle phase of a
// package.
func Command(opts *rootcmd.Options, phase launcher.Phase) *cobra.Command {
	o := &options{Options: opts, phase: phase}

	command := &cobra.Command{
		Use:   fmt.Sprintf("%s <package>", phase),
		Short: descriptions[phase],
		Args:  cobra.ExactArgs(1),
		RunE:  o.run,
	}

	flags := command.Flags()
	flags.SortFlags = false

	flags.StringVarP(&o.config, "config", "c", "", "Override configuration (HCL or TOML)")
	flags.StringVarP(&o.provider, "type", "t", "service", "Package type")

	return command
}

func (o *options) run(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	provider, err := launcher.Lookup(o.provider)
	if err != nil {
		return err
	}

	l, err := launcher.New(o.Env, args[0], provider, o.config)
	if err != nil {
		return err
	}

	results, err := l.Run(cmd.Context(), o.phase)
	if printErr := results.Print(os.Stdout); printErr != nil {
		return printErr
	}
	if err != nil {
		return err
	}

	if failed := results.Failed(); len(failed) != 0 {
		return errors.Errorf("%s: %s: %d task(s) failed", args[0], o.phase, len(failed))
	}
	return nil
}
