package copycmd

import (
	"os"

	rootcmd "github.com/jarvis-cd/jarvis/src/cmd/root"
	"github.com/jarvis-cd/jarvis/src/tasks/transfer"

	"github.com/spf13/cobra"
)

var command = &cobra.Command{
	Use:   "copy [flags] <source>... <destination>",
	Short: "Copy local files and directories to every host",
	Args:  cobra.MinimumNArgs(2),
	RunE:  run,
}

var options struct {
	*rootcmd.Options
	remote rootcmd.Remote
	method string
}

func Command(opts *rootcmd.Options) *cobra.Command {
	options.Options = opts
	return command
}

func init() {
	flags := command.Flags()
	flags.SortFlags = false

	options.remote.AddFlags(flags)
	flags.StringVarP(&options.method, "method", "m", transfer.SFTP,
		"Transfer method for remote hosts (sftp, scp)")
}

func run(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	h, ssh, err := options.remote.Resolve()
	if err != nil {
		return err
	}

	task, err := transfer.New(args[:len(args)-1], args[len(args)-1], &transfer.Options{
		Hosts:  h,
		SSH:    ssh,
		Method: options.method,
		Policy: options.remote.Policy(),
		DryRun: options.Env.DryRun,
	})
	if err != nil {
		return err
	}

	outs, runErr := task.Run(cmd.Context())
	err = outs.Print(os.Stdout)
	if err != nil {
		return err
	}
	return runErr
}
