package execcmd

import (
	"os"

	rootcmd "github.com/jarvis-cd/jarvis/src/cmd/root"
	"github.com/jarvis-cd/jarvis/src/process"
	"github.com/jarvis-cd/jarvis/src/tasks/exec"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var command = &cobra.Command{
	Use:   "exec [flags] -- <command>...",
	Short: "Run a command on every host in parallel",
	Args:  cobra.MinimumNArgs(1),
	RunE:  run,
}

var options struct {
	*rootcmd.Options
	remote     rootcmd.Remote
	loginShell bool
	affinity   []int
	dir        string
}

func Command(opts *rootcmd.Options) *cobra.Command {
	options.Options = opts
	return command
}

func init() {
	flags := command.Flags()
	flags.SortFlags = false

	options.remote.AddFlags(flags)
	flags.BoolVarP(&options.loginShell, "login-shell", "l", false, "Run through a login shell")
	flags.IntSliceVarP(&options.affinity, "affinity", "a", nil, "Pin the command to these CPUs")
	flags.StringVarP(&options.dir, "dir", "C", "", "Working directory")
}

func run(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	h, ssh, err := options.remote.Resolve()
	if err != nil {
		return err
	}

	// A single argument is a shell script, several are an argv.
	c := process.Shell(args[0])
	if len(args) > 1 {
		c = process.Args(args...)
	}

	policy := options.remote.Policy()
	policy.LoginShell = options.loginShell
	policy.Affinity = options.affinity
	policy.Dir = options.dir

	task, err := exec.New(c, &exec.Options{
		Hosts:  h,
		SSH:    ssh,
		Policy: policy,
		DryRun: options.Env.DryRun,
	})
	if err != nil {
		return err
	}

	outs, err := task.Run(cmd.Context())
	if err != nil {
		return err
	}

	err = outs.Print(os.Stdout)
	if err != nil {
		return err
	}

	if failed := outs.Failed(); len(failed) != 0 {
		return errors.Errorf("%s: failed on %d host(s)", task.Name(), len(failed))
	}
	return nil
}
