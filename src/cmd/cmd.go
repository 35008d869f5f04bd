package cmd

import (
	copycmd "github.com/jarvis-cd/jarvis/src/cmd/copy"
	execcmd "github.com/jarvis-cd/jarvis/src/cmd/exec"
	phasecmd "github.com/jarvis-cd/jarvis/src/cmd/phase"
	rootcmd "github.com/jarvis-cd/jarvis/src/cmd/root"
	scaffoldcmd "github.com/jarvis-cd/jarvis/src/cmd/scaffold"
	"github.com/jarvis-cd/jarvis/src/launcher"

	// Package types.
	_ "github.com/jarvis-cd/jarvis/src/packages/service"

	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	c, opts := rootcmd.Command()
	for _, phase := range launcher.Phases() {
		c.AddCommand(phasecmd.Command(opts, phase))
	}
	c.AddCommand(execcmd.Command(opts))
	c.AddCommand(copycmd.Command(opts))
	c.AddCommand(scaffoldcmd.Command(opts))
	return c
}
