//go:generate go run ./tools/generate.go

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jarvis-cd/jarvis/src/cmd"

	"github.com/fatih/color"
	"github.com/illikainen/go-utils/src/logging"
	"github.com/illikainen/go-utils/src/sandbox"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

func main() {
	color.NoColor = !isatty.IsTerminal(os.Stdout.Fd())
	log.SetOutput(os.Stderr)

	if !sandbox.IsSandboxed() {
		log.SetFormatter(&logging.SanitizedTextFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Command().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Tracef("%+v", err)
		log.Fatalf("%s", err)
	}
}
