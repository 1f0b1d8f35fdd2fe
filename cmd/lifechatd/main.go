package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/matheus3301/lifechat/internal/daemon"
	"github.com/matheus3301/lifechat/internal/instance"
)

func main() {
	instanceFlag := flag.String("instance", "", "instance name (overrides config default)")
	debugFlag := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	name := instance.Resolve(*instanceFlag)
	if err := instance.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{InstanceName: name, Debug: *debugFlag}),
		fx.NopLogger,
	)

	app.Run()
}
