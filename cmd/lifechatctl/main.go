package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matheus3301/lifechat/internal/client"
	"github.com/matheus3301/lifechat/internal/instance"
)

type globalFlags struct {
	instance string
	json     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "lifechatctl",
		Short:         "Control a running lifechat daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.instance, "instance", "", "instance name (overrides config default)")
	root.PersistentFlags().BoolVar(&g.json, "json", false, "output in JSON format")

	root.AddCommand(
		newStatusCmd(g),
		newSendCmd(g),
		newConnectCmd(g),
		newFocusCmd(g),
		newUnfocusCmd(g),
		newRepliesCmd(g),
		newSuggestCmd(g),
		newRelationshipCmd(g),
		newAdminCmd(g),
	)
	return root
}

// resolveInstance returns the validated instance name.
func (g *globalFlags) resolveInstance() (string, error) {
	name := instance.Resolve(g.instance)
	if err := instance.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// dial connects to the instance daemon.
func (g *globalFlags) dial() (*client.Client, error) {
	name, err := g.resolveInstance()
	if err != nil {
		return nil, err
	}
	c, err := client.New(instance.SocketPath(name))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to daemon for instance %q: %w", name, err)
	}
	return c, nil
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
