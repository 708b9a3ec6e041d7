// Command pasteboard publishes, consumes and hands off Task and Note records
// between applications through named slots.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "pasteboard",
		Short:         "Hand tasks and notes to Appigo Todo and Notebook",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")

	open := func(cmd *cobra.Command) (*app, error) { return openApp(cmd, configPath) }
	root.AddCommand(publishCmd(open))
	root.AddCommand(consumeCmd(open))
	root.AddCommand(probeCmd(open))
	root.AddCommand(handoffCmd(open))
	root.AddCommand(renderCmd())
	return root
}
