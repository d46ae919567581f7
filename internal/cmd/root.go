package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the ruid command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ruid",
		Short:         "Unique 64-bit id service",
		Long:          "ruid issues time-ordered 64-bit ids over HTTP and decodes ids it has issued.",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "path to the config file (default /config/config.yaml, ./config/config.yaml when LOCAL=true)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newDecodeCommand())
	root.AddCommand(newLayoutCommand())

	return root
}
