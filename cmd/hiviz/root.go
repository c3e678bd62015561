package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var setFlags []string

	ctx := newCommandContext(&configFlag, &setFlags)

	rootCmd := &cobra.Command{
		Use:           "hiviz",
		Short:         "Emit, inspect and exercise hiviz logging",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file (.toml, .yaml or .json); defaults to the environment")
	rootCmd.PersistentFlags().StringArrayVar(&setFlags, "set", nil, "Option override as key=value, e.g. --set term_level=debug (repeatable)")

	rootCmd.AddCommand(newEmitCommand(ctx))
	rootCmd.AddCommand(newDemoCommand(ctx))
	rootCmd.AddCommand(newEnvCommand(ctx))

	return rootCmd
}
