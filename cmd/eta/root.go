package main

import (
	"strings"

	"github.com/spf13/cobra"

	"eta/internal/logging"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var verbose bool

	ctx := newCommandContext(&configFlag, &verbose)

	rootCmd := &cobra.Command{
		Use:           "eta",
		Short:         "eta data file CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newRecordsCommand(ctx))
	rootCmd.AddCommand(newSequenceCommand(ctx))
	rootCmd.AddCommand(newWeightsCommand(ctx))
	rootCmd.AddCommand(newCatalogCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newTypesCommand())

	for _, sub := range rootCmd.Commands() {
		logFailures(ctx, sub)
	}
	return rootCmd
}

// logFailures wraps every runnable command below cmd so a failure is also
// written to the session log before main prints it.
func logFailures(ctx *commandContext, cmd *cobra.Command) {
	for _, sub := range cmd.Commands() {
		logFailures(ctx, sub)
	}
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		err := run(c, args)
		if err != nil && !shouldSkipConfig(c) {
			logging.ErrorWithContext(ctx.loggerFor(c), "command failed", "command_failed",
				logging.String("args", strings.Join(args, " ")),
				logging.Error(err),
			)
		}
		return err
	}
}
