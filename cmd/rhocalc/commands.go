package main

import (
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

type rootParams struct {
	logLevel string
	logger   hclog.Logger
}

// newRootCommand builds the command tree writing to stdout and stderr.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	params := &rootParams{}
	root := &cobra.Command{
		Use:          globalPrefix,
		Short:        "Compute equational theory and reductions of rho-calculus terms",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkEnvironmentVariables(cmd); err != nil {
				return err
			}
			params.logger = hclog.New(&hclog.LoggerOptions{
				Name:   globalPrefix,
				Level:  hclog.LevelFromString(params.logLevel),
				Output: stderr,
			})
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&params.logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error")

	root.AddCommand(newRunCommand(params, stdout))
	root.AddCommand(newGenerateCommand(params, stdout))
	root.AddCommand(newVersionCommand(stdout))
	return root
}
