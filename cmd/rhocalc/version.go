package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gitrdm/rhokando/pkg/rhocalc"
)

func newVersionCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of rhocalc",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			info := rhocalc.GetVersionInfo()
			fmt.Fprintf(stdout, "Version: %s\n", info.Version)
			fmt.Fprintf(stdout, "Go Version: %s\n", info.GoVersion)
			if info.GitCommit != "" {
				fmt.Fprintf(stdout, "Git Commit: %s\n", info.GitCommit)
			}
			if info.BuildDate != "" {
				fmt.Fprintf(stdout, "Build Date: %s\n", info.BuildDate)
			}
		},
	}
}
