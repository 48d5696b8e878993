package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gitrdm/rhokando/pkg/nominal"
	"github.com/gitrdm/rhokando/pkg/rho"
)

type generateParams struct {
	depth  int
	vars   []string
	random bool
	seed   uint64
}

func newGenerateCommand(root *rootParams, stdout io.Writer) *cobra.Command {
	params := &generateParams{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print every term up to a depth, or one random term",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return generate(root, params, stdout)
		},
	}
	cmd.Flags().IntVar(&params.depth, "depth", 2, "maximum depth (exact depth with --random)")
	cmd.Flags().StringSliceVar(&params.vars, "vars", []string{"a"}, "name variables")
	cmd.Flags().BoolVar(&params.random, "random", false, "sample one term instead of enumerating")
	cmd.Flags().Uint64Var(&params.seed, "seed", 42, "random seed")
	return cmd
}

func generate(root *rootParams, params *generateParams, stdout io.Writer) error {
	alloc := nominal.NewAllocator()
	vars := rho.FreshVars(alloc, params.vars...)
	opts := []rho.Option{rho.WithAllocator(alloc), rho.WithLogger(root.logger)}

	if params.random {
		p, err := rho.GenerateRandomAtDepthWithSeed(vars, params.depth, params.seed, opts...)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, p)
		return nil
	}
	for _, p := range rho.GenerateTerms(vars, params.depth, opts...) {
		fmt.Fprintln(stdout, p)
	}
	return nil
}
