package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	metrics "github.com/hashicorp/go-metrics"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gitrdm/rhokando/pkg/datalog"
	"github.com/gitrdm/rhokando/pkg/rho"
	"github.com/gitrdm/rhokando/pkg/rhocalc"
)

type runParams struct {
	depth       int
	seed        uint64
	vars        []string
	maxFacts    int
	maxRounds   int
	parallelism int
	timeout     time.Duration
	paranoid    bool
	metrics     bool
}

func newRunCommand(root *rootParams, stdout io.Writer) *cobra.Command {
	defaults := datalog.DefaultConfig()
	params := &runParams{}
	cmd := &cobra.Command{
		Use:   "run [term]",
		Short: "Evaluate a term, or a random term when none is given",
		Long: `Evaluate the rho-calculus theory from one seed term and print the size of
every derived relation and the normal forms reachable from the seed.

Without a term argument the seed is sampled at --depth from --seed over the
name variables in --vars.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.Context(), root, params, args, stdout)
		},
	}
	cmd.Flags().IntVar(&params.depth, "depth", 3, "depth of the random seed term")
	cmd.Flags().Uint64Var(&params.seed, "seed", 42, "random seed for the seed term")
	cmd.Flags().StringSliceVar(&params.vars, "vars", []string{"a", "b"}, "name variables of the random seed term")
	cmd.Flags().IntVar(&params.maxFacts, "max-facts", defaults.MaxFacts, "fact budget (0 = unlimited)")
	cmd.Flags().IntVar(&params.maxRounds, "max-rounds", defaults.MaxRounds, "round limit per component (0 = unlimited)")
	cmd.Flags().IntVar(&params.parallelism, "parallelism", defaults.Parallelism, "workers per round")
	cmd.Flags().DurationVar(&params.timeout, "timeout", 0, "wall-clock limit for the evaluation (0 = none)")
	cmd.Flags().BoolVar(&params.paranoid, "paranoid", false, "check every index after each component")
	cmd.Flags().BoolVar(&params.metrics, "metrics", false, "print engine metrics")
	return cmd
}

func runEval(ctx context.Context, root *rootParams, params *runParams, args []string, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var sink *metrics.InmemSink
	if params.metrics {
		sink = metrics.NewInmemSink(time.Hour, time.Hour)
		conf := metrics.DefaultConfig(globalPrefix)
		conf.EnableHostname = false
		conf.EnableRuntimeMetrics = false
		if _, err := metrics.NewGlobal(conf, sink); err != nil {
			return fmt.Errorf("installing metrics sink: %w", err)
		}
	}

	calc, err := rhocalc.New(&datalog.Config{
		MaxFacts:    params.maxFacts,
		MaxRounds:   params.maxRounds,
		Parallelism: params.parallelism,
		Paranoid:    params.paranoid,
		Logger:      root.logger,
	})
	if err != nil {
		return err
	}

	var seed rho.Proc
	if len(args) == 1 {
		seed, err = rho.ParseProc(args[0], rho.WithAllocator(calc.Allocator()))
	} else {
		vars := rho.FreshVars(calc.Allocator(), params.vars...)
		seed, err = rho.GenerateRandomAtDepthWithSeed(vars, params.depth, params.seed,
			rho.WithAllocator(calc.Allocator()), rho.WithLogger(root.logger))
	}
	if err != nil {
		return err
	}

	if params.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.timeout)
		defer cancel()
	}
	res, err := calc.Evaluate(ctx, seed)
	if res == nil {
		return err
	}

	fmt.Fprintf(stdout, "seed: %s\n", seed)
	printCounts(stdout, res)
	if nfs := res.PathFull(); len(nfs) > 0 {
		fmt.Fprintln(stdout, "normal forms reachable from the seed:")
		for _, p := range nfs {
			fmt.Fprintf(stdout, "  %s\n", p)
		}
	}
	if sink != nil {
		printMetrics(stdout, sink)
	}
	if errors.Is(err, datalog.ErrBudgetExceeded) || errors.Is(err, datalog.ErrRoundLimit) {
		fmt.Fprintln(stdout, "evaluation stopped early; counts are partial")
	}
	return err
}

func printCounts(w io.Writer, res *rhocalc.Result) {
	counts := res.Counts()
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Relation", "Facts"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, name := range rhocalc.Reported {
		table.Append([]string{name, strconv.Itoa(counts[name])})
	}
	table.Render()
}

func printMetrics(w io.Writer, sink *metrics.InmemSink) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Count", "Sum"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	var lines [][]string
	for _, interval := range sink.Data() {
		for name, v := range interval.Counters {
			lines = append(lines, []string{name, strconv.Itoa(v.Count), strconv.FormatFloat(v.Sum, 'f', 0, 64)})
		}
		for name, v := range interval.Samples {
			lines = append(lines, []string{name, strconv.Itoa(v.Count), strconv.FormatFloat(v.Sum, 'f', 3, 64) + "ms"})
		}
	}
	slices.SortFunc(lines, func(a, b []string) int { return strings.Compare(a[0], b[0]) })
	table.AppendBulk(lines)
	table.Render()
}
