package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/rhokando/pkg/datalog"
	"github.com/gitrdm/rhokando/pkg/rho"
	"github.com/gitrdm/rhokando/pkg/rhocalc"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand(&stdout, &stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "Version: "+rhocalc.Version)
	require.Contains(t, out, "Go Version: ")
}

func TestGenerateCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "enumerate",
			args: []string{"generate", "--depth", "1", "--vars", "a"},
			want: []string{"0", "*a", "a!(0)", "for(a->x0){0}", "0 | 0"},
		},
		{
			name: "no variables",
			args: []string{"generate", "--depth", "1", "--vars", ""},
			want: []string{"0", "0 | 0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.NoError(t, err)
			require.Equal(t, tt.want, strings.Split(strings.TrimSpace(out), "\n"))
		})
	}
}

func TestGenerateCommand_Random(t *testing.T) {
	first, _, err := execute(t, "generate", "--random", "--depth", "4", "--seed", "7")
	require.NoError(t, err)
	second, _, err := execute(t, "generate", "--random", "--depth", "4", "--seed", "7")
	require.NoError(t, err)
	require.Equal(t, first, second)

	p, err := rho.ParseProc(strings.TrimSpace(first))
	require.NoError(t, err)
	require.Equal(t, 4, p.Depth())
}

func TestRunCommand(t *testing.T) {
	out, _, err := execute(t, "run", "a!(0) | for(a->x){*x}")
	require.NoError(t, err)
	require.Contains(t, out, "seed: a!(0) | for(a->x){*x}")
	for _, name := range rhocalc.Reported {
		require.Contains(t, out, name)
	}
	require.Contains(t, out, "normal forms reachable from the seed:\n  0\n")
	require.NotContains(t, out, "counts are partial")
}

func TestRunCommand_RandomSeed(t *testing.T) {
	out, _, err := execute(t, "run", "--depth", "2", "--seed", "1", "--vars", "a")
	require.NoError(t, err)
	require.Contains(t, out, "seed: ")
}

func TestRunCommand_ParseError(t *testing.T) {
	_, _, err := execute(t, "run", "a!(")
	var perr *rho.ParseError
	require.True(t, errors.As(err, &perr))
}

func TestRunCommand_Budget(t *testing.T) {
	out, _, err := execute(t, "run", "--max-facts", "4", "a!(0) | for(a->x){*x}")
	require.True(t, errors.Is(err, datalog.ErrBudgetExceeded))
	require.Contains(t, out, "evaluation stopped early; counts are partial")
}

func TestRunCommand_Metrics(t *testing.T) {
	out, _, err := execute(t, "run", "--metrics", "--parallelism", "2", "a!(0) | for(a->x){*x}")
	require.NoError(t, err)
	require.Contains(t, out, "datalog.rounds")
	require.Contains(t, out, "datalog.scc")
}

func TestEnvironmentVariables(t *testing.T) {
	t.Run("subcommand flag", func(t *testing.T) {
		t.Setenv("RHOCALC_GENERATE_DEPTH", "0")
		out, _, err := execute(t, "generate")
		require.NoError(t, err)
		require.Equal(t, "0", strings.TrimSpace(out))
	})

	t.Run("command line wins", func(t *testing.T) {
		t.Setenv("RHOCALC_GENERATE_DEPTH", "0")
		out, _, err := execute(t, "generate", "--depth", "1", "--vars", "")
		require.NoError(t, err)
		require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
	})

	t.Run("global flag", func(t *testing.T) {
		t.Setenv("RHOCALC_LOG_LEVEL", "debug")
		_, stderr, err := execute(t, "run", "0")
		require.NoError(t, err)
		require.Contains(t, stderr, "evaluating component")
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("RHOCALC_GENERATE_DEPTH", "deep")
		_, _, err := execute(t, "generate")
		require.Error(t, err)
		require.Contains(t, err.Error(), "error mapping environment variables")
	})
}
