package main

import (
	"github.com/spf13/cobra"
)

var (
	flagDepth   int
	flagReverse bool
)

func init() {
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(transitiveCmd)

	transitiveCmd.Flags().IntVar(&flagDepth, "depth", 5, "maximum hops from the file (capped at 100)")
	transitiveCmd.Flags().BoolVar(&flagReverse, "reverse", false, "follow dependents instead of dependencies")
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Directory dependency graph and import cycles",
	Long:  "Aggregates resolved file imports into directory-level edges, with file and line counts per directory, and lists directory cycles.",
	Args:  cobra.NoArgs,
	RunE:  runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	e, err := openIndex()
	if err != nil {
		return outputError(cmd, "graph", err)
	}
	defer e.Close()

	qb := e.Query()
	g, err := qb.DirectoryDependencyGraph()
	if err != nil {
		return outputError(cmd, "graph", err)
	}
	cycles, err := qb.CircularDependencies()
	if err != nil {
		return outputError(cmd, "graph", err)
	}
	return outputResult(cmd, CLIResult{
		Command: "graph",
		Results: CLIDirectoryGraph{
			Directories: g.Directories,
			Edges:       g.Edges,
			Cycles:      cycles,
		},
	})
}

var transitiveCmd = &cobra.Command{
	Use:   "transitive <file>",
	Short: "Files reachable from a file through resolved imports",
	Args:  cobra.ExactArgs(1),
	RunE:  runTransitive,
}

func runTransitive(cmd *cobra.Command, args []string) error {
	e, err := openIndex()
	if err != nil {
		return outputError(cmd, "transitive", err)
	}
	defer e.Close()

	p, err := requireFile(e, args[0])
	if err != nil {
		return outputError(cmd, "transitive", err)
	}
	qb := e.Query()
	query := qb.TransitiveDependencies
	if flagReverse {
		query = qb.TransitiveDependents
	}
	g, err := query(p, flagDepth)
	if err != nil {
		return outputError(cmd, "transitive", err)
	}
	if g == nil {
		return outputResult(cmd, CLIResult{Command: "transitive"})
	}
	return outputResult(cmd, CLIResult{Command: "transitive", Results: g})
}
