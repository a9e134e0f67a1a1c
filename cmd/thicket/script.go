package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor/object"
	"github.com/spf13/cobra"

	"github.com/jward/thicket/internal/runtime"
	"github.com/jward/thicket/internal/store"
	"github.com/jward/thicket/scripts"
)

func init() {
	rootCmd.AddCommand(scriptCmd)
}

var scriptCmd = &cobra.Command{
	Use:   "script <file.risor|name> [args...]",
	Short: "Run a Risor script against the index",
	Long: `Runs a Risor script with the index exposed as globals (files, chunks,
chunk_at, dependencies, dependents, edges, resolve_import, db_query) next to
the parsing helpers (parse, query, chunk_source, extract_imports, log).
Remaining arguments are available as the list "args". The value of the
script's last expression is printed in --format.

A name without a matching file runs a bundled query: summary, hotspots, or
outline <file>.

Without an index only the parsing helpers are defined.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScript,
}

func runScript(cmd *cobra.Command, args []string) error {
	scriptPath, err := filepath.Abs(args[0])
	if err != nil {
		return outputError(cmd, "script", fmt.Errorf("resolving script path: %w", err))
	}
	var rtOpts []runtime.RuntimeOption
	scriptsDir := filepath.Dir(scriptPath)
	if !scriptExists(scriptPath) {
		bundled, ok := scripts.Path(args[0])
		if !ok {
			return outputError(cmd, "script", fmt.Errorf("script not found: %s (bundled: %s)",
				scriptPath, strings.Join(scripts.Names(), ", ")))
		}
		scriptPath, scriptsDir = bundled, ""
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(scripts.FS))
	}

	var (
		s    *store.Store
		root string
	)
	e, err := openIndex()
	if err == nil {
		defer e.Close()
		s = e.Store()
		root = e.Root()
	} else {
		logger.WithError(err).Debug("running script without an index")
	}

	rtOpts = append(rtOpts, runtime.WithLogger(logger))
	rt := runtime.NewRuntime(s, scriptsDir, rtOpts...)

	scriptArgs := make([]object.Object, 0, len(args)-1)
	for _, a := range args[1:] {
		scriptArgs = append(scriptArgs, object.NewString(a))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	value, err := rt.EvalScript(ctx, scriptPath, map[string]any{
		"root": root,
		"args": object.NewList(scriptArgs),
	})
	if err != nil {
		return outputError(cmd, "script", err)
	}

	// Text output prints strings as-is and everything else as JSON.
	if flagFormat == "text" {
		if _, ok := value.(string); !ok && value != nil {
			data, err := json.MarshalIndent(value, "", "  ")
			if err != nil {
				return outputError(cmd, "script", err)
			}
			value = string(data)
		}
	}
	return outputResult(cmd, CLIResult{Command: "script", Results: value})
}

// scriptExists reports whether path names a regular file.
func scriptExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
