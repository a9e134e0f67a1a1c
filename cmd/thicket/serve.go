package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/thicket"
	"github.com/jward/thicket/internal/mcp"
)

var flagNoIndex bool

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&flagNoIndex, "no-index", false, "serve the existing index without refreshing it first")
}

var serveCmd = &cobra.Command{
	Use:   "serve [path]",
	Short: "Serve the index to MCP clients over stdio",
	Long:  "Refreshes the index for path (default: current directory) and serves chunk, dependency and graph tools over the Model Context Protocol on stdin/stdout. Logs go to stderr.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	dbPath := resolveDBPath(findRepoRoot(targetDir))
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	engine, err := thicket.New(dbPath, targetDir, engineOptions(cmd)...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !flagNoIndex {
		if err := engine.IndexDirectory(ctx); err != nil {
			logger.WithError(err).Warn("initial index completed with errors")
		}
		if err := engine.Resolve(ctx); err != nil {
			return fmt.Errorf("resolving: %w", err)
		}
		if err := engine.Store().SetMetadata(rootMetadataKey, engine.Root()); err != nil {
			return fmt.Errorf("recording root: %w", err)
		}
	}

	srv, err := mcp.NewServer(engine, logger)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}
