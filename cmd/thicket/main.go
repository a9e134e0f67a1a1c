package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jward/thicket"
	"github.com/jward/thicket/internal/config"
	"github.com/jward/thicket/internal/store"
)

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagVerbose bool
)

// cfg is the effective configuration: config file and environment,
// overridden by explicitly set flags. Populated in PersistentPreRunE.
var (
	cfg    = config.Default()
	logger = logrus.New()
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "thicket",
	Short:         "Hierarchy-aware code chunking and import graphs",
	Long:          "Thicket chunks source files along their syntactic hierarchy with tree-sitter, resolves file-level imports, and stores both in a SQLite index for queries.",
	Version:       thicket.Version + " (" + store.BuildMode + ")",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .thicket/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text|yaml")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: thicket.yaml in .thicket/, . or ~/.thicket)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging to stderr")

	rootCmd.AddCommand(indexCmd)
}

// loadConfig merges the config file, environment and flags into cfg and
// configures the logger.
func loadConfig(cmd *cobra.Command) error {
	loaded, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		loaded.DB = flagDB
	}
	if flags.Changed("format") {
		loaded.Format = flagFormat
	}
	if err := validateFormat(loaded.Format); err != nil {
		return err
	}
	if flagVerbose {
		loaded.LogLevel = logrus.DebugLevel.String()
	}

	cfg = loaded
	flagFormat = cfg.Format
	logger = cfg.NewLogger()
	logger.SetOutput(cmd.ErrOrStderr())
	return nil
}

var (
	flagForce     bool
	flagLanguages string
	flagSerial    bool
	flagWorkers   int
	flagDiff      bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a directory: chunk files and resolve their imports",
	Long:  "Discovers source files, chunks changed files with tree-sitter, extracts their imports, resolves them against the indexed files, and writes results to the SQLite database. Unchanged files are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. c_sharp,cpp)")
	indexCmd.Flags().BoolVar(&flagSerial, "serial", false, "extract files one at a time")
	indexCmd.Flags().IntVar(&flagWorkers, "workers", 0, "worker count (default: config, then one per CPU)")
	indexCmd.Flags().BoolVar(&flagDiff, "diff", false, "print a unified diff of the resolved edges to stdout")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dbDir, err)
	}

	if flagForce {
		if err := removeDB(dbPath); err != nil {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Cleared database: %s\n", dbPath)
	}
	_, statErr := os.Stat(dbPath)
	existed := statErr == nil

	opts := engineOptions(cmd)
	engine, err := thicket.New(dbPath, targetDir, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	var before []thicket.Edge
	if flagDiff && existed {
		if before, err = engine.Query().Edges(); err != nil {
			engine.Close()
			return fmt.Errorf("loading edges: %w", err)
		}
	}

	// Rows written under different chunking or resolution rules are stale.
	if existed && engine.RulesChanged() {
		engine.Close()
		if err := removeDB(dbPath); err != nil {
			return fmt.Errorf("removing stale database: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Rules changed, rebuilding: %s\n", dbPath)
		engine, err = thicket.New(dbPath, targetDir, opts...)
		if err != nil {
			return fmt.Errorf("creating engine: %w", err)
		}
	}
	defer engine.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	extractStart := time.Now()
	indexErr := engine.IndexDirectory(ctx)
	if indexErr != nil && ctx.Err() != nil {
		return fmt.Errorf("indexing: %w", indexErr)
	}
	extractDuration := time.Since(extractStart)

	resolveStart := time.Now()
	if err := engine.Resolve(ctx); err != nil {
		return fmt.Errorf("resolving: %w", err)
	}
	resolveDuration := time.Since(resolveStart)

	if flagDiff {
		if err := printEdgeDiff(cmd, engine, before); err != nil {
			return err
		}
	}

	if err := engine.Store().SetMetadata(rootMetadataKey, engine.Root()); err != nil {
		return fmt.Errorf("recording root: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Indexed %s in %s (extract: %s, resolve: %s)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		extractDuration.Round(time.Millisecond),
		resolveDuration.Round(time.Millisecond),
	)
	fmt.Fprintf(cmd.ErrOrStderr(), "Database: %s\n", dbPath)

	// Per-file failures do not stop the run but still fail the command.
	if indexErr != nil {
		return fmt.Errorf("indexing: %w", indexErr)
	}
	return nil
}

func printEdgeDiff(cmd *cobra.Command, engine *thicket.Engine, before []thicket.Edge) error {
	after, err := engine.Query().Edges()
	if err != nil {
		return fmt.Errorf("loading edges: %w", err)
	}
	diff, err := edgeDiff(before, after)
	if err != nil {
		return fmt.Errorf("diffing edges: %w", err)
	}
	if diff == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "No edge changes")
		return nil
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), diff)
	return err
}

// engineOptions builds Engine options from cfg and the index flags.
func engineOptions(cmd *cobra.Command) []thicket.Option {
	languages := cfg.Languages
	if flagLanguages != "" {
		languages = splitList(flagLanguages)
	}
	parallel := cfg.Parallel
	if flagSerial {
		parallel = false
	}
	workers := cfg.Workers
	if cmd.Flags().Changed("workers") {
		workers = flagWorkers
	}
	return []thicket.Option{
		thicket.WithLanguages(languages...),
		thicket.WithParallel(parallel),
		thicket.WithWorkers(workers),
		thicket.WithMemoSize(cfg.MemoSize),
		thicket.WithLogger(logger),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// removeDB deletes the database and its WAL side files.
func removeDB(dbPath string) error {
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from --db, the config file, or
// the default under repoRoot.
func resolveDBPath(repoRoot string) string {
	if cfg.DB != "" {
		if filepath.IsAbs(cfg.DB) {
			return cfg.DB
		}
		return filepath.Join(repoRoot, cfg.DB)
	}
	return filepath.Join(repoRoot, ".thicket", "index.db")
}
