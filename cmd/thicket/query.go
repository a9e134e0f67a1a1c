package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/thicket"
)

// rootMetadataKey records the directory an index was built from, so file
// arguments can be mapped back to stored paths.
const rootMetadataKey = "root"

var flagContent bool

func init() {
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(chunksCmd)
	rootCmd.AddCommand(chunkAtCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(dependentsCmd)
	rootCmd.AddCommand(unresolvedCmd)

	chunksCmd.Flags().BoolVar(&flagContent, "content", false, "include chunk source text")
}

// --- Helpers ---

// openIndex opens the Engine over an existing database found from the
// working directory. The Engine's root is the directory recorded at index
// time.
func openIndex() (*thicket.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot := findRepoRoot(cwd)
	dbPath := resolveDBPath(repoRoot)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'thicket index' first)", dbPath)
	}

	e, err := thicket.New(dbPath, repoRoot, thicket.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	root, err := e.Store().GetMetadata(rootMetadataKey)
	if err != nil || root == "" || root == e.Root() {
		return e, nil
	}
	e.Close()
	return thicket.New(dbPath, root, thicket.WithLogger(logger))
}

// storedPath maps a file argument to its stored form. Arguments naming an
// existing file are taken relative to the working directory; anything
// else is assumed to already be relative to the index root.
func storedPath(root, arg string) string {
	if abs, err := filepath.Abs(arg); err == nil {
		if _, err := os.Stat(abs); err == nil {
			if rel, err := filepath.Rel(root, abs); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return filepath.ToSlash(rel)
			}
		}
	}
	return filepath.ToSlash(filepath.Clean(arg))
}

// parseLineArg parses a 1-based line argument.
func parseLineArg(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid line %q: must be a positive integer", value)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid line %q: lines are 1-based", value)
	}
	return n, nil
}

// outputResult writes result to the command's stdout in --format.
func outputResult(cmd *cobra.Command, result CLIResult) error {
	return writeResult(cmd.OutOrStdout(), flagFormat, result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON and YAML mode the error is written to
// stdout as a CLIResult envelope. In text mode it goes to stderr.
func outputError(cmd *cobra.Command, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	_ = writeResult(cmd.OutOrStdout(), flagFormat, CLIResult{
		Command: command,
		Error:   err.Error(),
	})
	return err
}

// requireFile maps arg to a stored path and fails if it is not indexed.
func requireFile(e *thicket.Engine, arg string) (string, error) {
	p := storedPath(e.Root(), arg)
	f, err := e.Query().File(p)
	if err != nil {
		return "", fmt.Errorf("looking up file %q: %w", arg, err)
	}
	if f == nil {
		return "", fmt.Errorf("file not indexed: %s", p)
	}
	return p, nil
}

// --- Commands ---

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	Args:  cobra.NoArgs,
	RunE:  runFiles,
}

func runFiles(cmd *cobra.Command, args []string) error {
	e, err := openIndex()
	if err != nil {
		return outputError(cmd, "files", err)
	}
	defer e.Close()

	files, err := e.Query().Files()
	if err != nil {
		return outputError(cmd, "files", err)
	}
	out := make([]CLIFile, len(files))
	for i, f := range files {
		out[i] = CLIFile{Path: f.Path, Language: f.Language, LineCount: f.LineCount}
	}
	total := len(out)
	return outputResult(cmd, CLIResult{Command: "files", Results: out, TotalCount: &total})
}

var chunksCmd = &cobra.Command{
	Use:   "chunks <file>",
	Short: "List the hierarchy chunks of a file in pre-order",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunks,
}

func runChunks(cmd *cobra.Command, args []string) error {
	e, err := openIndex()
	if err != nil {
		return outputError(cmd, "chunks", err)
	}
	defer e.Close()

	p, err := requireFile(e, args[0])
	if err != nil {
		return outputError(cmd, "chunks", err)
	}
	chunks, err := e.Query().Chunks(p)
	if err != nil {
		return outputError(cmd, "chunks", err)
	}
	out := make([]CLIChunk, len(chunks))
	for i, c := range chunks {
		out[i] = chunkToCLI(p, c, flagContent)
	}
	total := len(out)
	return outputResult(cmd, CLIResult{Command: "chunks", Results: out, TotalCount: &total})
}

var chunkAtCmd = &cobra.Command{
	Use:   "chunk-at <file> <line>",
	Short: "Show the innermost chunk covering a 1-based line",
	Args:  cobra.ExactArgs(2),
	RunE:  runChunkAt,
}

func runChunkAt(cmd *cobra.Command, args []string) error {
	line, err := parseLineArg(args[1])
	if err != nil {
		return outputError(cmd, "chunk-at", err)
	}
	e, err := openIndex()
	if err != nil {
		return outputError(cmd, "chunk-at", err)
	}
	defer e.Close()

	p, err := requireFile(e, args[0])
	if err != nil {
		return outputError(cmd, "chunk-at", err)
	}
	c, err := e.Query().ChunkAt(p, line)
	if err != nil {
		return outputError(cmd, "chunk-at", err)
	}
	if c == nil {
		return outputResult(cmd, CLIResult{Command: "chunk-at"})
	}
	return outputResult(cmd, CLIResult{Command: "chunk-at", Results: chunkToCLI(p, c, true)})
}

var depsCmd = &cobra.Command{
	Use:   "deps <file>",
	Short: "List a file's imports and the files they resolved to",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeps,
}

func runDeps(cmd *cobra.Command, args []string) error {
	e, err := openIndex()
	if err != nil {
		return outputError(cmd, "deps", err)
	}
	defer e.Close()

	p, err := requireFile(e, args[0])
	if err != nil {
		return outputError(cmd, "deps", err)
	}
	imps, err := e.Query().Dependencies(p)
	if err != nil {
		return outputError(cmd, "deps", err)
	}
	return outputImports(cmd, "deps", imps)
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents <file>",
	Short: "List the imports that resolved to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDependents,
}

func runDependents(cmd *cobra.Command, args []string) error {
	e, err := openIndex()
	if err != nil {
		return outputError(cmd, "dependents", err)
	}
	defer e.Close()

	p, err := requireFile(e, args[0])
	if err != nil {
		return outputError(cmd, "dependents", err)
	}
	imps, err := e.Query().Dependents(p)
	if err != nil {
		return outputError(cmd, "dependents", err)
	}
	return outputImports(cmd, "dependents", imps)
}

var unresolvedCmd = &cobra.Command{
	Use:   "unresolved [file]",
	Short: "List imports that did not resolve to an indexed file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUnresolved,
}

func runUnresolved(cmd *cobra.Command, args []string) error {
	e, err := openIndex()
	if err != nil {
		return outputError(cmd, "unresolved", err)
	}
	defer e.Close()

	var p string
	if len(args) > 0 {
		if p, err = requireFile(e, args[0]); err != nil {
			return outputError(cmd, "unresolved", err)
		}
	}
	imps, err := e.Query().Unresolved(p)
	if err != nil {
		return outputError(cmd, "unresolved", err)
	}
	return outputImports(cmd, "unresolved", imps)
}

func outputImports(cmd *cobra.Command, command string, imps []*thicket.Import) error {
	out := make([]CLIImport, len(imps))
	for i, imp := range imps {
		out[i] = importToCLI(imp)
	}
	total := len(out)
	return outputResult(cmd, CLIResult{Command: command, Results: out, TotalCount: &total})
}
