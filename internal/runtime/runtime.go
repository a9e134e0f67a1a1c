// Package runtime embeds a Risor VM for ad-hoc scripts over a thicket
// index. Scripts get tree-sitter host functions, the chunker and import
// extractors, and read access to the Store.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/sirupsen/logrus"

	"github.com/jward/thicket/internal/imports"
	"github.com/jward/thicket/internal/store"
)

// Runtime embeds a Risor VM and provides host functions for inspecting
// source and querying an index.
type Runtime struct {
	store      *store.Store
	registry   *imports.Registry
	scriptsDir string
	fsys       fs.FS
	sources    *sourceStore
	logger     *logrus.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger sets the logger behind the script-facing log module.
func WithLogger(logger *logrus.Logger) RuntimeOption {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegistry replaces the default import resolver registry.
func WithRegistry(reg *imports.Registry) RuntimeOption {
	return func(r *Runtime) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// NewRuntime creates a Runtime wired to the given Store and scripts
// directory. The Store may be nil, in which case the index globals are not
// defined.
func NewRuntime(s *store.Store, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		store:      s,
		registry:   imports.DefaultRegistry(),
		scriptsDir: scriptsDir,
		sources:    newSourceStore(),
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	_, err := r.EvalScript(ctx, scriptPath, extraGlobals)
	return err
}

// EvalScript is RunScript that also returns the value of the script's
// last expression, converted to a Go value.
func (r *Runtime) EvalScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) (any, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	_, err := r.eval(ctx, source, "<inline>", extraGlobals)
	return err
}

// EvalSource is RunSource that also returns the result value.
func (r *Runtime) EvalSource(ctx context.Context, source string, extraGlobals map[string]any) (any, error) {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) (any, error) {
	globals := r.buildGlobals(extraGlobals)

	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := make([]risor.Option, 0, len(names)+1)
	for _, name := range names {
		opts = append(opts, risor.WithGlobal(name, globals[name]))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(names); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	if result == nil {
		return nil, nil
	}
	return result.Interface(), nil
}

// buildImporter returns a Risor importer configured for the Runtime's
// script source. Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globalNames []string) importer.Importer {
	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		// fs.FS paths are relative: "/queries/x.risor" -> "queries/x.risor".
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"parse":           makeParseFn(r.sources),
		"parse_src":       makeParseSrcFn(r.sources),
		"node_text":       makeNodeTextFn(r.sources),
		"node_child":      makeNodeChildFn(),
		"query":           makeQueryFn(r.sources),
		"chunk_source":    makeChunkSourceFn(),
		"language_for":    makeLanguageForFn(),
		"extract_imports": makeExtractImportsFn(r.registry),
		"log":             makeLogModule(r.logger),
	}

	// Index access is only defined when a Store is attached.
	if r.store != nil {
		globals["files"] = makeFilesFn(r.store)
		globals["chunks"] = makeChunksFn(r.store)
		globals["chunk_at"] = makeChunkAtFn(r.store)
		globals["dependencies"] = makeDependenciesFn(r.store)
		globals["dependents"] = makeDependentsFn(r.store)
		globals["edges"] = makeEdgesFn(r.store)
		globals["resolve_import"] = makeResolveImportFn(r.store, r.registry)
		globals["db_query"] = makeDBQueryFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}
