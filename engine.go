package thicket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/jward/thicket/internal/chunker"
	"github.com/jward/thicket/internal/imports"
	"github.com/jward/thicket/internal/langspec"
	"github.com/jward/thicket/internal/parse"
	"github.com/jward/thicket/internal/store"
)

// schemaVersion is folded into the rules hash; bump it when stored rows
// change meaning.
const schemaVersion = "1"

// resolvePendingKey is set in metadata before any import row changes and
// cleared once the resolutions are committed. A session that stops in
// between leaves it set, and the next Resolve is a full one.
const resolvePendingKey = "resolve_pending"

// Engine orchestrates the thicket pipeline: file discovery, change
// detection, chunking, import extraction, resolution, and query access.
type Engine struct {
	store     *store.Store
	root      string
	registry  *imports.Registry
	logger    *logrus.Logger
	languages map[string]bool // nil means all languages
	workers   int             // 0 means runtime.NumCPU()
	memoSize  int

	// blastRadius accumulates IDs of files whose imports must be
	// re-resolved. nil means "resolve everything" (nothing indexed yet in
	// this session).
	blastRadius map[int64]bool

	// universeGrew is set when a new path enters the index. A new file can
	// become a candidate for any import, so the next Resolve is a full one.
	universeGrew bool

	// pendingMarked caches that resolvePendingKey is already set.
	pendingMarked bool

	// staleEdges is set when the database was opened with resolvePendingKey
	// already set: an earlier session changed imports without resolving.
	staleEdges bool

	// useParallel enables the parallel extraction pipeline.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		if len(languages) == 0 {
			e.languages = nil
			return
		}
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithParallel controls parallel extraction. When true (default), IndexFiles
// uses a worker pool for parsing and chunking, with a single writer
// committing batches to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers caps extraction and resolution concurrency. n <= 0 means one
// worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = max(n, 0)
	}
}

// WithLogger sets the logger used for per-file failures and pass summaries.
func WithLogger(logger *logrus.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMemoSize sets the capacity of the suffix-lookup memo shared by
// concurrent resolutions. Zero disables it.
func WithMemoSize(n int) Option {
	return func(e *Engine) {
		e.memoSize = max(n, 0)
	}
}

// WithRegistry replaces the default import resolver registry.
func WithRegistry(r *imports.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// New creates an Engine backed by a SQLite database at dbPath that indexes
// files under root. Stored paths are relative to root with forward slashes.
func New(dbPath string, root string, opts ...Option) (*Engine, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("thicket: resolve root: %w", err)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("thicket: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("thicket: migrate: %w", err)
	}
	pending, err := s.GetMetadata(resolvePendingKey)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("thicket: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	e := &Engine{
		store:       s,
		root:        absRoot,
		registry:    imports.DefaultRegistry(),
		logger:      logger,
		memoSize:    imports.DefaultMemoSize,
		useParallel: true,
		staleEdges:  pending != "",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Root returns the absolute repository root.
func (e *Engine) Root() string {
	return e.root
}

// Registry returns the import resolver registry in use.
func (e *Engine) Registry() *imports.Registry {
	return e.registry
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// rulesHash fingerprints everything that decides what gets stored: the
// language hierarchy tables, the resolver list and the schema version.
func (e *Engine) rulesHash() string {
	h := xxh3.New()
	fmt.Fprintf(h, "schema:%s\n", schemaVersion)
	for _, lang := range langspec.Languages() {
		cfg, _ := langspec.Get(lang)
		fmt.Fprintf(h, "lang:%s\n", lang)
		for _, t := range cfg.HierarchyTypes() {
			fmt.Fprintf(h, "h:%s:%s\n", t, cfg.Prefix(t))
		}
		fmt.Fprintf(h, "names:%s\n", strings.Join(cfg.NameFields(), ","))
		fmt.Fprintf(h, "nodes:%s\n", strings.Join(cfg.NameNodeTypes(), ","))
		fmt.Fprintf(h, "comments:%s\n", strings.Join(cfg.CommentTypes(), ","))
	}
	for _, r := range e.registry.Resolvers() {
		fmt.Fprintf(h, "resolver:%s\n", r.Name())
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// RulesChanged reports whether the chunking and resolution rules differ
// from the ones used to build the current database. Returns true if the DB
// has no stored hash (first run) or if the hash doesn't match. When true,
// the caller should delete the DB and reindex from scratch.
func (e *Engine) RulesChanged() bool {
	stored, err := e.store.GetMetadata("rules_hash")
	if err != nil || stored == "" {
		return true
	}
	return stored != e.rulesHash()
}

func (e *Engine) storeRulesHash() {
	if err := e.store.SetMetadata("rules_hash", e.rulesHash()); err != nil {
		e.logger.WithError(err).Warn("store rules hash")
	}
}

// relPath maps a path given to IndexFiles to its stored form.
func (e *Engine) relPath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), nil
	}
	rel, err := filepath.Rel(e.root, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside root %s", path, e.root)
	}
	return filepath.ToSlash(rel), nil
}

func (e *Engine) wantLanguage(lang string) bool {
	return e.languages == nil || e.languages[lang]
}

func (e *Engine) workerCount(jobs int) int {
	n := e.workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return max(min(n, jobs), 1)
}

// IndexFiles indexes the given file paths, relative to the root or
// absolute. When WithParallel is enabled, uses a worker pool for
// concurrent extraction with batched SQLite writes. Otherwise falls back
// to the serial path.
//
// For each file:
//  1. Detect language from extension
//  2. Skip unsupported or filtered-out languages
//  3. Skip unchanged files (same content hash)
//  4. Delete stale chunks and imports, insert/update the file record
//  5. Chunk the syntax tree and extract raw imports
//
// Errors on individual files are logged and skipped; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	// Non-nil so Resolve can tell "no changes" from "first run".
	if e.blastRadius == nil {
		e.blastRadius = make(map[int64]bool)
	}
	if e.useParallel {
		return e.IndexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	start := time.Now()
	var errs []error
	indexed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("thicket: index: %w", err)
		}
		item, skip, err := e.prepareFile(path)
		if err != nil {
			e.logger.WithError(err).WithField("path", path).Warn("prepare failed")
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		if err := e.extractFile(ctx, item, e.store); err != nil {
			e.discardFile(item)
			e.logger.WithError(err).WithField("path", item.path).Warn("extract failed")
			errs = append(errs, fmt.Errorf("index %s: %w", item.path, err))
			continue
		}
		indexed++
	}
	e.logger.WithFields(logrus.Fields{
		"files":    len(paths),
		"indexed":  indexed,
		"failed":   len(errs),
		"duration": time.Since(start),
	}).Info("index pass complete")
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// discardFile drops the record of a file whose extraction failed, so the
// next run does not treat its content hash as indexed.
func (e *Engine) discardFile(item workItem) {
	if err := e.store.DeleteFile(item.fileID); err != nil {
		e.logger.WithError(err).WithField("path", item.path).Warn("discard failed file")
	}
	delete(e.blastRadius, item.fileID)
}

// skipDirs are excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// IndexDirectory discovers every supported file under the root, prunes
// indexed files that no longer exist, and indexes the rest. If the root is
// inside a git repository, uses git ls-files to respect .gitignore. Falls
// back to a filesystem walk (skipping hidden dirs, node_modules, vendor,
// __pycache__) if git is unavailable.
func (e *Engine) IndexDirectory(ctx context.Context) error {
	paths, err := e.gitListFiles()
	if err != nil {
		e.logger.WithError(err).Debug("git ls-files unavailable, walking")
		paths, err = e.walkListFiles()
		if err != nil {
			return fmt.Errorf("thicket: %w", err)
		}
	}
	sort.Strings(paths)

	if err := e.prune(paths); err != nil {
		return fmt.Errorf("thicket: %w", err)
	}
	return e.IndexFiles(ctx, paths)
}

// markResolvePending records that stored imports are ahead of their
// resolutions.
func (e *Engine) markResolvePending() error {
	if e.pendingMarked {
		return nil
	}
	if err := e.store.SetMetadata(resolvePendingKey, "1"); err != nil {
		return err
	}
	e.pendingMarked = true
	return nil
}

// prune removes indexed files missing from present. Files whose imports
// resolved to a removed path join the blast radius.
func (e *Engine) prune(present []string) error {
	indexed, err := e.store.AllPaths()
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	keep := make(map[string]bool, len(present))
	for _, p := range present {
		keep[p] = true
	}
	for _, p := range indexed {
		if !keep[p] {
			if err := e.markResolvePending(); err != nil {
				return fmt.Errorf("prune: %w", err)
			}
			break
		}
	}

	removed, err := e.store.DeleteFilesNotIn(present)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	if len(removed) == 0 {
		return nil
	}
	dependents, err := e.store.FilesResolvingTo(removed)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	if e.blastRadius == nil {
		e.blastRadius = make(map[int64]bool)
	}
	for _, id := range dependents {
		e.blastRadius[id] = true
	}
	e.logger.WithFields(logrus.Fields{
		"removed":    len(removed),
		"dependents": len(dependents),
	}).Info("pruned vanished files")
	return nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under the root, filtered to supported extensions.
func (e *Engine) gitListFiles() ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = e.root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, ok := parse.LanguageForFile(line); !ok {
			continue
		}
		// Deleted-but-tracked files are still listed by --cached.
		if _, err := os.Stat(filepath.Join(e.root, filepath.FromSlash(line))); err != nil {
			continue
		}
		paths = append(paths, line)
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a
// fallback when git is not available.
func (e *Engine) walkListFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(e.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != e.root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := parse.LanguageForFile(path); !ok {
			return nil
		}
		rel, err := filepath.Rel(e.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// Resolve maps every pending raw import to a file in the indexed universe
// and stores the result. After a first index or when new files appeared
// every import is resolved; otherwise only imports of files in the blast
// radius are. Resolution is pure: the same universe and raw imports always
// produce the same edges.
func (e *Engine) Resolve(ctx context.Context) error {
	defer func() {
		e.blastRadius = nil
		e.universeGrew = false
	}()

	resumed := e.staleEdges
	full := e.blastRadius == nil || e.universeGrew || resumed
	if !full && len(e.blastRadius) == 0 {
		e.logger.Debug("resolve skipped: nothing changed")
		return nil
	}

	start := time.Now()
	paths, err := e.store.AllPaths()
	if err != nil {
		return fmt.Errorf("thicket: resolve: %w", err)
	}
	files := imports.NewFileSetWithMemo(paths, e.memoSize)

	var todo []*store.Import
	if full {
		todo, err = e.store.AllImports()
	} else {
		ids := make([]int64, 0, len(e.blastRadius))
		for id := range e.blastRadius {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		todo, err = e.store.ImportsForFiles(ids)
	}
	if err != nil {
		return fmt.Errorf("thicket: resolve: %w", err)
	}

	results := make([]store.Resolution, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount(len(todo)))
	for i, imp := range todo {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = store.Resolution{
				ImportID:     imp.ID,
				ResolvedPath: e.registry.Resolve(imp.SourcePath, imp.RawImport, files),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("thicket: resolve: %w", err)
	}

	if err := e.store.SetImportResolutions(results); err != nil {
		return fmt.Errorf("thicket: resolve: %w", err)
	}
	if e.pendingMarked || e.staleEdges {
		if err := e.store.SetMetadata(resolvePendingKey, ""); err != nil {
			return fmt.Errorf("thicket: resolve: %w", err)
		}
	}
	e.pendingMarked = false
	e.staleEdges = false
	e.storeRulesHash()

	resolved := 0
	for _, r := range results {
		if r.ResolvedPath != nil {
			resolved++
		}
	}
	e.logger.WithFields(logrus.Fields{
		"full":     full,
		"resumed":  resumed,
		"files":    files.Len(),
		"imports":  len(results),
		"resolved": resolved,
		"duration": time.Since(start),
	}).Info("resolve pass complete")
	return nil
}

// extractFile chunks one file and extracts its raw imports into ds.
func (e *Engine) extractFile(ctx context.Context, item workItem, ds store.DataStore) error {
	chunks, err := chunker.ChunkSource(ctx, item.content, item.lang)
	if err != nil && !errors.Is(err, chunker.ErrUnsupportedLanguage) {
		return fmt.Errorf("chunk: %w", err)
	}
	for i, c := range chunks {
		_, err := ds.InsertChunk(&store.Chunk{
			FileID:         item.fileID,
			Ordinal:        i,
			NodeType:       c.NodeType,
			Name:           c.Name,
			ContextPath:    store.StringList(c.ContextPath),
			StartByte:      c.Span.StartByte,
			EndByte:        c.Span.EndByte,
			StartLine:      c.Span.StartLine,
			EndLine:        c.Span.EndLine,
			LeadingComment: c.LeadingComment,
			Content:        c.Content,
		})
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	for i, raw := range e.registry.Extract(item.path, string(item.content)) {
		if _, err := ds.InsertImport(&store.Import{FileID: item.fileID, Ordinal: i, RawImport: raw}); err != nil {
			return fmt.Errorf("insert import %q: %w", raw, err)
		}
	}
	return nil
}
