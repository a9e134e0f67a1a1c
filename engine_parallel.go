package thicket

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jward/thicket/internal/parse"
	"github.com/jward/thicket/internal/store"
)

// workItem holds everything an extraction worker needs.
type workItem struct {
	path    string // repository-relative, forward slashes
	lang    string
	fileID  int64
	content []byte
	batch   *store.BatchedStore
}

// IndexFilesParallel indexes files using a three-phase parallel pipeline:
//
//	Phase A (serial):   Hash check, delete old data, prepare file records.
//	Phase B (parallel): Parse, chunk and extract imports via a worker pool.
//	Phase C (serial):   Commit batches to SQLite.
func (e *Engine) IndexFilesParallel(ctx context.Context, paths []string) error {
	if e.blastRadius == nil {
		e.blastRadius = make(map[int64]bool)
	}
	start := time.Now()

	// ---- Phase A: Serial file preparation ----
	var items []workItem
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("thicket: index: %w", err)
		}
		item, skip, err := e.prepareFile(path)
		if err != nil {
			e.logger.WithError(err).WithField("path", path).Warn("prepare failed")
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		item.batch = store.NewBatchedStore(e.store)
		items = append(items, item)
	}

	// ---- Phase B: Parallel extraction ----
	numWorkers := e.workerCount(len(items))

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item workItem
		err  error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each item carries its own BatchedStore, so workers never
			// share write state.
			for item := range workCh {
				err := e.extractFile(ctx, item, item.batch)
				resultCh <- result{item: item, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	committed := 0
	for res := range resultCh {
		if res.err == nil {
			res.err = e.store.CommitBatch(res.item.batch)
		}
		if res.err != nil {
			e.discardFile(res.item)
			e.logger.WithError(res.err).WithField("path", res.item.path).Warn("extract failed")
			errs = append(errs, fmt.Errorf("extract %s: %w", res.item.path, res.err))
			continue
		}
		committed++
	}

	e.logger.WithFields(logrus.Fields{
		"files":    len(paths),
		"indexed":  committed,
		"failed":   len(errs),
		"workers":  numWorkers,
		"duration": time.Since(start),
	}).Info("parallel index pass complete")

	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// prepareFile does Phase A work for a single file: hash check, cleanup,
// file record. Returns (item, skip, error). skip=true means the file is
// unchanged or unsupported.
func (e *Engine) prepareFile(path string) (workItem, bool, error) {
	rel, err := e.relPath(path)
	if err != nil {
		return workItem{}, false, err
	}
	lang, ok := parse.LanguageForFile(rel)
	if !ok || !e.wantLanguage(lang) {
		return workItem{}, true, nil
	}

	content, err := os.ReadFile(filepath.Join(e.root, filepath.FromSlash(rel)))
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(content)

	existing, err := e.store.FileByPath(rel)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		return workItem{}, true, nil // unchanged
	}

	if err := e.markResolvePending(); err != nil {
		return workItem{}, false, err
	}

	f := &store.File{
		Path:        rel,
		Language:    lang,
		Hash:        hash,
		LineCount:   lineCount(content),
		LastIndexed: time.Now(),
	}
	if existing != nil {
		if err := e.store.DeleteFileData(existing.ID); err != nil {
			return workItem{}, false, fmt.Errorf("delete old data: %w", err)
		}
		f.ID = existing.ID
		if err := e.store.UpdateFile(f); err != nil {
			return workItem{}, false, err
		}
	} else {
		if _, err := e.store.InsertFile(f); err != nil {
			return workItem{}, false, err
		}
		e.universeGrew = true
	}
	e.blastRadius[f.ID] = true

	return workItem{
		path:    rel,
		lang:    lang,
		fileID:  f.ID,
		content: content,
	}, false, nil
}

// lineCount counts lines, including a final line without a trailing newline.
func lineCount(content []byte) int {
	n := bytes.Count(content, []byte{'\n'})
	if len(content) > 0 && content[len(content)-1] != '\n' {
		n++
	}
	return n
}
