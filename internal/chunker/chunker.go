// Package chunker carves a parsed source file into hierarchy-aware chunks.
//
// Each chunk corresponds to one syntax node whose type opens a semantic
// scope in the file's language (class, function, namespace, ...). A chunk
// carries its context path: the rendered labels of every enclosing scope,
// outermost first, ending with the chunk's own label.
package chunker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jward/thicket/internal/langspec"
	"github.com/jward/thicket/internal/parse"
)

// ErrUnsupportedLanguage is returned when a language has no hierarchy spec
// or no grammar.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Chunk is one semantic scope of a source file.
type Chunk struct {
	NodeType       string   `json:"node_type" yaml:"node_type"`
	Name           *string  `json:"name" yaml:"name"`
	ContextPath    []string `json:"context_path" yaml:"context_path"`
	Span           Span     `json:"span" yaml:"span"`
	LeadingComment *string  `json:"leading_comment,omitempty" yaml:"leading_comment,omitempty"`
	Content        string   `json:"content" yaml:"content"`
}

// Label returns the chunk's own rendered label (the last context path entry).
func (c Chunk) Label() string {
	if len(c.ContextPath) == 0 {
		return ""
	}
	return c.ContextPath[len(c.ContextPath)-1]
}

// Depth is the number of enclosing hierarchy scopes, the chunk's own included.
func (c Chunk) Depth() int { return len(c.ContextPath) }

// ChunkTree walks root depth-first and returns one Chunk per node whose type
// is in cfg's hierarchy set, in pre-order.
//
// Comments attach forward: an uninterrupted run of comment siblings directly
// followed by a hierarchy sibling becomes that chunk's leading comment, the
// run joined with "\n". Any other named sibling in between discards the run.
func ChunkTree(root Node, cfg *langspec.Config) []Chunk {
	if root == nil || cfg == nil {
		return nil
	}
	w := &walker{cfg: cfg}
	w.visit(root, nil)
	return w.chunks
}

// ChunkSource parses src with the grammar for language and chunks the tree.
func ChunkSource(ctx context.Context, src []byte, language string) ([]Chunk, error) {
	cfg, ok := langspec.Get(language)
	if !ok {
		return nil, fmt.Errorf("chunk %s: %w", language, ErrUnsupportedLanguage)
	}
	tree, err := parse.Parse(ctx, src, language)
	if err != nil {
		if errors.Is(err, parse.ErrNoGrammar) {
			return nil, fmt.Errorf("chunk %s: %w", language, ErrUnsupportedLanguage)
		}
		return nil, err
	}
	defer tree.Close()
	return ChunkTree(FromSitter(tree.RootNode(), src), cfg), nil
}

type walker struct {
	cfg    *langspec.Config
	labels []string
	chunks []Chunk
}

func (w *walker) visit(n Node, leading *string) {
	if w.cfg.IsHierarchy(n.Type()) {
		name := w.resolveName(n)
		label := w.cfg.Prefix(n.Type())
		if name != nil {
			label += *name
		}
		w.labels = append(w.labels, label)
		defer func() { w.labels = w.labels[:len(w.labels)-1] }()

		path := make([]string, len(w.labels))
		copy(path, w.labels)
		w.chunks = append(w.chunks, Chunk{
			NodeType:       n.Type(),
			Name:           name,
			ContextPath:    path,
			Span:           n.Span(),
			LeadingComment: leading,
			Content:        n.Content(),
		})
	}
	w.visitChildren(n)
}

// visitChildren walks the named children of n. pending holds the comment run
// waiting for the next hierarchy sibling; it lives only for this level.
func (w *walker) visitChildren(n Node) {
	var pending []string
	for i := 0; i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch t := child.Type(); {
		case w.cfg.IsComment(t):
			pending = append(pending, child.Content())
			continue
		case w.cfg.IsHierarchy(t):
			w.visit(child, joinComments(pending))
		default:
			w.visit(child, nil)
		}
		pending = nil
	}
}

// resolveName probes the name fields in order, then falls back to the first
// direct named child whose type is a name node type.
func (w *walker) resolveName(n Node) *string {
	for _, field := range w.cfg.NameFields() {
		child := n.ChildByFieldName(field)
		if child == nil {
			continue
		}
		// C and C++ nest the identifier under declarator fields
		// (pointer_declarator -> function_declarator -> identifier).
		for inner := child.ChildByFieldName("declarator"); inner != nil; inner = child.ChildByFieldName("declarator") {
			child = inner
		}
		if text := child.Content(); text != "" {
			return &text
		}
	}
	for i := 0; i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child != nil && w.cfg.IsNameNode(child.Type()) {
			text := child.Content()
			return &text
		}
	}
	return nil
}

func joinComments(run []string) *string {
	if len(run) == 0 {
		return nil
	}
	s := strings.Join(run, "\n")
	return &s
}
