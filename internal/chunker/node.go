package chunker

import sitter "github.com/smacker/go-tree-sitter"

// Node is the view of a syntax tree node the chunker needs. Child accessors
// return nil when the child does not exist.
type Node interface {
	Type() string
	NamedChildCount() int
	NamedChild(i int) Node
	ChildByFieldName(name string) Node
	Content() string
	Span() Span
}

// Span locates a node in its source. Byte offsets are half-open; lines are
// 1-based and inclusive.
type Span struct {
	StartByte int `json:"start_byte" yaml:"start_byte"`
	EndByte   int `json:"end_byte" yaml:"end_byte"`
	StartLine int `json:"start_line" yaml:"start_line"`
	EndLine   int `json:"end_line" yaml:"end_line"`
}

// Contains reports whether the 1-based line falls inside the span.
func (s Span) Contains(line int) bool {
	return line >= s.StartLine && line <= s.EndLine
}

// sitterNode adapts a tree-sitter node plus its source bytes to Node.
type sitterNode struct {
	n   *sitter.Node
	src []byte
}

// FromSitter wraps a tree-sitter node. src must be the exact bytes the tree
// was parsed from.
func FromSitter(n *sitter.Node, src []byte) Node {
	if n == nil || n.IsNull() {
		return nil
	}
	return &sitterNode{n: n, src: src}
}

func (s *sitterNode) Type() string { return s.n.Type() }

func (s *sitterNode) NamedChildCount() int { return int(s.n.NamedChildCount()) }

func (s *sitterNode) NamedChild(i int) Node {
	return FromSitter(s.n.NamedChild(i), s.src)
}

func (s *sitterNode) ChildByFieldName(name string) Node {
	return FromSitter(s.n.ChildByFieldName(name), s.src)
}

func (s *sitterNode) Content() string { return s.n.Content(s.src) }

func (s *sitterNode) Span() Span {
	return Span{
		StartByte: int(s.n.StartByte()),
		EndByte:   int(s.n.EndByte()),
		StartLine: int(s.n.StartPoint().Row) + 1,
		EndLine:   int(s.n.EndPoint().Row) + 1,
	}
}
