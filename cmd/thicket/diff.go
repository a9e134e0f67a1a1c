package main

import (
	"fmt"

	difflib "github.com/pmezard/go-difflib/difflib"

	"github.com/jward/thicket"
)

// edgeLines renders edges one per line, newline-terminated, in their
// stored (sorted) order.
func edgeLines(edges []thicket.Edge) []string {
	lines := make([]string, len(edges))
	for i, e := range edges {
		lines[i] = fmt.Sprintf("%s -> %s\n", e.Source, e.Target)
	}
	return lines
}

// edgeDiff returns a unified diff between two edge lists, or "" when they
// are identical.
func edgeDiff(before, after []thicket.Edge) (string, error) {
	u := difflib.UnifiedDiff{
		A:        edgeLines(before),
		B:        edgeLines(after),
		FromFile: "edges (before)",
		ToFile:   "edges (after)",
		Context:  1,
	}
	return difflib.GetUnifiedDiffString(u)
}
