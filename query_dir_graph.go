package thicket

import (
	"fmt"
	"path"
	"sort"
)

// DirectoryGraph is the directory-to-directory dependency graph, aggregated
// from resolved file-level imports.
type DirectoryGraph struct {
	Directories []DirectoryNode `json:"directories" yaml:"directories"`
	Edges       []DirectoryEdge `json:"edges" yaml:"edges"`
}

// DirectoryNode is a directory holding at least one indexed file. The
// repository root is ".".
type DirectoryNode struct {
	Name      string `json:"name" yaml:"name"`
	FileCount int    `json:"file_count" yaml:"file_count"`
	LineCount int    `json:"line_count" yaml:"line_count"`
}

// DirectoryEdge is a dependency between two directories with the number of
// resolved imports that contribute to it.
type DirectoryEdge struct {
	From        string `json:"from" yaml:"from"`
	To          string `json:"to" yaml:"to"`
	ImportCount int    `json:"import_count" yaml:"import_count"`
}

// DirectoryDependencyGraph aggregates resolved imports by the directories
// of their source and target files. Imports within one directory are not
// edges.
func (q *QueryBuilder) DirectoryDependencyGraph() (*DirectoryGraph, error) {
	files, err := q.store.AllFiles()
	if err != nil {
		return nil, fmt.Errorf("directory dependency graph: %w", err)
	}
	imps, err := q.store.AllImports()
	if err != nil {
		return nil, fmt.Errorf("directory dependency graph: %w", err)
	}

	dirFiles := map[string]int{}
	dirLines := map[string]int{}
	for _, f := range files {
		d := path.Dir(f.Path)
		dirFiles[d]++
		dirLines[d] += f.LineCount
	}

	type edgeKey struct {
		from, to string
	}
	edgeCounts := map[edgeKey]int{}
	for _, imp := range imps {
		if imp.ResolvedPath == nil {
			continue // external or missing, skip
		}
		from, to := path.Dir(imp.SourcePath), path.Dir(*imp.ResolvedPath)
		if from == to {
			continue
		}
		edgeCounts[edgeKey{from: from, to: to}]++
	}

	names := make([]string, 0, len(dirFiles))
	for name := range dirFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	graph := &DirectoryGraph{
		Directories: make([]DirectoryNode, 0, len(names)),
		Edges:       make([]DirectoryEdge, 0, len(edgeCounts)),
	}
	for _, name := range names {
		graph.Directories = append(graph.Directories, DirectoryNode{
			Name:      name,
			FileCount: dirFiles[name],
			LineCount: dirLines[name],
		})
	}
	for ek, count := range edgeCounts {
		graph.Edges = append(graph.Edges, DirectoryEdge{From: ek.from, To: ek.to, ImportCount: count})
	}
	// Sort edges for deterministic output.
	sort.Slice(graph.Edges, func(i, j int) bool {
		if graph.Edges[i].From != graph.Edges[j].From {
			return graph.Edges[i].From < graph.Edges[j].From
		}
		return graph.Edges[i].To < graph.Edges[j].To
	})
	return graph, nil
}

// CircularDependencies detects cycles in the directory dependency graph
// using Tarjan's strongly connected components algorithm. Each cycle lists
// its directories with the first repeated at the end. Returns an empty
// list (not nil) for acyclic graphs.
func (q *QueryBuilder) CircularDependencies() ([][]string, error) {
	graph, err := q.DirectoryDependencyGraph()
	if err != nil {
		return nil, fmt.Errorf("circular dependencies: %w", err)
	}

	adj := map[string][]string{}
	for _, edge := range graph.Edges {
		adj[edge.From] = append(adj[edge.From], edge.To)
	}

	type nodeInfo struct {
		index   int
		lowlink int
		onStack bool
	}
	info := map[string]*nodeInfo{}
	index := 0
	var stack []string
	result := [][]string{}

	var strongconnect func(v string)
	strongconnect = func(v string) {
		ni := &nodeInfo{index: index, lowlink: index, onStack: true}
		info[v] = ni
		index++
		stack = append(stack, v)

		for _, w := range adj[v] {
			wInfo, visited := info[w]
			if !visited {
				strongconnect(w)
				ni.lowlink = min(ni.lowlink, info[w].lowlink)
			} else if wInfo.onStack {
				ni.lowlink = min(ni.lowlink, wInfo.index)
			}
		}

		if ni.lowlink != ni.index {
			return
		}
		var scc []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			info[w].onStack = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		// Intra-directory imports are not edges, so only multi-node
		// components are cycles.
		if len(scc) > 1 {
			sort.Strings(scc)
			result = append(result, append(scc, scc[0]))
		}
	}

	for _, dir := range graph.Directories {
		if _, visited := info[dir.Name]; !visited {
			strongconnect(dir.Name)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i][0] < result[j][0]
	})
	return result, nil
}
