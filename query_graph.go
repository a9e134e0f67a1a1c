package thicket

import (
	"fmt"
	"sort"
)

// maxGraphDepth caps transitive traversals.
const maxGraphDepth = 100

// FileGraph is a transitive dependency graph rooted at a file. Edges are
// bulk-loaded then traversed with BFS; no recursive SQL or N+1 queries.
type FileGraph struct {
	Root  string          `json:"root" yaml:"root"`
	Nodes []FileGraphNode `json:"nodes" yaml:"nodes"`
	Edges []Edge          `json:"edges" yaml:"edges"`
	Depth int             `json:"depth" yaml:"depth"` // actual max depth reached
}

// FileGraphNode is a file in the graph with its distance from the root.
type FileGraphNode struct {
	Path  string `json:"path" yaml:"path"`
	Depth int    `json:"depth" yaml:"depth"` // 0 = root itself
}

// fileGraphData holds the bulk-loaded adjacency maps.
type fileGraphData struct {
	forward map[string][]string // importer -> imported
	reverse map[string][]string // imported -> importers
	edges   []Edge
}

func (q *QueryBuilder) buildFileGraph() (*fileGraphData, error) {
	edges, err := q.store.ResolvedEdges()
	if err != nil {
		return nil, fmt.Errorf("build file graph: %w", err)
	}
	data := &fileGraphData{
		forward: make(map[string][]string),
		reverse: make(map[string][]string),
		edges:   edges,
	}
	// ResolvedEdges is sorted, so adjacency lists are too.
	for _, e := range edges {
		data.forward[e.Source] = append(data.forward[e.Source], e.Target)
		data.reverse[e.Target] = append(data.reverse[e.Target], e.Source)
	}
	return data, nil
}

// TransitiveDependencies returns every file reachable from path through
// resolved imports, up to maxDepth hops. maxDepth of 0 returns only the
// root node. Negative returns an error. Capped at 100. Returns nil, nil if
// path is not indexed.
func (q *QueryBuilder) TransitiveDependencies(path string, maxDepth int) (*FileGraph, error) {
	return q.transitive("transitive dependencies", path, maxDepth, false)
}

// TransitiveDependents returns every file that reaches path through
// resolved imports, up to maxDepth hops. Same conventions as
// TransitiveDependencies.
func (q *QueryBuilder) TransitiveDependents(path string, maxDepth int) (*FileGraph, error) {
	return q.transitive("transitive dependents", path, maxDepth, true)
}

func (q *QueryBuilder) transitive(op, path string, maxDepth int, reverse bool) (*FileGraph, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("%s: maxDepth must be non-negative, got %d", op, maxDepth)
	}
	if maxDepth > maxGraphDepth {
		maxDepth = maxGraphDepth
	}

	root, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if root == nil {
		return nil, nil
	}

	result := &FileGraph{
		Root:  path,
		Nodes: []FileGraphNode{{Path: path, Depth: 0}},
		Edges: []Edge{},
	}
	if maxDepth == 0 {
		return result, nil
	}

	data, err := q.buildFileGraph()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	adj := data.forward
	if reverse {
		adj = data.reverse
	}

	visited := map[string]int{path: 0}
	type bfsEntry struct {
		path  string
		depth int
	}
	queue := []bfsEntry{{path: path, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}
		for _, next := range adj[current.path] {
			if _, seen := visited[next]; seen {
				continue
			}
			newDepth := current.depth + 1
			visited[next] = newDepth
			if newDepth > result.Depth {
				result.Depth = newDepth
			}
			queue = append(queue, bfsEntry{path: next, depth: newDepth})
		}
	}

	others := make([]string, 0, len(visited)-1)
	for p := range visited {
		if p != path {
			others = append(others, p)
		}
	}
	sort.Slice(others, func(i, j int) bool {
		if visited[others[i]] != visited[others[j]] {
			return visited[others[i]] < visited[others[j]]
		}
		return others[i] < others[j]
	})
	for _, p := range others {
		result.Nodes = append(result.Nodes, FileGraphNode{Path: p, Depth: visited[p]})
	}

	// Keep edges whose endpoints were both reached.
	for _, e := range data.edges {
		_, src := visited[e.Source]
		_, dst := visited[e.Target]
		if src && dst {
			result.Edges = append(result.Edges, e)
		}
	}
	return result, nil
}
