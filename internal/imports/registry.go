package imports

// Registry dispatches files to the first resolver whose Supports matches.
// The resolver list is fixed at construction.
type Registry struct {
	resolvers []Resolver
}

// NewRegistry returns a Registry over resolvers, consulted in order.
func NewRegistry(resolvers ...Resolver) *Registry {
	return &Registry{resolvers: append([]Resolver(nil), resolvers...)}
}

// DefaultRegistry covers C#, C/C++, Java, and Python. Their extension sets
// are disjoint, so order does not affect dispatch.
func DefaultRegistry() *Registry {
	return NewRegistry(CSharpResolver{}, CppResolver{}, JavaResolver{}, PythonResolver{})
}

// Resolvers returns the resolvers in dispatch order.
func (r *Registry) Resolvers() []Resolver {
	return append([]Resolver(nil), r.resolvers...)
}

// For returns the resolver responsible for path.
func (r *Registry) For(path string) (Resolver, bool) {
	for _, res := range r.resolvers {
		if res.Supports(path) {
			return res, true
		}
	}
	return nil, false
}

// Extract returns the raw imports of a file, or nil if no resolver handles it.
func (r *Registry) Extract(path, content string) []string {
	res, ok := r.For(path)
	if !ok {
		return nil
	}
	return res.Extract(content)
}

// Resolve maps one raw import of sourceFile to a file in files. It returns
// nil when the file is unsupported or the import does not resolve.
func (r *Registry) Resolve(sourceFile, raw string, files *FileSet) *string {
	res, ok := r.For(sourceFile)
	if !ok {
		return nil
	}
	target, ok := res.Resolve(raw, sourceFile, files)
	if !ok {
		return nil
	}
	return &target
}

// Edges extracts and resolves every import of one file. Unsupported files
// yield no edges.
func (r *Registry) Edges(sourceFile, content string, files *FileSet) []ImportEdge {
	res, ok := r.For(sourceFile)
	if !ok {
		return nil
	}
	raws := res.Extract(content)
	edges := make([]ImportEdge, 0, len(raws))
	for _, raw := range raws {
		edge := ImportEdge{SourceFile: sourceFile, RawImport: raw}
		if target, ok := res.Resolve(raw, sourceFile, files); ok {
			edge.ResolvedFile = &target
		}
		edges = append(edges, edge)
	}
	return edges
}
